package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-auth-service/internal/config"
	"go-auth-service/internal/database"
	"go-auth-service/internal/event"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/mail"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/router"
	"go-auth-service/internal/security"
	"go-auth-service/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	tokens, err := security.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.Open(context.Background(), database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Migrate:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	userRepo := repository.NewUserRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)
	var ledger service.ResetLedger
	if cfg.ResetTokenSingleUse {
		ledger = repository.NewTokenRepository(db.Pool)
	}
	slog.Info("database ready", "single_use_reset", cfg.ResetTokenSingleUse)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterMetrics(registry)

	if missing := cfg.Mail.Missing(); len(missing) > 0 {
		slog.Warn("mail settings incomplete, password reset requests will fail", "missing", missing)
	}

	bus := event.NewBus()
	hasher := security.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	sender := mail.NewSender(cfg.Mail, cfg.ResetURLBase, cfg.ResetTokenTTL)

	registrationService := service.NewRegistrationService(userRepo, hasher, tokens, bus, cfg.JWTAccessTTL)
	authService := service.NewAuthenticationService(userRepo, hasher, tokens, bus, cfg.JWTAccessTTL)
	resetService := service.NewPasswordResetService(userRepo, hasher, tokens, sender, ledger, bus, cfg.ResetTokenTTL)
	auditService := service.NewAuditService(auditRepo)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(registrationService, authService, resetService),
		Health: handler.NewHealthHandler(db),
		Docs:   handler.NewDocsHandler(),
	}, registry)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	auditEvents, unsubscribe := bus.Subscribe()
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		auditService.Run(backgroundCtx, auditEvents)
	}()
	resetService.StartCleanupTicker(backgroundCtx, cfg.TokenCleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		// Run in order after the server drains: flush audit, then close the pool.
		cleanupFuncs: []func(){
			func() {
				unsubscribe()
				<-auditDone
			},
			func() {
				backgroundCancel()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return runErr
}
