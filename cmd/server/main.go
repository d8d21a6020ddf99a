package main

import (
	"log/slog"
	"os"

	"go-auth-service/internal/config"
	"go-auth-service/internal/logger"
)

func main() {
	installLogger(config.LoadLogLevel())

	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func installLogger(level string) {
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level: logger.ParseLevel(level),
	})))
}
