package service

import (
	"context"
	"log/slog"
	"time"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
)

type AuditWriter interface {
	Log(ctx context.Context, entry model.AuditEntry) error
}

// AuditService turns published events into persisted audit entries.
type AuditService struct {
	writer       AuditWriter
	writeTimeout time.Duration
}

func NewAuditService(writer AuditWriter) *AuditService {
	return &AuditService{writer: writer, writeTimeout: 5 * time.Second}
}

// Run consumes events until ctx ends or events is closed. Write failures are
// logged and never stop the loop.
func (s *AuditService) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.record(ctx, e)
		}
	}
}

func (s *AuditService) record(ctx context.Context, e event.Event) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	if err := s.writer.Log(writeCtx, auditEntryFor(e)); err != nil {
		slog.Warn("audit write failed", "type", e.Type, "error", err)
	}
}

func auditEntryFor(e event.Event) model.AuditEntry {
	status := "success"
	switch e.Type {
	case event.TypeLoginFailed, event.TypeResetRejected:
		status = "failure"
	}

	return model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: e.Timestamp,
		Subject:    e.Subject,
		ClientIP:   e.ClientIP,
		Status:     status,
		Error:      e.Reason,
	}
}
