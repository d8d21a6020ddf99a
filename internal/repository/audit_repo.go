package repository

import (
	"context"
	"fmt"

	"go-auth-service/internal/model"
)

type AuditRepository struct {
	pool dbPool
}

func NewAuditRepository(pool dbPool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_entries (action, occurred_at, subject, client_ip, status, error_text)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Action, entry.OccurredAt, entry.Subject, entry.ClientIP, entry.Status, entry.Error)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}
