package repository

import (
	"context"

	"trading-signal-console/internal/domain/model"
)

// GrantAuditRepository stores the reconciliation queue of failed grants.
type GrantAuditRepository interface {
	Save(ctx context.Context, tx Tx, a *model.GrantAudit) error
	// List returns up to limit records, newest first.
	List(ctx context.Context, tx Tx, limit int) ([]*model.GrantAudit, error)
}
