package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.GrantAuditRepository = (*grantAuditRepo)(nil)

type grantAuditRepo struct {
	pool *pgxpool.Pool
}

func NewGrantAuditRepo(pool *pgxpool.Pool) repository.GrantAuditRepository {
	return &grantAuditRepo{pool: pool}
}

func (r *grantAuditRepo) Save(ctx context.Context, tx repository.Tx, a *model.GrantAudit) error {
	const q = `
INSERT INTO grant_audits (id, key_id, principal_id, duration_days, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.KeyID, a.PrincipalID, a.DurationDays, a.Reason, a.CreatedAt)
	return err
}

func (r *grantAuditRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.GrantAudit, error) {
	const q = `
SELECT id, key_id, principal_id, duration_days, reason, created_at
  FROM grant_audits ORDER BY id DESC LIMIT $1;
`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GrantAudit
	for rows.Next() {
		var a model.GrantAudit
		if err := rows.Scan(&a.ID, &a.KeyID, &a.PrincipalID, &a.DurationDays, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
