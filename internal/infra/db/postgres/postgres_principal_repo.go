package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.PrincipalRepository = (*principalRepo)(nil)

type principalRepo struct {
	pool *pgxpool.Pool
}

func NewPrincipalRepo(pool *pgxpool.Pool) repository.PrincipalRepository {
	return &principalRepo{pool: pool}
}

func (r *principalRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Principal, error) {
	const q = `
SELECT id, group_id, subscription_expires_at, created_at
  FROM principals WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var p model.Principal
	if err := row.Scan(&p.ID, &p.GroupID, &p.SubscriptionExpiresAt, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *principalRepo) Save(ctx context.Context, tx repository.Tx, p *model.Principal) error {
	const q = `
INSERT INTO principals (id, group_id, subscription_expires_at, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
  group_id = EXCLUDED.group_id,
  subscription_expires_at = EXCLUDED.subscription_expires_at;
`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.GroupID, p.SubscriptionExpiresAt, p.CreatedAt)
	return err
}
