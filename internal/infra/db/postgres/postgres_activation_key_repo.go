package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationKeyRepository = (*activationKeyRepo)(nil)

type activationKeyRepo struct {
	pool *pgxpool.Pool
}

func NewActivationKeyRepo(pool *pgxpool.Pool) repository.ActivationKeyRepository {
	return &activationKeyRepo{pool: pool}
}

const keyColumns = `id, secret, duration_days, note, created_at, used_by_principal_id, used_at, revoked_at`

// CreateBatch inserts every key of the batch. Callers run it inside a
// transaction, which is what makes the batch all-or-nothing.
func (r *activationKeyRepo) CreateBatch(ctx context.Context, tx repository.Tx, keys []*model.ActivationKey) error {
	const q = `
INSERT INTO activation_keys (secret, duration_days, note, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id;
`
	for _, k := range keys {
		row, err := pickRow(ctx, r.pool, tx, q, k.Secret, k.DurationDays, k.Note, k.CreatedAt)
		if err != nil {
			return err
		}
		if err := row.Scan(&k.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *activationKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.ActivationKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM activation_keys WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanKey(row)
}

// FindBySecret matches the exact secret only, in any state. Near misses and
// never-issued secrets are indistinguishable to the caller: both are
// domain.ErrNotFound.
func (r *activationKeyRepo) FindBySecret(ctx context.Context, tx repository.Tx, secret string) (*model.ActivationKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM activation_keys WHERE secret = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, secret)
	if err != nil {
		return nil, err
	}
	return scanKey(row)
}

func (r *activationKeyRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.ActivationKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM activation_keys ORDER BY created_at DESC, id DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivationKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *activationKeyRepo) SecretExists(ctx context.Context, tx repository.Tx, secret string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS(SELECT 1 FROM activation_keys WHERE secret = $1);`, secret)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkUsed applies active → used as one conditional statement: the WHERE
// clause is the precondition, so concurrent attempts serialize on the row and
// the loser sees zero rows affected, then reads the post-transition state to
// report the right terminal error.
func (r *activationKeyRepo) MarkUsed(ctx context.Context, tx repository.Tx, id, principalID int64, at time.Time) error {
	const q = `
UPDATE activation_keys
   SET used_by_principal_id = $2, used_at = $3
 WHERE id = $1 AND used_at IS NULL AND revoked_at IS NULL;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, principalID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.classifyTransitionFailure(ctx, tx, id, domain.ErrKeyRevoked)
}

// Revoke applies active → revoked with the same conditional-update shape as
// MarkUsed, so a revoke racing a redemption can never overwrite it.
func (r *activationKeyRepo) Revoke(ctx context.Context, tx repository.Tx, id int64, at time.Time) error {
	const q = `
UPDATE activation_keys
   SET revoked_at = $2
 WHERE id = $1 AND used_at IS NULL AND revoked_at IS NULL;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.classifyTransitionFailure(ctx, tx, id, domain.ErrAlreadyRevoked)
}

// classifyTransitionFailure re-reads the row after a zero-row conditional
// update and maps the observed terminal state to the caller's error.
func (r *activationKeyRepo) classifyTransitionFailure(ctx context.Context, tx repository.Tx, id int64, onRevoked error) error {
	k, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	switch k.State() {
	case model.KeyStateUsed:
		return domain.ErrKeyAlreadyConsumed
	case model.KeyStateRevoked:
		return onRevoked
	default:
		// The row was active on re-read yet the update matched nothing;
		// only plausible under a torn connection. Surface as storage trouble.
		return domain.ErrStorageFailure
	}
}

func scanKey(row pgx.Row) (*model.ActivationKey, error) {
	var k model.ActivationKey
	err := row.Scan(
		&k.ID, &k.Secret, &k.DurationDays, &k.Note, &k.CreatedAt,
		&k.UsedByPrincipalID, &k.UsedAt, &k.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}
