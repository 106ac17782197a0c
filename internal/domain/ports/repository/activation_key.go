package repository

import (
	"context"
	"time"

	"trading-signal-console/internal/domain/model"
)

// ActivationKeyRepository is the port for the durable key store. The state
// machine (active → used, active → revoked, both terminal) is enforced here:
// MarkUsed and Revoke must check the precondition and apply the transition as
// one atomic operation, so concurrent attempts on the same key serialize and
// the loser observes the post-transition state.
type ActivationKeyRepository interface {
	// CreateBatch persists all keys or none. IDs are assigned by the store
	// and written back into the passed models.
	CreateBatch(ctx context.Context, tx Tx, keys []*model.ActivationKey) error
	// FindByID returns the key or domain.ErrNotFound.
	FindByID(ctx context.Context, tx Tx, id int64) (*model.ActivationKey, error)
	// FindBySecret returns the key with that exact secret, in any state,
	// or domain.ErrNotFound.
	FindBySecret(ctx context.Context, tx Tx, secret string) (*model.ActivationKey, error)
	// List returns up to limit keys ordered by creation time descending.
	List(ctx context.Context, tx Tx, limit int) ([]*model.ActivationKey, error)
	// SecretExists reports whether any key (active, used or revoked) was
	// ever issued with this secret.
	SecretExists(ctx context.Context, tx Tx, secret string) (bool, error)
	// MarkUsed transitions active → used. Fails with ErrKeyAlreadyConsumed,
	// ErrKeyRevoked or ErrNotFound.
	MarkUsed(ctx context.Context, tx Tx, id, principalID int64, at time.Time) error
	// Revoke transitions active → revoked. Fails with ErrKeyAlreadyConsumed,
	// ErrAlreadyRevoked or ErrNotFound.
	Revoke(ctx context.Context, tx Tx, id int64, at time.Time) error
}
