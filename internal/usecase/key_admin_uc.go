package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
	"trading-signal-console/internal/infra/logging"
	"trading-signal-console/internal/infra/metrics"
)

// Compile-time check
var _ KeyAdminUseCase = (*keyAdminUC)(nil)

// KeyAdminUseCase exposes the administrator read/revoke surface of the key store.
type KeyAdminUseCase interface {
	Get(ctx context.Context, id int64) (*model.ActivationKey, error)
	// List returns keys ordered by creation time descending.
	List(ctx context.Context, limit int) ([]*model.ActivationKey, error)
	// Revoke terminates an unused key. A used key cannot be revoked:
	// revocation only prevents future use.
	Revoke(ctx context.Context, id int64) error
	// ListGrantAudits returns the reconciliation queue of grants that
	// failed after their key was consumed, newest first.
	ListGrantAudits(ctx context.Context, limit int) ([]*model.GrantAudit, error)
}

type keyAdminUC struct {
	keys   repository.ActivationKeyRepository
	audits repository.GrantAuditRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewKeyAdminUseCase(keys repository.ActivationKeyRepository, audits repository.GrantAuditRepository, tm repository.TransactionManager, logger *zerolog.Logger) *keyAdminUC {
	return &keyAdminUC{keys: keys, audits: audits, tm: tm, log: logger}
}

func (u *keyAdminUC) Get(ctx context.Context, id int64) (*model.ActivationKey, error) {
	defer logging.TraceDuration(u.log, "KeyAdminUC.Get")()
	return u.keys.FindByID(ctx, repository.NoTX, id)
}

const defaultListLimit = 100

func (u *keyAdminUC) List(ctx context.Context, limit int) ([]*model.ActivationKey, error) {
	defer logging.TraceDuration(u.log, "KeyAdminUC.List")()
	if limit <= 0 {
		limit = defaultListLimit
	}
	return u.keys.List(ctx, repository.NoTX, limit)
}

func (u *keyAdminUC) Revoke(ctx context.Context, id int64) error {
	defer logging.TraceDuration(u.log, "KeyAdminUC.Revoke")()

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.keys.Revoke(ctx, tx, id, time.Now())
	})
	if err != nil {
		return err
	}
	metrics.IncKeysRevoked()
	u.log.Info().Int64("key_id", id).Msg("activation key revoked")
	return nil
}

func (u *keyAdminUC) ListGrantAudits(ctx context.Context, limit int) ([]*model.GrantAudit, error) {
	defer logging.TraceDuration(u.log, "KeyAdminUC.ListGrantAudits")()
	if limit <= 0 {
		limit = defaultListLimit
	}
	return u.audits.List(ctx, repository.NoTX, limit)
}
