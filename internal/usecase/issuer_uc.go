package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
	"trading-signal-console/internal/infra/logging"
	"trading-signal-console/internal/infra/metrics"
)

// Compile-time check
var _ KeyIssuerUseCase = (*keyIssuerUC)(nil)

// KeyIssuerUseCase mints batches of activation keys under administrator command.
type KeyIssuerUseCase interface {
	// Generate mints count keys of durationDays each, all sharing note.
	// The batch is all-or-nothing: a failure mid-batch issues zero keys.
	Generate(ctx context.Context, durationDays, count int, note string) ([]*model.ActivationKey, error)
}

type keyIssuerUC struct {
	keys repository.ActivationKeyRepository
	tm   repository.TransactionManager
	log  *zerolog.Logger
}

func NewKeyIssuerUseCase(keys repository.ActivationKeyRepository, tm repository.TransactionManager, logger *zerolog.Logger) *keyIssuerUC {
	return &keyIssuerUC{keys: keys, tm: tm, log: logger}
}

// secretRetries bounds regeneration attempts for a single colliding secret.
// The space is 32^16 so more than a couple of retries means the RNG is broken.
const secretRetries = 5

func (u *keyIssuerUC) Generate(ctx context.Context, durationDays, count int, note string) ([]*model.ActivationKey, error) {
	defer logging.TraceDuration(u.log, "KeyIssuerUC.Generate")()

	if durationDays <= 0 || durationDays > model.MaxDurationDays {
		return nil, fmt.Errorf("duration_days must be in 1..%d: %w", model.MaxDurationDays, domain.ErrInvalidArgument)
	}
	if count <= 0 || count > model.MaxBatchCount {
		return nil, fmt.Errorf("count must be in 1..%d: %w", model.MaxBatchCount, domain.ErrInvalidArgument)
	}

	var batch []*model.ActivationKey
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		batch = batch[:0]
		local := make(map[string]struct{}, count)
		for i := 0; i < count; i++ {
			secret, err := u.uniqueSecret(ctx, tx, local)
			if err != nil {
				return err
			}
			local[secret] = struct{}{}
			key, err := model.NewActivationKey(secret, durationDays, note)
			if err != nil {
				return err
			}
			batch = append(batch, key)
		}
		if err := u.keys.CreateBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("%w: persist key batch: %v", domain.ErrStorageFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncKeysIssued(len(batch))
	u.log.Info().Int("count", len(batch)).Int("duration_days", durationDays).Msg("activation keys issued")
	return batch, nil
}

// uniqueSecret draws secrets until one is unused. A collision regenerates
// only that secret, never the whole batch.
func (u *keyIssuerUC) uniqueSecret(ctx context.Context, tx repository.Tx, local map[string]struct{}) (string, error) {
	for attempt := 0; attempt < secretRetries; attempt++ {
		secret, err := generateKeySecret()
		if err != nil {
			return "", err
		}
		if _, dup := local[secret]; dup {
			continue
		}
		exists, err := u.keys.SecretExists(ctx, tx, secret)
		if err != nil {
			return "", fmt.Errorf("%w: secret uniqueness check: %v", domain.ErrStorageFailure, err)
		}
		if !exists {
			return secret, nil
		}
		u.log.Warn().Int("attempt", attempt+1).Msg("key secret collision, regenerating")
	}
	return "", fmt.Errorf("%w: could not generate unique key secret", domain.ErrStorageFailure)
}
