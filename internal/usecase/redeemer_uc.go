package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
	"trading-signal-console/internal/infra/logging"
	"trading-signal-console/internal/infra/metrics"
)

// Locker serializes critical sections across processes. Satisfied by the
// redis-backed locker in infra.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ KeyRedeemerUseCase = (*keyRedeemerUC)(nil)

// KeyRedeemerUseCase consumes an activation key exactly once and grants its
// duration to the redeeming principal's subscription.
type KeyRedeemerUseCase interface {
	// Redeem returns the consumed key's duration in days. The key lookup is
	// by exact secret only; any miss is a uniform domain.ErrNotFound so the
	// caller cannot probe for near-miss secrets.
	Redeem(ctx context.Context, secret string, principalID int64) (int, error)
}

type keyRedeemerUC struct {
	keys       repository.ActivationKeyRepository
	principals repository.PrincipalRepository
	audits     repository.GrantAuditRepository
	tm         repository.TransactionManager
	locker     Locker
	log        *zerolog.Logger
}

func NewKeyRedeemerUseCase(
	keys repository.ActivationKeyRepository,
	principals repository.PrincipalRepository,
	audits repository.GrantAuditRepository,
	tm repository.TransactionManager,
	locker Locker,
	logger *zerolog.Logger,
) *keyRedeemerUC {
	return &keyRedeemerUC{keys: keys, principals: principals, audits: audits, tm: tm, locker: locker, log: logger}
}

// grantLockTTL bounds how long a crashed redeemer can hold a principal's
// grant lock.
const grantLockTTL = 10 * time.Second

func (u *keyRedeemerUC) Redeem(ctx context.Context, secret string, principalID int64) (int, error) {
	defer logging.TraceDuration(u.log, "KeyRedeemerUC.Redeem")()

	secret = strings.ToUpper(strings.TrimSpace(secret))
	if secret == "" || principalID <= 0 {
		metrics.IncKeyRedemptionFailure("invalid_argument")
		return 0, domain.ErrInvalidArgument
	}

	// Phase 1: consume the key. The precondition check and the transition
	// are a single conditional update inside one transaction, so two
	// concurrent redemptions of the same secret serialize in the store and
	// exactly one succeeds. Nothing external is called while this runs.
	var key *model.ActivationKey
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		k, err := u.keys.FindBySecret(ctx, tx, secret)
		if err != nil {
			return err
		}
		if err := u.keys.MarkUsed(ctx, tx, k.ID, principalID, time.Now()); err != nil {
			return err
		}
		key = k
		return nil
	})
	if err != nil {
		metrics.IncKeyRedemptionFailure(redemptionFailureReason(err))
		return 0, err
	}

	// Phase 2: grant the duration. Deliberately outside the key transaction
	// so a slow or failed grant cannot hold a lock across the redemption
	// check. If this fails the key stays consumed and the failure is queued
	// for manual reconciliation.
	if err := u.grant(ctx, key, principalID); err != nil {
		u.recordGrantFailure(ctx, key, principalID, err)
		metrics.IncGrantFailure()
		return 0, fmt.Errorf("%w: %v", domain.ErrGrantFailed, err)
	}

	metrics.IncKeysRedeemed()
	u.log.Info().
		Int64("key_id", key.ID).
		Int64("principal_id", principalID).
		Int("duration_days", key.DurationDays).
		Msg("activation key redeemed")
	return key.DurationDays, nil
}

// grant stacks the key's duration onto the principal's expiry. The read-
// modify-write runs under a per-principal lock so two different keys redeemed
// concurrently for the same principal both land.
func (u *keyRedeemerUC) grant(ctx context.Context, key *model.ActivationKey, principalID int64) error {
	lockKey := fmt.Sprintf("grant_lock:%d", principalID)
	token, err := u.locker.TryLock(ctx, lockKey, grantLockTTL)
	if err != nil {
		return fmt.Errorf("acquire grant lock: %w", err)
	}
	defer func() { _ = u.locker.Unlock(ctx, lockKey, token) }()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.principals.FindByID(ctx, tx, principalID)
		if err != nil {
			return err
		}
		p.ExtendSubscription(key.DurationDays, time.Now())
		return u.principals.Save(ctx, tx, p)
	})
}

func (u *keyRedeemerUC) recordGrantFailure(ctx context.Context, key *model.ActivationKey, principalID int64, cause error) {
	audit := model.NewGrantAudit(key.ID, principalID, key.DurationDays, cause.Error())
	if err := u.audits.Save(ctx, repository.NoTX, audit); err != nil {
		// Last resort: the log line is the only remaining trace.
		u.log.Error().Err(err).
			Int64("key_id", key.ID).
			Int64("principal_id", principalID).
			Msg("failed to record grant audit")
	}
	u.log.Error().Err(cause).
		Int64("key_id", key.ID).
		Int64("principal_id", principalID).
		Str("audit_id", audit.ID).
		Msg("grant failed after key was consumed")
}

func redemptionFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrKeyAlreadyConsumed):
		return "already_used"
	case errors.Is(err, domain.ErrKeyRevoked):
		return "revoked"
	default:
		return "storage"
	}
}
