package model

import (
	"time"

	"trading-signal-console/internal/domain"
)

// KeyState is the lifecycle state of an activation key. It is never stored:
// it is derived from which terminal timestamp (if any) is set, so the server
// and every caller compute status from the same facts.
type KeyState string

const (
	KeyStateActive  KeyState = "active"
	KeyStateUsed    KeyState = "used"
	KeyStateRevoked KeyState = "revoked"
)

// ActivationKey is a single-use code that extends a principal's subscription
// by DurationDays when redeemed. Used and revoked are terminal and mutually
// exclusive: at most one of UsedAt/RevokedAt is ever non-nil, and once set
// neither changes.
type ActivationKey struct {
	ID                int64      `json:"id"`
	Secret            string     `json:"secret"`
	DurationDays      int        `json:"duration_days"`
	Note              string     `json:"note,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UsedByPrincipalID *int64     `json:"used_by_principal_id,omitempty"` // Pointer to allow for NULL
	UsedAt            *time.Time `json:"used_at,omitempty"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
}

const (
	MaxDurationDays = 3650
	MaxBatchCount   = 100
)

// NewActivationKey validates bounds and returns an unsaved active key.
// The ID is assigned by the store at creation.
func NewActivationKey(secret string, durationDays int, note string) (*ActivationKey, error) {
	if secret == "" {
		return nil, domain.ErrInvalidArgument
	}
	if durationDays <= 0 || durationDays > MaxDurationDays {
		return nil, domain.ErrInvalidArgument
	}
	return &ActivationKey{
		Secret:       secret,
		DurationDays: durationDays,
		Note:         note,
		CreatedAt:    time.Now(),
	}, nil
}

// State derives the lifecycle state from the terminal timestamps.
func (k *ActivationKey) State() KeyState {
	switch {
	case k.UsedAt != nil:
		return KeyStateUsed
	case k.RevokedAt != nil:
		return KeyStateRevoked
	default:
		return KeyStateActive
	}
}
