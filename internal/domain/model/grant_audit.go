package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// GrantAudit records a redemption whose key transition committed but whose
// subscription grant failed. The key is never un-consumed, so these records
// are the reconciliation queue an operator works through by hand.
type GrantAudit struct {
	ID           string    `json:"id"`
	KeyID        int64     `json:"key_id"`
	PrincipalID  int64     `json:"principal_id"`
	DurationDays int       `json:"duration_days"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewGrantAudit stamps a ULID so the queue sorts by time of failure.
func NewGrantAudit(keyID, principalID int64, durationDays int, reason string) *GrantAudit {
	now := time.Now()
	return &GrantAudit{
		ID:           ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		KeyID:        keyID,
		PrincipalID:  principalID,
		DurationDays: durationDays,
		Reason:       reason,
		CreatedAt:    now,
	}
}
