package model

import (
	"time"

	"trading-signal-console/internal/domain"
)

// Principal is an account known to the console. The account subsystem owns
// the record; this core owns the authorization meaning of GroupID and the
// subscription expiry written by key redemption.
type Principal struct {
	ID                    int64      `json:"id"`
	GroupID               int64      `json:"group_id"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func NewPrincipal(id, groupID int64) (*Principal, error) {
	if id <= 0 || groupID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Principal{
		ID:        id,
		GroupID:   groupID,
		CreatedAt: time.Now(),
	}, nil
}

// ExtendSubscription stacks durationDays onto the later of now and the
// current expiry, so remaining time is never overwritten.
func (p *Principal) ExtendSubscription(durationDays int, now time.Time) {
	base := now
	if p.SubscriptionExpiresAt != nil && p.SubscriptionExpiresAt.After(now) {
		base = *p.SubscriptionExpiresAt
	}
	expires := base.Add(time.Duration(durationDays) * 24 * time.Hour)
	p.SubscriptionExpiresAt = &expires
}

// SubscriptionActive reports whether the principal has unexpired time.
func (p *Principal) SubscriptionActive(now time.Time) bool {
	return p.SubscriptionExpiresAt != nil && p.SubscriptionExpiresAt.After(now)
}
