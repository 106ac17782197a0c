package repository

import (
	"context"

	"trading-signal-console/internal/domain/model"
)

// PrincipalRepository is the port onto account records. The account subsystem
// owns them; this core reads the group reference and writes the subscription
// expiry and group assignment.
type PrincipalRepository interface {
	// FindByID returns the principal or domain.ErrNotFound.
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Principal, error)
	// Save upserts the principal record.
	Save(ctx context.Context, tx Tx, p *model.Principal) error
}
