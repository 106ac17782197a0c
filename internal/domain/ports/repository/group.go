package repository

import (
	"context"

	"trading-signal-console/internal/domain/model"
)

// GroupRepository is the port for the group registry (named permission sets).
type GroupRepository interface {
	// Create persists a new group; the assigned ID is written back.
	Create(ctx context.Context, tx Tx, g *model.Group) error
	// FindByID returns the group or domain.ErrNotFound.
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Group, error)
	// ListAll returns every group with its current tab set.
	ListAll(ctx context.Context, tx Tx) ([]*model.Group, error)
	// SetAllowedTabs replaces the group's full tab set.
	SetAllowedTabs(ctx context.Context, tx Tx, id int64, tabs []model.Tab) error
	// CountMembers returns how many principals currently reference the group.
	CountMembers(ctx context.Context, tx Tx, id int64) (int, error)
	// Delete removes the group; callers check the member policy first.
	Delete(ctx context.Context, tx Tx, id int64) error
}
