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
)

// Compile-time check
var _ GroupUseCase = (*groupUC)(nil)

// GroupUseCase manages named permission sets and principal membership.
type GroupUseCase interface {
	Create(ctx context.Context, name string, tabs []string) (*model.Group, error)
	List(ctx context.Context) ([]*model.Group, error)
	// SetAllowedTabs replaces the group's full tab set (not a merge).
	// Unknown tags reject the whole request.
	SetAllowedTabs(ctx context.Context, groupID int64, tabs []string) error
	// Delete fails with ErrGroupNotEmpty while principals still reference
	// the group; members must be moved first.
	Delete(ctx context.Context, groupID int64) error
	// AssignPrincipal moves a principal to an existing group. A principal
	// can never be pointed at a non-existent group id.
	AssignPrincipal(ctx context.Context, principalID, groupID int64) error
}

type groupUC struct {
	groups     repository.GroupRepository
	principals repository.PrincipalRepository
	tm         repository.TransactionManager
	log        *zerolog.Logger
}

// groupCacheInvalidator is implemented by cached group repositories. A write
// inside a transaction invalidates the cache at call time, before the commit
// is visible; a gate read racing that window re-caches the old tab set for a
// full TTL. Invalidating again after the transaction returns closes the
// window, so a removed tab is denied on the next check.
type groupCacheInvalidator interface {
	InvalidateGroup(ctx context.Context, id int64)
}

func (u *groupUC) invalidateGroup(ctx context.Context, id int64) {
	if inv, ok := u.groups.(groupCacheInvalidator); ok {
		inv.InvalidateGroup(ctx, id)
	}
}

func NewGroupUseCase(groups repository.GroupRepository, principals repository.PrincipalRepository, tm repository.TransactionManager, logger *zerolog.Logger) *groupUC {
	return &groupUC{groups: groups, principals: principals, tm: tm, log: logger}
}

func (u *groupUC) Create(ctx context.Context, name string, tabs []string) (*model.Group, error) {
	defer logging.TraceDuration(u.log, "GroupUC.Create")()

	parsed, err := model.ParseTabs(tabs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	g, err := model.NewGroup(name, parsed)
	if err != nil {
		return nil, err
	}
	if err := u.groups.Create(ctx, repository.NoTX, g); err != nil {
		return nil, err
	}
	u.log.Info().Int64("group_id", g.ID).Str("name", g.Name).Msg("group created")
	return g, nil
}

func (u *groupUC) List(ctx context.Context) ([]*model.Group, error) {
	defer logging.TraceDuration(u.log, "GroupUC.List")()
	return u.groups.ListAll(ctx, repository.NoTX)
}

func (u *groupUC) SetAllowedTabs(ctx context.Context, groupID int64, tabs []string) error {
	defer logging.TraceDuration(u.log, "GroupUC.SetAllowedTabs")()

	parsed, err := model.ParseTabs(tabs)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.groups.FindByID(ctx, tx, groupID); err != nil {
			return err
		}
		return u.groups.SetAllowedTabs(ctx, tx, groupID, parsed)
	})
	if err != nil {
		return err
	}
	u.invalidateGroup(ctx, groupID)
	u.log.Info().Int64("group_id", groupID).Int("tabs", len(parsed)).Msg("group tabs replaced")
	return nil
}

func (u *groupUC) Delete(ctx context.Context, groupID int64) error {
	defer logging.TraceDuration(u.log, "GroupUC.Delete")()

	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.groups.FindByID(ctx, tx, groupID); err != nil {
			return err
		}
		members, err := u.groups.CountMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if members > 0 {
			return fmt.Errorf("%d members: %w", members, domain.ErrGroupNotEmpty)
		}
		return u.groups.Delete(ctx, tx, groupID)
	})
	if err != nil {
		return err
	}
	u.invalidateGroup(ctx, groupID)
	return nil
}

func (u *groupUC) AssignPrincipal(ctx context.Context, principalID, groupID int64) error {
	defer logging.TraceDuration(u.log, "GroupUC.AssignPrincipal")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.groups.FindByID(ctx, tx, groupID); err != nil {
			return err
		}
		p, err := u.principals.FindByID(ctx, tx, principalID)
		if err != nil {
			return err
		}
		p.GroupID = groupID
		return u.principals.Save(ctx, tx, p)
	})
}
