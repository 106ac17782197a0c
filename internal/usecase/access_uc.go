package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
	"trading-signal-console/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// AccessUseCase is the gate consulted on every privileged request: is this
// principal, in its current group, allowed to use this surface.
type AccessUseCase interface {
	// IsAllowed is a pure read, safe to call at arbitrary frequency. Any
	// resolution failure (unknown principal, dangling group reference,
	// storage error) fails closed.
	IsAllowed(ctx context.Context, principalID int64, tab model.Tab) bool

	// ListAllowedTabs returns the principal's current tab set, for UI
	// guards that render a whole navigation bar per request.
	ListAllowedTabs(ctx context.Context, principalID int64) ([]model.Tab, error)
}

type accessUC struct {
	principals repository.PrincipalRepository
	groups     repository.GroupRepository
	log        *zerolog.Logger
}

func NewAccessUseCase(principals repository.PrincipalRepository, groups repository.GroupRepository, logger *zerolog.Logger) *accessUC {
	return &accessUC{principals: principals, groups: groups, log: logger}
}

func (u *accessUC) IsAllowed(ctx context.Context, principalID int64, tab model.Tab) bool {
	allowed := u.resolve(ctx, principalID, tab)
	metrics.IncAccessCheck(string(tab), allowed)
	return allowed
}

func (u *accessUC) resolve(ctx context.Context, principalID int64, tab model.Tab) bool {
	p, err := u.principals.FindByID(ctx, repository.NoTX, principalID)
	if err != nil {
		u.log.Warn().Err(err).Int64("principal_id", principalID).Msg("access check: principal unresolved, denying")
		return false
	}
	g, err := u.groups.FindByID(ctx, repository.NoTX, p.GroupID)
	if err != nil {
		// A broken group reference must never grant access.
		u.log.Warn().Err(err).Int64("principal_id", principalID).Int64("group_id", p.GroupID).
			Msg("access check: group unresolved, denying")
		return false
	}
	return g.Allows(tab)
}

func (u *accessUC) ListAllowedTabs(ctx context.Context, principalID int64) ([]model.Tab, error) {
	p, err := u.principals.FindByID(ctx, repository.NoTX, principalID)
	if err != nil {
		return nil, err
	}
	g, err := u.groups.FindByID(ctx, repository.NoTX, p.GroupID)
	if err != nil {
		return nil, err
	}
	return g.AllowedTabs, nil
}
