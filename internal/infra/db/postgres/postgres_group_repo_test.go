//go:build integration

package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

func mustGroup(t *testing.T, repo repository.GroupRepository, name string, tabs ...model.Tab) *model.Group {
	t.Helper()
	g, err := model.NewGroup(name, tabs)
	if err != nil {
		t.Fatalf("build group: %v", err)
	}
	if err := repo.Create(context.Background(), nil, g); err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func TestGroupRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewGroupRepo(testPool)
	principals := NewPrincipalRepo(testPool)

	t.Run("should round-trip a group with its tab array", func(t *testing.T) {
		cleanup(t)
		g := mustGroup(t, repo, "premium", model.TabSignals, model.TabDashboard)
		if g.ID == 0 {
			t.Fatal("expected database-assigned id")
		}

		got, err := repo.FindByID(ctx, nil, g.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		want := []model.Tab{model.TabDashboard, model.TabSignals}
		if got.Name != "premium" || !reflect.DeepEqual(got.AllowedTabs, want) {
			t.Errorf("round-tripped group = %+v, want tabs %v", got, want)
		}
	})

	t.Run("should refuse a duplicate name", func(t *testing.T) {
		cleanup(t)
		mustGroup(t, repo, "premium")
		dup, _ := model.NewGroup("premium", nil)
		if err := repo.Create(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("duplicate name: expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should replace the tab set in place", func(t *testing.T) {
		cleanup(t)
		g := mustGroup(t, repo, "premium", model.TabSignals, model.TabChart)

		if err := repo.SetAllowedTabs(ctx, nil, g.ID, []model.Tab{model.TabDemo}); err != nil {
			t.Fatalf("SetAllowedTabs: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, g.ID)
		if !reflect.DeepEqual(got.AllowedTabs, []model.Tab{model.TabDemo}) {
			t.Errorf("tabs after replace = %v, want [demo]", got.AllowedTabs)
		}

		// Clearing to the empty set is a normal replacement.
		if err := repo.SetAllowedTabs(ctx, nil, g.ID, nil); err != nil {
			t.Fatalf("SetAllowedTabs(empty): %v", err)
		}
		got, _ = repo.FindByID(ctx, nil, g.ID)
		if len(got.AllowedTabs) != 0 {
			t.Errorf("tabs after clearing = %v, want empty", got.AllowedTabs)
		}

		if err := repo.SetAllowedTabs(ctx, nil, 99999, []model.Tab{model.TabDemo}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("missing group: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should count members and block delete through the FK", func(t *testing.T) {
		cleanup(t)
		g := mustGroup(t, repo, "premium")

		n, err := repo.CountMembers(ctx, nil, g.ID)
		if err != nil || n != 0 {
			t.Fatalf("CountMembers(empty) = (%d, %v), want (0, nil)", n, err)
		}

		p, _ := model.NewPrincipal(42, g.ID)
		if err := principals.Save(ctx, nil, p); err != nil {
			t.Fatalf("save principal: %v", err)
		}
		n, err = repo.CountMembers(ctx, nil, g.ID)
		if err != nil || n != 1 {
			t.Fatalf("CountMembers = (%d, %v), want (1, nil)", n, err)
		}
	})

	t.Run("should delete an empty group and list the rest", func(t *testing.T) {
		cleanup(t)
		keep := mustGroup(t, repo, "default", model.TabDashboard)
		drop := mustGroup(t, repo, "stale")

		if err := repo.Delete(ctx, nil, drop.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := repo.Delete(ctx, nil, drop.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}

		all, err := repo.ListAll(ctx, nil)
		if err != nil {
			t.Fatalf("ListAll: %v", err)
		}
		if len(all) != 1 || all[0].ID != keep.ID {
			t.Errorf("ListAll after delete = %+v, want only %d", all, keep.ID)
		}
	})
}

func TestPrincipalRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	groups := NewGroupRepo(testPool)
	repo := NewPrincipalRepo(testPool)

	t.Run("should upsert and read back expiry and group", func(t *testing.T) {
		cleanup(t)
		def := mustGroup(t, groups, "default")
		premium := mustGroup(t, groups, "premium")

		p, _ := model.NewPrincipal(42, def.ID)
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, 42)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.GroupID != def.ID || got.SubscriptionExpiresAt != nil {
			t.Errorf("fresh principal = %+v", got)
		}

		got.GroupID = premium.ID
		got.ExtendSubscription(30, time.Now())
		if err := repo.Save(ctx, nil, got); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		again, _ := repo.FindByID(ctx, nil, 42)
		if again.GroupID != premium.ID {
			t.Errorf("group after move = %d, want %d", again.GroupID, premium.ID)
		}
		if again.SubscriptionExpiresAt == nil {
			t.Error("expected expiry to persist")
		}
	})

	t.Run("should report not found for an unknown principal", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestGrantAuditRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewGrantAuditRepo(testPool)

	t.Run("should store and list the queue newest first", func(t *testing.T) {
		cleanup(t)
		for i := int64(1); i <= 3; i++ {
			a := model.NewGrantAudit(i, 42, 30, "principal missing")
			if err := repo.Save(ctx, nil, a); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}

		got, err := repo.List(ctx, nil, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List(2) returned %d rows", len(got))
		}
		if got[0].KeyID != 3 || got[1].KeyID != 2 {
			t.Errorf("expected newest first, got key ids %d, %d", got[0].KeyID, got[1].KeyID)
		}
	})
}
