package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.GroupRepository = (*groupRepo)(nil)

type groupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) repository.GroupRepository {
	return &groupRepo{pool: pool}
}

func (r *groupRepo) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	const q = `
INSERT INTO groups (name, allowed_tabs)
VALUES ($1, $2)
RETURNING id;
`
	row, err := pickRow(ctx, r.pool, tx, q, g.Name, tabsToStrings(g.AllowedTabs))
	if err != nil {
		return err
	}
	if err := row.Scan(&g.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *groupRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Group, error) {
	const q = `SELECT id, name, allowed_tabs FROM groups WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanGroup(row)
}

func (r *groupRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Group, error) {
	const q = `SELECT id, name, allowed_tabs FROM groups ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetAllowedTabs overwrites the stored set; replacement semantics live in
// the single UPDATE.
func (r *groupRepo) SetAllowedTabs(ctx context.Context, tx repository.Tx, id int64, tabs []model.Tab) error {
	const q = `UPDATE groups SET allowed_tabs = $2 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, tabsToStrings(tabs))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *groupRepo) CountMembers(ctx context.Context, tx repository.Tx, id int64) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM principals WHERE group_id = $1;`, id)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *groupRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM groups WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanGroup(row pgx.Row) (*model.Group, error) {
	var (
		g    model.Group
		tabs []string
	)
	if err := row.Scan(&g.ID, &g.Name, &tabs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	parsed, err := model.ParseTabs(tabs)
	if err != nil {
		// Stored tags are validated on the way in; an unknown tag here means
		// the table was edited out-of-band. Deny rather than guess.
		return nil, err
	}
	g.SetAllowedTabs(parsed)
	return &g, nil
}

func tabsToStrings(tabs []model.Tab) []string {
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = string(t)
	}
	return out
}
