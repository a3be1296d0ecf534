package watchlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/database"
)

// Repository handles watchlist persistence
// ⭐ SSOT: watchlists and watchlist_groups are written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new watchlist repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.WatchlistRepository = (*Repository)(nil)

// ListGroups returns the user's groups with their item counts
func (r *Repository) ListGroups(ctx context.Context, user string) ([]*contracts.WatchlistGroup, error) {
	query := `
		SELECT g.id, g.user_name, g.name, g.description, g.color, g.sort_order,
		       COUNT(w.id), g.created_at, g.updated_at
		FROM watchlist_groups g
		LEFT JOIN watchlists w ON w.group_id = g.id
		WHERE g.user_name = $1
		GROUP BY g.id
		ORDER BY g.sort_order ASC, g.name ASC
	`

	rows, err := r.pool.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*contracts.WatchlistGroup, 0)
	for rows.Next() {
		var g contracts.WatchlistGroup
		if err := rows.Scan(
			&g.ID, &g.User, &g.Name, &g.Description, &g.Color, &g.Order,
			&g.StockCount, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist group: %w", err)
		}
		groups = append(groups, &g)
	}

	return groups, rows.Err()
}

// CreateGroup inserts a group; a name already used by the user is ErrDuplicate
func (r *Repository) CreateGroup(ctx context.Context, group *contracts.WatchlistGroup) error {
	query := `
		INSERT INTO watchlist_groups (user_name, name, description, color, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		group.User, group.Name, group.Description, group.Color, group.Order,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("group %q: %w", group.Name, contracts.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create watchlist group: %w", err)
	}
	return nil
}

const itemSelect = `
	SELECT w.id, w.user_name, w.symbol, w.group_id, COALESCE(g.name, ''), w.notes,
	       w.target_price, w.stop_loss_price, w.alert_enabled, w.sort_order, w.added_at
	FROM watchlists w
	LEFT JOIN watchlist_groups g ON g.id = w.group_id
`

func scanItem(row pgx.Row) (*contracts.WatchlistItem, error) {
	var item contracts.WatchlistItem
	err := row.Scan(
		&item.ID, &item.User, &item.Symbol, &item.GroupID, &item.GroupName, &item.Notes,
		&item.TargetPrice, &item.StopLossPrice, &item.AlertEnabled, &item.Order, &item.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns the user's items, optionally limited to one group
func (r *Repository) ListItems(ctx context.Context, user string, groupID *int64) ([]*contracts.WatchlistItem, error) {
	where := []string{"w.user_name = $1"}
	args := []interface{}{user}
	if groupID != nil {
		where = append(where, "w.group_id = $2")
		args = append(args, *groupID)
	}

	query := itemSelect + `WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY w.sort_order ASC, w.added_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	items := make([]*contracts.WatchlistItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetItem retrieves one of the user's items
func (r *Repository) GetItem(ctx context.Context, user string, id int64) (*contracts.WatchlistItem, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, itemSelect+`WHERE w.user_name = $1 AND w.id = $2`, user, id))
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("watchlist item %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist item: %w", err)
	}
	return item, nil
}

// CreateItem inserts an item; a symbol already watched is ErrDuplicate
func (r *Repository) CreateItem(ctx context.Context, item *contracts.WatchlistItem) error {
	query := `
		INSERT INTO watchlists (user_name, symbol, group_id, notes, target_price, stop_loss_price, alert_enabled, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, added_at
	`

	err := r.pool.QueryRow(ctx, query,
		item.User, item.Symbol, item.GroupID, item.Notes,
		item.TargetPrice, item.StopLossPrice, item.AlertEnabled, item.Order,
	).Scan(&item.ID, &item.AddedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s is already in the watchlist: %w", item.Symbol, contracts.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create watchlist item: %w", err)
	}
	return nil
}

// UpdateItem rewrites the editable fields of an item
func (r *Repository) UpdateItem(ctx context.Context, item *contracts.WatchlistItem) error {
	query := `
		UPDATE watchlists
		SET group_id = $1, notes = $2, target_price = $3, stop_loss_price = $4,
		    alert_enabled = $5, sort_order = $6
		WHERE id = $7 AND user_name = $8
	`

	tag, err := r.pool.Exec(ctx, query,
		item.GroupID, item.Notes, item.TargetPrice, item.StopLossPrice,
		item.AlertEnabled, item.Order, item.ID, item.User,
	)
	if err != nil {
		return fmt.Errorf("failed to update watchlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watchlist item %d: %w", item.ID, contracts.ErrNotFound)
	}
	return nil
}

// DeleteItem removes one of the user's items
func (r *Repository) DeleteItem(ctx context.Context, user string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM watchlists WHERE id = $1 AND user_name = $2`, id, user)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watchlist item %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// Symbols returns every distinct watched symbol across users
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM watchlists ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watched symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
