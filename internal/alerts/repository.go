package alerts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
)

// Repository handles price alert persistence
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new alert repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.AlertRepository = (*Repository)(nil)

const alertSelect = `
	SELECT id, user_name, symbol, alert_type, target_value, status, message,
	       created_at, triggered_at, triggered_price
	FROM price_alerts
`

func (r *Repository) query(ctx context.Context, sql string, args ...interface{}) ([]*contracts.PriceAlert, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*contracts.PriceAlert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlert(row pgx.Row) (*contracts.PriceAlert, error) {
	var a contracts.PriceAlert
	err := row.Scan(
		&a.ID, &a.User, &a.Symbol, &a.Type, &a.TargetValue, &a.Status, &a.Message,
		&a.CreatedAt, &a.TriggeredAt, &a.TriggeredPrice,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns the user's alerts, newest first
func (r *Repository) List(ctx context.Context, user string) ([]*contracts.PriceAlert, error) {
	return r.query(ctx, alertSelect+`WHERE user_name = $1 ORDER BY created_at DESC`, user)
}

// ListActive returns every active alert across users
func (r *Repository) ListActive(ctx context.Context) ([]*contracts.PriceAlert, error) {
	return r.query(ctx, alertSelect+`WHERE status = $1 ORDER BY symbol, id`, contracts.AlertActive)
}

// Create inserts an alert
func (r *Repository) Create(ctx context.Context, a *contracts.PriceAlert) error {
	query := `
		INSERT INTO price_alerts (user_name, symbol, alert_type, target_value, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, a.User, a.Symbol, a.Type, a.TargetValue, a.Status, a.Message).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// Delete removes one of the user's alerts
func (r *Repository) Delete(ctx context.Context, user string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM price_alerts WHERE id = $1 AND user_name = $2`, id, user)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// MarkTriggered records the trigger time and price. Only active alerts
// transition; an alert already triggered is ErrNotFound.
func (r *Repository) MarkTriggered(ctx context.Context, a *contracts.PriceAlert) error {
	query := `
		UPDATE price_alerts
		SET status = $1, triggered_at = $2, triggered_price = $3
		WHERE id = $4 AND status = $5
	`

	tag, err := r.pool.Exec(ctx, query, contracts.AlertTriggered, a.TriggeredAt, a.TriggeredPrice, a.ID, contracts.AlertActive)
	if err != nil {
		return fmt.Errorf("failed to mark alert triggered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active alert %d: %w", a.ID, contracts.ErrNotFound)
	}
	a.Status = contracts.AlertTriggered
	return nil
}
