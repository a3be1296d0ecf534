package portfolio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/database"
)

// Repository handles portfolio data persistence
// ⭐ SSOT: portfolios and holdings are written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.PortfolioRepository = (*Repository)(nil)

// List returns the user's portfolios, newest first
func (r *Repository) List(ctx context.Context, user string) ([]*contracts.Portfolio, error) {
	query := `
		SELECT id, user_name, name, description, created_at, updated_at
		FROM portfolios
		WHERE user_name = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]*contracts.Portfolio, 0)
	for rows.Next() {
		var p contracts.Portfolio
		if err := rows.Scan(&p.ID, &p.User, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return portfolios, nil
}

// Get retrieves one of the user's portfolios
func (r *Repository) Get(ctx context.Context, user string, id int64) (*contracts.Portfolio, error) {
	query := `
		SELECT id, user_name, name, description, created_at, updated_at
		FROM portfolios
		WHERE id = $1 AND user_name = $2
	`

	var p contracts.Portfolio
	err := r.pool.QueryRow(ctx, query, id, user).Scan(&p.ID, &p.User, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}

// Create inserts a portfolio; names are unique per user
func (r *Repository) Create(ctx context.Context, p *contracts.Portfolio) error {
	query := `
		INSERT INTO portfolios (user_name, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, p.User, p.Name, p.Description).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("portfolio %q: %w", p.Name, contracts.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

// Update renames or redescribes a portfolio
func (r *Repository) Update(ctx context.Context, p *contracts.Portfolio) error {
	query := `
		UPDATE portfolios
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 AND user_name = $4
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, p.Name, p.Description, p.ID, p.User).Scan(&p.CreatedAt, &p.UpdatedAt)
	if database.IsNoRows(err) {
		return fmt.Errorf("portfolio %d: %w", p.ID, contracts.ErrNotFound)
	}
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("portfolio %q: %w", p.Name, contracts.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	return nil
}

// Delete removes a portfolio and its holdings
func (r *Repository) Delete(ctx context.Context, user string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1 AND user_name = $2`, id, user)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

const holdingSelect = `
	SELECT h.id, h.portfolio_id, h.stock_id, s.symbol, s.name, s.exchange, s.sector,
	       h.quantity, h.average_cost, h.purchase_date, h.created_at, h.updated_at
	FROM holdings h
	JOIN stocks s ON s.id = h.stock_id
`

func scanHolding(row pgx.Row) (*contracts.Holding, error) {
	var h contracts.Holding
	err := row.Scan(
		&h.ID, &h.PortfolioID, &h.StockID, &h.Symbol, &h.Name, &h.Exchange, &h.Sector,
		&h.Quantity, &h.AverageCost, &h.PurchaseDate, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHoldings returns a portfolio's holdings with their stock fields
func (r *Repository) ListHoldings(ctx context.Context, portfolioID int64) ([]*contracts.Holding, error) {
	rows, err := r.pool.Query(ctx, holdingSelect+`WHERE h.portfolio_id = $1 ORDER BY s.symbol`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]*contracts.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// AddHolding inserts a holding, creating the stock row for its symbol.
// A stock already held in the portfolio is ErrDuplicate.
func (r *Repository) AddHolding(ctx context.Context, h *contracts.Holding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if h.StockID == 0 {
		name := h.Name
		if name == "" {
			name = h.Symbol
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO stocks (symbol, name, exchange, sector)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol) DO UPDATE SET updated_at = NOW()
			RETURNING id, name, exchange, sector
		`, strings.ToUpper(h.Symbol), name, h.Exchange, h.Sector).Scan(&h.StockID, &h.Name, &h.Exchange, &h.Sector)
		if err != nil {
			return fmt.Errorf("failed to resolve stock %s: %w", h.Symbol, err)
		}
	}

	if h.PurchaseDate.IsZero() {
		h.PurchaseDate = time.Now()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO holdings (portfolio_id, stock_id, quantity, average_cost, purchase_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, h.PortfolioID, h.StockID, h.Quantity, h.AverageCost, h.PurchaseDate).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s is already held: %w", h.Symbol, contracts.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to add holding: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit holding: %w", err)
	}
	return nil
}

// UpdateHolding changes quantity, cost and purchase date of one of the
// user's holdings
func (r *Repository) UpdateHolding(ctx context.Context, user string, h *contracts.Holding) error {
	query := `
		UPDATE holdings h
		SET quantity = $1, average_cost = $2, purchase_date = $3, updated_at = NOW()
		FROM portfolios p
		WHERE h.id = $4 AND p.id = h.portfolio_id AND p.user_name = $5
		RETURNING h.portfolio_id, h.stock_id, h.created_at, h.updated_at
	`

	err := r.pool.QueryRow(ctx, query, h.Quantity, h.AverageCost, h.PurchaseDate, h.ID, user).Scan(
		&h.PortfolioID, &h.StockID, &h.CreatedAt, &h.UpdatedAt,
	)
	if database.IsNoRows(err) {
		return fmt.Errorf("holding %d: %w", h.ID, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return nil
}

// GetHolding retrieves one of the user's holdings
func (r *Repository) GetHolding(ctx context.Context, user string, id int64) (*contracts.Holding, error) {
	h, err := scanHolding(r.pool.QueryRow(ctx, holdingSelect+`
		JOIN portfolios p ON p.id = h.portfolio_id
		WHERE h.id = $1 AND p.user_name = $2`, id, user))
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("holding %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// DeleteHolding removes one of the user's holdings
func (r *Repository) DeleteHolding(ctx context.Context, user string, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM holdings h
		USING portfolios p
		WHERE h.id = $1 AND p.id = h.portfolio_id AND p.user_name = $2
	`, id, user)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holding %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}
