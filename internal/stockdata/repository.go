package stockdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/database"
)

// Repository handles listing and price snapshot persistence
// ⭐ SSOT: stocks and stock_prices are written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new stock repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.StockRepository = (*Repository)(nil)

const stockColumns = `id, symbol, name, exchange, sector, market_cap, created_at, updated_at`

// Upsert inserts a stock or refreshes its descriptive fields. Empty
// fields never overwrite stored values.
func (r *Repository) Upsert(ctx context.Context, stock *contracts.Stock) (*contracts.Stock, error) {
	symbol := strings.ToUpper(strings.TrimSpace(stock.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", contracts.ErrInvalidInput)
	}
	name := stock.Name
	if name == "" {
		name = symbol
	}

	query := `
		INSERT INTO stocks (symbol, name, exchange, sector, market_cap)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name = EXCLUDED.symbol THEN stocks.name ELSE EXCLUDED.name END,
			exchange = COALESCE(NULLIF(EXCLUDED.exchange, ''), stocks.exchange),
			sector = COALESCE(NULLIF(EXCLUDED.sector, ''), stocks.sector),
			market_cap = COALESCE(EXCLUDED.market_cap, stocks.market_cap),
			updated_at = NOW()
		RETURNING ` + stockColumns

	var out contracts.Stock
	err := r.pool.QueryRow(ctx, query, symbol, name, stock.Exchange, stock.Sector, stock.MarketCap).Scan(
		&out.ID, &out.Symbol, &out.Name, &out.Exchange, &out.Sector, &out.MarketCap,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock %s: %w", symbol, err)
	}
	return &out, nil
}

// GetBySymbol retrieves a stock by symbol
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*contracts.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	query := `SELECT ` + stockColumns + ` FROM stocks WHERE symbol = $1`

	var s contracts.Stock
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&s.ID, &s.Symbol, &s.Name, &s.Exchange, &s.Sector, &s.MarketCap,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("stock %s: %w", symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return &s, nil
}

// Search matches symbol prefixes and name substrings
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]*contracts.Stock, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*contracts.Stock{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	sql := `
		SELECT ` + stockColumns + `
		FROM stocks
		WHERE symbol ILIKE $1::text || '%' OR name ILIKE '%' || $1::text || '%'
		ORDER BY (symbol ILIKE $1::text || '%') DESC, symbol ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]*contracts.Stock, 0)
	for rows.Next() {
		var s contracts.Stock
		if err := rows.Scan(
			&s.ID, &s.Symbol, &s.Name, &s.Exchange, &s.Sector, &s.MarketCap,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return stocks, nil
}

// SavePrice stores a price snapshot, creating the stock row when needed
func (r *Repository) SavePrice(ctx context.Context, price *contracts.StockPrice) error {
	if price.StockID == 0 {
		stock, err := r.Upsert(ctx, &contracts.Stock{Symbol: price.Symbol})
		if err != nil {
			return err
		}
		price.StockID = stock.ID
	}
	if price.Timestamp.IsZero() {
		price.Timestamp = time.Now()
	}

	query := `
		INSERT INTO stock_prices (stock_id, price, change, change_percent, volume, source, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		price.StockID, price.Price, price.Change, price.ChangePercent,
		price.Volume, price.Source, price.Timestamp,
	).Scan(&price.ID)
	if err != nil {
		return fmt.Errorf("failed to save price for %s: %w", price.Symbol, err)
	}
	return nil
}

// LatestPrice returns the newest snapshot of symbol
func (r *Repository) LatestPrice(ctx context.Context, symbol string) (*contracts.StockPrice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	query := `
		SELECT p.id, p.stock_id, s.symbol, p.price, p.change, p.change_percent, p.volume, p.source, p.ts
		FROM stock_prices p
		JOIN stocks s ON s.id = p.stock_id
		WHERE s.symbol = $1
		ORDER BY p.ts DESC
		LIMIT 1
	`

	var p contracts.StockPrice
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&p.ID, &p.StockID, &p.Symbol, &p.Price, &p.Change, &p.ChangePercent,
		&p.Volume, &p.Source, &p.Timestamp,
	)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("price for %s: %w", symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return &p, nil
}

// PriceFromQuote converts a quote into a storable snapshot
func PriceFromQuote(q *contracts.Quote) *contracts.StockPrice {
	ts := q.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	return &contracts.StockPrice{
		Symbol:        strings.ToUpper(q.Symbol),
		Price:         decimal.NewFromFloat(q.Price).Round(2),
		Change:        decimal.NewFromFloat(q.Change).Round(2),
		ChangePercent: decimal.NewFromFloat(q.ChangePercent).Round(2),
		Volume:        q.Volume,
		Source:        q.DataSource,
		Timestamp:     ts,
	}
}
