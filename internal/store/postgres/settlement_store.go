package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL. The
// settlements table is an append-only journal; rows are never updated.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a new SettlementStore backed by the given
// connection pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

const settlementSelectCols = `id, market, yes_buyer, no_buyer, price, quantity, yes_cost, no_cost, created_at`

func scanSettlementRow(row pgx.Row) (domain.Settlement, error) {
	var st domain.Settlement
	var market, yesBuyer, noBuyer []byte
	var price, quantity, yesCost, noCost int64

	err := row.Scan(&st.ID, &market, &yesBuyer, &noBuyer,
		&price, &quantity, &yesCost, &noCost, &st.CreatedAt)
	if err != nil {
		return domain.Settlement{}, err
	}

	if st.Market, err = toID(market); err != nil {
		return domain.Settlement{}, err
	}
	if st.YesBuyer, err = toID(yesBuyer); err != nil {
		return domain.Settlement{}, err
	}
	if st.NoBuyer, err = toID(noBuyer); err != nil {
		return domain.Settlement{}, err
	}
	st.Price = uint64(price)
	st.Quantity = uint64(quantity)
	st.YesCost = uint64(yesCost)
	st.NoCost = uint64(noCost)
	return st, nil
}

// Insert appends a settlement to the journal.
func (s *SettlementStore) Insert(ctx context.Context, st domain.Settlement) error {
	const query = `
		INSERT INTO settlements (id, market, yes_buyer, no_buyer, price, quantity, yes_cost, no_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		st.ID, st.Market[:], st.YesBuyer[:], st.NoBuyer[:],
		int64(st.Price), int64(st.Quantity), int64(st.YesCost), int64(st.NoCost),
		st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert settlement %s: %w", st.ID, err)
	}
	return nil
}

// ListByMarket returns settlements for a market, newest first.
func (s *SettlementStore) ListByMarket(ctx context.Context, market domain.ID, opts domain.ListOpts) ([]domain.Settlement, error) {
	query := `SELECT ` + settlementSelectCols + ` FROM settlements WHERE market = $1 ORDER BY created_at DESC`
	args := []any{market[:]}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.query(ctx, query, args...)
}

// ListBefore returns all settlements created strictly before the cutoff,
// oldest first. The archiver uses this to export aged journal rows.
func (s *SettlementStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Settlement, error) {
	return s.query(ctx,
		`SELECT `+settlementSelectCols+` FROM settlements WHERE created_at < $1 ORDER BY created_at`,
		before)
}

func (s *SettlementStore) query(ctx context.Context, query string, args ...any) ([]domain.Settlement, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		st, err := scanSettlementRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

// Compile-time interface check.
var _ domain.SettlementStore = (*SettlementStore)(nil)
