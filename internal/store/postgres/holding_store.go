package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// HoldingStore implements domain.HoldingStore using PostgreSQL.
type HoldingStore struct {
	pool *pgxpool.Pool
}

// NewHoldingStore creates a new HoldingStore backed by the given connection pool.
func NewHoldingStore(pool *pgxpool.Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

func scanHoldingRow(row pgx.Row) (domain.Holding, error) {
	var h domain.Holding
	var mint, owner []byte
	var balance int64

	err := row.Scan(&mint, &owner, &balance)
	if err != nil {
		return domain.Holding{}, err
	}

	if h.Mint, err = toID(mint); err != nil {
		return domain.Holding{}, err
	}
	if h.Owner, err = toID(owner); err != nil {
		return domain.Holding{}, err
	}
	h.Balance = uint64(balance)
	return h, nil
}

// Upsert inserts or replaces a share holding. A zero balance is stored rather
// than deleted so hydration sees the same rows the engine last wrote.
func (s *HoldingStore) Upsert(ctx context.Context, h domain.Holding) error {
	const query = `
		INSERT INTO holdings (mint, owner, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (mint, owner) DO UPDATE SET
			balance = EXCLUDED.balance`

	_, err := s.pool.Exec(ctx, query, h.Mint[:], h.Owner[:], int64(h.Balance))
	if err != nil {
		return fmt.Errorf("postgres: upsert holding %s/%s: %w", h.Mint, h.Owner, err)
	}
	return nil
}

// Get retrieves a single holding by mint and owner.
func (s *HoldingStore) Get(ctx context.Context, mint, owner domain.ID) (domain.Holding, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT mint, owner, balance FROM holdings WHERE mint = $1 AND owner = $2`,
		mint[:], owner[:])

	h, err := scanHoldingRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Holding{}, domain.ErrNotFound
		}
		return domain.Holding{}, fmt.Errorf("postgres: get holding %s/%s: %w", mint, owner, err)
	}
	return h, nil
}

// ListByOwner returns all holdings belonging to the given owner.
func (s *HoldingStore) ListByOwner(ctx context.Context, owner domain.ID) ([]domain.Holding, error) {
	return s.list(ctx,
		`SELECT mint, owner, balance FROM holdings WHERE owner = $1 ORDER BY mint`,
		owner[:])
}

// ListByMint returns all holdings of the given share mint.
func (s *HoldingStore) ListByMint(ctx context.Context, mint domain.ID) ([]domain.Holding, error) {
	return s.list(ctx,
		`SELECT mint, owner, balance FROM holdings WHERE mint = $1 ORDER BY owner`,
		mint[:])
}

func (s *HoldingStore) list(ctx context.Context, query string, arg []byte) ([]domain.Holding, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHoldingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Compile-time interface check.
var _ domain.HoldingStore = (*HoldingStore)(nil)
