package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketSelectCols = `address, authority, market_id, word_index, label,
	yes_mint, no_mint, vault, total_collateral, status, outcome,
	bump, vault_bump, created_at, resolved_at`

func scanMarketRow(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var address, authority, yesMint, noMint, vault []byte
	var marketID, totalCollateral int64
	var wordIndex int32
	var status, outcome string
	var bump, vaultBump int16

	err := row.Scan(
		&address, &authority, &marketID, &wordIndex, &m.Label,
		&yesMint, &noMint, &vault, &totalCollateral, &status, &outcome,
		&bump, &vaultBump, &m.CreatedAt, &m.ResolvedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}

	if m.Address, err = toID(address); err != nil {
		return domain.Market{}, err
	}
	if m.Authority, err = toID(authority); err != nil {
		return domain.Market{}, err
	}
	if m.YesMint, err = toID(yesMint); err != nil {
		return domain.Market{}, err
	}
	if m.NoMint, err = toID(noMint); err != nil {
		return domain.Market{}, err
	}
	if m.Vault, err = toID(vault); err != nil {
		return domain.Market{}, err
	}
	m.MarketID = uint64(marketID)
	m.WordIndex = uint16(wordIndex)
	m.TotalCollateral = uint64(totalCollateral)
	if m.Status, err = domain.ParseMarketStatus(status); err != nil {
		return domain.Market{}, err
	}
	if m.Outcome, err = domain.ParseOutcome(outcome); err != nil {
		return domain.Market{}, err
	}
	m.Bump = byte(bump)
	m.VaultBump = byte(vaultBump)
	return m, nil
}

// Upsert inserts or replaces a market snapshot.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			address, authority, market_id, word_index, label,
			yes_mint, no_mint, vault, total_collateral, status, outcome,
			bump, vault_bump, created_at, resolved_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)
		ON CONFLICT (address) DO UPDATE SET
			total_collateral = EXCLUDED.total_collateral,
			status           = EXCLUDED.status,
			outcome          = EXCLUDED.outcome,
			resolved_at      = EXCLUDED.resolved_at`

	_, err := s.pool.Exec(ctx, query,
		m.Address[:], m.Authority[:], int64(m.MarketID), int32(m.WordIndex), m.Label,
		m.YesMint[:], m.NoMint[:], m.Vault[:], int64(m.TotalCollateral),
		m.Status.String(), m.Outcome.String(),
		int16(m.Bump), int16(m.VaultBump), m.CreatedAt, m.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.Address, err)
	}
	return nil
}

// GetByAddress retrieves a market snapshot by its derived address.
func (s *MarketStore) GetByAddress(ctx context.Context, addr domain.ID) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE address = $1`, addr[:])

	m, err := scanMarketRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", addr, err)
	}
	return m, nil
}

// List returns market snapshots ordered by creation time.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx, `SELECT `+marketSelectCols+` FROM markets`, nil, opts)
}

// ListByStatus returns market snapshots in the given lifecycle state.
func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE status = $1`,
		[]any{status.String()}, opts)
}

func (s *MarketStore) list(ctx context.Context, query string, args []any, opts domain.ListOpts) ([]domain.Market, error) {
	argIdx := len(args) + 1
	query += " ORDER BY created_at"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarketRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
