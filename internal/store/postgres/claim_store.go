package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// ClaimStore implements domain.ClaimStore using PostgreSQL. Like settlements,
// the claims table is an append-only journal.
type ClaimStore struct {
	pool *pgxpool.Pool
}

// NewClaimStore creates a new ClaimStore backed by the given connection pool.
func NewClaimStore(pool *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

const claimSelectCols = `id, market, "user", shares, payout, created_at`

func scanClaimRow(row pgx.Row) (domain.Claim, error) {
	var c domain.Claim
	var market, user []byte
	var shares, payout int64

	err := row.Scan(&c.ID, &market, &user, &shares, &payout, &c.CreatedAt)
	if err != nil {
		return domain.Claim{}, err
	}

	if c.Market, err = toID(market); err != nil {
		return domain.Claim{}, err
	}
	if c.User, err = toID(user); err != nil {
		return domain.Claim{}, err
	}
	c.Shares = uint64(shares)
	c.Payout = uint64(payout)
	return c, nil
}

// Insert appends a claim to the journal.
func (s *ClaimStore) Insert(ctx context.Context, c domain.Claim) error {
	const query = `
		INSERT INTO claims (id, market, "user", shares, payout, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Market[:], c.User[:], int64(c.Shares), int64(c.Payout), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert claim %s: %w", c.ID, err)
	}
	return nil
}

// ListByMarket returns claims for a market, newest first.
func (s *ClaimStore) ListByMarket(ctx context.Context, market domain.ID, opts domain.ListOpts) ([]domain.Claim, error) {
	query := `SELECT ` + claimSelectCols + ` FROM claims WHERE market = $1 ORDER BY created_at DESC`
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

// ListBefore returns all claims created strictly before the cutoff, oldest
// first.
func (s *ClaimStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Claim, error) {
	return s.query(ctx,
		`SELECT `+claimSelectCols+` FROM claims WHERE created_at < $1 ORDER BY created_at`,
		before)
}

func (s *ClaimStore) query(ctx context.Context, query string, args ...any) ([]domain.Claim, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		c, err := scanClaimRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// Compile-time interface check.
var _ domain.ClaimStore = (*ClaimStore)(nil)
