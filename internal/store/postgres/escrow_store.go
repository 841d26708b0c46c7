package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// EscrowStore implements domain.EscrowStore using PostgreSQL.
type EscrowStore struct {
	pool *pgxpool.Pool
}

// NewEscrowStore creates a new EscrowStore backed by the given connection pool.
func NewEscrowStore(pool *pgxpool.Pool) *EscrowStore {
	return &EscrowStore{pool: pool}
}

const escrowSelectCols = `address, owner, balance, locked, bump, created_at, updated_at`

// toID copies a BYTEA column value into a domain.ID.
func toID(b []byte) (domain.ID, error) {
	var id domain.ID
	if len(b) != domain.IDLen {
		return id, fmt.Errorf("postgres: id column has %d bytes, want %d", len(b), domain.IDLen)
	}
	copy(id[:], b)
	return id, nil
}

func scanEscrowRow(row pgx.Row) (domain.UserEscrow, error) {
	var e domain.UserEscrow
	var address, owner []byte
	var balance, locked int64
	var bump int16

	err := row.Scan(&address, &owner, &balance, &locked, &bump, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.UserEscrow{}, err
	}

	if e.Address, err = toID(address); err != nil {
		return domain.UserEscrow{}, err
	}
	if e.Owner, err = toID(owner); err != nil {
		return domain.UserEscrow{}, err
	}
	e.Balance = uint64(balance)
	e.Locked = uint64(locked)
	e.Bump = byte(bump)
	return e, nil
}

// Upsert inserts or replaces an escrow snapshot.
func (s *EscrowStore) Upsert(ctx context.Context, e domain.UserEscrow) error {
	const query = `
		INSERT INTO escrows (address, owner, balance, locked, bump, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			balance    = EXCLUDED.balance,
			locked     = EXCLUDED.locked,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		e.Address[:], e.Owner[:],
		int64(e.Balance), int64(e.Locked), int16(e.Bump),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert escrow %s: %w", e.Address, err)
	}
	return nil
}

// GetByAddress retrieves an escrow snapshot by its derived address.
func (s *EscrowStore) GetByAddress(ctx context.Context, addr domain.ID) (domain.UserEscrow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+escrowSelectCols+` FROM escrows WHERE address = $1`, addr[:])

	e, err := scanEscrowRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserEscrow{}, domain.ErrNotFound
		}
		return domain.UserEscrow{}, fmt.Errorf("postgres: get escrow %s: %w", addr, err)
	}
	return e, nil
}

// GetByOwner retrieves an escrow snapshot by its owner wallet.
func (s *EscrowStore) GetByOwner(ctx context.Context, owner domain.ID) (domain.UserEscrow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+escrowSelectCols+` FROM escrows WHERE owner = $1`, owner[:])

	e, err := scanEscrowRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserEscrow{}, domain.ErrNotFound
		}
		return domain.UserEscrow{}, fmt.Errorf("postgres: get escrow for owner %s: %w", owner, err)
	}
	return e, nil
}

// List returns escrow snapshots ordered by creation time.
func (s *EscrowStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.UserEscrow, error) {
	query := `SELECT ` + escrowSelectCols + ` FROM escrows ORDER BY created_at`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list escrows: %w", err)
	}
	defer rows.Close()

	var escrows []domain.UserEscrow
	for rows.Next() {
		e, err := scanEscrowRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan escrow: %w", err)
		}
		escrows = append(escrows, e)
	}
	return escrows, rows.Err()
}

// Compile-time interface check.
var _ domain.EscrowStore = (*EscrowStore)(nil)
