package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// Checkpoint container layout:
//
//	magic "WMCP" | version u16 | takenAt unix-nanos i64
//	escrow count u32 | fixed-width escrow records
//	market count u32 | u32 length-prefixed market records
//	holding count u32 | fixed-width holding records
//
// All integers little-endian.

const (
	checkpointMagic   = "WMCP"
	checkpointVersion = 1
)

// HoldingSize is the fixed encoded size of a share holding record:
// mint 32B | owner 32B | balance u64.
const HoldingSize = 2*domain.IDLen + 8

// ErrBadMagic reports a checkpoint stream that does not start with the
// container magic.
var ErrBadMagic = fmt.Errorf("codec: bad checkpoint magic")

// MarshalHolding encodes a share holding record.
func MarshalHolding(h domain.Holding) []byte {
	buf := make([]byte, HoldingSize)
	n := copy(buf, h.Mint[:])
	n += copy(buf[n:], h.Owner[:])
	binary.LittleEndian.PutUint64(buf[n:], h.Balance)
	return buf
}

// UnmarshalHolding decodes a share holding record.
func UnmarshalHolding(buf []byte) (domain.Holding, error) {
	if len(buf) < HoldingSize {
		return domain.Holding{}, fmt.Errorf("%w: holding record %d bytes", ErrShortBuffer, len(buf))
	}
	if len(buf) > HoldingSize {
		return domain.Holding{}, ErrTrailingBytes
	}

	var h domain.Holding
	copy(h.Mint[:], buf[:domain.IDLen])
	copy(h.Owner[:], buf[domain.IDLen:2*domain.IDLen])
	h.Balance = binary.LittleEndian.Uint64(buf[2*domain.IDLen:])
	return h, nil
}

// WriteCheckpoint streams a full ledger snapshot in the checkpoint container
// format.
func WriteCheckpoint(w io.Writer, at time.Time, escrows []domain.UserEscrow, markets []domain.Market, holdings []domain.Holding) error {
	head := make([]byte, 0, 4+2+8)
	head = append(head, checkpointMagic...)
	head = binary.LittleEndian.AppendUint16(head, checkpointVersion)
	head = binary.LittleEndian.AppendUint64(head, uint64(at.UnixNano()))
	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("codec: write checkpoint header: %w", err)
	}

	if err := writeCount(w, len(escrows)); err != nil {
		return err
	}
	for _, e := range escrows {
		if _, err := w.Write(MarshalEscrow(e)); err != nil {
			return fmt.Errorf("codec: write escrow record: %w", err)
		}
	}

	if err := writeCount(w, len(markets)); err != nil {
		return err
	}
	for _, m := range markets {
		rec, err := MarshalMarket(m)
		if err != nil {
			return fmt.Errorf("codec: marshal market %s: %w", m.Address, err)
		}
		if err := writeCount(w, len(rec)); err != nil {
			return err
		}
		if _, err := w.Write(rec); err != nil {
			return fmt.Errorf("codec: write market record: %w", err)
		}
	}

	if err := writeCount(w, len(holdings)); err != nil {
		return err
	}
	for _, h := range holdings {
		if _, err := w.Write(MarshalHolding(h)); err != nil {
			return fmt.Errorf("codec: write holding record: %w", err)
		}
	}

	return nil
}

// ReadCheckpoint decodes a checkpoint container previously written with
// WriteCheckpoint. Records with bump mismatches fail the whole read.
func ReadCheckpoint(r io.Reader) (at time.Time, escrows []domain.UserEscrow, markets []domain.Market, holdings []domain.Holding, err error) {
	head := make([]byte, 4+2+8)
	if _, err = io.ReadFull(r, head); err != nil {
		return at, nil, nil, nil, fmt.Errorf("codec: read checkpoint header: %w", err)
	}
	if string(head[:4]) != checkpointMagic {
		return at, nil, nil, nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(head[4:]); v != checkpointVersion {
		return at, nil, nil, nil, fmt.Errorf("codec: unsupported checkpoint version %d", v)
	}
	at = time.Unix(0, int64(binary.LittleEndian.Uint64(head[6:])))

	n, err := readCount(r)
	if err != nil {
		return at, nil, nil, nil, err
	}
	buf := make([]byte, EscrowSize)
	for i := 0; i < n; i++ {
		if _, err = io.ReadFull(r, buf); err != nil {
			return at, nil, nil, nil, fmt.Errorf("codec: read escrow record: %w", err)
		}
		e, err := UnmarshalEscrow(buf)
		if err != nil {
			return at, nil, nil, nil, err
		}
		escrows = append(escrows, e)
	}

	if n, err = readCount(r); err != nil {
		return at, nil, nil, nil, err
	}
	for i := 0; i < n; i++ {
		recLen, err := readCount(r)
		if err != nil {
			return at, nil, nil, nil, err
		}
		if recLen > MaxMarketSize {
			return at, nil, nil, nil, fmt.Errorf("codec: market record %d bytes exceeds maximum", recLen)
		}
		rec := make([]byte, recLen)
		if _, err = io.ReadFull(r, rec); err != nil {
			return at, nil, nil, nil, fmt.Errorf("codec: read market record: %w", err)
		}
		m, err := UnmarshalMarket(rec)
		if err != nil {
			return at, nil, nil, nil, err
		}
		markets = append(markets, m)
	}

	if n, err = readCount(r); err != nil {
		return at, nil, nil, nil, err
	}
	hbuf := make([]byte, HoldingSize)
	for i := 0; i < n; i++ {
		if _, err = io.ReadFull(r, hbuf); err != nil {
			return at, nil, nil, nil, fmt.Errorf("codec: read holding record: %w", err)
		}
		h, err := UnmarshalHolding(hbuf)
		if err != nil {
			return at, nil, nil, nil, err
		}
		holdings = append(holdings, h)
	}

	return at, escrows, markets, holdings, nil
}

func writeCount(w io.Writer, n int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(n))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("codec: write count: %w", err)
	}
	return nil
}

func readCount(r io.Reader) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("codec: read count: %w", err)
	}
	return int(binary.LittleEndian.Uint32(buf[:])), nil
}
