// Package codec implements the canonical binary record layouts for escrow
// and market records: fixed-width little-endian integers, a length-prefixed
// label, and single-byte enums. The encodings are used for ledger checkpoints
// exported to blob storage and for interchange with external settlement
// collaborators.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// EscrowSize is the fixed encoded size of a UserEscrow record:
// owner 32B | balance u64 | locked u64 | bump 1B.
const EscrowSize = domain.IDLen + 8 + 8 + 1

// marketFixedSize is the encoded size of a Market record excluding the
// variable label bytes: authority 32B | marketId u64 | wordIndex u16 |
// label length u32 | yesShareId/noShareId/vaultId 32B each |
// totalCollateral u64 | status 1B | outcome 2B | bump 1B | vaultBump 1B.
const marketFixedSize = domain.IDLen + 8 + 2 + 4 + 3*domain.IDLen + 8 + 1 + 2 + 1 + 1

// MaxMarketSize is the largest possible encoded Market record.
const MaxMarketSize = marketFixedSize + domain.MaxLabelLen

var (
	// ErrShortBuffer reports a record truncated below its declared size.
	ErrShortBuffer = errors.New("codec: short buffer")
	// ErrTrailingBytes reports unconsumed bytes after a complete record.
	ErrTrailingBytes = errors.New("codec: trailing bytes")
)

// MarshalEscrow encodes an escrow record into its fixed 49-byte layout.
func MarshalEscrow(e domain.UserEscrow) []byte {
	buf := make([]byte, EscrowSize)
	n := copy(buf, e.Owner[:])
	binary.LittleEndian.PutUint64(buf[n:], e.Balance)
	binary.LittleEndian.PutUint64(buf[n+8:], e.Locked)
	buf[n+16] = e.Bump
	return buf
}

// UnmarshalEscrow decodes an escrow record and re-derives its address from
// the owner, verifying the stored bump.
func UnmarshalEscrow(buf []byte) (domain.UserEscrow, error) {
	if len(buf) < EscrowSize {
		return domain.UserEscrow{}, fmt.Errorf("%w: escrow record %d bytes", ErrShortBuffer, len(buf))
	}
	if len(buf) > EscrowSize {
		return domain.UserEscrow{}, ErrTrailingBytes
	}

	var e domain.UserEscrow
	copy(e.Owner[:], buf[:domain.IDLen])
	rest := buf[domain.IDLen:]
	e.Balance = binary.LittleEndian.Uint64(rest)
	e.Locked = binary.LittleEndian.Uint64(rest[8:])
	e.Bump = rest[16]

	addr, bump := domain.EscrowAddress(e.Owner)
	if bump != e.Bump {
		return domain.UserEscrow{}, domain.ErrBumpMismatch
	}
	e.Address = addr
	return e, nil
}

// MarshalMarket encodes a market record. The label is written as a u32
// length prefix followed by the raw bytes, unpadded.
func MarshalMarket(m domain.Market) ([]byte, error) {
	if len(m.Label) > domain.MaxLabelLen {
		return nil, domain.ErrLabelTooLong
	}

	buf := make([]byte, 0, marketFixedSize+len(m.Label))
	buf = append(buf, m.Authority[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, m.MarketID)
	buf = binary.LittleEndian.AppendUint16(buf, m.WordIndex)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Label)))
	buf = append(buf, m.Label...)
	buf = append(buf, m.YesMint[:]...)
	buf = append(buf, m.NoMint[:]...)
	buf = append(buf, m.Vault[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, m.TotalCollateral)
	buf = append(buf, byte(m.Status))
	if m.Outcome == domain.OutcomeNone {
		buf = append(buf, 0, 0)
	} else {
		buf = append(buf, 1, byte(m.Outcome))
	}
	buf = append(buf, m.Bump, m.VaultBump)
	return buf, nil
}

// UnmarshalMarket decodes a market record and re-derives its address from
// (marketId, wordIndex), verifying the stored bump.
func UnmarshalMarket(buf []byte) (domain.Market, error) {
	var m domain.Market

	// Fixed head: authority, marketId, wordIndex, label length.
	head := domain.IDLen + 8 + 2 + 4
	if len(buf) < head {
		return domain.Market{}, fmt.Errorf("%w: market record %d bytes", ErrShortBuffer, len(buf))
	}
	copy(m.Authority[:], buf[:domain.IDLen])
	rest := buf[domain.IDLen:]
	m.MarketID = binary.LittleEndian.Uint64(rest)
	m.WordIndex = binary.LittleEndian.Uint16(rest[8:])
	labelLen := binary.LittleEndian.Uint32(rest[10:])
	if labelLen > domain.MaxLabelLen {
		return domain.Market{}, domain.ErrLabelTooLong
	}
	rest = rest[14:]

	tail := int(labelLen) + 3*domain.IDLen + 8 + 1 + 2 + 1 + 1
	if len(rest) < tail {
		return domain.Market{}, fmt.Errorf("%w: market record %d bytes", ErrShortBuffer, len(buf))
	}
	if len(rest) > tail {
		return domain.Market{}, ErrTrailingBytes
	}

	m.Label = string(rest[:labelLen])
	rest = rest[labelLen:]
	copy(m.YesMint[:], rest[:domain.IDLen])
	copy(m.NoMint[:], rest[domain.IDLen:2*domain.IDLen])
	copy(m.Vault[:], rest[2*domain.IDLen:3*domain.IDLen])
	rest = rest[3*domain.IDLen:]
	m.TotalCollateral = binary.LittleEndian.Uint64(rest)
	m.Status = domain.MarketStatus(rest[8])
	if m.Status > domain.StatusResolved {
		return domain.Market{}, fmt.Errorf("codec: invalid market status %d", rest[8])
	}
	switch rest[9] {
	case 0:
		m.Outcome = domain.OutcomeNone
	case 1:
		m.Outcome = domain.Outcome(rest[10])
		if m.Outcome != domain.OutcomeYes && m.Outcome != domain.OutcomeNo {
			return domain.Market{}, fmt.Errorf("codec: invalid outcome %d", rest[10])
		}
	default:
		return domain.Market{}, fmt.Errorf("codec: invalid outcome flag %d", rest[9])
	}
	m.Bump = rest[11]
	m.VaultBump = rest[12]

	addr, bump := domain.MarketAddress(m.MarketID, m.WordIndex)
	if bump != m.Bump {
		return domain.Market{}, domain.ErrBumpMismatch
	}
	m.Address = addr
	return m, nil
}
