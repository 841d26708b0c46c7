package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

func testEscrow(ownerByte byte) domain.UserEscrow {
	var owner domain.ID
	owner[0] = ownerByte
	addr, bump := domain.EscrowAddress(owner)
	return domain.UserEscrow{
		Address: addr,
		Owner:   owner,
		Balance: 12_345_678_900,
		Locked:  42,
		Bump:    bump,
	}
}

func testMarket(marketID uint64, wordIndex uint16, label string) domain.Market {
	addr, bump := domain.MarketAddress(marketID, wordIndex)
	yesMint, _ := domain.YesMintAddress(addr)
	noMint, _ := domain.NoMintAddress(addr)
	vault, vaultBump := domain.VaultAddress(addr)

	var authority domain.ID
	authority[0] = 0xA0
	return domain.Market{
		Address:         addr,
		Authority:       authority,
		MarketID:        marketID,
		WordIndex:       wordIndex,
		Label:           label,
		YesMint:         yesMint,
		NoMint:          noMint,
		Vault:           vault,
		TotalCollateral: 5 * domain.UnitPrice,
		Status:          domain.StatusActive,
		Outcome:         domain.OutcomeNone,
		Bump:            bump,
		VaultBump:       vaultBump,
	}
}

func TestEscrowRoundTrip(t *testing.T) {
	orig := testEscrow(0x01)

	buf := MarshalEscrow(orig)
	require.Len(t, buf, EscrowSize)

	got, err := UnmarshalEscrow(buf)
	require.NoError(t, err)
	assert.Equal(t, orig.Owner, got.Owner)
	assert.Equal(t, orig.Balance, got.Balance)
	assert.Equal(t, orig.Locked, got.Locked)
	assert.Equal(t, orig.Bump, got.Bump)
	// The address is re-derived, never trusted from the wire.
	assert.Equal(t, orig.Address, got.Address)
}

func TestUnmarshalEscrowRejectsBadInput(t *testing.T) {
	orig := testEscrow(0x01)
	buf := MarshalEscrow(orig)

	_, err := UnmarshalEscrow(buf[:EscrowSize-1])
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = UnmarshalEscrow(append(buf, 0x00))
	assert.ErrorIs(t, err, ErrTrailingBytes)

	// A flipped bump fails verification against the derived address.
	tampered := make([]byte, len(buf))
	copy(tampered, buf)
	tampered[EscrowSize-1] ^= 0xFF
	_, err = UnmarshalEscrow(tampered)
	assert.ErrorIs(t, err, domain.ErrBumpMismatch)
}

func TestMarketRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Market)
	}{
		{"active unresolved", func(m *domain.Market) {}},
		{"empty label", func(m *domain.Market) { m.Label = "" }},
		{"paused", func(m *domain.Market) { m.Status = domain.StatusPaused }},
		{"resolved yes", func(m *domain.Market) {
			m.Status = domain.StatusResolved
			m.Outcome = domain.OutcomeYes
		}},
		{"resolved no", func(m *domain.Market) {
			m.Status = domain.StatusResolved
			m.Outcome = domain.OutcomeNo
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := testMarket(42, 7, "alpha")
			tc.mutate(&orig)

			buf, err := MarshalMarket(orig)
			require.NoError(t, err)
			require.LessOrEqual(t, len(buf), MaxMarketSize)

			got, err := UnmarshalMarket(buf)
			require.NoError(t, err)
			assert.Equal(t, orig.Address, got.Address)
			assert.Equal(t, orig.Authority, got.Authority)
			assert.Equal(t, orig.Label, got.Label)
			assert.Equal(t, orig.YesMint, got.YesMint)
			assert.Equal(t, orig.NoMint, got.NoMint)
			assert.Equal(t, orig.Vault, got.Vault)
			assert.Equal(t, orig.TotalCollateral, got.TotalCollateral)
			assert.Equal(t, orig.Status, got.Status)
			assert.Equal(t, orig.Outcome, got.Outcome)
			assert.Equal(t, orig.VaultBump, got.VaultBump)
		})
	}
}

func TestMarshalMarketRejectsLongLabel(t *testing.T) {
	m := testMarket(1, 0, "this label is far longer than the thirty-two character cap")
	_, err := MarshalMarket(m)
	assert.ErrorIs(t, err, domain.ErrLabelTooLong)
}

func TestUnmarshalMarketRejectsBadInput(t *testing.T) {
	orig := testMarket(42, 7, "alpha")
	buf, err := MarshalMarket(orig)
	require.NoError(t, err)

	_, err = UnmarshalMarket(buf[:10])
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = UnmarshalMarket(buf[:len(buf)-1])
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = UnmarshalMarket(append(buf, 0x00))
	assert.ErrorIs(t, err, ErrTrailingBytes)

	// Invalid status byte.
	bad := make([]byte, len(buf))
	copy(bad, buf)
	bad[len(bad)-5] = 99
	_, err = UnmarshalMarket(bad)
	assert.Error(t, err)

	// Invalid outcome flag.
	copy(bad, buf)
	bad[len(bad)-4] = 2
	_, err = UnmarshalMarket(bad)
	assert.Error(t, err)

	// Tampered bump.
	copy(bad, buf)
	bad[len(bad)-2] ^= 0xFF
	_, err = UnmarshalMarket(bad)
	assert.ErrorIs(t, err, domain.ErrBumpMismatch)
}

func TestHoldingRoundTrip(t *testing.T) {
	var mint, owner domain.ID
	mint[0] = 0x10
	owner[0] = 0x01
	orig := domain.Holding{Mint: mint, Owner: owner, Balance: 5 * domain.ShareScale}

	buf := MarshalHolding(orig)
	require.Len(t, buf, HoldingSize)

	got, err := UnmarshalHolding(buf)
	require.NoError(t, err)
	assert.Equal(t, orig, got)

	_, err = UnmarshalHolding(buf[:HoldingSize-1])
	assert.ErrorIs(t, err, ErrShortBuffer)
	_, err = UnmarshalHolding(append(buf, 0x00))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestCheckpointRoundTrip(t *testing.T) {
	escrows := []domain.UserEscrow{testEscrow(0x01), testEscrow(0x02)}
	markets := []domain.Market{testMarket(42, 7, "alpha"), testMarket(42, 8, "")}
	var mint, owner domain.ID
	mint[0] = 0x10
	owner[0] = 0x01
	holdings := []domain.Holding{
		{Mint: mint, Owner: owner, Balance: 100},
	}
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteCheckpoint(&buf, at, escrows, markets, holdings))

	gotAt, gotEscrows, gotMarkets, gotHoldings, err := ReadCheckpoint(&buf)
	require.NoError(t, err)
	assert.True(t, gotAt.Equal(at))
	require.Len(t, gotEscrows, 2)
	require.Len(t, gotMarkets, 2)
	require.Len(t, gotHoldings, 1)

	assert.Equal(t, escrows[0].Owner, gotEscrows[0].Owner)
	assert.Equal(t, escrows[1].Balance, gotEscrows[1].Balance)
	assert.Equal(t, markets[0].Address, gotMarkets[0].Address)
	assert.Equal(t, markets[1].Label, gotMarkets[1].Label)
	assert.Equal(t, holdings[0], gotHoldings[0])
}

func TestCheckpointEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCheckpoint(&buf, time.Now(), nil, nil, nil))

	_, escrows, markets, holdings, err := ReadCheckpoint(&buf)
	require.NoError(t, err)
	assert.Empty(t, escrows)
	assert.Empty(t, markets)
	assert.Empty(t, holdings)
}

func TestReadCheckpointRejectsBadHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCheckpoint(&buf, time.Now(), nil, nil, nil))
	data := buf.Bytes()

	// Wrong magic.
	bad := append([]byte{}, data...)
	bad[0] = 'X'
	_, _, _, _, err := ReadCheckpoint(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrBadMagic)

	// Unsupported version.
	bad = append([]byte{}, data...)
	bad[4] = 0xFF
	_, _, _, _, err = ReadCheckpoint(bytes.NewReader(bad))
	assert.Error(t, err)

	// Truncated stream.
	_, _, _, _, err = ReadCheckpoint(bytes.NewReader(data[:8]))
	assert.Error(t, err)
}
