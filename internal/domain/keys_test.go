package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedAddressesDeterministic(t *testing.T) {
	var owner ID
	owner[0] = 0x01

	addr1, bump1 := EscrowAddress(owner)
	addr2, bump2 := EscrowAddress(owner)
	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, addr1.IsZero())

	m1, mb1 := MarketAddress(42, 7)
	m2, mb2 := MarketAddress(42, 7)
	assert.Equal(t, m1, m2)
	assert.Equal(t, mb1, mb2)
}

func TestDerivedAddressesDistinctPerSeed(t *testing.T) {
	var a, b ID
	a[0] = 0x01
	b[0] = 0x02

	ea, _ := EscrowAddress(a)
	eb, _ := EscrowAddress(b)
	assert.NotEqual(t, ea, eb)

	// Different marketId or wordIndex moves the address.
	m1, _ := MarketAddress(42, 7)
	m2, _ := MarketAddress(43, 7)
	m3, _ := MarketAddress(42, 8)
	assert.NotEqual(t, m1, m2)
	assert.NotEqual(t, m1, m3)
	assert.NotEqual(t, m2, m3)
}

func TestDerivedAddressesDistinctPerRole(t *testing.T) {
	market, _ := MarketAddress(42, 7)

	yes, _ := YesMintAddress(market)
	no, _ := NoMintAddress(market)
	vault, _ := VaultAddress(market)

	// Same seed bytes, different tags: all four records live at distinct
	// addresses.
	addrs := map[ID]bool{market: true, yes: true, no: true, vault: true}
	assert.Len(t, addrs, 4)
}

func TestIDHexRoundTrip(t *testing.T) {
	addr, _ := MarketAddress(1, 1)

	parsed, err := ParseID(addr.Hex())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = ParseID("not hex")
	assert.Error(t, err)
	_, err = ParseID("0x1234")
	assert.Error(t, err)
}

func TestIDTextMarshaling(t *testing.T) {
	addr, _ := MarketAddress(1, 1)

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var got ID
	require.NoError(t, got.UnmarshalText(text))
	assert.Equal(t, addr, got)

	assert.Error(t, got.UnmarshalText([]byte("0xzz")))
}
