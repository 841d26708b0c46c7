package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to MarketStatus
		want     bool
	}{
		{StatusActive, StatusPaused, true},
		{StatusActive, StatusResolved, true},
		{StatusActive, StatusActive, false},
		{StatusPaused, StatusActive, true},
		{StatusPaused, StatusResolved, true},
		{StatusPaused, StatusPaused, false},
		{StatusResolved, StatusActive, false},
		{StatusResolved, StatusPaused, false},
		{StatusResolved, StatusResolved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestMarketStatusStrings(t *testing.T) {
	for _, s := range []MarketStatus{StatusActive, StatusPaused, StatusResolved} {
		parsed, err := ParseMarketStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseMarketStatus("liquidated")
	assert.Error(t, err)
}

func TestOutcomeStrings(t *testing.T) {
	for _, o := range []Outcome{OutcomeNone, OutcomeYes, OutcomeNo} {
		parsed, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}

	_, err := ParseOutcome("maybe")
	assert.Error(t, err)
}

func TestWinningMint(t *testing.T) {
	var yes, no ID
	yes[0] = 0x01
	no[0] = 0x02
	m := Market{YesMint: yes, NoMint: no}

	_, err := m.WinningMint()
	assert.ErrorIs(t, err, ErrMarketNotResolved)

	m.Outcome = OutcomeYes
	mint, err := m.WinningMint()
	require.NoError(t, err)
	assert.Equal(t, yes, mint)

	m.Outcome = OutcomeNo
	mint, err = m.WinningMint()
	require.NoError(t, err)
	assert.Equal(t, no, mint)
}

func TestMarketJSONEncoding(t *testing.T) {
	addr, bump := MarketAddress(42, 7)
	m := Market{
		Address:   addr,
		MarketID:  42,
		WordIndex: 7,
		Label:     "alpha",
		Status:    StatusPaused,
		Outcome:   OutcomeNone,
		Bump:      bump,
	}

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	// Enums and IDs serialize as readable strings.
	assert.Contains(t, string(raw), `"status":"paused"`)
	assert.Contains(t, string(raw), `"outcome":"none"`)
	assert.Contains(t, string(raw), addr.Hex())

	var got Market
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, m.Address, got.Address)
	assert.Equal(t, m.Status, got.Status)
	assert.Equal(t, m.Outcome, got.Outcome)
	assert.Equal(t, m.Label, got.Label)
}
