package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCron(t *testing.T) {
	c, err := parseCron("0 3 1 * *")
	require.NoError(t, err)
	assert.False(t, c.minute.wildcard)
	assert.True(t, c.month.wildcard)
	assert.True(t, c.dayOfWeek.wildcard)

	_, err = parseCron("0 3 1 *")
	assert.ErrorContains(t, err, "5 fields")

	_, err = parseCron("x 3 1 * *")
	assert.ErrorContains(t, err, "minute")
}

func TestCronFieldLists(t *testing.T) {
	f, err := parseCronField("1,15,30")
	require.NoError(t, err)
	assert.True(t, f.matches(15))
	assert.False(t, f.matches(16))

	f, err = parseCronField("*")
	require.NoError(t, err)
	assert.True(t, f.matches(59))
}

func TestNextCronTime(t *testing.T) {
	// 3:00 AM on the 1st of every month.
	after := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	next, err := nextCronTime("0 3 1 * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC), next)

	// Already past today's trigger: roll to tomorrow.
	after = time.Date(2026, 8, 15, 4, 0, 0, 0, time.UTC)
	next, err = nextCronTime("30 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 16, 3, 30, 0, 0, time.UTC), next)

	// Strictly after the reference time, even on an exact match.
	after = time.Date(2026, 8, 15, 3, 30, 0, 0, time.UTC)
	next, err = nextCronTime("30 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 16, 3, 30, 0, 0, time.UTC), next)
}

type fakeArchiver struct {
	settlements int
	claims      int
	checkpoints int
}

func (f *fakeArchiver) ArchiveSettlements(ctx context.Context, before time.Time) (string, int, error) {
	f.settlements++
	return "archive/settlements/2026-08.jsonl", 3, nil
}

func (f *fakeArchiver) ArchiveClaims(ctx context.Context, before time.Time) (string, int, error) {
	f.claims++
	return "archive/claims/2026-08.jsonl", 2, nil
}

func (f *fakeArchiver) ArchiveCheckpoint(ctx context.Context) (string, error) {
	f.checkpoints++
	return "checkpoints/20260815T030000Z.wmcp", nil
}

func TestArchiverRun(t *testing.T) {
	fake := &fakeArchiver{}
	a := NewArchiver(fake, 90, slog.Default())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 1, fake.settlements)
	assert.Equal(t, 1, fake.claims)
	assert.Equal(t, 1, fake.checkpoints)
}
