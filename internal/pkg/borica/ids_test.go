package borica

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_OrderNumberFormat(t *testing.T) {
	g := NewIDGenerator(nil)
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, g.OrderNumber())
	}
}

func TestIDGenerator_SameMillisecondDoesNotCollide(t *testing.T) {
	frozen := time.Date(2026, 10, 16, 12, 30, 45, 123_000_000, time.UTC)
	g := NewIDGenerator(func() time.Time { return frozen })

	seen := make(map[string]bool, 5000)
	for i := 0; i < 5000; i++ {
		n := g.OrderNumber()
		require.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}

func TestIDGenerator_Nonce(t *testing.T) {
	g := NewIDGenerator(nil)
	re := regexp.MustCompile(`^[0-9A-F]{32}$`)

	a, err := g.Nonce()
	require.NoError(t, err)
	b, err := g.Nonce()
	require.NoError(t, err)

	assert.Regexp(t, re, a)
	assert.NotEqual(t, a, b)
}

func TestIDGenerator_TimestampIsUTC(t *testing.T) {
	sofia := time.FixedZone("EEST", 3*60*60)
	g := NewIDGenerator(func() time.Time { return time.Date(2026, 10, 16, 2, 5, 9, 0, sofia) })

	ts := g.TimestampUTC()
	assert.Equal(t, "20261015230509", ts)

	parsed, err := ParseTimestamp(ts)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 23, 5, 9, 0, time.UTC), parsed)
}
