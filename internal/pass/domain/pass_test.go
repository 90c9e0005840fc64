package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewVisitorPass(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	t.Run("default validity is 24h", func(t *testing.T) {
		p := NewVisitorPass("12-4o", 1, "Ali Hassan", "998877", issued, 0)
		require.Equal(t, issued.Add(24*time.Hour), p.ExpiresAt)
	})

	t.Run("custom validity", func(t *testing.T) {
		p := NewVisitorPass("12-4o", 1, "Ali Hassan", "998877", issued, 2*time.Hour)
		require.Equal(t, issued.Add(2*time.Hour), p.ExpiresAt)
	})

	t.Run("validity window", func(t *testing.T) {
		p := NewVisitorPass("12-4o", 1, "Ali Hassan", "998877", issued, 24*time.Hour)
		require.True(t, p.Valid(issued))
		require.True(t, p.Valid(issued.Add(23*time.Hour)))
		require.False(t, p.Valid(issued.Add(24*time.Hour)))
		require.False(t, p.Valid(issued.Add(-time.Second)))
	})
}

func TestExpiryRoundTrip(t *testing.T) {
	t.Parallel()

	// Seconds are deliberately dropped by the display format; re-parsing must
	// land within a minute of the original instant.
	issued := time.Date(2026, 9, 1, 10, 30, 42, 0, time.UTC)
	p := NewVisitorPass("12-4o", 1, "Ali Hassan", "998877", issued, 24*time.Hour)

	parsed, err := ParseExpiry(p.FormatExpiry())
	require.NoError(t, err)

	diff := p.ExpiresAt.Sub(parsed)
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, diff, time.Minute)
}
