package timeclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseInstant(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)

	at, ok := parseInstant("2025-03-10T09:00:00Z", zone)
	require.True(t, ok)
	require.True(t, at.Equal(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)))
	require.Equal(t, zone, at.Location())

	// Naive timestamps are read in the configured zone.
	at, ok = parseInstant("2025-03-10T09:00:00", zone)
	require.True(t, ok)
	require.True(t, at.Equal(time.Date(2025, time.March, 10, 9, 0, 0, 0, zone)))
	require.Equal(t, zone, at.Location())

	// Absent instants default to the service clock.
	at, ok = parseInstant("", zone)
	require.True(t, ok)
	require.True(t, at.IsZero())

	_, ok = parseInstant("next tuesday", zone)
	require.False(t, ok)
}
