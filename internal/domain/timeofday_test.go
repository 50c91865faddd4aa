package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, got)
	require.Equal(t, "09:30", got.String())
	require.Equal(t, 570, got.Minutes())

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, err := ParseTimeOfDay(bad)
		require.ErrorIs(t, err, ErrInvalidInput, "input %q", bad)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	ref := time.Date(2026, 7, 1, 18, 45, 12, 0, loc)
	got := TimeOfDay{Hour: 8, Minute: 15}.On(ref)

	require.Equal(t, time.Date(2026, 7, 1, 8, 15, 0, 0, loc), got)
	require.Equal(t, loc, got.Location())
}

func TestNullTimeOfDayScan(t *testing.T) {
	var n NullTimeOfDay
	require.NoError(t, n.Scan("22:00"))
	require.True(t, n.Valid)
	require.Equal(t, TimeOfDay{Hour: 22}, n.TimeOfDay)

	require.NoError(t, n.Scan(nil))
	require.False(t, n.Valid)
}

func TestNullTimeOfDayJSON(t *testing.T) {
	n := NullTimeOfDay{TimeOfDay: TimeOfDay{Hour: 7, Minute: 5}, Valid: true}
	data, err := json.Marshal(n)
	require.NoError(t, err)
	require.JSONEq(t, `"07:05"`, string(data))

	var back NullTimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`null`), &back))
	require.False(t, back.Valid)
	require.NoError(t, json.Unmarshal([]byte(`"23:59"`), &back))
	require.True(t, back.Valid)
	require.Equal(t, TimeOfDay{Hour: 23, Minute: 59}, back.TimeOfDay)
}
