package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestRelativeKeywords(t *testing.T) {
	cases := map[string]string{
		"today":       "2025-03-10",
		"tomorrow":    "2025-03-11",
		"next week":   "2025-03-17",
		"  Tomorrow ": "2025-03-11",
	}
	for input, want := range cases {
		got, err := NormalizeAt(input, fixedNow)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestDirectLayouts(t *testing.T) {
	cases := map[string]string{
		"2025-03-10":     "2025-03-10",
		"March 10, 2025": "2025-03-10",
		"mar 1, 2025":    "2025-03-01",
		"10 March 2025":  "2025-03-10",
	}
	for input, want := range cases {
		got, err := NormalizeAt(input, fixedNow)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestOrdinalMonthName(t *testing.T) {
	cases := map[string]string{
		"10th march 2025":     "2025-03-10",
		"1st April 2025":      "2025-04-01",
		"22nd of june 2024":   "2024-06-22",
		"3rd sept 2025":       "2025-09-03",
		"the 2nd of feb 2026": "2026-02-02",
	}
	for input, want := range cases {
		got, err := NormalizeAt(input, fixedNow)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestNumericDelimiters(t *testing.T) {
	// Same calendar date regardless of delimiter, zero-padded output.
	for _, input := range []string{"5/4/2025", "5-4-2025", "05/04/2025", "05-04-2025"} {
		got, err := NormalizeAt(input, fixedNow)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "2025-04-05", got, "input %q", input)
	}
}

func TestUnparseable(t *testing.T) {
	for _, input := range []string{
		"",
		"whenever",
		"32/1/2025",
		"30th february 2025",
		"10th smarch 2025",
		"99-99-2025",
	} {
		_, err := NormalizeAt(input, fixedNow)
		assert.ErrorIs(t, err, ErrUnparseable, "input %q", input)
	}
}

func TestNormalizeUsesWallClock(t *testing.T) {
	got, err := Normalize("today")
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format(Canonical), got)
}
