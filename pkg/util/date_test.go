package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.Format(time.RFC3339))
}

func TestParseTimeOffsetIsNormalisedToUTC(t *testing.T) {
	got, ok := ParseTime("2024-10-10T15:40:10+05:30")
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 10, got.Hour())
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-04-13")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	_, ok := ParseTime("yesterday")
	assert.False(t, ok)
	_, ok = ParseTime("")
	assert.False(t, ok)
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("nope", def).Equal(def))
}

func TestAlignRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 3, 7, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 3, 7, 0, 0, time.UTC)

	f, e := AlignRange(from, to, time.Hour)
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), f)
	assert.Equal(t, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), e)

	aligned := time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)
	_, e = AlignRange(from, aligned, time.Hour)
	assert.Equal(t, aligned, e)

	f, e = AlignRange(from, to, 0)
	assert.Equal(t, from, f)
	assert.Equal(t, to, e)
}

func TestYearBounds(t *testing.T) {
	start, end := YearBounds(2024)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, ParseIntDefault("", 5))
	assert.Equal(t, 5, ParseIntDefault("x", 5))
	assert.Equal(t, 12, ParseIntDefault(" 12 ", 5))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("  "))
	assert.Equal(t, []string{"Sun", "Moon"}, SplitList(" Sun, ,Moon,"))
}
