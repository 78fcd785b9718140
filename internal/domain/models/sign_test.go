package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignOf(t *testing.T) {
	tests := []struct {
		lon  float64
		want Sign
	}{
		{0, Aries},
		{29.999999, Aries},
		{30, Taurus},
		{59.9, Taurus},
		{60, Gemini},
		{179.5, Virgo},
		{180, Libra},
		{330, Pisces},
		{359.9999999, Pisces},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignOf(tt.lon), "lon %v", tt.lon)
	}
}

func TestSignOf_EveryBoundaryGoesUp(t *testing.T) {
	for i := 0; i < SignCount; i++ {
		s := Sign(i)
		assert.Equal(t, s, SignOf(s.StartDegree()))
		assert.Equal(t, s, SignOf(s.StartDegree()+SignSize-1e-9))
	}
}

func TestSignOf_ClampsOutOfRange(t *testing.T) {
	assert.Equal(t, Aries, SignOf(-0.5))
	assert.Equal(t, Pisces, SignOf(360))
}

func TestNormalizeDegrees(t *testing.T) {
	assert.InDelta(t, 10.0, NormalizeDegrees(370), 1e-12)
	assert.InDelta(t, 350.0, NormalizeDegrees(-10), 1e-12)
	assert.InDelta(t, 0.0, NormalizeDegrees(720), 1e-12)
	assert.InDelta(t, 0.0, NormalizeDegrees(-720), 1e-12)
	for _, d := range []float64{-1e-15, -1e9, 1e9 + 0.25} {
		n := NormalizeDegrees(d)
		assert.GreaterOrEqual(t, n, 0.0)
		assert.Less(t, n, 360.0)
	}
}

func TestParseSign(t *testing.T) {
	s, err := ParseSign("pisces")
	require.NoError(t, err)
	assert.Equal(t, Pisces, s)

	s, err = ParseSign(" Sagittarius ")
	require.NoError(t, err)
	assert.Equal(t, Sagittarius, s)

	_, err = ParseSign("Ophiuchus")
	require.ErrorIs(t, err, ErrUnknownSign)
}

func TestSignNames(t *testing.T) {
	names := SignNames()
	require.Len(t, names, SignCount)
	assert.Equal(t, "Aries", names[0])
	assert.Equal(t, "Pisces", names[11])

	names[0] = "mutated"
	assert.Equal(t, "Aries", Aries.String())
	assert.Equal(t, "Sign(12)", Sign(12).String())
}

func TestLookupBody(t *testing.T) {
	b, err := LookupBody("moon")
	require.NoError(t, err)
	assert.Equal(t, "Moon", b.Name)
	assert.Equal(t, CodeMoon, b.Code)

	ketu, err := LookupBody("Ketu")
	require.NoError(t, err)
	assert.Equal(t, CodeMeanNode, ketu.Code)
	assert.InDelta(t, 180.0, ketu.Offset, 0)
	assert.Equal(t, "Rahu", BaseBody(ketu).Name)
	assert.Equal(t, "Moon", BaseBody(b).Name)

	_, err = LookupBody("Pluto")
	require.ErrorIs(t, err, ErrUnknownBody)
}

func TestKnownBodies(t *testing.T) {
	bodies := KnownBodies()
	require.Len(t, bodies, 9)
	assert.Equal(t, "Sun", bodies[0].Name)
	assert.Equal(t, "Ketu", bodies[len(bodies)-2].Name)
	assert.Equal(t, "Rahu", bodies[len(bodies)-1].Name)
	for _, b := range bodies {
		assert.Positive(t, b.MaxSpeed, b.Name)
	}
}
