package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorScale_Stops(t *testing.T) {
	s, err := NewColorScale(0, 100, RedPalette, "test")
	require.NoError(t, err)

	tests := []struct {
		v    float64
		want string
	}{
		{0, "#ffcccc"},
		{25, "#ff6666"},
		{50, "#ff3333"},
		{75, "#cc0000"},
		{100, "#990000"},
		{12.5, "#ff9999"},
		{-10, "#ffcccc"},
		{1e6, "#990000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.At(tt.v), "value %v", tt.v)
	}
}

func TestColorScale_SwappedBounds(t *testing.T) {
	s, err := NewColorScale(10, 0, RedPalette, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 10.0, s.Max)
}

func TestColorScale_DegenerateRange(t *testing.T) {
	s, err := NewColorScale(7, 7, RedPalette, "")
	require.NoError(t, err)
	assert.Equal(t, "#ffcccc", s.At(7))
}

func TestColorScale_InvalidPalette(t *testing.T) {
	_, err := NewColorScale(0, 1, []string{"#ffffff", "red"}, "")
	require.Error(t, err)

	_, err = NewColorScale(0, 1, []string{"#ffffff"}, "")
	require.Error(t, err)
}

func TestColorScale_ZeroValue(t *testing.T) {
	assert.Equal(t, NeutralFill, ColorScale{}.At(3))
}

func TestColorScale_DecodedFromJSON(t *testing.T) {
	s, err := NewColorScale(0, 10, RedPalette, "Arrests")
	require.NoError(t, err)
	b, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded ColorScale
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "#990000", decoded.At(10))
	assert.Equal(t, s.At(3), decoded.At(3))

	decoded.Colors = []string{"not-a-color", "#000000"}
	assert.Equal(t, NeutralFill, decoded.At(3))
}
