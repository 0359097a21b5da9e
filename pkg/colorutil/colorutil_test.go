package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()
	require.Equal(t, 5, p.Size())
	assert.Equal(t, "Red", p.At(0).Name)
	assert.Equal(t, "Purple", p.At(4).Name)
	assert.Equal(t, "Red", p.At(5).Name, "indices wrap")
	assert.Equal(t, uint8(0x40), p.At(1).Fill.A)
}

func TestNewPalette_Hex(t *testing.T) {
	p, err := NewPalette([]string{"#102030", "teal"})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}, p.At(0).Stroke)
	assert.Equal(t, "#102030", p.At(0).Name)
	assert.Equal(t, "Teal", p.At(1).Name)
}

func TestNewPalette_Errors(t *testing.T) {
	_, err := NewPalette(nil)
	require.Error(t, err)
	_, err = NewPalette([]string{"chartreuse-ish"})
	require.Error(t, err)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#ef4444", Hex(DefaultPalette().At(0).Stroke))
}
