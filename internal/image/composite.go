package image

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// BlendMode specifies how an overlay is combined with a base image.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	default:
		return "Unknown"
	}
}

// Blend returns base with overlay composited on top at the given opacity.
// The overlay's own alpha is honored; areas outside it are left untouched.
func Blend(base, overlay image.Image, mode BlendMode, opacity float64) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	ob := overlay.Bounds()
	for y := 0; y < out.Rect.Dy() && y < ob.Dy(); y++ {
		for x := 0; x < out.Rect.Dx() && x < ob.Dx(); x++ {
			src := color.RGBAModel.Convert(overlay.At(ob.Min.X+x, ob.Min.Y+y)).(color.RGBA)
			if src.A == 0 {
				continue
			}
			out.SetRGBA(x, y, blendPixel(out.RGBAAt(x, y), src, mode, opacity))
		}
	}
	return out
}

func blendPixel(dst, src color.RGBA, mode BlendMode, opacity float64) color.RGBA {
	alpha := float64(src.A) / 255 * clamp(opacity, 0, 1)
	// Un-premultiply the overlay channel before blending.
	unpre := func(v uint8) float64 { return float64(v) / float64(src.A) }

	mix := func(d uint8, s float64) uint8 {
		dv := float64(d) / 255
		var bv float64
		switch mode {
		case BlendMultiply:
			bv = dv * s
		case BlendScreen:
			bv = 1 - (1-dv)*(1-s)
		default:
			bv = s
		}
		return uint8(math.Round(clamp(dv*(1-alpha)+bv*alpha, 0, 1) * 255))
	}
	return color.RGBA{
		R: mix(dst.R, unpre(src.R)),
		G: mix(dst.G, unpre(src.G)),
		B: mix(dst.B, unpre(src.B)),
		A: dst.A,
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
