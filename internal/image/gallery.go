package image

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"sync"
)

// Sample is a predefined gallery entry: the image shown on the surface and
// the processed result embedded next to it in reports.
type Sample struct {
	Name      string
	Thumbnail string
	Result    string
}

type sampleSpec struct {
	name   string
	seed   uint64
	width  int
	height int
	mirror bool
}

var sampleSpecs = []sampleSpec{
	{name: "Left CC", seed: 11, width: 480, height: 600},
	{name: "Right MLO", seed: 23, width: 480, height: 600, mirror: true},
	{name: "Dense tissue", seed: 37, width: 520, height: 640},
}

var (
	galleryOnce sync.Once
	gallery     []Sample
)

// Gallery returns the predefined samples as data URLs.
func Gallery() []Sample {
	galleryOnce.Do(func() {
		for _, s := range sampleSpecs {
			base, lesion := synthetic(s)
			thumb, err := EncodeDataURL(base)
			if err != nil {
				continue
			}
			result, err := EncodeDataURL(Blend(base, heatOverlay(base.Bounds(), lesion), BlendScreen, 0.8))
			if err != nil {
				continue
			}
			gallery = append(gallery, Sample{Name: s.name, Thumbnail: thumb, Result: result})
		}
	})
	return gallery
}

// synthetic draws a grayscale breast silhouette with texture and one bright
// lesion. It returns the image and the lesion circle (x, y, r).
func synthetic(s sampleSpec) (*image.Gray, [3]float64) {
	rng := rand.New(rand.NewPCG(s.seed, s.seed*7919))
	img := image.NewGray(image.Rect(0, 0, s.width, s.height))

	w, h := float64(s.width), float64(s.height)
	rx, ry := w*0.78, h*0.45
	cy := h / 2
	lesion := [3]float64{
		w * (0.25 + 0.35*rng.Float64()),
		cy + h*0.25*(rng.Float64()-0.5),
		10 + 12*rng.Float64(),
	}

	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			fx := float64(x)
			if s.mirror {
				fx = w - 1 - fx
			}
			dx, dy := fx/rx, (float64(y)-cy)/ry
			d := dx*dx + dy*dy
			if d > 1 {
				img.Pix[y*img.Stride+x] = uint8(8 + rng.IntN(6))
				continue
			}
			v := 70 + 90*(1-d) + 18*math.Sin(fx/9+float64(y)/23) + rng.NormFloat64()*6
			ldx, ldy := fx-lesion[0], float64(y)-lesion[1]
			if ld := math.Hypot(ldx, ldy); ld < lesion[2]*1.6 {
				v += 70 * math.Exp(-ld*ld/(2*lesion[2]*lesion[2]))
			}
			img.Pix[y*img.Stride+x] = uint8(clamp(v, 0, 255))
		}
	}
	if s.mirror {
		lesion[0] = w - 1 - lesion[0]
	}
	return img, lesion
}

// heatOverlay paints a radial red marker around the lesion.
func heatOverlay(bounds image.Rectangle, lesion [3]float64) *image.RGBA {
	out := image.NewRGBA(bounds)
	r := lesion[2] * 2.5
	for y := int(lesion[1] - r); y <= int(lesion[1]+r); y++ {
		for x := int(lesion[0] - r); x <= int(lesion[0]+r); x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			d := math.Hypot(float64(x)-lesion[0], float64(y)-lesion[1]) / r
			if d > 1 {
				continue
			}
			a := uint8(200 * (1 - d))
			out.SetRGBA(x, y, color.RGBA{R: a, A: a})
		}
	}
	return out
}
