package sketch

import (
	"image"
	"math"

	"github.com/gogpu/gg"
)

const (
	// MobileViewport is the widest viewport that still gets the touch brush.
	MobileViewport    = 768
	MobileBrushWidth  = 28
	DesktopBrushWidth = 22
)

// BrushWidthFor picks the brush width for a viewport. Narrow (touch) screens
// get a fatter brush.
func BrushWidthFor(viewportWidth int) float64 {
	if viewportWidth > 0 && viewportWidth <= MobileViewport {
		return MobileBrushWidth
	}
	return DesktopBrushWidth
}

// daubBrush builds the soft radial fill of a single daub centered at p.
// Opaque white up to width/7, 70% white at 60% of the ramp, transparent at
// width/2.
func daubBrush(p Point, width float64) *gg.RadialGradientBrush {
	return gg.NewRadialGradientBrush(p.X, p.Y, width/7, width/2).
		AddColorStop(0, gg.White).
		AddColorStop(0.6, gg.RGBA2(1, 1, 1, 0.7)).
		AddColorStop(1, gg.RGBA2(1, 1, 1, 0))
}

// paintDaub composites one daub onto dst (source-over). Pixels are sampled at
// their centers; anything outside the circle of radius width/2 is untouched.
func paintDaub(dst *image.RGBA, p Point, width float64) {
	if dst == nil || width <= 0 {
		return
	}
	radius := width / 2
	reach := dst.Bounds()
	if p.X+radius < float64(reach.Min.X)-1 || p.X-radius > float64(reach.Max.X)+1 ||
		p.Y+radius < float64(reach.Min.Y)-1 || p.Y-radius > float64(reach.Max.Y)+1 {
		return
	}
	area := image.Rect(
		int(math.Floor(p.X-radius)), int(math.Floor(p.Y-radius)),
		int(math.Ceil(p.X+radius))+1, int(math.Ceil(p.Y+radius))+1,
	).Intersect(dst.Bounds())
	if area.Empty() {
		return
	}

	brush := daubBrush(p, width)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		cy := float64(y) + 0.5
		for x := area.Min.X; x < area.Max.X; x++ {
			cx := float64(x) + 0.5
			dx, dy := cx-p.X, cy-p.Y
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			c := brush.ColorAt(cx, cy)
			if c.A <= 0 {
				continue
			}
			blendOver(dst, x, y, c)
		}
	}
}

// blendOver mixes a straight-alpha color into the premultiplied pixel at (x, y).
func blendOver(dst *image.RGBA, x, y int, c gg.RGBA) {
	i := dst.PixOffset(x, y)
	a := math.Min(c.A, 1)
	pix := dst.Pix[i : i+4 : i+4]
	pix[0] = channel(c.R*a*255 + float64(pix[0])*(1-a))
	pix[1] = channel(c.G*a*255 + float64(pix[1])*(1-a))
	pix[2] = channel(c.B*a*255 + float64(pix[2])*(1-a))
	pix[3] = channel(a*255 + float64(pix[3])*(1-a))
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
