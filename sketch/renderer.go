// Package sketch turns pointer input into soft, brush-like strokes on a
// fixed-size raster.
package sketch

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Size is the side length in pixels of the drawing surface.
const Size = 280

type Point struct {
	X, Y float64
}

// ToSurface maps a coordinate measured against the on-screen size of the
// canvas to surface pixels. A zero display size means the coordinate is
// already in surface space.
func ToSurface(x, y, displayWidth, displayHeight float64) Point {
	if displayWidth <= 0 || displayHeight <= 0 {
		return Point{X: x, Y: y}
	}
	return Point{X: x * Size / displayWidth, Y: y * Size / displayHeight}
}

// NewSurface returns an opaque black Size x Size raster.
func NewSurface() *image.RGBA {
	surface := image.NewRGBA(image.Rect(0, 0, Size, Size))
	fillBlack(surface)
	return surface
}

func fillBlack(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
}

// Renderer owns a surface for the duration of a drawing session. It is not
// safe for concurrent use.
type Renderer struct {
	surface *image.RGBA
	width   float64
	drawing bool
	last    *Point
	onEnd   []func()
}

func NewRenderer(surface *image.RGBA, width float64) *Renderer {
	return &Renderer{surface: surface, width: width}
}

func (r *Renderer) Surface() *image.RGBA {
	return r.surface
}

func (r *Renderer) Width() float64 {
	return r.width
}

func (r *Renderer) Drawing() bool {
	return r.drawing
}

// OnStrokeEnd registers fn to be called whenever an active stroke ends.
func (r *Renderer) OnStrokeEnd(fn func()) {
	if fn != nil {
		r.onEnd = append(r.onEnd, fn)
	}
}

// BeginStroke starts a stroke at p. Points with infinite or NaN coordinates
// are ignored, here and in ExtendStroke.
func (r *Renderer) BeginStroke(p Point) {
	if r.surface == nil || !finite(p) {
		return
	}
	r.drawing = true
	r.last = &p
	paintDaub(r.surface, p, r.width)
}

// ExtendStroke draws from the last position to p. Moves that arrive without
// an active stroke are ignored.
func (r *Renderer) ExtendStroke(p Point) {
	if r.surface == nil || !r.drawing || r.last == nil || !finite(p) {
		return
	}
	r.segment(*r.last, p)
	paintDaub(r.surface, p, r.width)
	r.last = &p
}

func (r *Renderer) EndStroke() {
	wasDrawing := r.drawing
	r.drawing = false
	r.last = nil
	if !wasDrawing {
		return
	}
	for _, fn := range r.onEnd {
		fn()
	}
}

func (r *Renderer) Clear() {
	r.drawing = false
	r.last = nil
	if r.surface == nil {
		return
	}
	fillBlack(r.surface)
}

// Replay draws every stroke as begin/extend.../end.
func (r *Renderer) Replay(strokes [][]Point) {
	for _, stroke := range strokes {
		if len(stroke) == 0 {
			continue
		}
		r.BeginStroke(stroke[0])
		for _, p := range stroke[1:] {
			r.ExtendStroke(p)
		}
		r.EndStroke()
	}
}

// segment stamps daubs every width/4 pixels from a to b, both ends included.
// Only the stamps that can reach the surface are painted.
func (r *Renderer) segment(a, b Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	distance := math.Hypot(dx, dy)
	steps := 1.0
	if spacing := r.width / 4; spacing > 0 {
		steps = math.Max(1, math.Floor(distance/spacing))
	}
	if math.IsInf(steps, 0) || math.IsNaN(steps) {
		return
	}

	t0, t1, ok := clipSegment(a, dx, dy, r.surface.Bounds(), r.width/2+1)
	if !ok {
		return
	}
	first := math.Max(0, math.Floor(t0*steps)-1)
	last := math.Min(steps, math.Ceil(t1*steps)+1)
	// count with an integer; past 2^53 first+1 == first
	n := int64(last - first)
	for k := int64(0); k <= n; k++ {
		t := (first + float64(k)) / steps
		paintDaub(r.surface, Point{X: a.X + dx*t, Y: a.Y + dy*t}, r.width)
	}
}

// clipSegment returns the parameter range [t0, t1] of a + t*(dx, dy) lying
// within bounds grown by margin (Liang-Barsky). ok is false when the segment
// misses it entirely.
func clipSegment(a Point, dx, dy float64, bounds image.Rectangle, margin float64) (t0, t1 float64, ok bool) {
	minX, minY := float64(bounds.Min.X)-margin, float64(bounds.Min.Y)-margin
	maxX, maxY := float64(bounds.Max.X)+margin, float64(bounds.Max.Y)+margin
	edges := [4][2]float64{
		{-dx, a.X - minX},
		{dx, maxX - a.X},
		{-dy, a.Y - minY},
		{dy, maxY - a.Y},
	}

	t0, t1 = 0, 1
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return t0, t1, true
}

func finite(p Point) bool {
	return !math.IsInf(p.X, 0) && !math.IsNaN(p.X) && !math.IsInf(p.Y, 0) && !math.IsNaN(p.Y)
}
