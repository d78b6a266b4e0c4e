package sketch

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pixel(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func isBlank(t *testing.T, img *image.RGBA) bool {
	t.Helper()
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if pixel(img, x, y) != (color.RGBA{A: 255}) {
				return false
			}
		}
	}
	return true
}

func TestNewSurfaceIsOpaqueBlack(t *testing.T) {
	surface := NewSurface()
	equalsBounds := image.Rect(0, 0, Size, Size)
	assert.Equal(t, equalsBounds, surface.Bounds())
	assert.True(t, isBlank(t, surface))
}

func TestBrushWidthFor(t *testing.T) {
	assert.Equal(t, float64(MobileBrushWidth), BrushWidthFor(375))
	assert.Equal(t, float64(MobileBrushWidth), BrushWidthFor(MobileViewport))
	assert.Equal(t, float64(DesktopBrushWidth), BrushWidthFor(MobileViewport+1))
	assert.Equal(t, float64(DesktopBrushWidth), BrushWidthFor(0))
}

func TestToSurface(t *testing.T) {
	p := ToSurface(70, 35, 140, 140)
	assert.InDelta(t, 140, p.X, 1e-9)
	assert.InDelta(t, 70, p.Y, 1e-9)

	assert.Equal(t, Point{X: 12, Y: 34}, ToSurface(12, 34, 0, 0))
}

func TestBeginStrokePaintsSoftDaub(t *testing.T) {
	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	r.BeginStroke(Point{X: 140, Y: 140})

	assert.True(t, r.Drawing())
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, pixel(r.Surface(), 140, 140))

	// halfway out the daub is grey, well outside it is untouched
	mid := pixel(r.Surface(), 140+7, 140)
	assert.Greater(t, mid.R, uint8(0))
	assert.Less(t, mid.R, uint8(255))
	assert.Equal(t, color.RGBA{A: 255}, pixel(r.Surface(), 140+12, 140))
	assert.Equal(t, color.RGBA{A: 255}, pixel(r.Surface(), 0, 0))
}

func TestExtendStrokeWithoutBeginIsIgnored(t *testing.T) {
	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	r.ExtendStroke(Point{X: 100, Y: 100})
	assert.True(t, isBlank(t, r.Surface()))
	assert.False(t, r.Drawing())
}

func TestSegmentHasNoGaps(t *testing.T) {
	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	r.BeginStroke(Point{X: 40, Y: 140})
	r.ExtendStroke(Point{X: 240, Y: 140})
	r.EndStroke()

	for x := 40; x < 240; x++ {
		require.Equal(t, uint8(255), pixel(r.Surface(), x, 140).R, "gap at x=%d", x)
	}
}

func TestFarSegmentsStayCheap(t *testing.T) {
	for _, stroke := range [][2]Point{
		{{X: 0, Y: 140}, {X: 1e12, Y: 140}},
		{{X: 1e12, Y: 140}, {X: 0, Y: 140}},
		{{X: -1e12, Y: 140}, {X: 1e12, Y: 140}},
	} {
		r := NewRenderer(NewSurface(), DesktopBrushWidth)
		start := time.Now()
		r.BeginStroke(stroke[0])
		r.ExtendStroke(stroke[1])
		r.EndStroke()
		require.True(t, time.Since(start) < 2*time.Second, "stroke %v took too long", stroke)

		for x := 10; x < Size-10; x++ {
			require.Equal(t, uint8(255), pixel(r.Surface(), x, 140).R, "gap at x=%d in %v", x, stroke)
		}
		assert.Equal(t, uint8(0), pixel(r.Surface(), 140, 20).R)
	}

	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	start := time.Now()
	r.BeginStroke(Point{X: 140, Y: 140})
	r.ExtendStroke(Point{X: 1e300, Y: -1e300})
	r.ExtendStroke(Point{X: 1e12, Y: 140})
	r.EndStroke()
	assert.True(t, time.Since(start) < 2*time.Second)

	r = NewRenderer(NewSurface(), DesktopBrushWidth)
	start = time.Now()
	r.BeginStroke(Point{X: -1e12, Y: -1e12})
	r.ExtendStroke(Point{X: -1e12, Y: 1e12})
	r.EndStroke()
	assert.True(t, time.Since(start) < 2*time.Second)
	assert.True(t, isBlank(t, r.Surface()))
}

func TestClippedSegmentMatchesEveryStamp(t *testing.T) {
	a, b := Point{X: -2000, Y: 60}, Point{X: 2300, Y: 200}

	r := NewRenderer(NewSurface(), MobileBrushWidth)
	r.segment(a, b)

	want := NewSurface()
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := math.Max(1, math.Floor(math.Hypot(dx, dy)/(MobileBrushWidth/4.0)))
	for i := 0.0; i <= steps; i++ {
		frac := i / steps
		paintDaub(want, Point{X: a.X + dx*frac, Y: a.Y + dy*frac}, MobileBrushWidth)
	}
	assert.Equal(t, want.Pix, r.Surface().Pix)
}

func TestClipSegment(t *testing.T) {
	bounds := image.Rect(0, 0, Size, Size)

	t0, t1, ok := clipSegment(Point{X: -100, Y: 140}, 480, 0, bounds, 0)
	require.True(t, ok)
	assert.InDelta(t, 100.0/480, t0, 1e-12)
	assert.InDelta(t, 380.0/480, t1, 1e-12)

	_, _, ok = clipSegment(Point{X: -100, Y: -100}, 0, 50, bounds, 10)
	assert.False(t, ok)

	t0, t1, ok = clipSegment(Point{X: 10, Y: 10}, 0, 0, bounds, 0)
	require.True(t, ok)
	assert.Equal(t, 0.0, t0)
	assert.Equal(t, 1.0, t1)
}

func TestNonFinitePointsAreIgnored(t *testing.T) {
	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	r.BeginStroke(Point{X: math.NaN(), Y: 10})
	assert.False(t, r.Drawing())

	r.BeginStroke(Point{X: 140, Y: 140})
	before := append([]uint8(nil), r.Surface().Pix...)
	r.ExtendStroke(Point{X: math.Inf(1), Y: 140})
	assert.Equal(t, before, r.Surface().Pix)
	assert.True(t, r.Drawing())
}

func TestEndStrokeNotifiesOnlyActiveStrokes(t *testing.T) {
	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	ended := 0
	r.OnStrokeEnd(func() { ended++ })

	r.EndStroke()
	assert.Equal(t, 0, ended)

	r.BeginStroke(Point{X: 10, Y: 10})
	r.EndStroke()
	assert.Equal(t, 1, ended)
	assert.False(t, r.Drawing())

	// after the stroke ended, moves must not draw
	before := pixel(r.Surface(), 200, 200)
	r.ExtendStroke(Point{X: 200, Y: 200})
	assert.Equal(t, before, pixel(r.Surface(), 200, 200))
}

func TestClearResetsSurfaceAndStroke(t *testing.T) {
	r := NewRenderer(NewSurface(), MobileBrushWidth)
	r.BeginStroke(Point{X: 50, Y: 50})
	r.ExtendStroke(Point{X: 120, Y: 80})
	r.Clear()

	assert.True(t, isBlank(t, r.Surface()))
	assert.False(t, r.Drawing())
	r.ExtendStroke(Point{X: 150, Y: 150})
	assert.True(t, isBlank(t, r.Surface()))
}

func TestDaubAtEdgeIsClipped(t *testing.T) {
	r := NewRenderer(NewSurface(), MobileBrushWidth)
	assert.NotPanics(t, func() {
		r.BeginStroke(Point{X: 0, Y: 0})
		r.ExtendStroke(Point{X: Size + 20, Y: -15})
		r.EndStroke()
	})
	assert.Equal(t, uint8(255), pixel(r.Surface(), 0, 0).R)
}

func TestNilSurfaceIsNoop(t *testing.T) {
	r := NewRenderer(nil, DesktopBrushWidth)
	assert.NotPanics(t, func() {
		r.BeginStroke(Point{X: 1, Y: 1})
		r.ExtendStroke(Point{X: 2, Y: 2})
		r.EndStroke()
		r.Clear()
	})
	assert.False(t, r.Drawing())
}

func TestReplay(t *testing.T) {
	r := NewRenderer(NewSurface(), DesktopBrushWidth)
	ended := 0
	r.OnStrokeEnd(func() { ended++ })
	r.Replay([][]Point{
		{{X: 60, Y: 60}, {X: 60, Y: 200}},
		nil,
		{{X: 220, Y: 140}},
	})

	assert.Equal(t, 2, ended)
	assert.Equal(t, uint8(255), pixel(r.Surface(), 60, 130).R)
	assert.Equal(t, uint8(255), pixel(r.Surface(), 220, 140).R)
}
