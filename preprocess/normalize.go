// Package preprocess maps a drawing to the 28x28 grayscale vector the digit
// models were trained on: content is cropped, scaled into a 20x20 box keeping
// its aspect ratio and centered on a black canvas.
package preprocess

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	Side      = 28
	VectorLen = Side * Side
	DigitBox  = 20

	// A pixel is ink when mean(R, G, B) > IntensityThreshold and
	// alpha > AlphaThreshold. Changing these shifts the input distribution
	// the models see.
	IntensityThreshold = 15
	AlphaThreshold     = 128
)

// Vector is a row-major Side x Side grayscale image, 0 is black, 1 is full ink.
type Vector []float32

// Placement is where the cropped content lands on the Side x Side canvas.
type Placement struct {
	Scale         float64
	X, Y          float64
	Width, Height float64
}

// BoundingBox returns the smallest rectangle holding every ink pixel of img.
// ok is false when nothing qualifies.
func BoundingBox(img image.Image) (box image.Rectangle, ok bool) {
	if img == nil {
		return image.Rectangle{}, false
	}
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			intensity := (float64(c.R) + float64(c.G) + float64(c.B)) / 3
			if intensity <= IntensityThreshold || c.A <= AlphaThreshold {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Fit scales box uniformly so its larger side is DigitBox and centers it
// inside the DigitBox square, which itself sits in the middle of the canvas.
func Fit(box image.Rectangle) Placement {
	w, h := float64(box.Dx()), float64(box.Dy())
	if w <= 0 || h <= 0 {
		return Placement{}
	}
	scale := math.Min(DigitBox/w, DigitBox/h)
	pad := float64(Side-DigitBox) / 2
	sw, sh := w*scale, h*scale
	return Placement{
		Scale:  scale,
		X:      pad + (DigitBox-sw)/2,
		Y:      pad + (DigitBox-sh)/2,
		Width:  sw,
		Height: sh,
	}
}

// Render returns the Side x Side canvas the vector is read from. img is not
// modified.
func Render(img image.Image) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, Side, Side))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	box, ok := BoundingBox(img)
	if !ok {
		return canvas
	}
	crop := imaging.Crop(img, box)
	p := Fit(box)
	s2d := f64.Aff3{
		p.Scale, 0, p.X,
		0, p.Scale, p.Y,
	}
	draw.NearestNeighbor.Transform(canvas, s2d, crop, crop.Bounds(), draw.Over, nil)
	return canvas
}

// Normalize always returns VectorLen values in [0, 1]; an empty drawing
// yields all zeros.
func Normalize(img image.Image) Vector {
	return vectorize(Render(img))
}

func vectorize(canvas *image.RGBA) Vector {
	v := make(Vector, VectorLen)
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			i := canvas.PixOffset(x, y)
			gray := (float64(canvas.Pix[i]) + float64(canvas.Pix[i+1]) + float64(canvas.Pix[i+2])) / 3
			v[y*Side+x] = float32(gray / 255)
		}
	}
	return v
}

// At returns the value at column x, row y.
func (v Vector) At(x, y int) float32 {
	return v[y*Side+x]
}

// ASCII draws the vector as text, one line per row.
func (v Vector) ASCII() string {
	const ramp = " .:-=+*#%@"
	var sb strings.Builder
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			idx := int(v.At(x, y) * float32(len(ramp)-1))
			idx = max(0, min(len(ramp)-1, idx))
			sb.WriteByte(ramp[idx])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
