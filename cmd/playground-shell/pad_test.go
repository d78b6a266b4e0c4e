package main

import (
	"strings"
	"testing"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/preprocess"
	"github.com/bbernhard/mnist-playground/session"
	"github.com/bbernhard/mnist-playground/sketch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constModel struct {
	out    []float32
	closed bool
}

func (m *constModel) Run([]float32) ([]float32, error) {
	return m.out, nil
}

func (m *constModel) Close() {
	m.closed = true
}

func TestParseCoords(t *testing.T) {
	c, err := parseCoords([]string{"1", "2.5", "-3"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, -3}, c)

	_, err = parseCoords([]string{"1"}, 2)
	assert.Error(t, err)
	_, err = parseCoords([]string{"1", "x"}, 2)
	assert.EqualError(t, err, `"x" is not a number`)

	p, err := parsePoint([]string{"140", "60"})
	require.NoError(t, err)
	assert.Equal(t, sketch.Point{X: 140, Y: 60}, p)
}

func TestRunRecordsPrediction(t *testing.T) {
	out := make([]float32, 10)
	out[3] = 0.7
	out[8] = 0.3
	model := &constModel{out: out}

	ctx := newPadCtxt(1024, 0, datastructures.TypeClassification)
	ctx.setModel(model)
	ctx.dispatch(session.ModelLoaded{})

	ctx.begin(sketch.Point{X: 140, Y: 60})
	ctx.pad.ExtendStroke(sketch.Point{X: 140, Y: 220})
	ctx.pad.EndStroke()
	ctx.pad.RunNow()

	s := ctx.snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, 3, s.Current.Digit)
	assert.Equal(t, "3 (Confidence: 70.0%)", session.FormatHistory(s.Predictions))
	assert.Contains(t, formatStatus(s, false), "top: 3: 70.0%, 8: 30.0%")

	ctx.close()
	assert.True(t, model.closed)
}

func TestRunDropsResultOfEarlierDrawing(t *testing.T) {
	out := make([]float32, 10)
	out[7] = 1
	ctx := newPadCtxt(1024, 0, datastructures.TypeClassification)
	ctx.setModel(&constModel{out: out})

	ctx.begin(sketch.Point{X: 140, Y: 140})
	ctx.pad.EndStroke()
	v, generation := ctx.pad.Snapshot()

	// a new stroke lands before the model has run on the snapshot
	ctx.begin(sketch.Point{X: 40, Y: 40})
	ctx.run(v, generation)

	s := ctx.snapshot()
	assert.Nil(t, s.Current)
	assert.Empty(t, s.Predictions)
	assert.Equal(t, ctx.pad.Generation(), s.Generation)

	ctx.pad.EndStroke()
	ctx.pad.RunNow()
	require.NotNil(t, ctx.snapshot().Current)
	assert.Equal(t, 7, ctx.snapshot().Current.Digit)
}

func TestRunRecordsReconstruction(t *testing.T) {
	ctx := newPadCtxt(1024, 0, datastructures.TypeReconstruction)
	ctx.setModel(&constModel{out: make([]float32, preprocess.VectorLen)})

	ctx.begin(sketch.Point{X: 100, Y: 100})
	ctx.pad.EndStroke()
	ctx.pad.RunNow()
	ctx.pad.RunNow()

	s := ctx.snapshot()
	assert.Len(t, s.Reconstructions, 2)
	assert.Len(t, s.Reconstruction, preprocess.VectorLen)
}

func TestRunReportsBadModel(t *testing.T) {
	ctx := newPadCtxt(1024, 0, datastructures.TypeClassification)
	ctx.setModel(&constModel{out: make([]float32, 3)})

	ctx.begin(sketch.Point{X: 100, Y: 100})
	ctx.pad.EndStroke()
	ctx.pad.RunNow()

	s := ctx.snapshot()
	assert.Nil(t, s.Current)
	assert.True(t, strings.HasPrefix(s.Error, "Prediction failed: "))
	assert.Contains(t, formatStatus(s, false), "error: Prediction failed")
}

func TestRunWithoutModel(t *testing.T) {
	ctx := newPadCtxt(1024, 0, datastructures.TypeClassification)
	ctx.begin(sketch.Point{X: 100, Y: 100})
	ctx.pad.EndStroke()
	ctx.pad.RunNow()
	assert.Empty(t, ctx.snapshot().Predictions)
	assert.Equal(t, "model: none (idle)\ndrawn: true, auto-run pending: false", formatStatus(ctx.snapshot(), false))
}

func TestAutoRunAfterStroke(t *testing.T) {
	out := make([]float32, 10)
	out[1] = 1
	ctx := newPadCtxt(1024, 10*time.Millisecond, datastructures.TypeClassification)
	ctx.setModel(&constModel{out: out})

	ctx.begin(sketch.Point{X: 140, Y: 40})
	ctx.pad.ExtendStroke(sketch.Point{X: 140, Y: 240})
	ctx.pad.EndStroke()

	assert.Eventually(t, func() bool {
		return len(ctx.snapshot().Predictions) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ctx.snapshot().Current.Digit)
}

func TestFormatVector(t *testing.T) {
	ctx := newPadCtxt(1024, 0, datastructures.TypeClassification)
	ctx.begin(sketch.Point{X: 140, Y: 140})
	ctx.pad.EndStroke()

	rows := strings.Split(formatVector(ctx.pad.Normalize()), "\n")
	require.Len(t, rows, preprocess.Side)
	cells := strings.Fields(rows[14])
	require.Len(t, cells, preprocess.Side)
	assert.Equal(t, "0.00", cells[0])
	assert.NotEqual(t, "0.00", cells[14])

	ctx.clear()
	assert.NotContains(t, formatVector(ctx.pad.Normalize()), "1.00")
	assert.False(t, ctx.snapshot().Drawn)
}
