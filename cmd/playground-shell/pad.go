package main

import (
	"strconv"
	"sync"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/predict"
	"github.com/bbernhard/mnist-playground/preprocess"
	"github.com/bbernhard/mnist-playground/session"
	"github.com/bbernhard/mnist-playground/sketch"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// padCtxt is what the shell commands operate on.
type padCtxt struct {
	pad       *session.Pad
	modelType string

	mu    sync.Mutex
	model predict.Model
	state session.State
}

func newPadCtxt(viewportWidth int, autoRun time.Duration, modelType string) *padCtxt {
	ctx := &padCtxt{modelType: modelType}
	ctx.pad = session.NewPad(viewportWidth, autoRun, ctx.run)
	return ctx
}

func (ctx *padCtxt) setModel(m predict.Model) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.model = m
}

func (ctx *padCtxt) close() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.model != nil {
		ctx.model.Close()
		ctx.model = nil
	}
}

func (ctx *padCtxt) dispatch(a session.Action) session.State {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.state = session.Reduce(ctx.state, a)
	return ctx.state
}

func (ctx *padCtxt) snapshot() session.State {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.state
}

// run feeds v to the model and records the outcome against generation, the
// drawing v was taken from.
func (ctx *padCtxt) run(v preprocess.Vector, generation uint64) {
	ctx.mu.Lock()
	model := ctx.model
	ctx.mu.Unlock()

	if model == nil {
		log.Debug("[Shell] No model loaded, skipping run")
		return
	}

	var action session.Action
	switch ctx.modelType {
	case datastructures.TypeReconstruction:
		pixels, err := predict.Reconstruct(model, v)
		action = session.ReconstructionSucceeded{Generation: generation, Pixels: pixels, At: time.Now()}
		if err != nil {
			action = session.RunFailed{Generation: generation, Err: err}
		}
	default:
		c, err := predict.Classify(model, v)
		action = session.PredictionSucceeded{Generation: generation, Result: c, At: time.Now()}
		if err != nil {
			action = session.RunFailed{Generation: generation, Err: err}
		}
	}

	s := ctx.dispatch(action)
	switch {
	case s.Generation != generation:
		log.Debug("[Shell] Dropping result of an earlier drawing")
	case s.Error != "":
		log.Error("[Shell] ", s.Error)
	case ctx.modelType == datastructures.TypeReconstruction:
		log.Info("[Shell] Reconstruction ready (", len(s.Reconstructions), " in history)")
	case s.Current != nil:
		log.Infof("[Shell] Prediction: %d (Confidence: %.1f%%)", s.Current.Digit, s.Current.Confidence*100)
	}
}

func (ctx *padCtxt) begin(p sketch.Point) {
	ctx.dispatch(session.StrokeStarted{Generation: ctx.pad.BeginStroke(p)})
}

func (ctx *padCtxt) clear() {
	ctx.dispatch(session.Cleared{Generation: ctx.pad.Clear()})
}

// parseCoords parses exactly n numeric arguments.
func parseCoords(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, errors.Errorf("expected %d coordinates, got %d", n, len(args))
	}
	coords := make([]float64, n)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, errors.Errorf("%q is not a number", arg)
		}
		coords[i] = v
	}
	return coords, nil
}

func parsePoint(args []string) (sketch.Point, error) {
	c, err := parseCoords(args, 2)
	if err != nil {
		return sketch.Point{}, err
	}
	return sketch.Point{X: c[0], Y: c[1]}, nil
}
