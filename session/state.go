package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/predict"
)

// MaxReconstructions is how many reconstructions the history keeps.
const MaxReconstructions = 10

type ModelStatus int

const (
	ModelIdle ModelStatus = iota
	ModelLoading
	ModelReady
	ModelFailed
)

func (s ModelStatus) String() string {
	switch s {
	case ModelLoading:
		return "loading"
	case ModelReady:
		return "ready"
	case ModelFailed:
		return "failed"
	}
	return "idle"
}

// Panel is a collapsible part of the page.
type Panel uint8

const (
	PanelInfo Panel = 1 << iota
	PanelPredictions
	PanelLogs
	PanelHistory
)

type Prediction struct {
	ID         int64
	Digit      int
	Confidence float32
	At         time.Time
}

type Reconstruction struct {
	ID     int64
	Pixels []float32
	At     time.Time
}

// State is an immutable snapshot; Reduce never modifies the slices of the
// state it is given.
type State struct {
	// Generation changes whenever the drawing is restarted. Results computed
	// for an older generation are dropped.
	Generation uint64
	Drawn      bool

	Current     *Prediction
	Predictions []Prediction // newest first
	Top         []datastructures.ClassScore

	Reconstruction  []float32
	Reconstructions []Reconstruction // newest first

	Model       string
	ModelStatus ModelStatus
	Error       string

	Open Panel
}

func (s State) IsOpen(p Panel) bool {
	return s.Open&p != 0
}

type Action interface {
	apply(State) State
}

// Reduce returns the state after a.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// StrokeStarted moves to Generation, or to the next generation when it is 0.
// Pass the value returned by Pad.BeginStroke to keep both in step.
type StrokeStarted struct {
	Generation uint64
}

func (a StrokeStarted) apply(s State) State {
	s.Generation = nextGeneration(s.Generation, a.Generation)
	s.Drawn = true
	return s
}

// Cleared takes its Generation the same way as StrokeStarted.
type Cleared struct {
	Generation uint64
}

func (a Cleared) apply(s State) State {
	s.Generation = nextGeneration(s.Generation, a.Generation)
	s.Drawn = false
	s.Reconstruction = nil
	s.Error = ""
	return s
}

type PredictionSucceeded struct {
	Generation uint64
	Result     datastructures.Classification
	At         time.Time
}

func (a PredictionSucceeded) apply(s State) State {
	if a.Generation != s.Generation {
		return s
	}
	p := Prediction{
		ID:         a.At.UnixNano(),
		Digit:      a.Result.Digit,
		Confidence: a.Result.Confidence,
		At:         a.At,
	}
	s.Current = &p
	s.Predictions = prepend(s.Predictions, p, 0)
	s.Top = predict.Top(a.Result, predict.TopScores)
	s.Error = ""
	return s
}

type ReconstructionSucceeded struct {
	Generation uint64
	Pixels     []float32
	At         time.Time
}

func (a ReconstructionSucceeded) apply(s State) State {
	if a.Generation != s.Generation {
		return s
	}
	pixels := append([]float32(nil), a.Pixels...)
	s.Reconstruction = pixels
	s.Reconstructions = prepend(s.Reconstructions, Reconstruction{
		ID: a.At.UnixNano(), Pixels: pixels, At: a.At,
	}, MaxReconstructions)
	s.Error = ""
	return s
}

// RunFailed reports a failed prediction or reconstruction.
type RunFailed struct {
	Generation uint64
	Err        error
}

func (a RunFailed) apply(s State) State {
	if a.Generation != s.Generation {
		return s
	}
	s.Top = nil
	s.Error = "Prediction failed"
	if a.Err != nil {
		s.Error = fmt.Sprintf("Prediction failed: %s", a.Err.Error())
	}
	return s
}

type UndoPrediction struct{}

func (UndoPrediction) apply(s State) State {
	if len(s.Predictions) == 0 {
		return s
	}
	s.Predictions = s.Predictions[1:]
	s.Current = nil
	if len(s.Predictions) > 0 {
		p := s.Predictions[0]
		s.Current = &p
	}
	return s
}

type ResetPredictions struct{}

func (ResetPredictions) apply(s State) State {
	s.Current = nil
	s.Predictions = nil
	s.Top = nil
	return s
}

type ClearHistory struct{}

func (ClearHistory) apply(s State) State {
	s.Reconstructions = nil
	return s
}

// SelectModel switches models; the new one has to load first.
type SelectModel struct {
	Name string
}

func (a SelectModel) apply(s State) State {
	s.Model = a.Name
	s.ModelStatus = ModelLoading
	s.Error = ""
	return s
}

type ModelLoaded struct{}

func (ModelLoaded) apply(s State) State {
	s.ModelStatus = ModelReady
	s.Error = ""
	return s
}

type ModelLoadFailed struct {
	Err error
}

func (a ModelLoadFailed) apply(s State) State {
	s.ModelStatus = ModelFailed
	s.Error = "Failed to load model"
	if a.Err != nil {
		s.Error = fmt.Sprintf("Failed to load model: %s", a.Err.Error())
	}
	return s
}

type Toggle struct {
	Panel Panel
}

func (a Toggle) apply(s State) State {
	s.Open ^= a.Panel
	return s
}

func nextGeneration(current, next uint64) uint64 {
	if next == 0 {
		return current + 1
	}
	return next
}

// prepend returns a new slice with v in front of items, keeping at most limit
// entries (no limit when 0).
func prepend[T any](items []T, v T, limit int) []T {
	n := len(items) + 1
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]T, 0, n)
	out = append(out, v)
	return append(out, items[:n-1]...)
}

// FormatHistory renders predictions one per line, newest first.
func FormatHistory(predictions []Prediction) string {
	lines := make([]string, len(predictions))
	for i, p := range predictions {
		lines[i] = fmt.Sprintf("%d (Confidence: %.1f%%)", p.Digit, p.Confidence*100)
	}
	return strings.Join(lines, "\n")
}
