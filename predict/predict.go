// Package predict runs normalized digit vectors through a loaded model, either
// classifying the digit or reconstructing it.
package predict

import (
	"math"
	"sort"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/preprocess"
	"github.com/pkg/errors"
)

const (
	Classes = 10
	// TopScores is how many ranked scores the playground shows.
	TopScores = 4
)

var (
	ErrModelNotReady = errors.New("model not ready")
	ErrBadInput      = errors.New("input must hold 784 values")
	ErrBadOutput     = errors.New("model returned an unexpected output shape")
)

// Model is a loaded inference session taking one [1, 784] sample.
type Model interface {
	Run(input []float32) ([]float32, error)
	Close()
}

func run(model Model, input []float32) ([]float32, error) {
	if model == nil {
		return nil, ErrModelNotReady
	}
	if len(input) != preprocess.VectorLen {
		return nil, errors.Wrapf(ErrBadInput, "got %d", len(input))
	}
	output, err := model.Run(input)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't run inference")
	}
	return output, nil
}

// Classify ranks the ten digit classes by probability. Raw logits are passed
// through softmax first.
func Classify(model Model, input []float32) (datastructures.Classification, error) {
	var res datastructures.Classification
	output, err := run(model, input)
	if err != nil {
		return res, err
	}
	if len(output) != Classes {
		return res, errors.Wrapf(ErrBadOutput, "expected %d classes, got %d", Classes, len(output))
	}

	probs := output
	if !isDistribution(output) {
		probs = softmax(output)
	}

	res.Scores = make([]datastructures.ClassScore, len(probs))
	for digit, p := range probs {
		res.Scores[digit] = datastructures.ClassScore{Digit: digit, Probability: p}
	}
	sort.SliceStable(res.Scores, func(i, j int) bool {
		return res.Scores[i].Probability > res.Scores[j].Probability
	})
	res.Digit = res.Scores[0].Digit
	res.Confidence = res.Scores[0].Probability
	return res, nil
}

// Reconstruct returns the autoencoder's 784 pixel intensities clamped to [0, 1].
func Reconstruct(model Model, input []float32) ([]float32, error) {
	output, err := run(model, input)
	if err != nil {
		return nil, err
	}
	if len(output) != preprocess.VectorLen {
		return nil, errors.Wrapf(ErrBadOutput, "expected %d pixels, got %d", preprocess.VectorLen, len(output))
	}
	pixels := make([]float32, len(output))
	for i, v := range output {
		pixels[i] = float32(math.Max(0, math.Min(1, float64(v))))
	}
	return pixels, nil
}

func isDistribution(values []float32) bool {
	var sum float64
	for _, v := range values {
		if v < 0 || math.IsNaN(float64(v)) {
			return false
		}
		sum += float64(v)
	}
	return math.Abs(sum-1) <= 1e-3
}

func softmax(logits []float32) []float32 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	exps := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		exps[i] = math.Exp(float64(v) - maxLogit)
		sum += exps[i]
	}
	probs := make([]float32, len(logits))
	for i := range exps {
		probs[i] = float32(exps[i] / sum)
	}
	return probs
}

// Top returns the first n scores of an already ranked classification.
func Top(c datastructures.Classification, n int) []datastructures.ClassScore {
	if n > len(c.Scores) {
		n = len(c.Scores)
	}
	return append([]datastructures.ClassScore(nil), c.Scores[:n]...)
}
