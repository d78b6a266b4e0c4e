// Package tfmodel runs frozen TensorFlow graphs as digit models.
package tfmodel

import (
	"github.com/bbernhard/mnist-playground/predict"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
)

type Model struct {
	graph   *tf.Graph
	session *tf.Session
	input   tf.Output
	output  tf.Output
}

// New imports a serialized GraphDef and opens a session over it. input and
// output name the operations fed with the [1, 784] sample and fetched.
func New(graphDef []byte, input, output string) (*Model, error) {
	// Construct an in-memory graph from the serialized form.
	graph := tf.NewGraph()
	if err := graph.Import(graphDef, ""); err != nil {
		return nil, errors.Wrap(err, "couldn't construct graph")
	}

	inOp := graph.Operation(input)
	if inOp == nil {
		return nil, errors.Errorf("graph has no input operation %q", input)
	}
	outOp := graph.Operation(output)
	if outOp == nil {
		return nil, errors.Errorf("graph has no output operation %q", output)
	}

	session, err := tf.NewSession(graph, nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't start session")
	}

	return &Model{
		graph:   graph,
		session: session,
		input:   inOp.Output(0),
		output:  outOp.Output(0),
	}, nil
}

func (m *Model) Run(input []float32) ([]float32, error) {
	// batch of one
	tensor, err := tf.NewTensor([][]float32{input})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create tensor")
	}

	output, err := m.session.Run(
		map[tf.Output]*tf.Tensor{m.input: tensor},
		[]tf.Output{m.output},
		nil)
	if err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, predict.ErrBadOutput
	}

	batch, ok := output[0].Value().([][]float32)
	if !ok || len(batch) != 1 {
		log.Debug("[Model] Unexpected output shape: ", output[0].Shape())
		return nil, predict.ErrBadOutput
	}
	return batch[0], nil
}

func (m *Model) Close() {
	if err := m.session.Close(); err != nil {
		log.Debug("[Model] Couldn't close session: ", err.Error())
	}
}
