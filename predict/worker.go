package predict

import (
	"github.com/bbernhard/mnist-playground/datastructures"
	raven "github.com/getsentry/raven-go"
	log "github.com/sirupsen/logrus"
)

// Job holds the attributes needed to perform unit of work.
type Job struct {
	PredictionRequest datastructures.PredictionRequest
}

// ModelFactory loads the model a worker keeps for its whole lifetime.
type ModelFactory func() (Model, datastructures.ModelInfo, error)

// ResultWriter stores finished results.
type ResultWriter interface {
	PutResult(res datastructures.PredictionResult) error
}

// Process runs a single request against model. Failures end up in the
// result's Error field rather than being dropped.
func Process(model Model, info datastructures.ModelInfo, req datastructures.PredictionRequest) datastructures.PredictionResult {
	res := datastructures.PredictionResult{
		Uuid:      req.Uuid,
		Type:      req.Type,
		ModelInfo: info,
	}

	var err error
	switch req.Type {
	case datastructures.TypeReconstruction:
		res.Reconstruction, err = Reconstruct(model, req.Input)
	default:
		res.Type = datastructures.TypeClassification
		var c datastructures.Classification
		c, err = Classify(model, req.Input)
		if err == nil {
			res.Classification = &c
		}
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// NewWorker creates worker id. It registers with workerPool, loads its model
// through factory when started and writes every result to results.
func NewWorker(id int, workerPool chan chan Job, factory ModelFactory, results ResultWriter) Worker {
	return Worker{
		id:         id,
		jobQueue:   make(chan Job),
		workerPool: workerPool,
		quitChan:   make(chan bool),
		factory:    factory,
		results:    results,
	}
}

type Worker struct {
	id         int
	jobQueue   chan Job
	workerPool chan chan Job
	quitChan   chan bool
	factory    ModelFactory
	results    ResultWriter
}

func (w Worker) start() {
	log.Debug("[Worker] Worker ", w.id, " starting")

	// a worker without a model keeps answering with ErrModelNotReady
	var model Model
	var info datastructures.ModelInfo
	if w.factory != nil {
		m, i, err := w.factory()
		if err != nil {
			log.Error("[Worker] Couldn't load model: ", err.Error())
			raven.CaptureError(err, map[string]string{"component": "worker"})
		} else {
			model, info = m, i
		}
	}

	go func() {
		defer func() {
			if model != nil {
				model.Close()
			}
		}()
		for {
			// Add my jobQueue to the worker pool.
			select {
			case w.workerPool <- w.jobQueue:
			case <-w.quitChan:
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}

			select {
			case job := <-w.jobQueue:
				// Dispatcher has added a job to my jobQueue.
				res := Process(model, info, job.PredictionRequest)
				if res.Error != "" {
					log.Debug("[Worker] Couldn't predict ", res.Uuid, ": ", res.Error)
				}
				if err := w.results.PutResult(res); err != nil {
					log.Debug("[Worker] Couldn't store result: ", err.Error())
					raven.CaptureError(err, map[string]string{"component": "worker", "uuid": res.Uuid})
				}
			case <-w.quitChan:
				// We have been asked to stop.
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}
		}
	}()
}

func (w Worker) stop() {
	close(w.quitChan)
}

// NewDispatcher creates, and returns a new Dispatcher object.
func NewDispatcher(jobQueue chan Job, maxWorkers int, factory ModelFactory, results ResultWriter) *Dispatcher {
	workerPool := make(chan chan Job, maxWorkers)

	return &Dispatcher{
		jobQueue:   jobQueue,
		maxWorkers: maxWorkers,
		workerPool: workerPool,
		factory:    factory,
		results:    results,
		quit:       make(chan struct{}),
	}
}

type Dispatcher struct {
	workerPool chan chan Job
	maxWorkers int
	jobQueue   chan Job
	factory    ModelFactory
	results    ResultWriter
	workers    []Worker
	quit       chan struct{}
}

func (d *Dispatcher) Run() {
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(i+1, d.workerPool, d.factory, d.results)
		worker.start()
		d.workers = append(d.workers, worker)
	}

	go d.dispatch()
}

// Stop halts dispatching and every worker. Jobs still queued are dropped.
func (d *Dispatcher) Stop() {
	close(d.quit)
	for _, w := range d.workers {
		w.stop()
	}
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			go func() {
				select {
				case workerJobQueue := <-d.workerPool:
					select {
					case workerJobQueue <- job:
					case <-d.quit:
					}
				case <-d.quit:
				}
			}()
		case <-d.quit:
			return
		}
	}
}
