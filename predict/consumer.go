package predict

import (
	"context"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Queue hands out pending prediction requests. ok is false when nothing is
// waiting.
type Queue interface {
	Dequeue() (req datastructures.PredictionRequest, ok bool, err error)
}

// Consume pulls requests off queue and routes them to the job queue of their
// type until ctx is done. Requests no model is configured for are answered
// right away with ErrModelNotReady. idle is how long to back off when the
// queue is empty.
func Consume(ctx context.Context, queue Queue, routes map[string]chan Job, results ResultWriter, idle time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, ok, err := queue.Dequeue()
		if err != nil {
			log.Debug("[Main] Couldn't fetch request: ", err.Error())
		}
		if err != nil || !ok {
			if !sleep(ctx, idle) {
				return ctx.Err()
			}
			continue
		}

		log.Debug("[Main] Got a new request to process")

		if req.Type == "" {
			req.Type = datastructures.TypeClassification
		}
		jobQueue, found := routes[req.Type]
		if !found {
			log.Debug("[Main] Invalid classification type: ", req.Type)
			reject(results, req)
			continue
		}

		select {
		case jobQueue <- Job{PredictionRequest: req}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func reject(results ResultWriter, req datastructures.PredictionRequest) {
	res := datastructures.PredictionResult{
		Uuid:  req.Uuid,
		Type:  req.Type,
		Error: errors.Wrapf(ErrModelNotReady, "no %s model configured", req.Type).Error(),
	}
	if err := results.PutResult(res); err != nil {
		log.Debug("[Main] Couldn't store result: ", err.Error())
		raven.CaptureError(err, map[string]string{"component": "consumer", "uuid": req.Uuid})
	}
}
