// Package store keeps the prediction queue and finished results in redis.
package store

import (
	"encoding/json"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
)

const (
	QueueKey     = "predictme"
	ResultPrefix = "predict"
	// results are only interesting for a short while
	ResultTTL = 3600
)

// NewPool dials address lazily, keeping up to maxConnections open.
func NewPool(address string, maxConnections int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     maxConnections,
		MaxActive:   maxConnections,
		IdleTimeout: 240 * time.Second,
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", address)
		},
	}
}

type Store struct {
	pool *redis.Pool
}

func New(pool *redis.Pool) *Store {
	return &Store{pool: pool}
}

// Enqueue appends req to the prediction queue.
func (s *Store) Enqueue(req datastructures.PredictionRequest) error {
	serialized, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal request")
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("RPUSH", QueueKey, serialized); err != nil {
		return errors.Wrap(err, "couldn't push request")
	}
	return nil
}

// Dequeue pops the oldest request. ok is false when the queue is empty.
func (s *Store) Dequeue() (req datastructures.PredictionRequest, ok bool, err error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("LPOP", QueueKey))
	if err == redis.ErrNil {
		return req, false, nil
	}
	if err != nil {
		return req, false, errors.Wrap(err, "couldn't pop request")
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, false, errors.Wrap(err, "couldn't unmarshal request")
	}
	return req, true, nil
}

func (s *Store) PutResult(res datastructures.PredictionResult) error {
	serialized, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal result")
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SETEX", ResultPrefix+res.Uuid, ResultTTL, serialized); err != nil {
		return errors.Wrap(err, "couldn't store result")
	}
	return nil
}

// Result looks up a finished result. found is false when the uuid is unknown
// or processing isn't finished yet.
func (s *Store) Result(uuid string) (res datastructures.PredictionResult, found bool, err error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", ResultPrefix+uuid))
	if err == redis.ErrNil {
		return res, false, nil
	}
	if err != nil {
		return res, false, errors.Wrap(err, "couldn't get result")
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, false, errors.Wrap(err, "couldn't unmarshal result")
	}
	return res, true, nil
}
