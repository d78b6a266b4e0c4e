package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/bbernhard/mnist-playground/modelstore"
	"github.com/bbernhard/mnist-playground/predict"
	"github.com/bbernhard/mnist-playground/predict/tfmodel"
	"github.com/bbernhard/mnist-playground/store"
	raven "github.com/getsentry/raven-go"
	log "github.com/sirupsen/logrus"
)

func modelFactory(ctx context.Context, models *modelstore.Store, m modelstore.ModelConfig) predict.ModelFactory {
	return func() (predict.Model, datastructures.ModelInfo, error) {
		info, err := models.Info(m.File)
		if err != nil {
			log.Debug("[Main] Couldn't read model info of ", m.Name, ": ", err.Error())
		}
		data, err := models.Fetch(ctx, m.File)
		if err != nil {
			return nil, info, err
		}
		model, err := tfmodel.New(data, m.Input, m.Output)
		if err != nil {
			return nil, info, err
		}
		return model, info, nil
	}
}

func main() {
	log.SetLevel(log.DebugLevel)

	log.Debug("[Main] Starting Playground Worker...")
	redisAddress := flag.String("redis-address", ":6379", "Address to the Redis server")
	redisMaxConnections := flag.Int("redis-max-connections", 10, "Max connections to Redis")
	maxWorkerQueueSize := flag.Int("max-worker-queue-size", 100, "The size of job queue")
	configPath := flag.String("config", "", "YAML file listing the models to serve")
	modelsDir := flag.String("models-dir", "models", "Directory the models are loaded from")
	fallbackURL := flag.String("fallback-url", "", "Base URL models are downloaded from when they aren't in models-dir")
	sentryDSN := flag.String("sentry-dsn", "", "Sentry DSN errors are reported to")

	flag.Parse()

	if *sentryDSN != "" {
		if err := raven.SetDSN(*sentryDSN); err != nil {
			log.Fatal("[Main] Couldn't set sentry dsn: ", err.Error())
		}
	}

	cfg := modelstore.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = modelstore.LoadConfig(*configPath)
		if err != nil {
			log.Fatal("[Main] ", err.Error())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := modelstore.DefaultOptions()
	opts.Dir = *modelsDir
	opts.FallbackURL = *fallbackURL
	models := modelstore.New(opts)

	// warm the cache so the workers of one model don't all download it
	if _, err := models.LoadAll(ctx, cfg.Models); err != nil {
		log.Error("[Main] Couldn't load models: ", err.Error())
		raven.CaptureError(err, map[string]string{"component": "main"})
	}

	redisPool := store.NewPool(*redisAddress, *redisMaxConnections)
	defer redisPool.Close()
	results := store.New(redisPool)

	log.Debug("[Main] Starting Dispatchers...")

	routes := make(map[string]chan predict.Job, len(cfg.Models))
	var dispatchers []*predict.Dispatcher
	for _, m := range cfg.Models {
		jobQueue := make(chan predict.Job, *maxWorkerQueueSize)
		dispatcher := predict.NewDispatcher(jobQueue, m.Workers, modelFactory(ctx, models, m), results)
		dispatcher.Run()
		dispatchers = append(dispatchers, dispatcher)
		routes[m.Type] = jobQueue
		log.Debug("[Main] Serving ", m.Type, " with ", m.Name, " (", m.Workers, " workers)")
	}

	err := predict.Consume(ctx, results, routes, results, time.Second)
	log.Debug("[Main] Shutting down: ", err)
	for _, d := range dispatchers {
		d.Stop()
	}
}
