// Package modelstore fetches serialized models from a local directory, falling
// back to a remote location, and keeps them in memory once loaded.
package modelstore

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrModelUnavailable = errors.New("model unavailable")

type Options struct {
	// Dir holds the models shipped next to the service.
	Dir string
	// FallbackURL is the base URL tried when a model isn't in Dir.
	FallbackURL string
	Retries     int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

func DefaultOptions() Options {
	return Options{
		Dir:        "models",
		Retries:    2,
		RetryDelay: time.Second,
		Timeout:    30 * time.Second,
	}
}

type Store struct {
	opts   Options
	client *resty.Client

	mu    sync.Mutex
	cache map[string][]byte
}

func New(opts Options) *Store {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/octet-stream")
	return &Store{
		opts:   opts,
		client: client,
		cache:  map[string][]byte{},
	}
}

// Fetch returns the raw bytes of the model called name. Every attempt tries
// the local directory first and the fallback URL second; after Retries failed
// retries ErrModelUnavailable is returned.
func (s *Store) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	cached, ok := s.cache[name]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			log.Debug("[Models] Retrying ", name, " in ", s.opts.RetryDelay, " (", s.opts.Retries-attempt+1, " retries left)")
			select {
			case <-time.After(s.opts.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := s.fetchOnce(ctx, name)
		if err == nil {
			s.mu.Lock()
			s.cache[name] = data
			s.mu.Unlock()
			return data, nil
		}
		log.Debug("[Models] Couldn't load ", name, ": ", err.Error())
		lastErr = err
	}
	return nil, errors.Wrapf(ErrModelUnavailable, "%s: %v", name, lastErr)
}

func (s *Store) fetchOnce(ctx context.Context, name string) ([]byte, error) {
	data, err := s.readLocal(name)
	if err == nil {
		return data, nil
	}
	if s.opts.FallbackURL == "" {
		return nil, err
	}
	log.Debug("[Models] ", name, " not available locally, trying ", s.opts.FallbackURL)
	return s.download(ctx, name)
}

func (s *Store) readLocal(name string) ([]byte, error) {
	if s.opts.Dir == "" {
		return nil, os.ErrNotExist
	}
	return ioutil.ReadFile(filepath.Join(s.opts.Dir, filepath.Base(name)))
}

func (s *Store) download(ctx context.Context, name string) ([]byte, error) {
	u, err := url.JoinPath(s.opts.FallbackURL, name)
	if err != nil {
		return nil, errors.Wrap(err, "invalid fallback url")
	}
	resp, err := s.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't fetch %s", u)
	}
	if resp.IsError() {
		return nil, errors.Errorf("couldn't fetch %s: %s", u, resp.Status())
	}
	if len(resp.Body()) == 0 {
		return nil, errors.Errorf("couldn't fetch %s: empty body", u)
	}
	return resp.Body(), nil
}

// Info reads the metadata stored next to a model ("model.pb" -> "model.json").
// A missing file is not an error; the info then only carries the name.
func (s *Store) Info(name string) (datastructures.ModelInfo, error) {
	info := datastructures.ModelInfo{Name: name}
	path := filepath.Join(s.opts.Dir, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))+".json")
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return info, nil
	}
	if err != nil {
		return info, errors.Wrap(err, "couldn't read model info")
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, errors.Wrap(err, "couldn't parse model info")
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}
