package modelstore

import (
	"context"
	"io/ioutil"
	"sync"

	"github.com/bbernhard/mnist-playground/datastructures"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	yaml "gopkg.in/yaml.v2"
)

type ModelConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	File    string `yaml:"file"`
	Input   string `yaml:"input"`
	Output  string `yaml:"output"`
	Workers int    `yaml:"workers"`
}

type Config struct {
	Models []ModelConfig `yaml:"models"`
}

// DefaultConfig serves one classifier and one autoencoder.
func DefaultConfig() Config {
	return Config{Models: []ModelConfig{
		{Name: "mnist", Type: datastructures.TypeClassification, File: "model.pb", Input: "input", Output: "output", Workers: 3},
		{Name: "autoencoder", Type: datastructures.TypeReconstruction, File: "autoencoder.pb", Input: "input", Output: "output", Workers: 2},
	}}
}

func LoadConfig(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "couldn't read config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML model list, filling in defaults. Only one model
// per type is allowed.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "couldn't parse config")
	}
	if len(cfg.Models) == 0 {
		return cfg, errors.New("config lists no models")
	}

	seen := map[string]bool{}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.File == "" {
			return cfg, errors.Errorf("model %d has no file", i)
		}
		if m.Name == "" {
			m.Name = m.File
		}
		if m.Type == "" {
			m.Type = datastructures.TypeClassification
		}
		if m.Type != datastructures.TypeClassification && m.Type != datastructures.TypeReconstruction {
			return cfg, errors.Errorf("model %s has unknown type %q", m.Name, m.Type)
		}
		if seen[m.Type] {
			return cfg, errors.Errorf("more than one %s model", m.Type)
		}
		seen[m.Type] = true
		if m.Input == "" {
			m.Input = "input"
		}
		if m.Output == "" {
			m.Output = "output"
		}
		if m.Workers <= 0 {
			m.Workers = 1
		}
	}
	return cfg, nil
}

// LoadAll fetches every configured model concurrently. The first failure
// cancels the rest.
func (s *Store) LoadAll(ctx context.Context, models []ModelConfig) (map[string][]byte, error) {
	var mu sync.Mutex
	loaded := make(map[string][]byte, len(models))

	g, ctx := errgroup.WithContext(ctx)
	for _, m := range models {
		m := m
		g.Go(func() error {
			data, err := s.Fetch(ctx, m.File)
			if err != nil {
				return err
			}
			mu.Lock()
			loaded[m.Name] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return loaded, nil
}
