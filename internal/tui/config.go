package tui

import (
	"github.com/kbyiringiro/saccoflow/internal/queue"
	"github.com/kbyiringiro/saccoflow/internal/recon"
	"github.com/kbyiringiro/saccoflow/internal/service"
	"github.com/kbyiringiro/saccoflow/internal/suggest"
)

// Config holds TUI configuration and collaborators.
type Config struct {
	Storage      service.Storage
	Engine       *recon.Engine
	Queue        *queue.Queue
	Resolver     *recon.Resolver
	Classifier   *recon.Classifier
	Suggestions  *suggest.Cache
	Connectivity service.Connectivity
	SaccoID      string
	Width        int
	Height       int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Width:  80,
		Height: 24,
	}
}

// WithStorage sets the storage service.
func WithStorage(storage service.Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithEngine sets the reconciliation engine.
func WithEngine(engine *recon.Engine) Option {
	return func(c *Config) {
		c.Engine = engine
	}
}

// WithQueue sets the offline action queue.
func WithQueue(q *queue.Queue) Option {
	return func(c *Config) {
		c.Queue = q
	}
}

// WithResolver sets the member match resolver.
func WithResolver(resolver *recon.Resolver) Option {
	return func(c *Config) {
		c.Resolver = resolver
	}
}

// WithClassifier sets the exception classifier.
func WithClassifier(classifier *recon.Classifier) Option {
	return func(c *Config) {
		c.Classifier = classifier
	}
}

// WithSuggestions sets the suggestion cache.
func WithSuggestions(cache *suggest.Cache) Option {
	return func(c *Config) {
		c.Suggestions = cache
	}
}

// WithConnectivity sets the connectivity monitor.
func WithConnectivity(connectivity service.Connectivity) Option {
	return func(c *Config) {
		c.Connectivity = connectivity
	}
}

// WithSaccoID sets the tenant scope.
func WithSaccoID(saccoID string) Option {
	return func(c *Config) {
		c.SaccoID = saccoID
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
