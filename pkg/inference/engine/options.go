package engine

import (
	"github.com/go-go-golems/parley/pkg/events"
)

// Config holds cross-provider engine configuration.
type Config struct {
	EventSinks []events.EventSink
}

func NewConfig() *Config {
	return &Config{}
}

type Option func(*Config) error

// WithSink registers an event sink that receives start/partial/final/tool
// events during inference.
func WithSink(sink events.EventSink) Option {
	return func(c *Config) error {
		c.EventSinks = append(c.EventSinks, sink)
		return nil
	}
}

func ApplyOptions(c *Config, options ...Option) error {
	for _, o := range options {
		if err := o(c); err != nil {
			return err
		}
	}
	return nil
}
