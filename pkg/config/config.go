// Package config implements the messagebus config surface of spec §6:
// publish mode, worker thread count, and logging, loaded with a strict
// YAML decoder in the teacher's style.
package config

import (
	"fmt"

	"github.com/ori346/MessageBus/pkg/messagebus"
)

// LoggingConfig mirrors the teacher's logging configuration shape, scoped
// to the fields the messagebus ambient stack actually consumes.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Colors bool   `yaml:"colors"` // enable ANSI color output
}

// Config is the root configuration object for a messagebus process.
type Config struct {
	// PublishMode selects the matcher tiers consulted by every publish;
	// see messagebus.PublishMode. Accepted YAML values: "exact",
	// "exact_with_supertypes", "exact_with_supertypes_and_vararg".
	PublishMode string `yaml:"publish_mode"`

	// NumberOfThreads is the size of the async dispatcher's worker pool.
	// Normalize rounds this up to the next power of two with a floor of
	// 2, per spec §6.
	NumberOfThreads int `yaml:"number_of_threads"`

	Logging LoggingConfig `yaml:"logging"`
}

// Default returns a Config with the same defaults spec §6 implies: the
// richest matching policy and a minimal two-worker pool.
func Default() *Config {
	return &Config{
		PublishMode:     "exact_with_supertypes_and_vararg",
		NumberOfThreads: 2,
		Logging: LoggingConfig{
			Level:  "info",
			Colors: true,
		},
	}
}

// Mode parses PublishMode into a messagebus.PublishMode. Validate must be
// called (and must return no errors) before this is relied upon.
func (c *Config) Mode() (messagebus.PublishMode, error) {
	switch c.PublishMode {
	case "exact":
		return messagebus.Exact, nil
	case "exact_with_supertypes":
		return messagebus.ExactWithSuperTypes, nil
	case "exact_with_supertypes_and_vararg":
		return messagebus.ExactWithSuperTypesAndVarArgs, nil
	default:
		return 0, fmt.Errorf("config: unknown publish_mode %q", c.PublishMode)
	}
}

// Normalize rounds NumberOfThreads up to the next power of two with a
// floor of 2, exactly as spec §6 requires of the config surface.
func (c *Config) Normalize() {
	c.NumberOfThreads = nextPowerOfTwoFloor2(c.NumberOfThreads)
}

func nextPowerOfTwoFloor2(n int) int {
	if n <= 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
