package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeStrict decodes YAML from a reader and rejects any unknown fields,
// matching the teacher's pkg/config/yaml.go.
func DecodeStrict(r io.Reader, out interface{}) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads and strict-decodes a Config from path, starting from
// Default() so unspecified fields keep their defaults, then normalizes
// NumberOfThreads.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	if err := DecodeStrict(f, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}
