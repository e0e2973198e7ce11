package config

import "fmt"

// ValidationError represents a single validation error with context,
// matching the teacher's {Path, Message, Hint} shape.
type ValidationError struct {
	Path    string
	Message string
	Hint    string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate aggregates every configuration problem and returns them all at
// once, letting the caller print every issue instead of stopping at the
// first one.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validatePublishMode()...)
	errs = append(errs, c.validateThreads()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

func (c *Config) validatePublishMode() []error {
	if _, err := c.Mode(); err != nil {
		return []error{ValidationError{
			Path:    "publish_mode",
			Message: fmt.Sprintf("invalid value %q", c.PublishMode),
			Hint:    "allowed values: exact, exact_with_supertypes, exact_with_supertypes_and_vararg",
		}}
	}
	return nil
}

func (c *Config) validateThreads() []error {
	if c.NumberOfThreads < 1 {
		return []error{ValidationError{
			Path:    "number_of_threads",
			Message: fmt.Sprintf("must be >= 1; got %d", c.NumberOfThreads),
			Hint:    "will be rounded up to the next power of two with a floor of 2",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return []error{ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid value %q", c.Logging.Level),
			Hint:    "allowed values: debug, info, warn, error",
		}}
	}
	return nil
}
