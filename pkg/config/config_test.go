package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ori346/MessageBus/pkg/messagebus"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("expected Default() to be valid, got errors: %v", errs)
	}
}

func TestModeParsesEveryAcceptedValue(t *testing.T) {
	cases := map[string]messagebus.PublishMode{
		"exact":                            messagebus.Exact,
		"exact_with_supertypes":            messagebus.ExactWithSuperTypes,
		"exact_with_supertypes_and_vararg": messagebus.ExactWithSuperTypesAndVarArgs,
	}
	for value, want := range cases {
		cfg := Default()
		cfg.PublishMode = value
		got, err := cfg.Mode()
		if err != nil {
			t.Fatalf("Mode() for %q returned error: %v", value, err)
		}
		if got != want {
			t.Errorf("Mode() for %q = %v, want %v", value, got, want)
		}
	}
}

func TestModeRejectsUnknownValue(t *testing.T) {
	cfg := Default()
	cfg.PublishMode = "bogus"
	if _, err := cfg.Mode(); err == nil {
		t.Fatalf("expected an error for an unknown publish_mode")
	}
}

func TestNormalizeRoundsThreadsUpToPowerOfTwoWithFloorTwo(t *testing.T) {
	cases := map[int]int{
		0:  2,
		1:  2,
		2:  2,
		3:  4,
		5:  8,
		8:  8,
		9:  16,
	}
	for in, want := range cases {
		cfg := Default()
		cfg.NumberOfThreads = in
		cfg.Normalize()
		if cfg.NumberOfThreads != want {
			t.Errorf("Normalize() for input %d = %d, want %d", in, cfg.NumberOfThreads, want)
		}
	}
}

func TestValidateAggregatesEveryError(t *testing.T) {
	cfg := &Config{
		PublishMode:     "bogus",
		NumberOfThreads: 0,
		Logging:         LoggingConfig{Level: "bogus"},
	}
	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 aggregated validation errors, got %d: %v", len(errs), errs)
	}
}

func TestValidationErrorIncludesHintWhenPresent(t *testing.T) {
	err := ValidationError{Path: "p", Message: "m", Hint: "h"}
	if !strings.Contains(err.Error(), "h") {
		t.Fatalf("expected the hint to appear in the error message, got %q", err.Error())
	}
}

func TestLoadStartsFromDefaultsAndOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "publish_mode: exact\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PublishMode != "exact" {
		t.Fatalf("expected publish_mode override to take effect, got %q", cfg.PublishMode)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected logging.level to retain its default, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "publish_mode: exact\nnonexistent_field: true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test fixture: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject an unknown field under strict decoding")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
