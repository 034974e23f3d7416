package hotplug

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
quiet_period: 150ms
promotion: original
overrides:
  - controller: /dev/dri/card1
    connector: 77
    quiet_period: 500ms
`))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.QuietPeriod != 150*time.Millisecond {
		t.Errorf("expected quiet period 150ms, got %v", cfg.QuietPeriod)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %v", cfg.PollInterval)
	}
	if cfg.MaxBatch != DefaultMaxBatch {
		t.Errorf("expected default max batch, got %d", cfg.MaxBatch)
	}
	if cfg.Promotion != "original" {
		t.Errorf("expected original promotion, got %q", cfg.Promotion)
	}
	if len(cfg.Overrides) != 1 || cfg.Overrides[0].Key() != NewConnectorKey("/dev/dri/card1", 77) {
		t.Errorf("unexpected overrides: %+v", cfg.Overrides)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"negative quiet period", "quiet_period: -1s", "QuietPeriod"},
		{"zero poll interval", "poll_interval: 0s", "PollInterval"},
		{"zero batch", "max_batch: 0", "MaxBatch"},
		{"unknown promotion", "promotion: eager", "Promotion"},
		{"override without controller", "overrides:\n  - connector: 1", "Controller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.input))
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if !strings.Contains(cerr.Field, tt.field) {
				t.Errorf("expected field containing %q, got %q", tt.field, cerr.Field)
			}
		})
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	_, err := ParseConfig([]byte("quiet_period: [1, 2"))
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotplug.yaml")
	if err := os.WriteFile(path, []byte("max_batch: 4\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MaxBatch != 4 {
		t.Errorf("expected max batch 4, got %d", cfg.MaxBatch)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
