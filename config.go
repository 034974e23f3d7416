package hotplug

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance.
var validate = validator.New()

// Override sets the quiet period for one connector.
type Override struct {
	Controller  string        `yaml:"controller" validate:"required"`
	Connector   uint32        `yaml:"connector"`
	QuietPeriod time.Duration `yaml:"quiet_period" validate:"gte=0"`
}

// Key returns the connector key the override applies to.
func (o Override) Key() ConnectorKey {
	return NewConnectorKey(o.Controller, o.Connector)
}

// Config holds the tunables of a Reconciler. Durations are written as Go
// duration strings ("150ms", "1s").
//
//	quiet_period: 150ms
//	poll_interval: 100ms
//	promotion: revalidate
//	overrides:
//	  - controller: /dev/dri/card1
//	    connector: 77
//	    quiet_period: 500ms
type Config struct {
	QuietPeriod    time.Duration `yaml:"quiet_period" validate:"gte=0"`
	PollInterval   time.Duration `yaml:"poll_interval" validate:"gt=0"`
	MaxBatch       int           `yaml:"max_batch" validate:"gte=1"`
	Promotion      string        `yaml:"promotion" validate:"omitempty,oneof=revalidate original"`
	RetainVanished bool          `yaml:"retain_vanished"`
	Overrides      []Override    `yaml:"overrides" validate:"dive"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		QuietPeriod:  DefaultQuietPeriod,
		PollInterval: DefaultPollInterval,
		MaxBatch:     DefaultMaxBatch,
		Promotion:    PromoteRevalidate.String(),
	}
}

// Validate checks the configuration and returns a *ConfigurationError
// naming the first offending field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigurationError{
				Field: fe.Namespace(),
				Err:   fmt.Errorf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &ConfigurationError{Err: err}
	}
	if _, err := ParsePromotionPolicy(c.Promotion); err != nil {
		return &ConfigurationError{Field: "Config.Promotion", Err: err}
	}
	return nil
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ConfigurationError{Err: fmt.Errorf("decode: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigurationError{Field: "path", Err: err}
	}
	return ParseConfig(data)
}
