package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/hotplug"
	"github.com/zoobzio/hotplug/pkg/devfs"
	"github.com/zoobzio/hotplug/pkg/logging"
	"github.com/zoobzio/hotplug/pkg/sysfs"
)

// daemonConfig is the hotplugd configuration file. The Reconciler tunables
// sit at the top level next to the daemon's own settings.
type daemonConfig struct {
	hotplug.Config `yaml:",inline"`

	Backend       string         `yaml:"backend" validate:"oneof=ioctl sysfs"`
	Source        string         `yaml:"source" validate:"oneof=netlink devfs"`
	DevDir        string         `yaml:"dev_dir" validate:"required"`
	SysfsRoot     string         `yaml:"sysfs_root" validate:"required"`
	Controllers   []string       `yaml:"controllers"`
	Script        string         `yaml:"script"`
	NotifyTimeout time.Duration  `yaml:"notify_timeout" validate:"gte=0"`
	NotifyRetries int            `yaml:"notify_retries" validate:"gte=0"`
	Log           logging.Config `yaml:"log"`
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Config:        hotplug.DefaultConfig(),
		Backend:       "ioctl",
		Source:        "netlink",
		DevDir:        devfs.DefaultDir,
		SysfsRoot:     sysfs.DefaultRoot,
		NotifyTimeout: 5 * time.Second,
		Log:           logging.DefaultConfig(),
	}
}

var validate = validator.New()

// loadDaemonConfig reads path over the defaults. An empty path returns the
// defaults.
func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return daemonConfig{}, &hotplug.ConfigurationError{Field: "config", Err: err}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return daemonConfig{}, &hotplug.ConfigurationError{Field: "config", Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return cfg, nil
}

func (c daemonConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &hotplug.ConfigurationError{
				Field: verrs[0].Namespace(),
				Err:   fmt.Errorf("failed %q check (value %v)", verrs[0].Tag(), verrs[0].Value()),
			}
		}
		return &hotplug.ConfigurationError{Err: err}
	}
	return nil
}
