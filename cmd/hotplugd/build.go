package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/zoobzio/hotplug"
	"github.com/zoobzio/hotplug/pkg/devfs"
	"github.com/zoobzio/hotplug/pkg/drm"
	"github.com/zoobzio/hotplug/pkg/script"
	"github.com/zoobzio/hotplug/pkg/sysfs"
	"github.com/zoobzio/hotplug/pkg/uevent"
)

// buildControllers opens the configured controllers, or discovers them
// when none are listed. Discovery failures for single cards are logged and
// skipped.
func buildControllers(cfg daemonConfig, logger zerolog.Logger) ([]hotplug.Controller, error) {
	if len(cfg.Controllers) == 0 {
		var (
			cards []hotplug.Controller
			err   error
		)
		switch cfg.Backend {
		case "sysfs":
			cards, err = sysfs.Discover(cfg.SysfsRoot, sysfs.WithDevDir(cfg.DevDir))
		default:
			cards, err = drm.Discover(cfg.DevDir)
		}
		if len(cards) == 0 {
			return nil, err
		}
		if err != nil {
			logger.Warn().Err(err).Msg("some controllers could not be opened")
		}
		return cards, nil
	}

	cards := make([]hotplug.Controller, 0, len(cfg.Controllers))
	for _, path := range cfg.Controllers {
		switch cfg.Backend {
		case "sysfs":
			cards = append(cards, sysfs.New(cfg.SysfsRoot, filepath.Base(path), sysfs.WithDevDir(filepath.Dir(path))))
		default:
			card, err := drm.Open(path)
			if err != nil {
				closeAll(cards) //nolint:errcheck
				return nil, err
			}
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func buildSource(cfg daemonConfig) hotplug.EventSource {
	if cfg.Source == "devfs" {
		return devfs.New(cfg.DevDir)
	}
	return uevent.New()
}

// buildNotifier prints every change to out and runs the hook script when
// one is configured. The script is reloaded when it changes.
func buildNotifier(ctx context.Context, cfg daemonConfig, out io.Writer, logger zerolog.Logger) (hotplug.Notifier, error) {
	printer := hotplug.NotifierFunc(func(_ context.Context, c hotplug.Change) error {
		_, err := fmt.Fprintf(out, "%s %s %s %s\n", c.Controller, c.Connector, c.State, c.Kind)
		return err
	})
	if cfg.Script == "" {
		return printer, nil
	}

	hook, err := script.Load(cfg.Script, script.WithLogger(logger.With().Str("component", "script").Logger()))
	if err != nil {
		return nil, &hotplug.ConfigurationError{Field: "script", Err: err}
	}
	err = hook.Watch(ctx, func(err error) {
		if err != nil {
			logger.Error().Err(err).Str("script", cfg.Script).Msg("script reload failed, keeping previous version")
			return
		}
		logger.Info().Str("script", cfg.Script).Msg("script reloaded")
	})
	if err != nil {
		logger.Warn().Err(err).Msg("script hot reload disabled")
	}
	return hotplug.Fanout(printer, hook), nil
}

func buildOptions(cfg daemonConfig) []hotplug.Option {
	var opts []hotplug.Option
	if cfg.NotifyRetries > 0 {
		opts = append(opts, hotplug.WithRetry(cfg.NotifyRetries+1))
	}
	if cfg.NotifyTimeout > 0 {
		opts = append(opts, hotplug.WithTimeout(cfg.NotifyTimeout))
	}
	return opts
}

func closeAll(cards []hotplug.Controller) error {
	var errs []error
	for _, c := range cards {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
