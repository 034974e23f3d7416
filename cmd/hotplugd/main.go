package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zoobzio/hotplug"
	"github.com/zoobzio/hotplug/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hotplugd",
		Short:         "Display hotplug daemon - reports stable connector changes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "path to the YAML configuration file")
	flags.String("backend", "", "controller backend: ioctl or sysfs")
	flags.String("dev-dir", "", "DRM device directory")
	flags.String("sysfs-root", "", "DRM sysfs class directory")
	flags.StringSlice("controller", nil, "controller device path (repeatable, disables discovery)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.Bool("log-console", false, "human readable log output")

	rootCmd.Flags().String("source", "", "event source: netlink, or devfs (controller add/remove only)")
	rootCmd.Flags().String("script", "", "JavaScript hook run on every change")
	rootCmd.Flags().Duration("quiet-period", 0, "how long a disconnect must persist before it is reported")
	rootCmd.Flags().String("promotion", "", "pending candidate promotion: revalidate or original")

	rootCmd.AddCommand(newSnapshotCmd())
	return rootCmd
}

// resolveConfig loads the config file and applies any flags that were set.
func resolveConfig(cmd *cobra.Command) (daemonConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadDaemonConfig(path)
	if err != nil {
		return daemonConfig{}, err
	}

	flags := cmd.Flags()
	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	setString("backend", &cfg.Backend)
	setString("dev-dir", &cfg.DevDir)
	setString("sysfs-root", &cfg.SysfsRoot)
	setString("log-level", &cfg.Log.Level)
	setString("source", &cfg.Source)
	setString("script", &cfg.Script)
	setString("promotion", &cfg.Promotion)

	if flags.Changed("controller") {
		cfg.Controllers, _ = flags.GetStringSlice("controller")
	}
	if flags.Changed("log-console") {
		cfg.Log.Console, _ = flags.GetBool("log-console")
	}
	if flags.Changed("quiet-period") {
		cfg.QuietPeriod, _ = flags.GetDuration("quiet-period")
	}

	if err := cfg.Validate(); err != nil {
		return daemonConfig{}, err
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return &hotplug.ConfigurationError{Field: "log.level", Err: err}
	}
	logging.Attach(logging.WithComponent(logger, "reconciler"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cards, err := buildControllers(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open controllers: %w", err)
	}

	notifier, err := buildNotifier(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		closeAll(cards) //nolint:errcheck
		return err
	}

	set := hotplug.NewControllerSet(cards...)
	r := hotplug.New(buildSource(cfg), set, notifier, buildOptions(cfg)...)
	if err := r.Configure(cfg.Config); err != nil {
		closeAll(cards) //nolint:errcheck
		return err
	}
	r.ErrorHistorySize(16)

	logger.Info().
		Int("pid", os.Getpid()).
		Strs("controllers", set.Paths()).
		Str("backend", cfg.Backend).
		Str("source", cfg.Source).
		Msg("hotplugd starting")

	if err := r.Start(ctx); err != nil {
		return err
	}

	<-r.Done()

	if err := r.Err(); err != nil {
		logger.Error().Err(err).Msg("hotplugd stopped")
		return err
	}
	logger.Info().Msg("hotplugd stopped")
	return nil
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current state of every connector and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return &hotplug.ConfigurationError{Field: "log.level", Err: err}
			}

			cards, err := buildControllers(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open controllers: %w", err)
			}
			set := hotplug.NewControllerSet(cards...)
			defer set.Close()

			readings, errs := set.SnapshotAll(cmd.Context())
			for _, err := range errs {
				logger.Warn().Err(err).Msg("controller skipped")
			}
			for _, r := range readings {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d %s\n", r.Controller, r.Connector, r.Key.Connector, r.State)
			}
			return nil
		},
	}
}
