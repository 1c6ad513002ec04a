// Package cli provides the cobra command tree of cmispoll.
//
// Commands drive the core services through driving ports. The services
// are built lazily by a Bootstrap function registered by the composition
// root, once the global flags (config path, verbosity) are known.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Options are the global flags handed to Bootstrap.
type Options struct {
	ConfigPath  string
	Verbose     bool
	AskPassword bool
}

// Services are the core services the commands drive.
type Services struct {
	Polls     driving.PollOrchestrator
	Sessions  driving.EndpointSessions
	Endpoints driven.EndpointStore

	// Scheduler and SchedulerConfig are used by the run command; status
	// reads the last scheduled run through Scheduler.
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig

	// Reload re-syncs scheduled tasks with the endpoint configuration.
	Reload func(ctx context.Context) error

	// Watch blocks watching the configuration file, calling onReload
	// after each successful reload. Nil disables watching.
	Watch func(ctx context.Context, onReload func(context.Context)) error

	// Close releases resources opened by Bootstrap.
	Close func() error
}

// Bootstrap builds the services for the given options.
type Bootstrap func(opts Options) (*Services, error)

var (
	version = "dev"

	opts      Options
	bootstrap Bootstrap
	services  *Services
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "cmispoll",
	Short: "Poll CMIS content repositories",
	Long: `cmispoll walks folder trees or runs queries against CMIS repositories
(Browser Binding) and emits every item, optionally with its content, to a
sink: stdout (JSON or YAML), a SQLite archive, or a mirrored directory tree.

Endpoints are configured in ~/.cmispoll/config.toml.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.cmispoll/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log page fetches and emissions to stderr")
	rootCmd.PersistentFlags().BoolVar(&opts.AskPassword, "ask-password", false, "prompt for passwords missing from the config")
}

// SetBootstrap registers the function that builds services.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs ready-made services, bypassing Bootstrap.
func SetServices(s *Services) {
	services = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	defer closeServices()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// setup applies global flags and builds services on first use.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if services != nil || bootstrap == nil {
		return nil
	}
	s, err := bootstrap(opts)
	if err != nil {
		return err
	}
	services = s
	return nil
}

func closeServices() {
	if services != nil && services.Close != nil {
		if err := services.Close(); err != nil {
			logger.Warn("closing services: %v", err)
		}
	}
}

// requireServices returns the services or an error when none are configured.
func requireServices() (*Services, error) {
	if services == nil {
		return nil, errNotConfigured
	}
	return services, nil
}
