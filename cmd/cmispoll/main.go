// Command cmispoll polls CMIS repositories and emits their items to sinks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/config/file"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/sink"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driving/cli"
	"github.com/custodia-labs/cmis-poller/internal/connectors"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/services"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires adapters and services for one invocation.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var endpoints driven.EndpointStore = configStore
	if opts.AskPassword {
		endpoints = cli.PromptingEndpoints(configStore, os.Stderr)
	}

	items, schedules, closeStore := openStores()

	repos := connectors.NewFactory()
	sinks := sink.NewFactory(os.Stdout, items)

	polls := services.NewPollOrchestrator(endpoints, repos, sinks)
	sessions := services.NewSessions(endpoints, repos)

	schedulerConfig := configStore.SchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, schedules, endpoints, polls)

	return &cli.Services{
		Polls:           polls,
		Sessions:        sessions,
		Endpoints:       endpoints,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		Reload:          scheduler.Reload,
		Watch: func(ctx context.Context, onReload func(context.Context)) error {
			return file.NewWatcher(configStore, onReload).Run(ctx)
		},
		Close: func() error {
			return errors.Join(scheduler.Stop(), closeStore())
		},
	}, nil
}

// openStores opens the SQLite archive, falling back to in-memory stores
// when it cannot be opened.
func openStores() (driven.ItemStore, driven.SchedulerStore, func() error) {
	store, err := sqlite.NewStore("")
	if err != nil {
		logger.Warn("archive unavailable, items and schedule history are kept in memory: %v", err)
		return memory.NewItemStore(), memory.NewSchedulerStore(), func() error { return nil }
	}
	return store.ItemStore(), store.SchedulerStore(), store.Close
}
