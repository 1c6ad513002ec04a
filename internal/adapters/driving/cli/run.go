package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/cmis-poller/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll endpoints continuously on their intervals",
	Long: `Runs the scheduler in the foreground. Every endpoint is polled on its
configured interval and each result is recorded in the scheduler history.
The configuration file is watched; edits take effect without a restart.

Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	if svc.Scheduler == nil {
		return errors.New("scheduler not configured")
	}
	if !svc.SchedulerConfig.Enabled {
		return errors.New("scheduler is disabled in the configuration ([scheduler] enabled = false)")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.PrintErrln(titleStyle.Render("Scheduler running") + "  " + mutedStyle.Render("Ctrl-C to stop"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := svc.Scheduler.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if svc.Watch != nil {
		g.Go(func() error {
			return svc.Watch(ctx, func(ctx context.Context) {
				if svc.Reload == nil {
					return
				}
				if err := svc.Reload(ctx); err != nil {
					logger.Warn("reloading scheduled polls: %v", err)
				}
			})
		})
	}

	err = g.Wait()
	cmd.PrintErrln(mutedStyle.Render("Scheduler stopped"))
	return err
}
