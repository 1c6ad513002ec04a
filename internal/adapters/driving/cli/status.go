package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List configured endpoints",
	Long: `Lists configured endpoints with their poll mode, sink and interval, and
the outcome of each endpoint's last scheduled poll when the scheduler has run.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	if svc.Endpoints == nil {
		return errNotConfigured
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	endpoints, err := svc.Endpoints.List(ctx)
	if err != nil {
		return fmt.Errorf("list endpoints: %w", err)
	}
	if len(endpoints) == 0 {
		cmd.Println("No endpoints configured.")
		return nil
	}

	for i := range endpoints {
		cmd.Println(describeEndpoint(&endpoints[i]))
		if svc.Scheduler == nil {
			continue
		}
		run, err := svc.Scheduler.LastRun(ctx, endpoints[i].ID)
		if err != nil {
			return fmt.Errorf("last run of %s: %w", endpoints[i].ID, err)
		}
		if run != nil {
			cmd.Println("  " + describeRun(run))
		}
	}
	return nil
}

func describeRun(run *domain.PollRun) string {
	when := run.StartedAt.Local().Format(time.DateTime)
	if !run.Succeeded() {
		return errorStyle.Render(fmt.Sprintf("last poll failed %s: %s", when, run.Error))
	}
	detail := fmt.Sprintf("last poll %s  %d items  %s", when, run.Items, run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if run.PollID != "" {
		detail += "  id=" + run.PollID
	}
	return mutedStyle.Render(detail)
}

func describeEndpoint(ep *domain.Endpoint) string {
	kind, arg := ep.SinkKind()
	sink := kind
	if arg != "" {
		sink += ":" + arg
	}
	detail := fmt.Sprintf("%s  sink=%s  every %s", ep.Mode(), sink, ep.PollInterval())
	if ep.ReadSize > 0 {
		detail += fmt.Sprintf("  max %d", ep.ReadSize)
	}
	return titleStyle.Render(ep.ID) + "  " + mutedStyle.Render(detail)
}
