package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
)

var pollCmd = &cobra.Command{
	Use:   "poll [endpoint-id]",
	Short: "Poll repository endpoints once",
	Long: `Polls configured endpoints once and emits every item to the endpoint's sink.
If an endpoint ID is provided, only that endpoint is polled.
Otherwise, all endpoints are polled concurrently.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) > 0 {
		endpointID := args[0]
		items, err := pollWithProgress(ctx, cmd, svc.Polls, endpointID)
		cmd.PrintErrln(resultLine(endpointID, items, err))
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}
		return nil
	}

	cmd.PrintErrln(titleStyle.Render("Polling all endpoints..."))
	counts, err := svc.Polls.PollAll(ctx)

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cmd.PrintErrln(resultLine(id, counts[id], nil))
	}

	if err != nil {
		cmd.PrintErrln(errorStyle.Render(err.Error()))
		return errors.New("poll failed for one or more endpoints")
	}
	return nil
}

// pollWithProgress runs a poll while displaying progress updates on stderr.
func pollWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	polls driving.PollOrchestrator,
	endpointID string,
) (int, error) {
	type outcome struct {
		items int
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		items, err := polls.Poll(ctx, endpointID)
		done <- outcome{items, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-done:
			if lastCount > 0 {
				cmd.PrintErrln()
			}
			return res.items, res.err
		case <-ticker.C:
			status, statusErr := polls.Status(ctx, endpointID)
			if statusErr == nil && status != nil && status.ItemsEmitted > lastCount {
				cmd.PrintErrf("\rPolling %s... %d items", endpointID, status.ItemsEmitted)
				lastCount = status.ItemsEmitted
			}
		}
	}
}
