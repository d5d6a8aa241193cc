package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"capstan/internal/logging"
	"capstan/internal/pool"
)

// newRunCommand processes a batch entirely in-process: no daemon, no
// queue database. It exists to exercise the worker pool directly and to
// demonstrate how failed items are tagged without aborting the batch.
func newRunCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var count int
	var delay time.Duration
	var failEvery int

	cmd := &cobra.Command{
		Use:         "run [payload...]",
		Short:       "Process a batch of items in-process without the daemon",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			items := args
			if len(items) == 0 {
				items = make([]string, 0, count)
				for i := 0; i < count; i++ {
					items = append(items, fmt.Sprintf("task_%d", i))
				}
			}

			logger, err := logging.New(logging.Options{
				Level:            "error",
				Format:           "console",
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return err
			}

			var processed atomic.Int64
			process := func(ctx context.Context, payload string) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				if failEvery > 0 && processed.Add(1)%int64(failEvery) == 0 {
					return fmt.Errorf("simulated failure for %s", payload)
				}
				return nil
			}

			started := time.Now()
			p := pool.New(process, pool.WithLogger(logger))
			results, err := p.ProcessBatch(cmd.Context(), items, workers)
			if err != nil {
				return err
			}
			elapsed := time.Since(started)

			rows := make([][]string, 0, len(results))
			var failed int
			for _, result := range results {
				errText := "-"
				if result.Failed() {
					failed++
					errText = result.Err.Error()
				}
				rows = append(rows, []string{
					result.Item,
					fmt.Sprintf("%d", result.Worker),
					formatStatusLabel(string(result.Status)),
					result.Duration.Round(time.Millisecond).String(),
					errText,
				})
			}

			out := cmd.OutOrStdout()
			table := renderTable(
				[]string{"Item", "Worker", "Status", "Duration", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(out, table)
			fmt.Fprintf(out, "Processed %d items with %d workers in %s: %d succeeded, %d failed\n",
				len(results),
				workers,
				elapsed.Round(time.Millisecond),
				len(results)-failed,
				failed,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 3, "Number of pool workers")
	cmd.Flags().IntVar(&count, "count", 10, "Number of generated payloads when none are given")
	cmd.Flags().DurationVar(&delay, "delay", 200*time.Millisecond, "Simulated processing time per item")
	cmd.Flags().IntVar(&failEvery, "fail-every", 0, "Fail every Nth item to demonstrate failure tagging")
	return cmd
}
