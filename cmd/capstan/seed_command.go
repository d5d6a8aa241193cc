package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"capstan/internal/ipc"
	"capstan/internal/queue"
)

// newSeedCommand enqueues generated payloads so a running daemon (or a later
// `capstan start`) has work to chew on.
func newSeedCommand(ctx *commandContext) *cobra.Command {
	var count int
	var kind string
	var prefix string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the queue with generated work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("count must be at least 1")
			}
			kind = strings.TrimSpace(kind)
			if kind == "" {
				return errors.New("kind is required")
			}

			payloads := make([]string, 0, count)
			for i := 0; i < count; i++ {
				payloads = append(payloads, fmt.Sprintf("%s_%d", prefix, i))
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var created int
				if client != nil {
					resp, err := client.QueueAdd(kind, payloads)
					if err != nil {
						return err
					}
					created = len(resp.Items)
				} else {
					items, err := store.NewItems(cmd.Context(), kind, payloads)
					if err != nil {
						return err
					}
					created = len(items)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d %s items\n", created, kind)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "Number of items to enqueue")
	cmd.Flags().StringVar(&kind, "kind", "sleep", "Processor kind for the generated items")
	cmd.Flags().StringVar(&prefix, "prefix", "task", "Payload prefix for the generated items")
	return cmd
}
