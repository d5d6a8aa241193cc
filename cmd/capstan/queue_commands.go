package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"capstan/internal/ipc"
	"capstan/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				stats := make(map[string]int)
				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					for status, count := range status.QueueStats {
						stats[status] = count
					}
				} else {
					byStatus, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range byStatus {
						stats[string(status)] = count
					}
				}

				if jsonOut {
					return writeJSON(cmd, stats)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var items []ipc.QueueItem
				if client != nil {
					resp, err := client.QueueList(listStatuses)
					if err != nil {
						return err
					}
					items = resp.Items
				} else {
					var statuses []queue.Status
					for _, raw := range listStatuses {
						if parsed, ok := queue.ParseStatus(raw); ok {
							statuses = append(statuses, parsed)
						}
					}
					listed, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					items = ipc.FromItems(listed)
				}

				if jsonOut {
					if items == nil {
						items = []ipc.QueueItem{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Kind", "Payload", "Status", "Attempts", "Worker", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <kind> <payload...>",
		Short: "Enqueue work items",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := strings.TrimSpace(args[0])
			payloads := args[1:]

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				var items []ipc.QueueItem
				if client != nil {
					resp, err := client.QueueAdd(kind, payloads)
					if err != nil {
						return err
					}
					items = resp.Items
				} else {
					created, err := store.NewItems(cmd.Context(), kind, payloads)
					if err != nil {
						return err
					}
					items = ipc.FromItems(created)
				}

				fmt.Fprintf(out, "Enqueued %d %s items\n", len(items), kind)
				for _, item := range items {
					fmt.Fprintf(out, "  %d: %s\n", item.ID, truncatePayload(item.Payload))
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearProcessed bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearProcessed && clearFailed {
				return errors.New("specify only one of --processed or --failed")
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var removed int64
				var label string
				var err error

				switch {
				case clearProcessed:
					label = "processed"
					if client != nil {
						var resp *ipc.QueueClearProcessedResponse
						if resp, err = client.QueueClearProcessed(); err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearProcessed(cmd.Context())
					}
				case clearFailed:
					label = "failed"
					if client != nil {
						var resp *ipc.QueueClearFailedResponse
						if resp, err = client.QueueClearFailed(); err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearFailed(cmd.Context())
					}
				default:
					label = "queue"
					if client != nil {
						var resp *ipc.QueueClearResponse
						if resp, err = client.QueueClear(); err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.Clear(cmd.Context())
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s items\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearProcessed, "processed", false, "Remove only processed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					var updated int64
					if client != nil {
						resp, err := client.QueueRetry(nil)
						if err != nil {
							return err
						}
						updated = resp.Updated
					} else {
						var err error
						if updated, err = store.RetryFailed(cmd.Context()); err != nil {
							return err
						}
					}
					fmt.Fprintf(out, "Retried %d failed items\n", updated)
					return nil
				}

				statusByID := make(map[int64]string)
				if client != nil {
					resp, err := client.QueueList(nil)
					if err != nil {
						return err
					}
					for _, item := range resp.Items {
						statusByID[item.ID] = item.Status
					}
				} else {
					items, err := store.List(cmd.Context())
					if err != nil {
						return err
					}
					for _, item := range items {
						statusByID[item.ID] = string(item.Status)
					}
				}

				for _, id := range ids {
					status, ok := statusByID[id]
					if !ok {
						fmt.Fprintf(out, "Item %d not found\n", id)
						continue
					}
					if !strings.EqualFold(strings.TrimSpace(status), string(queue.StatusFailed)) {
						fmt.Fprintf(out, "Item %d is not in failed state\n", id)
						continue
					}
					var updated int64
					if client != nil {
						resp, err := client.QueueRetry([]int64{id})
						if err != nil {
							return err
						}
						updated = resp.Updated
					} else {
						var err error
						if updated, err = store.RetryFailed(cmd.Context(), id); err != nil {
							return err
						}
					}
					if updated > 0 {
						fmt.Fprintf(out, "Item %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Item %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				if client != nil {
					resp, err := client.QueueReset()
					if err != nil {
						return err
					}
					updated = resp.Updated
				} else {
					var err error
					if updated, err = store.ResetStuckProcessing(cmd.Context()); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue counts and database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var summary ipc.QueueHealthResponse
				var db ipc.DatabaseHealthResponse

				if client != nil {
					health, err := client.QueueHealth()
					if err != nil {
						return err
					}
					summary = *health
					dbResp, err := client.DatabaseHealth()
					if err != nil {
						return err
					}
					db = *dbResp
				} else {
					health, err := store.Health(cmd.Context())
					if err != nil {
						return err
					}
					summary = ipc.QueueHealthResponse{
						Total:      health.Total,
						Pending:    health.Pending,
						Processing: health.Processing,
						Processed:  health.Processed,
						Failed:     health.Failed,
					}
					check, checkErr := store.CheckHealth(cmd.Context())
					if checkErr != nil && check.Error == "" {
						check.Error = checkErr.Error()
					}
					db = ipc.DatabaseHealthResponse{
						DBPath:           check.DBPath,
						DatabaseExists:   check.DatabaseExists,
						DatabaseReadable: check.DatabaseReadable,
						SchemaVersion:    check.SchemaVersion,
						TableExists:      check.TableExists,
						ColumnsPresent:   check.ColumnsPresent,
						MissingColumns:   check.MissingColumns,
						IntegrityCheck:   check.IntegrityCheck,
						TotalItems:       check.TotalItems,
						Error:            check.Error,
					}
				}

				if jsonOut {
					return writeJSON(cmd, struct {
						Summary  ipc.QueueHealthResponse    `json:"summary"`
						Database ipc.DatabaseHealthResponse `json:"database"`
					}{summary, db})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total: %d\nPending: %d\nProcessing: %d\nProcessed: %d\nFailed: %d\n",
					summary.Total,
					summary.Pending,
					summary.Processing,
					summary.Processed,
					summary.Failed,
				)
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Database path: %s\n", db.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(db.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(db.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", db.SchemaVersion)
				fmt.Fprintf(out, "work_items table present: %s\n", yesNo(db.TableExists))
				if len(db.ColumnsPresent) > 0 {
					cols := append([]string(nil), db.ColumnsPresent...)
					sort.Strings(cols)
					fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
				}
				if len(db.MissingColumns) > 0 {
					missing := append([]string(nil), db.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(db.IntegrityCheck))
				fmt.Fprintf(out, "Total items: %d\n", db.TotalItems)
				if db.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", db.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
