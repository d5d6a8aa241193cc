package main

import (
	"fmt"
	"strings"

	"capstan/internal/ipc"
)

func daemonStatusLines(resp *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 8)

	if resp.Running {
		detail := "Running"
		if resp.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", resp.PID)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}

	if strings.TrimSpace(resp.QueueDBPath) != "" {
		lines = append(lines, renderStatusLine("Queue database", statusInfo, resp.QueueDBPath, colorize))
	}
	if strings.TrimSpace(resp.LockPath) != "" {
		lines = append(lines, renderStatusLine("Lock file", statusInfo, resp.LockPath, colorize))
	}

	for _, proc := range resp.ProcessorHealth {
		if proc.Ready {
			lines = append(lines, renderStatusLine("Processor "+proc.Name, statusOK, "Ready", colorize))
			continue
		}
		detail := strings.TrimSpace(proc.Detail)
		if detail == "" {
			detail = "not ready"
		}
		lines = append(lines, renderStatusLine("Processor "+proc.Name, statusWarn, detail, colorize))
	}

	if resp.LastBatch != nil {
		lines = append(lines, renderStatusLine("Last batch", statusInfo, formatBatchSummary(resp.LastBatch), colorize))
	}
	if strings.TrimSpace(resp.LastError) != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, resp.LastError, colorize))
	}

	return lines
}

func formatBatchSummary(batch *ipc.BatchSummary) string {
	return fmt.Sprintf("%d processed, %d failed of %d claimed (workers %d)",
		batch.Processed,
		batch.Failed,
		batch.Claimed,
		batch.Workers,
	)
}
