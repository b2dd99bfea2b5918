package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pressroom/internal/app"
	"github.com/odyssey-erp/pressroom/jobs"
)

// JobsCmd returns the jobs command group.
func JobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(jobsStatsCmd(), jobsTriggerCmd(), jobsDeadCmd())
	return cmd
}

func openJobs() (*JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewJobsCLI(cfg.AsynqRedis())
}

func jobsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openJobs()
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.InspectQueues(cmd.Context())
			if err != nil {
				return err
			}
			return RenderQueueStats(cmd.OutOrStdout(), stats)
		},
	}
}

func jobsTriggerCmd() *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "trigger <job>",
		Short: "Enqueue a maintenance job now",
		Long:  "Supported jobs: " + jobs.TaskIdempotencyCleanup,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openJobs()
			if err != nil {
				return err
			}
			defer c.Close()
			info, err := c.Trigger(cmd.Context(), args[0], retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", color.New(color.FgGreen).Sprint("enqueued"), info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 72*time.Hour, "idempotency key retention")
	return cmd
}

func jobsDeadCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "List event deliveries that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openJobs()
			if err != nil {
				return err
			}
			defer c.Close()
			tasks, err := c.ListDeadEvents(size)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no dead events")
				return nil
			}
			for _, t := range tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", t.ID, t.LastFailedAt.Format(time.RFC3339),
					color.New(color.FgRed).Sprint(t.LastErr))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 10, "page size")
	return cmd
}

// RenderQueueStats prints one row per queue, highlighting retries.
func RenderQueueStats(w io.Writer, stats []QueueStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	for _, s := range stats {
		retry := fmt.Sprint(s.Retry)
		if s.Retry > 0 {
			retry = color.New(color.FgYellow).Sprint(s.Retry)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, retry, s.Archived)
	}
	return tw.Flush()
}
