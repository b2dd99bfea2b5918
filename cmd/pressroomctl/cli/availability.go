package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pressroom/internal/app"
	"github.com/odyssey-erp/pressroom/internal/calendar"
	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// AvailabilityCmd returns the availability command. It reads straight from
// Postgres and bypasses the Redis cache.
func AvailabilityCmd() *cobra.Command {
	var (
		from, to string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print bookable days for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			start, end, err := parseRange(from, to, time.Now().In(cfg.Location()))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pool, err := db.New(ctx, cfg.Postgres("pressroomctl"))
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := calendar.NewService(calendar.NewRepository(pool), nil, calendar.Options{
				Location:     cfg.Location(),
				MaxRangeDays: cfg.CalendarMaxRangeDays,
			})
			availability, err := svc.Availability(ctx, start, end)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(availability)
			}
			return RenderAvailability(cmd.OutOrStdout(), availability)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD), default two weeks out")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the raw API payload")

	return cmd
}

func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := calendar.Day(now)
	if from != "" {
		parsed, err := calendar.ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("availability: --from: %w", err)
		}
		start = parsed
	}
	end := start.AddDate(0, 0, 13)
	if to != "" {
		parsed, err := calendar.ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("availability: --to: %w", err)
		}
		end = parsed
	}
	return start, end, nil
}

// RenderAvailability prints one row per bookable day.
func RenderAvailability(w io.Writer, a *calendar.Availability) error {
	if len(a.AvailableDates) == 0 {
		_, err := fmt.Fprintln(w, color.New(color.FgYellow).Sprint("no bookable days in range"))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSLOTS\tEMERGENCY")
	for _, day := range a.AvailableDates {
		slots := color.New(color.FgGreen).Sprint(strconv.Itoa(day.AvailableSlots))
		if day.IsFull {
			slots = color.New(color.FgRed).Sprint("FULL")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", day.Date, slots, day.EmergencySlotsAvailable)
	}
	return tw.Flush()
}
