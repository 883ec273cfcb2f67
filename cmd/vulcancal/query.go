package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vulcancal/internal/coordinator"
	"vulcancal/internal/model"
	"vulcancal/internal/web"
)

var (
	eventsDays     int
	eventsBackfill int
	eventsAll      bool
)

var eventsCmd = &cobra.Command{
	Use:   "events [schedule|homework|exam]",
	Short: "Refresh once and print events as JSON",
	Long: `Runs a single refresh and prints the normalized events of one calendar
(schedule by default) as a JSON array, sorted by start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvents,
}

var nextCmd = &cobra.Command{
	Use:   "next [schedule|homework|exam]",
	Short: "Refresh once and print the next upcoming event",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNext,
}

func init() {
	eventsCmd.Flags().IntVar(&eventsDays, "days", 7, "days ahead to include")
	eventsCmd.Flags().IntVar(&eventsBackfill, "backfill", 1, "past days to include")
	eventsCmd.Flags().BoolVar(&eventsAll, "all", false, "print the whole fetch window")
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(nextCmd)
}

func kindArg(args []string) (model.Kind, error) {
	if len(args) == 0 {
		return model.KindSchedule, nil
	}
	return model.ParseKind(args[0])
}

// refreshOnce builds a coordinator and runs one refresh.
func refreshOnce(ctx context.Context) (*coordinator.Coordinator, error) {
	co, err := newCoordinator()
	if err != nil {
		return nil, err
	}
	if err := co.Refresh(ctx); err != nil {
		return nil, err
	}
	return co, nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	kind, err := kindArg(args)
	if err != nil {
		return err
	}
	co, err := refreshOnce(cmd.Context())
	if err != nil {
		return err
	}

	var evs []model.Event
	if eventsAll {
		evs, err = co.Events(kind)
	} else {
		now := time.Now()
		evs, err = co.EventsInRange(kind, now.AddDate(0, 0, -eventsBackfill), now.AddDate(0, 0, eventsDays))
	}
	if err != nil {
		return err
	}

	views := make([]web.EventView, 0, len(evs))
	for _, ev := range evs {
		views = append(views, web.ViewOf(ev, co.Location()))
	}
	return printJSON(cmd.OutOrStdout(), views)
}

func runNext(cmd *cobra.Command, args []string) error {
	kind, err := kindArg(args)
	if err != nil {
		return err
	}
	co, err := refreshOnce(cmd.Context())
	if err != nil {
		return err
	}
	ev, ok, err := co.NextEvent(kind)
	if err != nil {
		return err
	}
	if !ok {
		cmd.Println("No upcoming events.")
		return nil
	}
	return printJSON(cmd.OutOrStdout(), web.ViewOf(ev, co.Location()))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
