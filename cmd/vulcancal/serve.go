package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vulcancal/internal/coordinator"
	appLog "vulcancal/internal/log"
	"vulcancal/internal/token"
	"vulcancal/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh on a schedule and serve the HTTP API",
	Long: `Runs a refresh immediately and then on the configured cron schedule.
The token file is watched; rewriting it triggers an extra refresh.
Calendars are served as JSON under /api and as iCalendar under /calendar.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	appLog.Info("vulcancal starting", "version", version)

	if serveListen != "" {
		conf.Listen = serveListen
	}
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"school_year_start_month", conf.SchoolYearStartMonth,
		"token_path", tokenPath(),
		"basic_auth", conf.BasicAuth != nil,
	)

	co, err := newCoordinator()
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	sched, err := coordinator.NewScheduler(ctx, co, conf.RefreshCron)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := token.Watch(ctx, tokenPath(), sched.Trigger); err != nil {
			appLog.Warn("token watch disabled", "err", err)
		}
	}()

	srv := web.NewServer(conf, co)
	srv.SetRefreshSchedule(sched.Next)
	err = srv.ListenAndServe(ctx)

	appLog.Info("vulcancal exiting")
	return err
}
