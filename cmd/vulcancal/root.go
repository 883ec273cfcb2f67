package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vulcancal/internal/config"
	"vulcancal/internal/coordinator"
	"vulcancal/internal/iris"
	appLog "vulcancal/internal/log"
	"vulcancal/internal/token"
)

var (
	configPath string
	conf       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vulcancal",
	Short: "School timetable, homework and exams as calendars",
	Long: `vulcancal fetches the timetable, homework, exams and school holidays of an
eduVULCAN pupil and serves them as JSON and iCalendar feeds.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/vulcancal/config.yaml", "path to config file")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	conf = c
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return nil
}

func tokenPath() string {
	return conf.ResolveTokenPath(configPath)
}

// connect builds the remote source for a freshly loaded token.
func connect(tok *token.Token) coordinator.Source {
	return iris.New(tok.JWT, iris.Options{
		BaseURL:           iris.ExpandBaseURL(conf.RestURL, tok.Tenant),
		RequestsPerSecond: conf.RequestsPerSecond,
		PageSize:          conf.PageSize,
	})
}

func newCoordinator() (*coordinator.Coordinator, error) {
	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}
	return coordinator.New(token.Loader{Path: tokenPath()}, connect, coordinator.Options{
		Location:             loc,
		HorizonDays:          conf.HorizonDays,
		SchoolYearStartMonth: time.Month(conf.SchoolYearStartMonth),
	}), nil
}
