package main

import (
	"os"

	appLog "vulcancal/internal/log"
)

var version = "0.1.0-dev"

func main() {
	err := rootCmd.Execute()
	appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}
