package tools

import (
	"fmt"

	"rental/billing/config/log"
	"rental/billing/config/toml"

	"go.uber.org/zap"
)

// SafeStart initializes the logger and launches the scheduled jobs with
// panic recovery. The job starter is injected so this package stays free of
// a dependency on the cron wiring.
func SafeStart(startJobs func()) {
	// Recover panics in main startup
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Recovered panic in main startup:", r)
		}
	}()

	// Initialize logger
	log.InitLogger(toml.GetConfig().Log.Path, toml.GetConfig().Log.Level)

	// Start cron jobs in a panic-safe goroutine
	NewPanicGroup().Go(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Logger.Error("Recovered panic in cron job", zap.Any("panic", r))
			}
		}()
		startJobs()
	})
}
