package main

import (
	"momentum-engine/cmd/engine/app"
	"momentum-engine/pkg/log"
)

func main() {
	logConfig := log.DefaultConfig()
	logConfig.LogDir = "logs"
	logConfig.Level = "info"
	log.InitLoggerWithConfig(logConfig)

	log.Info("momentum-engine starting")

	engineApp := app.NewApp()
	if err := engineApp.Run(); err != nil {
		log.Fatalf("engine exited: %v", err)
	}

	log.Info("momentum-engine stopped")
}
