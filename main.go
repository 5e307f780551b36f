package main

import (
	"os"
	"os/signal"

	"github.com/habedi/eq/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// main sets up logging from DEBUG_EQ, exits on interrupt, and runs the CLI.
func main() {
	configureLogLevelFromEnv()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, func(msg string) { log.Error().Msg(msg) }, os.Exit)

	// Program entry point
	cmd.Execute()
}

// configureLogLevelFromEnv enables debug logging when DEBUG_EQ is set to a truthy value.
func configureLogLevelFromEnv() {
	switch os.Getenv("DEBUG_EQ") {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt waits for an interrupt signal, logs it and exits with code 1.
func handleInterrupt(stopChan chan os.Signal, fatalLog func(string), exit func(int)) {
	<-stopChan
	fatalLog("Interrupt signal received. Exiting...")
	exit(1)
}
