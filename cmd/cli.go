package cmd

import (
	"os"
	"time"

	"github.com/habedi/eq/db"
	"github.com/habedi/eq/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	defaultAPIURL  = "http://localhost:8000/api"
	defaultTimeout = 30 * time.Second
)

var (
	// apiURL is the base URL of the gym API, set by --api-url
	apiURL string
	// commandTimeout bounds the network work of a single command, set by --timeout
	commandTimeout time.Duration
)

func Execute() {
	rootCmd := createRootCmd()
	initializeDatabase()
	defer closeDatabase()

	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		rootCmd.PrintErrln("Error:", err)
		closeDatabase()
		os.Exit(clierr.ExitCode(err))
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "eq",
		Short:         "A command-line companion for your climbing gym",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOrDefault("EQ_API_URL", defaultAPIURL),
		"Base URL of the gym API (env EQ_API_URL)")
	rootCmd.PersistentFlags().DurationVarP(&commandTimeout, "timeout", "T", defaultTimeout,
		"Maximum time a command may spend talking to the API")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		gymsCmd(),
		wallsCmd(),
		bouldersCmd(),
		ascentCmd(),
		leaderboardCmd(),
		profileCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

func initializeDatabase() {
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		os.Exit(1)
	}
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
