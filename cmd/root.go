package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/plantid/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "plantid",
		Short: "Plant identification from photos with vision-capable LLMs",
		Long: `Plantid identifies plants from an uploaded photo or a camera capture and
returns the common and scientific names, care instructions and a few facts.

Run it as a web service with "plantid serve" or identify a single photo with "plantid identify".`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			logging.Init(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIdentifyCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
