package cmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/plantid/internal/config"
	"github.com/lehigh-university-libraries/plantid/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Plant identification evaluation tools",
		Long: `Evaluation tools for measuring how accurately the configured model identifies plants.

Runs a labelled set of photos through the identification client one at a time,
scores scientific name, genus and common name matches, and writes a YAML report.`,
	}

	cmd.AddCommand(newEvalRunCmd())

	return cmd
}

func newEvalRunCmd() *cobra.Command {
	var datasetPath string
	var outputDir string
	var sampleSize int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the configured provider against a labelled dataset",
		Long: `Each dataset row names a photo and its expected names:

  {"image_path":"photos/monstera.jpg","common_name":"Monstera","scientific_name":"Monstera deliciosa"}

Datasets may be .jsonl or .parquet with the same columns. Relative image paths are
resolved against the dataset file's directory.`,
		Example: `  # Evaluate every photo with the default provider
  plantid eval run --dataset ./plants.jsonl

  # Evaluate 20 photos with Ollama
  PLANTID_PROVIDER=ollama plantid eval run --dataset ./plants.parquet --sample 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			identifier, closeIdentifier, err := newIdentifier(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeIdentifier()

			_, err = evalcmd.Run(cmd.Context(), identifier, evalcmd.Options{
				DatasetPath: datasetPath,
				OutputDir:   outputDir,
				SampleSize:  sampleSize,
				Temperature: identifier.Temperature(),
			}, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to a .jsonl or .parquet dataset")
	cmd.Flags().StringVar(&outputDir, "output", "evals", "Directory for the YAML report")
	cmd.Flags().IntVar(&sampleSize, "sample", -1, "Number of photos to evaluate (-1 for all)")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
