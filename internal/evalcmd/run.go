// Package evalcmd runs labelled plant photos through the identification client.
package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/plantid/internal/eval/dataset"
	"github.com/lehigh-university-libraries/plantid/internal/eval/metrics"
	"github.com/lehigh-university-libraries/plantid/internal/eval/results"
	"github.com/lehigh-university-libraries/plantid/internal/identification"
	"github.com/lehigh-university-libraries/plantid/internal/images"
	"github.com/lehigh-university-libraries/plantid/internal/imagesource"
	"github.com/lehigh-university-libraries/plantid/internal/models"
	"github.com/lehigh-university-libraries/plantid/internal/storage"
)

// Diagnoser identifies a photo and reports the underlying failure
type Diagnoser interface {
	Diagnose(ctx context.Context, payload models.ImagePayload) (models.IdentificationRecord, error)
	Provider() string
	Model() string
}

// Options configures one evaluation run
type Options struct {
	DatasetPath string
	OutputDir   string
	SampleSize  int
	Temperature float64
}

// Run identifies every sample in turn, prints a summary to out and writes the
// YAML report. It returns the report path.
func Run(ctx context.Context, identifier Diagnoser, opts Options, out io.Writer) (string, error) {
	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "provider", identifier.Provider(), "model", identifier.Model())

	samples, err := dataset.NewLoader(opts.DatasetPath).LoadSample(opts.SampleSize)
	if err != nil {
		return "", fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "samples", len(samples))

	previews := storage.NewPreviewStore("/previews/")
	normalizer := imagesource.New(previews)
	fetcher := images.NewFetcher()

	evals := make([]metrics.EvaluationResult, 0, len(samples))
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		slog.Info("Processing photo", "image", sample.ImagePath, "progress", fmt.Sprintf("%d/%d", i+1, len(samples)))
		evals = append(evals, processSample(ctx, identifier, fetcher, normalizer, previews, sample))
	}

	agg := metrics.AggregateEvaluationResults(evals, identifier.Provider(), identifier.Model())
	agg.PrintSummary(out)

	reportPath, err := results.SaveToYAML(opts.OutputDir, results.Build(agg, identification.Prompt, opts.Temperature, opts.DatasetPath))
	if err != nil {
		return "", err
	}
	fmt.Fprintf(out, "\nEvaluation results saved to: %s\n", reportPath)

	return reportPath, nil
}

func processSample(ctx context.Context, identifier Diagnoser, fetcher *images.Fetcher, normalizer *imagesource.Normalizer, previews *storage.PreviewStore, sample dataset.Sample) metrics.EvaluationResult {
	result := metrics.EvaluationResult{Sample: sample}

	rc, contentType, err := fetcher.Open(ctx, sample.ImagePath)
	if err != nil {
		result.Record = models.FailedIdentification()
		result.Error = err.Error()
		return result
	}
	defer rc.Close()

	name := filepath.Base(sample.ImagePath)
	if images.IsRemote(sample.ImagePath) {
		name = path.Base(sample.ImagePath)
	}

	payload, preview, err := normalizer.FromUpload(name, contentType, rc)
	if err != nil {
		result.Record = models.FailedIdentification()
		result.Error = err.Error()
		return result
	}
	defer previews.Release(preview)

	start := time.Now()
	record, err := identifier.Diagnose(ctx, payload)
	result.ProcessingTime = time.Since(start)
	result.Record = record
	if err != nil {
		result.Error = err.Error()
	}
	result.Comparison = metrics.Compare(sample, record)

	return result
}
