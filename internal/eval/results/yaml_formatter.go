package results

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/plantid/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Prompt      string  `yaml:"prompt"`
	Temperature float64 `yaml:"temperature"`
	DatasetPath string  `yaml:"datasetpath"`
	SampleSize  int     `yaml:"samplesize"`
	Timestamp   string  `yaml:"timestamp"`
}

// EvalSummary holds the accuracy figures
type EvalSummary struct {
	Successful         int     `yaml:"successful"`
	Failed             int     `yaml:"failed"`
	ScientificAccuracy float64 `yaml:"scientificaccuracy"`
	GenusAccuracy      float64 `yaml:"genusaccuracy"`
	CommonAccuracy     float64 `yaml:"commonaccuracy"`
	AverageSeconds     float64 `yaml:"averageseconds"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	ImagePath               string `yaml:"imagepath"`
	ExpectedCommonName      string `yaml:"expectedcommonname"`
	ExpectedScientificName  string `yaml:"expectedscientificname"`
	PredictedCommonName     string `yaml:"predictedcommonname,omitempty"`
	PredictedScientificName string `yaml:"predictedscientificname,omitempty"`
	ScientificMatch         bool   `yaml:"scientificmatch"`
	GenusMatch              bool   `yaml:"genusmatch"`
	CommonMatch             bool   `yaml:"commonmatch"`
	Error                   string `yaml:"error,omitempty"`
}

// EvalSpec represents the complete evaluation report
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Summary EvalSummary  `yaml:"summary"`
	Results []EvalResult `yaml:"results"`
}

// Build converts aggregated metrics into the report layout
func Build(agg *metrics.AggregateResults, prompt string, temperature float64, datasetPath string) EvalSpec {
	spec := EvalSpec{
		Config: EvalConfig{
			Provider:    agg.Provider,
			Model:       agg.Model,
			Prompt:      prompt,
			Temperature: temperature,
			DatasetPath: datasetPath,
			SampleSize:  agg.TotalRecords,
			Timestamp:   agg.EvaluationDate.Format("2006-01-02_15-04-05"),
		},
		Summary: EvalSummary{
			Successful:         agg.SuccessCount,
			Failed:             agg.FailureCount,
			ScientificAccuracy: agg.ScientificAccuracy(),
			GenusAccuracy:      agg.GenusAccuracy(),
			CommonAccuracy:     agg.CommonAccuracy(),
			AverageSeconds:     agg.AverageProcessingTime.Seconds(),
		},
		Results: make([]EvalResult, 0, len(agg.Results)),
	}

	for _, r := range agg.Results {
		spec.Results = append(spec.Results, EvalResult{
			ImagePath:               r.Sample.ImagePath,
			ExpectedCommonName:      r.Sample.CommonName,
			ExpectedScientificName:  r.Sample.ScientificName,
			PredictedCommonName:     r.Record.CommonName,
			PredictedScientificName: r.Record.ScientificName,
			ScientificMatch:         r.Comparison.ScientificMatch,
			GenusMatch:              r.Comparison.GenusMatch,
			CommonMatch:             r.Comparison.CommonMatch,
			Error:                   r.Error,
		})
	}

	return spec
}

// SaveToYAML writes the report to <outputDir>/<timestamp>.yaml and returns the path
func SaveToYAML(outputDir string, spec EvalSpec) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", outputDir, err)
	}

	filename := filepath.Join(outputDir, spec.Config.Timestamp+".yaml")

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
