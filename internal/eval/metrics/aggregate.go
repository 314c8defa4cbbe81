package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/plantid/internal/eval/dataset"
	"github.com/lehigh-university-libraries/plantid/internal/models"
)

// EvaluationResult is the outcome for a single labelled photo
type EvaluationResult struct {
	Sample         dataset.Sample
	Record         models.IdentificationRecord
	Comparison     Comparison
	ProcessingTime time.Duration
	Error          string // underlying failure, if any
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int

	ScientificMatches int
	GenusMatches      int
	CommonMatches     int

	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	Results []EvaluationResult

	EvaluationDate time.Time
	Provider       string
	Model          string
}

// AggregateEvaluationResults aggregates multiple evaluation results.
// Failed identifications count against every accuracy figure.
func AggregateEvaluationResults(results []EvaluationResult, provider, model string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Provider:       provider,
		Model:          model,
	}

	var successDuration time.Duration
	for _, result := range results {
		agg.TotalProcessingTime += result.ProcessingTime

		if result.Error != "" || result.Record.Failed() {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		if result.Comparison.ScientificMatch {
			agg.ScientificMatches++
		}
		if result.Comparison.GenusMatch {
			agg.GenusMatches++
		}
		if result.Comparison.CommonMatch {
			agg.CommonMatches++
		}
	}

	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}

	return agg
}

// ScientificAccuracy is the share of all photos with an exact scientific name
func (a *AggregateResults) ScientificAccuracy() float64 {
	return ratio(a.ScientificMatches, a.TotalRecords)
}

// GenusAccuracy is the share of all photos with the right genus
func (a *AggregateResults) GenusAccuracy() float64 {
	return ratio(a.GenusMatches, a.TotalRecords)
}

// CommonAccuracy is the share of all photos with the right common name
func (a *AggregateResults) CommonAccuracy() float64 {
	return ratio(a.CommonMatches, a.TotalRecords)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// PrintSummary prints a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "PLANT IDENTIFICATION EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Provider: %s\n", a.Provider)
	fmt.Fprintf(w, "Model: %s\n", a.Model)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Photos: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, ratio(a.SuccessCount, a.TotalRecords)*100)
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, ratio(a.FailureCount, a.TotalRecords)*100)
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ACCURACY")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Scientific name: %d/%d (%.1f%%)\n", a.ScientificMatches, a.TotalRecords, a.ScientificAccuracy()*100)
	fmt.Fprintf(w, "Genus:           %d/%d (%.1f%%)\n", a.GenusMatches, a.TotalRecords, a.GenusAccuracy()*100)
	fmt.Fprintf(w, "Common name:     %d/%d (%.1f%%)\n", a.CommonMatches, a.TotalRecords, a.CommonAccuracy()*100)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}
