package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader handles loading labelled plant photos from .jsonl or .parquet files
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Load loads every sample in the dataset
func (l *Loader) Load() ([]Sample, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit samples. A negative limit loads everything.
// Relative image paths are resolved against the dataset file's directory; URLs are left alone.
func (l *Loader) LoadSample(limit int) ([]Sample, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	var (
		samples []Sample
		err     error
	)
	switch ext {
	case ".parquet":
		samples, err = l.loadParquet(limit)
	case ".jsonl", ".json":
		samples, err = l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(l.datasetPath)
	for i := range samples {
		p := samples[i].ImagePath
		if p != "" && !filepath.IsAbs(p) && !strings.Contains(p, "://") {
			samples[i].ImagePath = filepath.Join(base, samples[i].ImagePath)
		}
	}

	return samples, nil
}

func (l *Loader) loadJSONL(limit int) ([]Sample, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var samples []Sample
	scanner := bufio.NewScanner(file)

	lineNum := 0
	for scanner.Scan() {
		if limit >= 0 && len(samples) >= limit {
			break
		}
		lineNum++
		line := scanner.Bytes()

		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var sample Sample
		if err := json.Unmarshal(line, &sample); err != nil {
			slog.Warn("Skipping malformed dataset line", "line", lineNum, "err", err)
			continue
		}

		samples = append(samples, sample)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	return samples, nil
}

func (l *Loader) loadParquet(limit int) ([]Sample, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath, "limit", limit)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Sample](pf)
	defer reader.Close()

	var samples []Sample
	rows := make([]Sample, 128)

	for limit < 0 || len(samples) < limit {
		n, err := reader.Read(rows)
		if n > 0 {
			if limit >= 0 && n > limit-len(samples) {
				n = limit - len(samples)
			}
			samples = append(samples, rows[:n]...)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "total_samples", len(samples))

	return samples, nil
}
