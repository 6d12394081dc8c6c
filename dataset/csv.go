package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"mediguard/vitals"
)

// labelColumns are the header names accepted for the class column.
var labelColumns = map[string]bool{"disease": true, "label": true}

// LoadCSV reads labeled training samples from a CSV export. Headers are
// matched against the canonical feature names after normalization, so
// spreadsheet headings like "White Blood Cells" map cleanly. A UTF-8 BOM,
// as written by Excel, is stripped transparently.
func LoadCSV(path string) ([]vitals.TrainingSample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV parses samples from an open CSV stream.
func ReadCSV(r io.Reader) ([]vitals.TrainingSample, error) {
	bomAware := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(bomAware)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columnToFeature := make(map[int]int)
	labelColumn := -1
	for col, raw := range header {
		name := normalizeHeader(raw)
		if labelColumns[name] {
			labelColumn = col
			continue
		}
		if idx, ok := vitals.FeatureIndex(name); ok {
			columnToFeature[col] = idx
		}
	}
	if labelColumn == -1 {
		return nil, fmt.Errorf("no label column found, want one of \"disease\" or \"label\"")
	}
	if len(columnToFeature) != vitals.FeatureCount {
		return nil, fmt.Errorf("%w: header covers %d of %d features",
			vitals.ErrSchemaMismatch, len(columnToFeature), vitals.FeatureCount)
	}

	var samples []vitals.TrainingSample
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d: %w: got %d columns, want %d",
				row, vitals.ErrSchemaMismatch, len(record), len(header))
		}

		label, err := vitals.ParseLabel(strings.TrimSpace(record[labelColumn]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		features := make(vitals.FeatureVector, vitals.FeatureCount)
		for col, featureIdx := range columnToFeature {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: feature %s: %w", row, vitals.FeatureName(featureIdx), err)
			}
			features[featureIdx] = value
		}
		if err := features.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		samples = append(samples, vitals.TrainingSample{
			Features: features,
			Label:    label,
			Source:   vitals.SourceReal,
		})
	}
	return samples, nil
}

func normalizeHeader(raw string) string {
	name := strings.TrimSpace(strings.ToLower(raw))
	return strings.ReplaceAll(name, " ", "_")
}
