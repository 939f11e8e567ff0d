package diversity

import (
	"gonum.org/v1/gonum/stat"

	"mcceval/internal/model"
)

type MetricSummary struct {
	Mean   float64
	StdDev float64
}

// Summarize reports the population mean and standard deviation of each metric column.
// Records narrower than the first are ignored.
func Summarize(records []model.DiversityRecord) []MetricSummary {
	if len(records) == 0 {
		return nil
	}
	width := len(records[0].Metrics)
	out := make([]MetricSummary, width)
	column := make([]float64, 0, len(records))
	for m := range width {
		column = column[:0]
		for _, r := range records {
			if len(r.Metrics) > m {
				column = append(column, r.Metrics[m])
			}
		}
		mean, std := stat.MeanStdDev(column, nil)
		if len(column) < 2 {
			std = 0
		}
		out[m] = MetricSummary{Mean: mean, StdDev: std}
	}
	return out
}
