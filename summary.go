package logalign

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelSummary describes one resampled column.
type ChannelSummary struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes per-column statistics of an aligned table.
func Summarize(t *AlignedTable) []ChannelSummary {
	if t == nil || t.Len() == 0 {
		return nil
	}
	out := make([]ChannelSummary, 0, t.Width())
	col := make([]float64, t.Len())
	for c, name := range t.Columns {
		for i, row := range t.Values {
			col[i] = row[c]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(col) < 2 {
			std = 0
		}
		out = append(out, ChannelSummary{
			Column: name,
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(col),
			Max:    floats.Max(col),
		})
	}
	return out
}
