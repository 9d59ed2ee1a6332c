package logalign

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Resample interpolates every channel of every series onto one uniform grid.
//
// The grid covers the half-open window [start, stop) where start is the
// latest first timestamp and stop the earliest last timestamp across all
// series, so no grid point ever requires extrapolation. Grid points are
// start + i/freqHz. Columns follow the order of series, each sensor
// contributing Width() consecutive columns. Series need not be sorted;
// samples sharing a timestamp collapse to the one that appears last.
func Resample(series []InertialSeries, freqHz float64) (*AlignedTable, error) {
	if math.IsNaN(freqHz) || math.IsInf(freqHz, 0) || freqHz <= 0 {
		return nil, fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidConfig, freqHz)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no inertial sensors to resample", ErrInvalidConfig)
	}

	prepared := make([]preparedSeries, 0, len(series))
	table := &AlignedTable{FrequencyHz: freqHz}
	start, stop := math.Inf(-1), math.Inf(1)
	for _, s := range series {
		p, err := prepareSeries(s)
		if err != nil {
			return nil, err
		}
		table.DuplicatesDropped += p.dropped
		table.Sensors = append(table.Sensors, s.Kind)
		table.Columns = append(table.Columns, s.Kind.Columns()...)
		start = math.Max(start, p.ts[0])
		stop = math.Min(stop, p.ts[len(p.ts)-1])
		prepared = append(prepared, p)
	}
	table.Start = start
	table.Stop = stop

	grid, err := uniformGrid(start, stop, freqHz)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: start %.6f is not before stop %.6f", ErrEmptyWindow, start, stop)
	}
	table.Timestamps = grid

	width := table.Width()
	backing := make([]float64, len(grid)*width)
	table.Values = make([][]float64, len(grid))
	for i := range table.Values {
		table.Values[i] = backing[i*width : (i+1)*width : (i+1)*width]
	}

	col := 0
	for _, p := range prepared {
		for _, ys := range p.channels {
			var pl interp.PiecewiseLinear
			if err := pl.Fit(p.ts, ys); err != nil {
				return nil, &SensorError{Kind: p.kind, Err: err}
			}
			for i, t := range grid {
				table.Values[i][col] = pl.Predict(t)
			}
			col++
		}
	}
	return table, nil
}

// maxGridPoints bounds the number of rows one resampling run may produce.
const maxGridPoints = math.MaxInt32

// uniformGrid returns start + i/freqHz for every i with a result below stop.
// Points are computed by multiplication so rounding does not accumulate.
func uniformGrid(start, stop, freqHz float64) ([]float64, error) {
	if !(start < stop) {
		return nil, nil
	}
	step := 1 / freqHz
	if start+step == start {
		return nil, fmt.Errorf("%w: step 1/%v Hz is below timestamp resolution at %v", ErrInvalidConfig, freqHz, start)
	}
	count := math.Ceil((stop - start) * freqHz)
	if math.IsNaN(count) || math.IsInf(count, 0) || count > maxGridPoints {
		return nil, fmt.Errorf("%w: %v Hz over %v s exceeds %d grid points", ErrInvalidConfig, freqHz, stop-start, maxGridPoints)
	}
	n := int(count)
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		t := start + float64(i)*step
		if t >= stop {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

type preparedSeries struct {
	kind     SensorKind
	ts       []float64
	channels [][]float64
	dropped  int
}

// prepareSeries orders samples by time, drops duplicate timestamps and splits
// values into per-channel columns ready for interpolation.
func prepareSeries(s InertialSeries) (preparedSeries, error) {
	width := s.Kind.Width()
	if width == 0 {
		return preparedSeries{}, &SensorError{Kind: s.Kind, Err: fmt.Errorf("%w: not an inertial sensor", ErrInvalidConfig)}
	}
	if len(s.Samples) == 0 {
		return preparedSeries{}, &SensorError{Kind: s.Kind, Err: ErrSensorMissing}
	}
	for i, smp := range s.Samples {
		if math.IsNaN(smp.Timestamp) || math.IsInf(smp.Timestamp, 0) {
			return preparedSeries{}, &SensorError{Kind: s.Kind, Err: fmt.Errorf("sample %d has non-finite timestamp", i)}
		}
		if len(smp.Values) != width {
			return preparedSeries{}, &SensorError{Kind: s.Kind, Err: fmt.Errorf("sample %d has %d values, want %d", i, len(smp.Values), width)}
		}
	}

	order := make([]int, len(s.Samples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Samples[order[a]].Timestamp < s.Samples[order[b]].Timestamp
	})

	kept := make([]int, 0, len(order))
	for i, idx := range order {
		if i+1 < len(order) && s.Samples[order[i+1]].Timestamp == s.Samples[idx].Timestamp {
			continue
		}
		kept = append(kept, idx)
	}
	if len(kept) < 2 {
		return preparedSeries{}, &SensorError{Kind: s.Kind, Err: fmt.Errorf("%w: got %d", ErrTooFewSamples, len(kept))}
	}

	p := preparedSeries{
		kind:     s.Kind,
		ts:       make([]float64, len(kept)),
		channels: make([][]float64, width),
		dropped:  len(order) - len(kept),
	}
	for c := range p.channels {
		p.channels[c] = make([]float64, len(kept))
	}
	for i, idx := range kept {
		smp := s.Samples[idx]
		p.ts[i] = smp.Timestamp
		for c, v := range smp.Values {
			p.channels[c][i] = v
		}
	}
	return p, nil
}
