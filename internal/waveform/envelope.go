// Package waveform reduces sample sequences to per-column (min, max)
// envelopes for drawing.
package waveform

import "math"

// FullScaleSeconds is the recording length that spans the full available width
const FullScaleSeconds = 3600.0

// Column is the sample range summary for one display column
type Column struct {
	Min float64
	Max float64
}

// NoSignal marks a column with no samples. Min > Max, so it never describes
// a real range and renderers draw nothing for it.
var NoSignal = Column{Min: 1, Max: -1}

// Empty reports whether the column carries no signal
func (c Column) Empty() bool {
	return c.Min > c.Max
}

// DisplayWidth scales the available pixel width linearly with duration so
// that an hour-long recording fills it. The result is at least 1.
func DisplayWidth(duration float64, available int) int {
	if duration <= 0 || available <= 0 {
		return 1
	}
	w := int(math.Ceil(duration * float64(available) / FullScaleSeconds))
	if w < 1 {
		return 1
	}
	return w
}

// Build returns exactly width columns summarizing samples. Column i covers
// [floor(i*spc), min(floor((i+1)*spc), len)) where spc = max(1, len/width).
// NaN samples are skipped. Build keeps no state between calls.
func Build(samples []float64, width int) []Column {
	if width < 1 {
		return nil
	}

	n := len(samples)
	spc := float64(n) / float64(width)
	if spc < 1 {
		spc = 1
	}

	columns := make([]Column, width)
	for i := range columns {
		start := int(math.Floor(float64(i) * spc))
		end := int(math.Floor(float64(i+1) * spc))
		if end > n {
			end = n
		}
		columns[i] = reduce(samples, start, end)
	}
	return columns
}

// reduce finds the extremes of samples[start:end], ignoring NaN
func reduce(samples []float64, start, end int) Column {
	col := NoSignal
	for j := start; j < end; j++ {
		v := samples[j]
		if math.IsNaN(v) {
			continue
		}
		if col.Empty() {
			col = Column{Min: v, Max: v}
			continue
		}
		if v < col.Min {
			col.Min = v
		}
		if v > col.Max {
			col.Max = v
		}
	}
	return col
}
