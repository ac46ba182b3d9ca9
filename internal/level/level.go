// Package level classifies fill-level readings into severity buckets and
// maps each bucket to its display color.
package level

import "github.com/speedwagon-io/wastemon/internal/model"

// Each band is closed below and open above; the top band is unbounded.
const (
	FullThreshold    = 300.0
	AverageThreshold = 150.0
	LowThreshold     = 0.0
)

type Severity int

const (
	NotInitialized Severity = iota
	Low
	Average
	Full
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "Low"
	case Average:
		return "Average"
	case Full:
		return "Full"
	default:
		return "Not Initialized"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClassifyValue buckets a raw value. NaN fails every comparison and falls
// through to NotInitialized.
func ClassifyValue(v float64) Severity {
	switch {
	case v >= FullThreshold:
		return Full
	case v >= AverageThreshold:
		return Average
	case v >= LowThreshold:
		return Low
	default:
		return NotInitialized
	}
}

func Classify(r model.Reading) Severity {
	if !r.Valid {
		return NotInitialized
	}
	return ClassifyValue(r.Value)
}
