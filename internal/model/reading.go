package model

import "math"

// Reading is one slot's fill-level value. The zero value carries no data.
type Reading struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

func NoData() Reading {
	return Reading{}
}

// NewReading returns NoData for NaN and infinities.
func NewReading(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoData()
	}
	return Reading{Value: v, Valid: true}
}
