package util

import "math"

// Summary describes a series of values such as the document counts per shard.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summarize computes the summary of values (population standard deviation).
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if s.Count == 0 {
		return s
	}

	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		s.Mean += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean /= float64(s.Count)

	for _, v := range values {
		s.StdDev += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(s.StdDev / float64(s.Count))
	return s
}

// Balance rates how evenly documents are spread over shards.
type Balance struct {
	Summary
	// Quality is 1 for a perfectly even spread and approaches 0 when a few
	// shards hold everything. Empty engines are perfectly balanced.
	Quality float64 `json:"quality"`
}

// NewBalance computes the balance of the given shard sizes. The quality is the
// mean of (1 - coefficient of variation) and min/max.
func NewBalance(sizes []float64) Balance {
	s := Summarize(sizes)
	if s.Max <= 0 {
		return Balance{Summary: s, Quality: 1}
	}
	cv := math.Min(1, s.StdDev/s.Mean)
	return Balance{
		Summary: s,
		Quality: (1-cv)/2 + (s.Min/s.Max)/2,
	}
}
