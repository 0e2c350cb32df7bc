package domain

import "math"

// Window returns s[start:end] with slicing semantics: start clamps to 0, end
// clamps to len(s), and an empty range gives an empty series. The result is a
// copy.
func Window(s Series, start, end int) Series {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return Series{}
	}
	out := make(Series, end-start)
	copy(out, s[start:end])
	return out
}

// Log applies the natural logarithm element-wise. Zero yields -Inf and
// negative values yield NaN; inputs are expected to be positive counts.
func Log(s Series) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = math.Log(v)
	}
	return out
}

// ChangeRatio returns the one-step relative change (s[i]-s[i-1])/s[i-1].
// Position 0 is 0, and so is any position whose previous value is 0.
func ChangeRatio(s Series) Series {
	out := make(Series, len(s))
	for i := 1; i < len(s); i++ {
		prev := s[i-1]
		if prev == 0 {
			continue
		}
		out[i] = (s[i] - prev) / prev
	}
	return out
}

// NewCases returns the increase of a cumulative series over the window
// [start, end). With start at 0 the whole cumulative value at end-1 counts.
// An empty window yields 0.
func NewCases(s Series, start, end int) float64 {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return 0
	}
	if start == 0 {
		return s[end-1]
	}
	return s[end-1] - s[start-1]
}
