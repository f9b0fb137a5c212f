package types

import "strconv"

// Record is one parsed input row
type Record struct {
	SeriesID  int
	Timestamp float64
	Value     float64
}

// Point is a single (timestamp, value) sample of a series
type Point struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Series is the trajectory of one simulated location, in input row order
type Series struct {
	ID     int     `json:"id"`
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// Label returns the legend label for a series id
func Label(id int) string {
	return "Location " + strconv.Itoa(id)
}

// XValues returns the timestamps of the series
func (s Series) XValues() []float64 {
	xs := make([]float64, len(s.Points))
	for i, p := range s.Points {
		xs[i] = p.Timestamp
	}
	return xs
}

// YValues returns the values of the series
func (s Series) YValues() []float64 {
	ys := make([]float64, len(s.Points))
	for i, p := range s.Points {
		ys[i] = p.Value
	}
	return ys
}

// Empty reports whether the series has no points
func (s Series) Empty() bool {
	return len(s.Points) == 0
}
