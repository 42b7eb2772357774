package domain

import (
	"math"
	"strconv"
	"strings"
)

// Bounds is a rectangular region of interest in decimal degrees.
// Edges are inclusive.
type Bounds struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// InRegion reports whether the coordinate pair falls inside the box.
// A nil or non-finite coordinate is never in region.
func (b Bounds) InRegion(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	if !isFinite(*lat) || !isFinite(*lon) {
		return false
	}
	return *lat >= b.LatMin && *lat <= b.LatMax &&
		*lon >= b.LonMin && *lon <= b.LonMax
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseCoordinate leniently parses a free-text numeric cell. Non-numeric,
// empty, or non-finite input yields nil ("field absent"), never an error.
func ParseCoordinate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return nil
	}
	return &v
}
