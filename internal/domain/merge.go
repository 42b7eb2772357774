package domain

import (
	"math"
	"sort"
)

// dedupKey is the fuzzy-match identity used to recognize the same physical
// quake reported by both feeds. Independent networks rarely agree to full
// float precision, so coordinates are rounded to 3 decimal degrees (~110 m)
// and magnitude to 1 decimal. Coarser would merge distinct nearby events;
// finer would duplicate the same one.
type dedupKey struct {
	lat float64
	lon float64
	mag float64
}

func keyOf(e QuakeEvent) dedupKey {
	var lat, lon float64
	if e.Lat != nil {
		lat = *e.Lat
	}
	if e.Lon != nil {
		lon = *e.Lon
	}
	return dedupKey{
		lat: roundTo(lat, 3),
		lon: roundTo(lon, 3),
		mag: roundTo(e.MagnitudeOrZero(), 1),
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Merge combines the two normalized feeds into one de-duplicated sequence,
// sorted descending by event time (undated events last). Primary events are
// inserted first and therefore always win key collisions against secondary
// ones; within a feed, first seen per key wins. Returns the number of
// secondary events dropped as duplicates alongside the merged feed.
func Merge(primary, secondary []QuakeEvent) ([]QuakeEvent, int) {
	merged := make([]QuakeEvent, 0, len(primary)+len(secondary))
	seen := make(map[dedupKey]struct{}, len(primary)+len(secondary))

	for _, e := range primary {
		merged = append(merged, e)
		seen[keyOf(e)] = struct{}{}
	}

	dropped := 0
	for _, e := range secondary {
		k := keyOf(e)
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TimeMillisOrZero() > merged[j].TimeMillisOrZero()
	})

	return merged, dropped
}
