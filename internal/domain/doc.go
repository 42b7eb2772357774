// Package domain models earthquake events reconciled from two independent
// monitoring networks.
//
// # Data Sources
//
// The primary feed is the USGS real-time GeoJSON feed
// (https://earthquake.usgs.gov/earthquakes/feed/): a feature collection where
// each feature carries properties.{mag,place,time}, a stable feature id, and
// geometry.coordinates = [lon, lat, depth]. Time is epoch milliseconds UTC.
//
// The secondary feed is the PHIVOLCS "Latest Earthquake Information" bulletin
// page, a scraped HTML table with columns:
//
//	Date - Time (Philippine Time) | Latitude | Longitude | Depth (km) | Mag | Location
//
// Date-time cells look like "20 October 2025 - 05:27 PM" and are interpreted
// in fixed UTC+8 (the Philippines observes no DST). Numeric cells may be
// empty or non-numeric; those parse as "not reported" rather than failing
// the row. PHIVOLCS rows carry no identifier; [SynthesizeID] derives one from
// the raw date-time and coordinates.
//
// # Reconciliation
//
// The two networks report the same physical quake with slightly different
// coordinates and magnitudes. [Merge] de-duplicates by a rounded
// (lat, lon, magnitude) key with primary precedence and orders the combined
// feed newest-first. The rounding granularity (3 decimal degrees, 1 decimal
// magnitude) is the calibrated fuzzy-match tolerance.
package domain
