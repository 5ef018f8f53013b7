package models

import "donorcal/internal/eligibility"

// Stats summarises a donor's history.
type Stats struct {
	Count         int                              `json:"count"`
	TotalVolumeML int                              `json:"total_volume_ml"`
	ByType        map[eligibility.DonationType]int `json:"by_type"`
	Locations     map[string]int                   `json:"locations"`
}

// Summarize counts donations per type and per location.
func Summarize(records []*Record) Stats {
	stats := Stats{
		ByType:    make(map[eligibility.DonationType]int, len(eligibility.AllTypes())),
		Locations: make(map[string]int),
	}
	for _, t := range eligibility.AllTypes() {
		stats.ByType[t] = 0
	}
	for _, r := range records {
		stats.Count++
		stats.TotalVolumeML += r.Volume()
		stats.ByType[r.Type]++
		if r.Location != "" {
			stats.Locations[r.Location]++
		}
	}
	return stats
}

// LocationVisits counts donations per location name.
func LocationVisits(records []*Record) map[string]int {
	visits := make(map[string]int)
	for _, r := range records {
		if r.Location != "" {
			visits[r.Location]++
		}
	}
	return visits
}
