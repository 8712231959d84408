// Package exclusion maps the "excluded from baseline" set between point
// indices of the loaded record sequence and persisted timestamps.
//
// The functions are pure: inputs are never mutated.
package exclusion

import (
	"sort"

	"degradation_monitor/internal/models"
)

// ToTimestamps resolves indices to the RecordedAt of the matching records,
// preserving the order of indices. Indices outside records are skipped.
func ToTimestamps(indices []int, records []models.WorkRecord) []models.Timestamp {
	out := make([]models.Timestamp, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(records) {
			continue
		}
		out = append(out, records[i].RecordedAt)
	}
	return out
}

// ToIndices resolves timestamps against records and returns the ascending
// set of matching indices. Timestamps with no matching record are dropped.
func ToIndices(timestamps []models.Timestamp, records []models.WorkRecord) []int {
	if len(timestamps) == 0 || len(records) == 0 {
		return []int{}
	}
	wanted := make(map[models.Timestamp]struct{}, len(timestamps))
	for _, ts := range timestamps {
		wanted[ts] = struct{}{}
	}
	out := make([]int, 0, len(timestamps))
	for i, r := range records {
		if _, ok := wanted[r.RecordedAt]; ok {
			out = append(out, i)
		}
	}
	return out
}

// Toggle returns indices with index flipped: removed when present, added
// otherwise. The result is sorted ascending.
func Toggle(indices []int, index int) []int {
	out := make([]int, 0, len(indices)+1)
	found := false
	for _, i := range indices {
		if i == index {
			found = true
			continue
		}
		out = append(out, i)
	}
	if !found {
		out = append(out, index)
	}
	sort.Ints(out)
	return out
}
