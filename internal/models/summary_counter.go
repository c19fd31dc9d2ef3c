package models

// SummaryCounter is the derived per-user counter document kept next to the
// entry log so total-count queries avoid rescanning the full history. It is
// best-effort: increments may be lost under concurrent writers, and the
// subscription's reconciliation pass overwrites it from the full entry set.
type SummaryCounter struct {
	TotalTrades int            `json:"totalTrades"`
	Counts      map[string]int `json:"counts"`
	LastUpdated string         `json:"lastUpdated,omitempty"`
}

// CountersFor recomputes the counter fields from a full entry snapshot.
// This is the reconciliation source of truth.
func CountersFor(entries []LedgerEntry) (total int, counts map[string]int) {
	counts = make(map[string]int)
	for _, e := range entries {
		if !e.IsTrade() {
			continue
		}
		date := e.Date
		if date == "" {
			date = "1970-01-01"
		}
		counts[date]++
		total++
	}
	return total, counts
}
