package ledger

import (
	"encoding/json"
	"strconv"

	"trade-journal-go/internal/docstore"
	"trade-journal-go/internal/models"
)

// entryToDoc flattens an entry into a document payload. The id is the
// document id and is not duplicated inside the payload.
func entryToDoc(e models.LedgerEntry) map[string]any {
	doc := map[string]any{
		"date":   e.Date,
		"asset":  e.Asset,
		"amount": e.Amount,
	}
	if e.Type != "" {
		doc["type"] = string(e.Type)
	}
	if e.Timestamp != "" {
		doc["timestamp"] = e.Timestamp
	}
	return doc
}

// entryFromDoc rebuilds an entry from a raw document, field by field. Other
// writers may have stored loosely typed values, so each field falls back to
// its documented default instead of failing the whole snapshot.
func entryFromDoc(doc docstore.Document) models.LedgerEntry {
	return models.LedgerEntry{
		ID:        doc.ID,
		Date:      NormalizeDate(doc.Data["date"]),
		Asset:     asString(doc.Data["asset"]),
		Type:      models.EntryType(asString(doc.Data["type"])),
		Amount:    asFloat(doc.Data["amount"]),
		Timestamp: asString(doc.Data["timestamp"]),
	}
}

func counterFromDoc(data map[string]any) *models.SummaryCounter {
	c := &models.SummaryCounter{
		TotalTrades: int(asFloat(data["totalTrades"])),
		Counts:      make(map[string]int),
		LastUpdated: asString(data["lastUpdated"]),
	}
	if counts, ok := data["counts"].(map[string]any); ok {
		for date, n := range counts {
			c.Counts[date] = int(asFloat(n))
		}
	}
	return c
}

func countsToDoc(counts map[string]int) map[string]any {
	doc := make(map[string]any, len(counts))
	for date, n := range counts {
		doc[date] = n
	}
	return doc
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
