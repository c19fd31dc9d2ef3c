package importer

import (
	"fmt"
	"strconv"
	"strings"

	"trade-journal-go/internal/models"
)

// Export renders entries as Date,Asset,Type,Amount CSV. Fields are written
// unquoted; none of the data model's fields carry embedded commas in
// practice.
func Export(entries []models.LedgerEntry) string {
	var b strings.Builder
	b.WriteString("Date,Asset,Type,Amount\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s,%s,%s,%s\n",
			e.Date, e.Asset, e.EffectiveType(),
			strconv.FormatFloat(e.Amount, 'f', -1, 64))
	}
	return b.String()
}
