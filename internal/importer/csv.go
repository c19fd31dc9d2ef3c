package importer

import (
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/models"
)

// brokerMarker identifies the broker export dialect by its header.
const brokerMarker = "closing_time_utc"

// ErrEmptyInput is returned when the text has no header plus data row.
var ErrEmptyInput = errors.New("importer: expected a header and at least one row")

// Importer parses delimited trade history exports into ledger entries.
// Two dialects are accepted: the journal's own Date,Asset,Type,Amount
// format and the broker closing-report export. Bad rows are skipped, never
// fatal.
type Importer struct {
	log *zap.Logger
}

// New creates a new Importer.
func New(log *zap.Logger) *Importer {
	return &Importer{log: log}
}

// rawRow is the normalized shape both dialects funnel into before
// validation.
type rawRow struct {
	date   string
	asset  string
	typ    models.EntryType
	amount string
}

// Parse converts a delimited text blob into ledger entries. Entry ids are
// left empty for the store to assign.
func (im *Importer) Parse(text string) ([]models.LedgerEntry, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, ErrEmptyInput
	}

	isBroker := strings.Contains(strings.Join(records[0], ","), brokerMarker)
	now := time.Now().UTC().Format(time.RFC3339)

	var entries []models.LedgerEntry
	for _, record := range records[1:] {
		var row rawRow
		var ok bool
		if isBroker {
			row, ok = brokerRow(record)
		} else {
			row, ok = standardRow(record)
		}
		if !ok {
			continue
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(row.amount), 64)
		if err != nil || row.date == "" {
			im.log.Debug("Skipping unparseable import row",
				zap.Strings("record", record), zap.Error(err))
			continue
		}
		typ := row.typ
		if typ == "" {
			if amount >= 0 {
				typ = models.EntryWin
			} else {
				typ = models.EntryLoss
			}
		}
		entries = append(entries, models.LedgerEntry{
			Date:      row.date,
			Asset:     row.asset,
			Type:      typ,
			Amount:    amount,
			Timestamp: now,
		})
	}
	return entries, nil
}

// standardRow maps a Date,Asset,Type,Amount record; the type column may be
// empty, in which case the sign of the amount decides.
func standardRow(record []string) (rawRow, bool) {
	if len(record) < 4 {
		return rawRow{}, false
	}
	return rawRow{
		date:   strings.TrimSpace(record[0]),
		asset:  strings.TrimSpace(record[1]),
		typ:    models.EntryType(strings.TrimSpace(record[2])),
		amount: record[3],
	}, true
}

// brokerRow maps one row of the broker closing report: column 2 is the
// close time, column 3 the row kind ("balance" marks a transfer), column 6
// the symbol and column 13 the signed profit.
func brokerRow(record []string) (rawRow, bool) {
	if len(record) < 14 || record[2] == "" || record[13] == "" {
		return rawRow{}, false
	}
	date, _, _ := strings.Cut(record[2], "T")

	if record[3] == "balance" {
		typ := models.EntryDeposit
		if profit, err := strconv.ParseFloat(strings.TrimSpace(record[13]), 64); err == nil && profit < 0 {
			typ = models.EntryWithdraw
		}
		return rawRow{date: date, asset: "CASH", typ: typ, amount: record[13]}, true
	}

	return rawRow{
		date:   date,
		asset:  cleanSymbol(record[6]),
		amount: record[13], // type inferred from the profit sign
	}, true
}

// cleanSymbol strips the broker's trailing instrument suffix and re-delimits
// USD currency pairs: "EURUSDm" becomes "EUR/USD".
func cleanSymbol(sym string) string {
	if sym == "" {
		return "Unknown"
	}
	sym = strings.TrimSuffix(sym, "m")
	if strings.Contains(sym, "USD") {
		sym = strings.Replace(sym, "USD", "/USD", 1)
	}
	return sym
}
