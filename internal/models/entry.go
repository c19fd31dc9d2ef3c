package models

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryWin      EntryType = "WIN"
	EntryLoss     EntryType = "LOSS"
	EntryDeposit  EntryType = "DEPOSIT"
	EntryWithdraw EntryType = "WITHDRAW"
)

// LedgerEntry is a single cash event in a user's journal.
// Entries are immutable once persisted; corrections are delete + re-add.
type LedgerEntry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD, authoritative for daily bucketing
	Asset     string    `json:"asset"`
	Type      EntryType `json:"type,omitempty"`
	Amount    float64   `json:"amount"`
	Timestamp string    `json:"timestamp,omitempty"` // creation instant, audit only
}

// EffectiveType returns the entry type, inferring WIN/LOSS from the amount
// sign when the type field is empty. Historical records were written without
// a type, so the inference rule must stay.
func (e LedgerEntry) EffectiveType() EntryType {
	if e.Type != "" {
		return e.Type
	}
	if e.Amount >= 0 {
		return EntryWin
	}
	return EntryLoss
}

// IsTrade reports whether the entry counts toward trade statistics
// (transfers do not).
func (e LedgerEntry) IsTrade() bool {
	t := e.EffectiveType()
	return t != EntryDeposit && t != EntryWithdraw
}
