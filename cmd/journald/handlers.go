package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/market"
	"trade-journal-go/internal/models"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	svc *journal.Service
	fx  *market.Client
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *journal.Service, fx *market.Client) *APIHandler {
	return &APIHandler{log: log, svc: svc, fx: fx}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, msg string, code int, err error) {
	h.log.Error(msg, zap.Error(err))
	if errors.Is(err, journal.ErrNoUser) {
		code = http.StatusUnauthorized
	}
	http.Error(w, msg, code)
}

// ListEntries returns the snapshot, newest first.
func (h *APIHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Entries())
}

// addEntryRequest is the payload for creating an entry. The amount is a
// magnitude; the type decides the stored sign.
type addEntryRequest struct {
	Date   string  `json:"date"`
	Asset  string  `json:"asset"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// AddEntry records a new ledger entry.
func (h *APIHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	id, err := h.svc.Add(r.Context(), req.Date, req.Asset, models.EntryType(req.Type), req.Amount)
	if err != nil {
		h.writeError(w, "Failed to add entry", http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, map[string]string{"id": id})
}

// DeleteEntry removes an entry by id.
func (h *APIHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, "Failed to delete entry", http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns the derived statistics for the whole ledger.
func (h *APIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Summary())
}

// Status answers total-count queries from the stored counter without
// scanning the ledger.
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Counter())
}

// ChartWindow returns the currently selected chart page.
func (h *APIHandler) ChartWindow(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Window())
}

// ChartOlder pages toward older data.
func (h *APIHandler) ChartOlder(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.PageOlder())
}

// ChartNewer pages toward recent data.
func (h *APIHandler) ChartNewer(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.PageNewer())
}

// Import ingests a delimited export in the request body. Partial imports
// are preserved: the response reports how many rows were persisted even
// when a later row failed.
func (h *APIHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	count, err := h.svc.Import(r.Context(), string(body))
	if err != nil {
		h.log.Error("Import failed", zap.Int("persisted", count), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		h.writeJSON(w, map[string]any{"imported": count, "error": err.Error()})
		return
	}
	h.writeJSON(w, map[string]any{"imported": count})
}

// Export streams the ledger as CSV.
func (h *APIHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	io.WriteString(w, h.svc.ExportCSV())
}

// Reset wipes the entire ledger.
func (h *APIHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		h.writeError(w, "Failed to reset ledger", http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Risk returns the suggested position size.
func (h *APIHandler) Risk(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]float64{"suggested": h.svc.SuggestedRisk()})
}

// Rate returns a display FX rate, defaulting to USD→THB.
func (h *APIHandler) Rate(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" {
		from = "USD"
	}
	if to == "" {
		to = "THB"
	}
	rate, err := h.fx.Rate(r.Context(), from, to)
	if err != nil {
		h.writeError(w, "Failed to fetch rate", http.StatusBadGateway, err)
		return
	}
	h.writeJSON(w, map[string]any{"from": from, "to": to, "rate": rate})
}
