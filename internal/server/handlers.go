package server

import (
	"fmt"
	"net/http"

	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	portfolios, err := s.app.LedgerService.ListPortfolios(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing portfolios: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": portfolios,
	})
}

// handleLedgerGet returns the portfolio's lots. Unknown portfolios are empty.
func (s *Server) handleLedgerGet(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ledger, err := s.app.LedgerService.GetLedger(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, ledger)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var order models.BuyOrder
	if !DecodeJSON(w, r, &order) {
		return
	}

	lot, err := s.app.LedgerService.Buy(r.Context(), name, order)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, lot)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var order models.SellOrder
	if !DecodeJSON(w, r, &order) {
		return
	}

	result, err := s.app.LedgerService.Sell(r.Context(), name, order)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	holdings, err := s.app.LedgerService.GetHoldings(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"holdings":  holdings,
	})
}

// handleHistorical serves the valuation timeline. Optional from/to query
// parameters (YYYY-MM-DD) clip the emitted days.
func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request, name string, daysOnly bool) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts, err := parseTimelineOptions(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	tl, err := s.app.TimelineService.GetTimeline(r.Context(), name, opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if daysOnly {
		WriteJSON(w, http.StatusOK, tl.Days)
		return
	}
	WriteJSON(w, http.StatusOK, tl)
}

// handleImport replays a CSV body of type,symbol,quantity,price,date rows.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	summary, err := s.app.LedgerService.ImportCSV(r.Context(), name, r.Body)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

func parseTimelineOptions(r *http.Request) (interfaces.TimelineOptions, error) {
	var opts interfaces.TimelineOptions
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			return opts, models.NewValidationError("from", "%v", err)
		}
		opts.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			return opts, models.NewValidationError("to", "%v", err)
		}
		opts.To = d
	}
	return opts, nil
}
