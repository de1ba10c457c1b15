package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/lotfolio/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolioList)

	// Single-portfolio aliases, resolved via X-Lotfolio-Portfolio or the default
	mux.HandleFunc("/api/portfolio/", s.routeDefaultPortfolio)
	mux.HandleFunc("/api/portfolio", s.routeDefaultPortfolio)
}

// routePortfolios dispatches /api/portfolios/{name}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		s.handlePortfolioList(w, r)
		return
	}

	// Split into name and sub-path
	parts := strings.SplitN(path, "/", 2)
	name := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	s.routePortfolio(w, r, name, subpath, false)
}

// routeDefaultPortfolio dispatches /api/portfolio/* against the resolved portfolio.
// The historical endpoint returns the bare day list here.
func (s *Server) routeDefaultPortfolio(w http.ResponseWriter, r *http.Request) {
	subpath := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/portfolio"), "/")
	name := common.ResolvePortfolio(r.Context(), s.app.DefaultPortfolio)
	s.routePortfolio(w, r, name, subpath, true)
}

func (s *Server) routePortfolio(w http.ResponseWriter, r *http.Request, name, subpath string, daysOnly bool) {
	switch subpath {
	case "":
		s.handleLedgerGet(w, r, name)
	case "buy":
		s.handleBuy(w, r, name)
	case "sell":
		s.handleSell(w, r, name)
	case "holdings":
		s.handleHoldings(w, r, name)
	case "historical":
		s.handleHistorical(w, r, name, daysOnly)
	case "import":
		s.handleImport(w, r, name)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
