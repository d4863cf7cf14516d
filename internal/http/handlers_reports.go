package http

import (
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

func pathYear(r *http.Request) (int, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, newBadRequest("year must be a number")
	}
	return year, nil
}

func pathPeriod(r *http.Request) (core.Period, error) {
	year, err := pathYear(r)
	if err != nil {
		return core.Period{}, err
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return core.Period{}, newBadRequest("month must be a number")
	}
	return core.Period{Year: year, Month: time.Month(month)}, nil
}

func writeExport(w http.ResponseWriter, e services.Export) {
	NewResponse().
		Body(e.ContentType, e.Body).
		Attachment(e.Filename).
		Header("Content-Length", strconv.Itoa(len(e.Body))).
		Write(w)
}

// handleReportIndex summarises ?year=, the current year by default.
func (s *Server) handleReportIndex(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := queryInt(r.URL.Query(), "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	idx, err := s.deps.Reports.Index(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.deps.Reports.Monthly(r.Context(), userID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMonthlyPDF(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Reports.MonthlyPDF(r.Context(), userID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeExport(w, e)
}

func (s *Server) handleMonthlyCSV(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Reports.MonthlyCSV(r.Context(), userID, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeExport(w, e)
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	y, err := s.deps.Reports.Yearly(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, y)
}

func (s *Server) handleYearlyPDF(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Reports.YearlyPDF(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeExport(w, e)
}
