package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const report_service_http = "service.http"

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler serves GET /api/availability?days=N and GET /healthz.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/availability", s.serveAvailability)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain")
		w.Write([]byte("ok"))
	})
	return mux
}

// ParseDays reads the day count from a query value, anything unparsable
// falls back to the default before clamping.
func ParseDays(raw string, opts Options) int {
	days, err := strconv.Atoi(raw)
	if err != nil {
		days = opts.DefaultDays
	}
	return ClampDays(days, opts)
}

func (s Service) cacheControl() string {
	return fmt.Sprintf(
		"public, s-maxage=%d, stale-while-revalidate=%d",
		int(s.opts.FreshFor.Seconds()),
		int(s.opts.StaleFor.Seconds()),
	)
}

func (s Service) serveAvailability(w http.ResponseWriter, r *http.Request) {
	days := ParseDays(r.URL.Query().Get("days"), s.opts)

	res, err := s.Availability(r.Context(), days)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, "no-store", errorBody{
			Error:   "failed to fetch availability",
			Message: err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, s.cacheControl(), res)
}

func (s Service) writeJSON(w http.ResponseWriter, status int, cacheControl string, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		s.tel.ReportBroken(report_service_http, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.Header().Set("cache-control", cacheControl)
	w.WriteHeader(status)
	_, err = w.Write(raw)
	if err != nil {
		s.tel.ReportWarning(report_service_http, err)
	}
}
