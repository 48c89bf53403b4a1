package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dt2patel/traveller/internal/auth"
	"github.com/dt2patel/traveller/internal/residency"
	"github.com/dt2patel/traveller/internal/service"
)

type SummaryHandler struct {
	service *service.EventService
}

func NewSummaryHandler(svc *service.EventService) *SummaryHandler {
	return &SummaryHandler{service: svc}
}

// summaryResponse is the wire form of a Summary with day counts rounded.
type summaryResponse struct {
	Status          string           `json:"status"`
	CurrentStayDays float64          `json:"current_stay_days"`
	Rolling182      float64          `json:"rolling_182"`
	Rolling365      float64          `json:"rolling_365"`
	FiscalYear      int              `json:"fiscal_year"`
	FiscalYearDays  float64          `json:"fiscal_year_days"`
	PrevFiscalYear  float64          `json:"prev_fiscal_year_days"`
	Trips           []residency.Trip `json:"trips"`
	Anomalies       []string         `json:"anomalies,omitempty"`
	ComputedAt      time.Time        `json:"computed_at"`
}

func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Status:          s.Status,
		CurrentStayDays: round2(s.CurrentStayDays),
		Rolling182:      round2(s.Rolling182),
		Rolling365:      round2(s.Rolling365),
		FiscalYear:      s.FiscalYear,
		FiscalYearDays:  round2(s.FiscalYearDays),
		PrevFiscalYear:  round2(s.PrevFiscalYear),
		Trips:           s.Trips,
		Anomalies:       s.Anomalies,
		ComputedAt:      s.ComputedAt,
	})
}

func (h *SummaryHandler) Trips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.service.Trips(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if trips == nil {
		trips = []residency.Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *SummaryHandler) Rolling(w http.ResponseWriter, r *http.Request) {
	days := 182
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	count, err := h.service.RollingWindowDays(r.Context(), auth.OwnerID(r.Context()), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "count": round2(count)})
}

func (h *SummaryHandler) FiscalYear(w http.ResponseWriter, r *http.Request) {
	year := residency.FiscalYearFor(time.Now().UTC())
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "year must be an integer"})
			return
		}
		year = n
	}

	count, err := h.service.FiscalYearDays(r.Context(), auth.OwnerID(r.Context()), year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "count": round2(count)})
}

func (h *SummaryHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target date is required"})
		return
	}
	targetDate, err := time.Parse("2006-01-02", target)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target must be YYYY-MM-DD"})
		return
	}

	threshold := 182.0
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "threshold must be a positive number"})
			return
		}
		threshold = f
	}

	remaining, err := h.service.Forecast(r.Context(), auth.OwnerID(r.Context()), targetDate, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target":    target,
		"threshold": threshold,
		"remaining": round2(remaining),
	})
}

func (h *SummaryHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := h.service.Anomalies(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if anomalies == nil {
		anomalies = []string{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}
