// Package handler exposes the JSON API. All day counts cross this boundary
// rounded to two decimals; the accounting engine underneath never rounds.
package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/dt2patel/traveller/internal/residency"
	"github.com/dt2patel/traveller/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, residency.ErrInvalidTimestamp):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAuthRequired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// round2 rounds a day count for presentation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
