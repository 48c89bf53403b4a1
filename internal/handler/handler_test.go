package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dt2patel/traveller/internal/residency"
	"github.com/dt2patel/traveller/internal/service"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: kind must be ENTRY or EXIT", service.ErrValidation), http.StatusBadRequest},
		{"invalid timestamp", fmt.Errorf("pair trips: %w", residency.ErrInvalidTimestamp), http.StatusBadRequest},
		{"auth required", service.ErrAuthRequired, http.StatusUnauthorized},
		{"not found", fmt.Errorf("%w: ev-1", service.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, c.err)
			if rec.Code != c.want {
				t.Errorf("status = %d, want %d", rec.Code, c.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q, want application/json", ct)
			}
		})
	}
}
