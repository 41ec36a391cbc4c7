// Package api exposes the chat webhook and the owner-scoped read API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/auth"
	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/export"
	"github.com/IvanSitnikov1/tracker-bot/internal/persistence"
	"github.com/IvanSitnikov1/tracker-bot/internal/stats"
	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
)

const (
	defaultExportLimit = 31
	maxExportLimit     = 366
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	engine   *tracking.Engine
	exporter *export.Exporter
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, engine *tracking.Engine, exporter *export.Exporter) *Handler {
	return &Handler{service: service, engine: engine, exporter: exporter}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/stats", h.stats)
	mux.HandleFunc("/v1/export", h.export)
	mux.HandleFunc("/healthz", healthz)
}

// Public reports whether a request path bypasses bearer authentication.
func Public(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz", r.URL.Path == "/metrics":
		return true
	case strings.HasPrefix(r.URL.Path, webhookPrefix):
		return true
	}
	return false
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}

	view, err := h.engine.LoadView(r.Context(), claims.OwnerID, nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := ListActivitiesResponse{
		Date:  h.engine.Today().Format(domain.DayLayout),
		Items: make([]ActivityView, 0, len(view.Items)),
	}
	for _, item := range view.Items {
		resp.Items = append(resp.Items, toActivityView(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "activity id must be a positive integer")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		h.deleteActivity(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id int64) {
	claims, ok := requireScope(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), claims.OwnerID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeStatsRead)
	if !ok {
		return
	}

	query := r.URL.Query()
	var (
		report stats.Report
		err    error
	)
	if query.Get("start") != "" || query.Get("end") != "" {
		start, end, parseErr := parseRange(query.Get("start"), query.Get("end"))
		if parseErr != nil {
			writeDomainError(w, parseErr)
			return
		}
		report, err = stats.ForRange(r.Context(), h.service, claims.OwnerID, start, end, "")
	} else {
		raw := query.Get("period")
		if raw == "" {
			raw = string(stats.PeriodDay)
		}
		period, parseErr := stats.ParsePeriod(raw)
		if parseErr != nil {
			writeDomainError(w, parseErr)
			return
		}
		report, err = stats.ForPeriod(r.Context(), h.service, claims.OwnerID, period, h.engine.Today())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(report))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeExportsRead)
	if !ok {
		return
	}

	query := r.URL.Query()
	start, end, err := parseRange(query.Get("start"), query.Get("end"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	limit := defaultExportLimit
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > maxExportLimit {
				parsed = maxExportLimit
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeDayCursor(query.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}
	if !cursor.IsZero() {
		if cursor.Before(start) || cursor.After(end) {
			writeError(w, http.StatusBadRequest, "validation_failed", "cursor outside requested range")
			return
		}
		start = cursor
	}

	artifacts, next, err := h.exporter.Page(r.Context(), claims.OwnerID, start, end, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := ExportResponse{
		Items:      make([]ExportItem, 0, len(artifacts)),
		NextCursor: persistence.EncodeDayCursor(next),
	}
	for _, artifact := range artifacts {
		resp.Items = append(resp.Items, ExportItem{
			Date:     artifact.Date.Format(domain.DayLayout),
			Filename: artifact.Filename,
			Content:  string(artifact.Content),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

func parseRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end are required", domain.ErrInvalidInput)
	}
	start, err := domain.ParseDay(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := domain.ParseDay(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := domain.ValidateRange(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
