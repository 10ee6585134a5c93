package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

// Handler routes /v1 requests to the attendance service.
type Handler struct {
	svc      *attendance.Service
	resolver auth.Resolver
	mux      *http.ServeMux
}

// NewHandler builds the API. metrics may be nil to skip /metrics.
func NewHandler(svc *attendance.Service, resolver auth.Resolver, log zerolog.Logger, metrics http.Handler) http.Handler {
	h := &Handler{svc: svc, resolver: resolver, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		h.mux.Handle("GET /metrics", metrics)
	}

	h.mux.HandleFunc("POST /v1/clock-in", h.authenticated(h.clockIn))
	h.mux.HandleFunc("POST /v1/clock-out", h.authenticated(h.clockOut))
	h.mux.HandleFunc("POST /v1/switch", h.authenticated(h.switchAssignment))
	h.mux.HandleFunc("POST /v1/tracking-points", h.authenticated(h.addTrackingPoint))

	h.mux.HandleFunc("GET /v1/sessions/active", h.authenticated(h.activeSession))
	h.mux.HandleFunc("GET /v1/sessions", h.authenticated(h.listSessions))
	h.mux.HandleFunc("GET /v1/sessions/{id}", h.authenticated(h.getSession))
	h.mux.HandleFunc("GET /v1/sessions/{id}/tracking-points", h.authenticated(h.listTrackingPoints))
	h.mux.HandleFunc("POST /v1/sessions/{id}/edit-request", h.authenticated(h.requestEdit))
	h.mux.HandleFunc("POST /v1/sessions/{id}/approve", h.authenticated(h.approve))
	h.mux.HandleFunc("POST /v1/sessions/{id}/reject", h.authenticated(h.reject))

	return accessLog(log, h.mux)
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	var in attendance.ClockInInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.svc.ClockIn(r.Context(), caller, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	var in attendance.ClockOutInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.ClockOut(r.Context(), caller, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) switchAssignment(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	var in attendance.SwitchInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.svc.SwitchAssignment(r.Context(), caller, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) addTrackingPoint(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	var in struct {
		ActorID string   `json:"actor_id"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Lat == nil || in.Lon == nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "lat and lon are required"))
		return
	}
	res, err := h.svc.AddTrackingPoint(r.Context(), caller, attendance.TrackInput{ActorID: in.ActorID, Lat: *in.Lat, Lon: *in.Lon})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) activeSession(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	sess, err := h.svc.GetActiveSession(r.Context(), caller, r.URL.Query().Get("actor_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	q := r.URL.Query()
	query := attendance.ListQuery{
		ActorID: q.Get("actor_id"),
		Status:  models.Status(q.Get("status")),
	}

	var err error
	if query.From, err = parseTimeParam(q.Get("from"), false); err != nil {
		writeError(w, err)
		return
	}
	if query.To, err = parseTimeParam(q.Get("to"), true); err != nil {
		writeError(w, err)
		return
	}
	if query.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		writeError(w, err)
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), caller, query)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	sess, err := h.svc.GetSession(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) listTrackingPoints(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	q := r.URL.Query()
	offset, err := parseIntParam(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := parseIntParam(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	points, err := h.svc.ListTrackingPoints(r.Context(), caller, r.PathValue("id"), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if points == nil {
		points = []models.TrackingPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking_points": points, "offset": offset})
}

func (h *Handler) requestEdit(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	var in attendance.EditInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.SessionID = r.PathValue("id")
	sess, err := h.svc.RequestEdit(r.Context(), caller, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	h.decide(w, r, caller, h.svc.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, caller auth.Actor) {
	h.decide(w, r, caller, h.svc.Reject)
}

type decisionFunc func(ctx context.Context, caller auth.Actor, in attendance.ApprovalInput) (*models.Session, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, caller auth.Actor, fn decisionFunc) {
	var in attendance.ApprovalInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.SessionID = r.PathValue("id")
	sess, err := fn(r.Context(), caller, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// parseTimeParam accepts RFC3339 or a plain date. A plain "to" date covers
// the whole day.
func parseTimeParam(v string, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, apperrors.Newf(apperrors.CodeInvalidRequest, "invalid time %q, use RFC3339 or YYYY-MM-DD", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseIntParam(v, name string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidRequest, "%s must be a non-negative integer", name)
	}
	return n, nil
}
