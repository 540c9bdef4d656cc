// Package dispatchhttp exposes the matching and transition operations over
// HTTP for the booking API layer.
package dispatchhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/link-bedside-nurses/dispatch/core/appointment"
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/logger"
	"github.com/link-bedside-nurses/dispatch/core/match"
	"github.com/link-bedside-nurses/dispatch/core/model"
)

type matchRequest struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
	Limit        int     `json:"limit"`
}

type transitionRequest struct {
	Action      string `json:"action"`
	CaregiverID string `json:"caregiver_id"`
	Reason      string `json:"reason"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Handler routes dispatch engine requests.
type Handler struct {
	matcher      *match.Matcher
	appointments *appointment.Service
	log          logger.Logger
}

// New creates the HTTP handler for the dispatch API.
func New(matcher *match.Matcher, appointments *appointment.Service, log logger.Logger) http.Handler {
	h := &Handler{matcher: matcher, appointments: appointments, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/appointments/{id}/match", h.match)
	mux.HandleFunc("POST /api/appointments/{id}/transitions", h.transition)
	mux.HandleFunc("GET /api/appointments/{id}", h.get)
	return mux
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.New(fault.KindValidation, "invalid request body"))
		return
	}
	point := model.GeoPoint{Lat: req.Lat, Lng: req.Lng}
	ranked, err := h.matcher.NearestAvailableCaregivers(r.Context(), id, point, req.RadiusMeters, req.Limit)
	if err != nil {
		h.log.Errorf("match %s: %v", id, err)
		writeError(w, err)
		return
	}
	if ranked == nil {
		ranked = []match.RankedCandidate{}
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.New(fault.KindValidation, "invalid request body"))
		return
	}
	act, err := appointment.ParseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	appt, err := h.appointments.Apply(r.Context(), id, act, req.CaregiverID, req.Reason)
	if err != nil {
		h.log.Errorf("transition %s %s: %v", id, act, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.appointments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// statusCode maps the error taxonomy onto HTTP statuses. Conflict stays
// distinct from not-found so callers know they can re-fetch and retry.
func statusCode(err error) int {
	switch fault.KindOf(err) {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindConflict:
		return http.StatusConflict
	case fault.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	var fe *fault.Error
	msg := err.Error()
	if errors.As(err, &fe) {
		msg = fe.Msg
	}
	writeJSON(w, statusCode(err), errorResponse{Error: msg, Kind: fault.KindOf(err).String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
