// Package server is the thin HTTP shim over the resolution pipeline. It maps
// transport requests to the responder and classifies failures: bad input is
// the caller's problem (400), store failures are ours (500). Routing and
// framing beyond that are not this system's concern.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/normanking/pheoni/internal/assistant"
	"github.com/normanking/pheoni/internal/dates"
	"github.com/normanking/pheoni/internal/meetings"
)

// Server exposes the assistant over HTTP.
type Server struct {
	responder *assistant.Responder
	store     *meetings.Store
}

// New creates a server over the given responder and store.
func New(responder *assistant.Responder, store *meetings.Store) *Server {
	return &Server{responder: responder, store: store}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /meetings", s.handleListMeetings)
	mux.HandleFunc("DELETE /meetings", s.handleDeleteMeetings)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type askRequest struct {
	Text string `json:"text"`
}

type askResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	resp, err := s.responder.Resolve(r.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("request resolution failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal failure"})
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Response: resp})
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.ListAll(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list meetings failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal failure"})
		return
	}
	if all == nil {
		all = []meetings.Meeting{}
	}
	writeJSON(w, http.StatusOK, all)
}

type deleteMeetingsRequest struct {
	Date string `json:"date"`
	With string `json:"with"`
}

type deleteMeetingsResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleDeleteMeetings(w http.ResponseWriter, r *http.Request) {
	var req deleteMeetingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Date == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	n, err := s.store.Cancel(r.Context(), req.Date, req.With)
	if errors.Is(err, dates.ErrUnparseable) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date not recognized"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("delete meetings failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal failure"})
		return
	}
	writeJSON(w, http.StatusOK, deleteMeetingsResponse{Deleted: n})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}
