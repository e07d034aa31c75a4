package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oneirogames/oneiro/pkg/api"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/games/params"
	"github.com/oneirogames/oneiro/pkg/pool"
	"github.com/oneirogames/oneiro/pkg/session"
)

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Response write failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, api.ErrorResponse{Error: msg})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.StatusResponse{IsLoading: s.library.IsLoading()})
}

func (s *Server) gameList(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.library.List())
}

func (s *Server) gameListType(w http.ResponseWriter, r *http.Request) {
	list, err := s.library.ListType(r.PathValue("type"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown game type")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) gameInfo(w http.ResponseWriter, r *http.Request) {
	desc, err := s.library.Find(r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	s.writeJSON(w, http.StatusOK, desc)
}

// offer is the session entry point: the browser posts its SDP offer
// and receives an answer plus the new session id.
func (s *Server) offer(w http.ResponseWriter, r *http.Request) {
	if s.library.IsLoading() {
		s.writeError(w, http.StatusServiceUnavailable, "library is still loading")
		return
	}
	var offer api.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil || offer.Sdp == "" {
		s.writeError(w, http.StatusBadRequest, "malformed session description")
		return
	}

	resp, err := s.sessions.Negotiate(r.Context(), r.PathValue("type"), r.PathValue("id"), offer)
	if err != nil {
		s.negotiateError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) negotiateError(w http.ResponseWriter, err error) {
	var ierr *pool.InstantiationError
	var nerr *session.NegotiationError
	switch {
	case errors.Is(err, games.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "unknown game")
	case errors.Is(err, pool.ErrBusy):
		s.writeError(w, http.StatusServiceUnavailable, "server is at capacity, try again later")
	case errors.As(err, &ierr):
		s.log.Error().Err(err).Msg("Model load failed")
		s.writeError(w, http.StatusInternalServerError, "the game failed to start")
	case errors.As(err, &nerr):
		s.writeError(w, http.StatusBadRequest, "webrtc negotiation failed")
	default:
		s.log.Error().Err(err).Msg("Negotiation failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) updateParams(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Params map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Params == nil {
		s.writeError(w, http.StatusBadRequest, "malformed params patch")
		return
	}

	err := s.sessions.UpdateParams(r.PathValue("sid"), body.Params)
	var verr *params.ValidationError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, session.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, "unknown session")
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, verr)
	default:
		s.log.Error().Err(err).Msg("Params update failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) paramsSchema(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.SchemaFor(r.PathValue("sid"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Terminate(r.PathValue("sid")) {
		s.writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
