package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/middleware"
	"github.com/ocx/fhecoord/internal/sessionsvc"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apperr.ValidationFail("malformed request body"))
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.ParticipantNumber)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}

	writeJSON(w, http.StatusCreated, toSessionView(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	session, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apperr.ValidationFail("malformed request body"))
		return
	}
	if req.ClientID < 0 {
		middleware.WriteError(w, apperr.ValidationFail("client_id must be a non-negative integer"))
		return
	}

	session, err := s.service.Join(r.Context(), id, sessionsvc.JoinInput{
		ClientID:   domain.ClientID(req.ClientID),
		PkShare:    req.PkShare,
		RpKeyShare: req.RpKeyShare,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	clientID, err := parseClientID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apperr.ValidationFail("malformed request body"))
		return
	}

	session, err := s.service.Bootstrap(r.Context(), id, clientID, req.BsKeyShare)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handleSubmitData(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	clientID, err := parseClientID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDataBodyBytes)
	var req submitDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apperr.ValidationFail("malformed or oversized request body"))
		return
	}

	session, err := s.service.SubmitData(r.Context(), id, sessionsvc.SubmitInput{
		ClientID:      clientID,
		EncryptedData: req.EncryptedData,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseSessionID(r *http.Request) (domain.SessionID, error) {
	return domain.ParseSessionID(mux.Vars(r)["id"])
}

func parseClientID(r *http.Request) (domain.ClientID, error) {
	n, err := strconv.Atoi(mux.Vars(r)["client_id"])
	if err != nil || n < 0 {
		return 0, apperr.ValidationFail("client_id must be a non-negative integer")
	}
	return domain.ClientID(n), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
