package api

import (
	"net/http"

	"github.com/docustore/internal/service"
	"github.com/docustore/internal/session"
)

// SessionResponse describes the caller's wallet session
type SessionResponse struct {
	Connected  bool                    `json:"connected"`
	Session    *session.Session        `json:"session,omitempty"`
	Navigation *service.NavigationView `json:"navigation"`
}

// handleConnect handles POST /api/session - connect a wallet
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	sess, err := s.sessions.Connect(r.Context(), req.Address)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, &SessionResponse{
		Connected:  true,
		Session:    sess,
		Navigation: service.Navigation(sess, s.sessions.Now()),
	})
}

// handleGetSession handles GET /api/session - describe the current session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	respondJSON(w, http.StatusOK, &SessionResponse{
		Connected:  sess != nil,
		Session:    sess,
		Navigation: service.Navigation(sess, s.sessions.Now()),
	})
}

// handleDisconnect handles DELETE /api/session - disconnect the wallet
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r); sess != nil {
		if err := s.sessions.Disconnect(r.Context(), sess.ID); err != nil {
			respondServiceError(w, r, err)
			return
		}
		if s.pages.Notifications != nil {
			s.pages.Notifications.Dismiss(sess.ID)
		}
	}

	respondJSON(w, http.StatusOK, &SessionResponse{
		Navigation: service.Navigation(nil, s.sessions.Now()),
	})
}

// handleNavigation handles GET /api/navigation
func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, service.Navigation(sessionFrom(r), s.sessions.Now()))
}
