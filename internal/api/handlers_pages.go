package api

import (
	"net/http"
	"strings"

	"github.com/docustore/internal/errors"
	"github.com/docustore/internal/models"
	"github.com/docustore/internal/service"
	"github.com/gorilla/mux"
)

// handleDashboard handles GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := service.NewDashboardPage(sessionFrom(r), s.pages)
	if p.Connected() {
		if err := p.Mount(r.Context()); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, p.View())
}

// handleGetTodos handles GET /api/todos
func (s *Server) handleGetTodos(w http.ResponseWriter, r *http.Request) {
	p := service.NewTodoPage(sessionFrom(r), s.pages)
	if p.Connected() {
		if err := p.Mount(r.Context()); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, p.View())
}

// todoAction mounts the todo page for the caller and applies fn
func (s *Server) todoAction(w http.ResponseWriter, r *http.Request, status int, fn func(p *service.TodoPage) error) {
	sess := sessionFrom(r)
	release, ok := s.beginWrite(sess)
	if !ok {
		respondServiceError(w, r, errors.ErrBusy)
		return
	}
	defer release()

	p := service.NewTodoPage(sess, s.pages)
	if err := p.Mount(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := fn(p); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, status, p.View())
}

// handleAddTodo handles POST /api/todos
func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		if sessionFrom(r) == nil {
			respondServiceError(w, r, errors.ErrNotConnected)
			return
		}
		respondServiceError(w, r, errors.NewValidationError("text", "must not be empty"))
		return
	}

	s.todoAction(w, r, http.StatusCreated, func(p *service.TodoPage) error {
		return p.Add(r.Context(), req.Text)
	})
}

// handleToggleTodo handles POST /api/todos/{id}/toggle
func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.todoAction(w, r, http.StatusOK, func(p *service.TodoPage) error {
		return p.Toggle(r.Context(), id)
	})
}

// handleDeleteTodo handles DELETE /api/todos/{id}
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.todoAction(w, r, http.StatusOK, func(p *service.TodoPage) error {
		return p.Delete(r.Context(), id)
	})
}

// handleGetProfile handles GET /api/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p := service.NewProfilePage(sessionFrom(r), s.pages)
	if p.Connected() {
		if err := p.Mount(r.Context()); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, p.View())
}

// handleSaveProfile handles PUT /api/profile
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.Profile
	if err := parseJSONBody(r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	sess := sessionFrom(r)
	release, ok := s.beginWrite(sess)
	if !ok {
		respondServiceError(w, r, errors.ErrBusy)
		return
	}
	defer release()

	p := service.NewProfilePage(sess, s.pages)
	if err := p.Save(r.Context(), profile); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p.View())
}

// handleGetSettings handles GET /api/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	p := service.NewSettingsPage(sessionFrom(r), s.pages)
	if p.Connected() {
		if err := p.Mount(r.Context()); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, p.View())
}

// handleUpdateSettings handles PATCH /api/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if err := parseJSONBody(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if patch.IsEmpty() {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "No settings to update", nil)
		return
	}

	sess := sessionFrom(r)
	release, ok := s.beginWrite(sess)
	if !ok {
		respondServiceError(w, r, errors.ErrBusy)
		return
	}
	defer release()

	p := service.NewSettingsPage(sess, s.pages)
	if err := p.Mount(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := p.Update(r.Context(), patch); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p.View())
}
