// Package http exposes the graph store over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// Service defines the engine surface the HTTP adapter needs.
type Service interface {
	CreateElement(ctx context.Context, el *domain.Element) error
	GetElement(ctx context.Context, id string) (*domain.Element, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, actor string) error
	Reconcile(ctx context.Context, id string) error
	AddDependency(ctx context.Context, input graphstore.AddDependencyInput) (*domain.Dependency, error)
	RemoveDependency(ctx context.Context, blockedID, blockerID string, t domain.DependencyType, actor string) error
	Ready(ctx context.Context) ([]*domain.Element, error)
	Blocked(ctx context.Context) ([]*domain.Element, error)
	Events(ctx context.Context, elementID string) ([]*domain.Event, error)
	Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error)
}

// Server routes HTTP requests onto the engine.
type Server struct {
	service Service
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(service Service) http.Handler {
	s := &Server{service: service}

	r := chi.NewRouter()
	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/elements", s.createElement)
		r.Get("/elements/{id}", s.getElement)
		r.Patch("/elements/{id}/status", s.updateStatus)
		r.Post("/elements/{id}/reconcile", s.reconcile)
		r.Get("/elements/{id}/events", s.listEvents)
		r.Get("/elements/{id}/dependencies", s.listDependencies)

		r.Post("/dependencies", s.addDependency)
		r.Delete("/dependencies", s.removeDependency)

		r.Get("/tasks/ready", s.readyTasks)
		r.Get("/tasks/blocked", s.blockedTasks)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateElementRequest is the POST /api/elements body.
type CreateElementRequest struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

func (s *Server) createElement(w http.ResponseWriter, r *http.Request) {
	var body CreateElementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := domain.ParseKind(body.Kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var el *domain.Element
	if kind == domain.KindTask {
		status := domain.StatusOpen
		if body.Status != "" {
			status, err = domain.ParseStatus(body.Status)
			if err != nil {
				writeDomainError(w, err)
				return
			}
		}
		el = domain.NewTask(body.Title, status)
	} else {
		el = domain.NewElement(kind, body.Title)
	}
	el.CreatedBy = body.Actor

	if err := s.service.CreateElement(r.Context(), el); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

func (s *Server) getElement(w http.ResponseWriter, r *http.Request) {
	el, err := s.service.GetElement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// UpdateStatusRequest is the PATCH /api/elements/{id}/status body.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor,omitempty"`
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.service.UpdateStatus(r.Context(), id, status, body.Actor); err != nil {
		writeDomainError(w, err)
		return
	}

	el, err := s.service.GetElement(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// DependencyRequest is the body of POST and DELETE /api/dependencies.
type DependencyRequest struct {
	BlockerID string         `json:"blocker_id"`
	BlockedID string         `json:"blocked_id"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Actor     string         `json:"actor,omitempty"`
}

func (s *Server) addDependency(w http.ResponseWriter, r *http.Request) {
	var body DependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dep, err := s.service.AddDependency(r.Context(), graphstore.AddDependencyInput{
		BlockerID: body.BlockerID,
		BlockedID: body.BlockedID,
		Type:      domain.DependencyType(body.Type),
		Metadata:  body.Metadata,
		Actor:     body.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (s *Server) removeDependency(w http.ResponseWriter, r *http.Request) {
	var body DependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := domain.ParseDependencyType(body.Type)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.service.RemoveDependency(r.Context(), body.BlockedID, body.BlockerID, t, body.Actor); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.Reconcile(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	el, err := s.service.GetElement(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) listDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := s.service.Dependencies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func (s *Server) readyTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.Ready(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) blockedTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.Blocked(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrElementNotFound), errors.Is(err, domain.ErrDependencyNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrStatusComputed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
