package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"posti_delivery_tracker/internal/app"
	"posti_delivery_tracker/internal/domain/schedule"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server is a thin REST adapter over the coordinator registry. It only calls
// the registry's public operations and renders the published projection; all
// temporal logic stays in the coordinators.
type Server struct {
	registry *app.CoordinatorRegistry
	logger   *logrus.Entry
	router   chi.Router
}

func NewServer(registry *app.CoordinatorRegistry, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		registry: registry,
		logger:   log.WithField("component", "httpapi"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1/schedules", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleTrack)
		r.Get("/{postalCode}", s.handleGet)
		r.Delete("/{postalCode}", s.handleUntrack)
	})
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	coordinators := s.registry.List()
	out := make([]scheduleResponse, 0, len(coordinators))
	for _, coordinator := range coordinators {
		out = append(out, projectCoordinator(coordinator))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	postalCode := chi.URLParam(r, "postalCode")
	coordinator, ok := s.registry.Coordinator(postalCode)
	if !ok {
		s.writeError(w, http.StatusNotFound, "postal code is not tracked")
		return
	}
	s.writeJSON(w, http.StatusOK, projectCoordinator(coordinator))
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PostalCode string `json:"postal_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coordinator, err := s.registry.Track(r.Context(), body.PostalCode, nil)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidPostalCode):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrDuplicatePostalCode):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.WithError(err).Error("Track request failed")
			s.writeError(w, http.StatusInternalServerError, "could not track postal code")
		}
		return
	}

	// The first fetch may still be in flight; the projection reports
	// available=false until it resolves.
	s.writeJSON(w, http.StatusAccepted, projectCoordinator(coordinator))
}

func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	s.registry.Untrack(r.Context(), chi.URLParam(r, "postalCode"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Could not encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
