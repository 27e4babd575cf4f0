// Package httpserver exposes the reelist HTTP API handlers.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	tracker service.TrackerService
	prefs   service.PreferenceService
	catalog service.CatalogService
	log     *zap.Logger
}

// New constructs an HTTP server with injected services.
func New(
	tracker service.TrackerService,
	prefs service.PreferenceService,
	catalog service.CatalogService,
	log *zap.Logger,
) *Server {
	return &Server{tracker: tracker, prefs: prefs, catalog: catalog, log: log}
}

// Router builds the full route table with logging and panic recovery applied.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(Recover(s.log), Logging(s.log))

	api := r.PathPrefix("/api/v1").Subrouter()

	users := api.PathPrefix("/users/{userID}").Subrouter()
	users.HandleFunc("/watchlist", s.addToWatchlist).Methods(http.MethodPost)
	users.HandleFunc("/watchlist", s.watchlist).Methods(http.MethodGet)
	users.HandleFunc("/watchlist/{externalID}", s.removeFromWatchlist).Methods(http.MethodDelete)
	users.HandleFunc("/watched", s.markWatched).Methods(http.MethodPost)
	users.HandleFunc("/watched", s.watchedMovies).Methods(http.MethodGet)
	users.HandleFunc("/watched/batch", s.markWatchedBatch).Methods(http.MethodPost)
	users.HandleFunc("/preferences", s.setPreferences).Methods(http.MethodPut)
	users.HandleFunc("/preferences", s.getPreferences).Methods(http.MethodGet)
	users.HandleFunc("/preferences/{key}/items", s.removePreferenceItem).Methods(http.MethodDelete)

	api.HandleFunc("/search", s.search).Methods(http.MethodGet)
	api.HandleFunc("/media/{externalID}/refresh", s.refreshMedia).Methods(http.MethodPost)

	return r
}

// userID extracts and parses the {userID} path variable.
func userID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(mux.Vars(r)["userID"])
	if err != nil {
		return uuid.Nil, errs.ErrValidation
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.ErrValidation
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps service sentinels onto HTTP statuses. Unknown errors are
// reported as opaque 500s; details stay in the logs.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrUnreleased), errors.Is(err, errs.ErrNotListValued):
		status = http.StatusUnprocessableEntity
	default:
		s.log.Error("handler", zap.String("path", r.URL.Path), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
