package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/model"
)

type watchlistRequest struct {
	ExternalID string  `json:"externalId"`
	Note       *string `json:"note,omitempty"`
}

type watchedRequest struct {
	ExternalID string  `json:"externalId"`
	Rating     int     `json:"rating"`
	Note       *string `json:"note,omitempty"`
}

type batchRequest struct {
	Entries       []watchedRequest `json:"entries"`
	Transactional bool             `json:"transactional"`
}

type preferencesRequest struct {
	Updates []model.PreferenceUpdate `json:"updates"`
}

// --- Watchlist ---

func (s *Server) addToWatchlist(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req watchlistRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.tracker.AddToWatchlist(r.Context(), uid, req.ExternalID, req.Note)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.AlreadyPresent {
		status = http.StatusOK
	}
	respondJSON(w, status, res)
}

func (s *Server) removeFromWatchlist(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.tracker.RemoveFromWatchlist(r.Context(), uid, mux.Vars(r)["externalID"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) watchlist(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	items, err := s.tracker.Watchlist(r.Context(), uid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

// --- Watched ---

func (s *Server) markWatched(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req watchedRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.tracker.MarkWatched(r.Context(), uid, model.BatchEntry{
		ExternalID: req.ExternalID,
		Rating:     req.Rating,
		Note:       req.Note,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) markWatchedBatch(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	entries := make([]model.BatchEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, model.BatchEntry{ExternalID: e.ExternalID, Rating: e.Rating, Note: e.Note})
	}
	results, err := s.tracker.MarkWatchedBatch(r.Context(), uid, entries, req.Transactional)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) watchedMovies(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	minRating := 0
	if raw := r.URL.Query().Get("minRating"); raw != "" {
		minRating, err = strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, r, errs.ErrValidation)
			return
		}
	}
	items, err := s.tracker.WatchedMovies(r.Context(), uid, minRating)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if items == nil {
		items = []model.WatchedItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

// --- Preferences ---

func (s *Server) setPreferences(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req preferencesRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.prefs.Set(r.Context(), uid, req.Updates); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	entries, err := s.prefs.Get(r.Context(), uid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.PreferenceEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) removePreferenceItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	item := r.URL.Query().Get("item")
	res, err := s.prefs.RemoveItem(r.Context(), uid, mux.Vars(r)["key"], item)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// --- Catalog ---

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	var year *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, r, errs.ErrValidation)
			return
		}
		year = &y
	}
	out, err := s.catalog.Search(r.Context(), title, year)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if out == nil {
		out = []model.MediaRecord{}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) refreshMedia(w http.ResponseWriter, r *http.Request) {
	rec, err := s.catalog.Refresh(r.Context(), mux.Vars(r)["externalID"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
