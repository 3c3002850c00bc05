// Package apitest provides an in-memory dashboard API for tests and the mock
// server binary.
package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/mmcdole/perch/internal/api"
	"github.com/mmcdole/perch/internal/domain"
)

// Server is a fake dashboard API backed by a map.
type Server struct {
	router *mux.Router
	token  string

	mu        sync.Mutex
	name      string
	updatedAt int64
	entries   map[string]api.EntryDTO
	failing   bool
	requests  int
	now       func() time.Time
}

// NewServer builds the fake API. An empty token disables auth checks.
func NewServer(token string) *Server {
	s := &Server{
		token:   token,
		name:    "perch",
		entries: make(map[string]api.EntryDTO),
		now:     time.Now,
	}
	s.updatedAt = s.now().Unix()

	r := mux.NewRouter()
	r.Use(s.countRequests, s.failWhenForced, s.requireToken)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/board", s.handleBoard).Methods(http.MethodGet)
	r.HandleFunc("/api/entries", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/entries/{id}", s.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/api/entries/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed replaces the board contents.
func (s *Server) Seed(entries ...domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]api.EntryDTO, len(entries))
	for _, e := range entries {
		s.entries[e.ID] = api.ToDTO(e)
	}
	s.bumpLocked()
}

// Entries returns the current board contents ordered by ID.
func (s *Server) Entries() []domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.MapEntries(s.sortedLocked())
}

// SetFailing makes every request return 503 until cleared.
func (s *Server) SetFailing(failing bool) {
	s.mu.Lock()
	s.failing = failing
	s.mu.Unlock()
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// UpdatedAt returns the board timestamp.
func (s *Server) UpdatedAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// bumpLocked advances updatedAt so that every write is observable even
// within the same second.
func (s *Server) bumpLocked() {
	ts := s.now().Unix()
	if ts <= s.updatedAt {
		ts = s.updatedAt + 1
	}
	s.updatedAt = ts
}

func (s *Server) sortedLocked() []api.EntryDTO {
	items := make([]api.EntryDTO, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) failWhenForced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failing := s.failing
		s.mu.Unlock()
		if failing {
			writeError(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got != s.token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBoard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := api.BoardResponse{Name: s.name, UpdatedAt: s.updatedAt}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := api.EntryListResponse{Items: s.sortedLocked()}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var dto api.EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if dto.ID != "" && dto.ID != id {
		writeError(w, http.StatusBadRequest, "id mismatch")
		return
	}
	if strings.TrimSpace(dto.Title) == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	dto.ID = id

	s.mu.Lock()
	s.bumpLocked()
	dto.UpdatedAt = s.updatedAt
	s.entries[id] = dto
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
		s.bumpLocked()
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}
