// Package ollamatest provides an in-process Ollama server for tests.
package ollamatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync"

	"github.com/ollama/ollama/api"
)

// Server fakes the /api/tags, /api/ps and /api/generate endpoints.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Installed models reported by /api/tags.
	Installed []string
	// Resident models reported by /api/ps.
	Resident []string
	// Sticky models ignore unload requests.
	Sticky map[string]bool
	// Response is returned by generation requests.
	Response string
	// GenerateStatus, when non-zero, fails generation with that status.
	GenerateStatus int
	// PsStatus, when non-zero, fails /api/ps with that status.
	PsStatus int

	Prompts      []string
	Unloads      []string
	StatusCalls  int
	GenerateHits int
}

// NewServer starts a fake server with the given installed models.
func NewServer(installed ...string) *Server {
	s := &Server{Installed: installed, Sticky: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", s.handleTags)
	mux.HandleFunc("GET /api/ps", s.handlePs)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.Server = httptest.NewServer(mux)
	return s
}

// Host returns host:port of the server.
func (s *Server) Host() string {
	u, _ := url.Parse(s.URL)
	return u.Host
}

// Calls returns the number of generation requests that were not unloads.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GenerateHits
}

// SetResident replaces the resident model list.
func (s *Server) SetResident(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resident = names
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StatusCalls++

	resp := api.ListResponse{}
	for _, name := range s.Installed {
		resp.Models = append(resp.Models, api.ListModelResponse{Name: name, Model: name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PsStatus != 0 {
		writeJSON(w, s.PsStatus, map[string]string{"error": "ps unavailable"})
		return
	}
	resp := api.ProcessResponse{}
	for _, name := range s.Resident {
		resp.Models = append(resp.Models, api.ProcessModelResponse{Name: name, Model: name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Prompt == "" && req.KeepAlive != nil && req.KeepAlive.Duration == 0 {
		s.Unloads = append(s.Unloads, req.Model)
		if !s.Sticky[req.Model] {
			s.Resident = slices.DeleteFunc(s.Resident, func(n string) bool { return n == req.Model })
		}
		writeJSON(w, http.StatusOK, api.GenerateResponse{Model: req.Model, Done: true, DoneReason: "unload"})
		return
	}

	s.GenerateHits++
	s.Prompts = append(s.Prompts, req.Prompt)
	if s.GenerateStatus != 0 {
		writeJSON(w, s.GenerateStatus, map[string]string{"error": "model runner crashed"})
		return
	}
	if !slices.Contains(s.Resident, req.Model) {
		s.Resident = append(s.Resident, req.Model)
	}
	writeJSON(w, http.StatusOK, api.GenerateResponse{Model: req.Model, Response: s.Response, Done: true, DoneReason: "stop"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
