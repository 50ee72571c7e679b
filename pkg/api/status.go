// Package api exposes the daemon's local HTTP surface: the last run
// report, a run trigger, and a websocket event stream.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"wg-pmtud/pkg/auth"
	"wg-pmtud/pkg/model"
	"wg-pmtud/pkg/version"
)

// Status holds the latest pass result and the trigger channel the main
// loop listens on.
type Status struct {
	mu      sync.RWMutex
	last    *model.RunReport
	trigger chan struct{}
	hub     *WSHub
}

func NewStatus() *Status {
	return &Status{trigger: make(chan struct{}, 1), hub: NewWSHub()}
}

// SetReport publishes a finished pass.
func (s *Status) SetReport(rep model.RunReport) {
	s.mu.Lock()
	s.last = &rep
	s.mu.Unlock()
	s.hub.Broadcast(WSMessage{Type: "run", Payload: rep})
}

// Trigger requests an immediate pass; coalesces when one is pending.
func (s *Status) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// TriggerC is the channel the run loop selects on.
func (s *Status) TriggerC() <-chan struct{} { return s.trigger }

// Hub exposes the event stream for mutation broadcasts.
func (s *Status) Hub() *WSHub { return s.hub }

// AuthFunc accepts either the bootstrap token (X-Auth-Token) or a Bearer
// JWT. An empty bootstrap token leaves the API open, matching a localhost
// deployment.
func AuthFunc(bootstrapToken string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if bootstrapToken == "" {
			return true
		}
		if r.Header.Get("X-Auth-Token") == bootstrapToken {
			return true
		}
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if _, err := auth.Parse(strings.TrimPrefix(h, "Bearer ")); err == nil {
				return true
			}
		}
		return false
	}
}

// RegisterRoutes wires the daemon endpoints onto mux.
func RegisterRoutes(mux *http.ServeMux, s *Status, authorized func(r *http.Request) bool) {
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.mu.RLock()
		last := s.last
		s.mu.RUnlock()
		if last == nil {
			http.Error(w, "no pass completed yet", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, last)
	})

	mux.HandleFunc("/api/v1/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.Trigger()
		log.Printf("pass triggered via api from %s", r.RemoteAddr)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
	})

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.hub.HandleSubscriber(w, r)
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version.Build})
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
