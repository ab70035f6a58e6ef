// Package facetectest provides an in-process FaceTec server for tests.
//
// Matching is exact: two scans match when their faceScan payloads are equal.
package facetectest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"bioauth/internal/facetec"
)

// MatchLevel reported for every exact match.
const MatchLevel = 15

// Server is a fake FaceTec server backed by maps.
type Server struct {
	*httptest.Server

	DeviceKey string

	mu          sync.Mutex
	enrollments map[string]string
	groups      map[string]map[string]struct{}
	calls       []string
	failures    []int
	tokens      int
	hook        func(path string)

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewServer starts a fake server. Close it with Server.Close.
func NewServer(deviceKey string) *Server {
	s := &Server{
		DeviceKey:   deviceKey,
		enrollments: make(map[string]string),
		groups:      make(map[string]map[string]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session-token", s.sessionToken)
	mux.HandleFunc("POST /enrollment-3d", s.enrollment3D)
	mux.HandleFunc("POST /3d-db/search", s.dbSearch)
	mux.HandleFunc("POST /3d-db/enroll", s.dbEnroll)
	s.Server = httptest.NewServer(s.wrap(mux))
	return s
}

// FailNext makes the next request answer with status before any processing.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, status)
}

// OnRequest installs a hook run at the start of every request, outside the server lock.
func (s *Server) OnRequest(fn func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Calls returns the request paths in arrival order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// MaxInFlight is the highest number of concurrently handled requests seen.
func (s *Server) MaxInFlight() int {
	return int(s.maxInFlight.Load())
}

// Enrolled reports whether ref is a member of group.
func (s *Server) Enrolled(group, ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[group][ref]
	return ok
}

func (s *Server) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		for {
			cur := s.maxInFlight.Load()
			if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}

		s.mu.Lock()
		s.calls = append(s.calls, r.URL.Path)
		hook := s.hook
		var fail int
		if len(s.failures) > 0 {
			fail = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if hook != nil {
			hook(r.URL.Path)
		}
		if fail != 0 {
			w.WriteHeader(fail)
			return
		}
		if s.DeviceKey != "" && r.Header.Get("X-Device-Key") != s.DeviceKey {
			writeJSON(w, facetec.ResponseBase{Error: true, ErrorMessage: "invalid X-Device-Key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionToken(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.tokens++
	token := fmt.Sprintf("session-%d", s.tokens)
	s.mu.Unlock()
	writeJSON(w, facetec.SessionTokenResponse{
		ResponseBase: facetec.ResponseBase{Success: true},
		SessionToken: token,
	})
}

func (s *Server) enrollment3D(w http.ResponseWriter, r *http.Request) {
	var req facetec.Enrollment3DRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.enrollments[req.ExternalDatabaseRefID]; exists {
		writeJSON(w, facetec.ResponseBase{Error: true, ErrorMessage: facetec.DuplicateExternalRefMessage})
		return
	}
	if req.FaceScan.FaceScan == "" {
		writeJSON(w, facetec.Enrollment3DResponse{
			ResponseBase: facetec.ResponseBase{
				WasProcessed: true,
				CallData:     &facetec.CallData{TID: "tid-" + req.ExternalDatabaseRefID},
			},
			FaceScanSecurityChecks: &facetec.FaceScanSecurityChecks{
				AuditTrailVerificationCheckSucceeded: true,
				ReplayCheckSucceeded:                 true,
				SessionTokenCheckSucceeded:           true,
			},
		})
		return
	}
	s.enrollments[req.ExternalDatabaseRefID] = req.FaceScan.FaceScan
	writeJSON(w, facetec.Enrollment3DResponse{
		ResponseBase:          facetec.ResponseBase{Success: true, WasProcessed: true},
		ExternalDatabaseRefID: req.ExternalDatabaseRefID,
	})
}

func (s *Server) dbSearch(w http.ResponseWriter, r *http.Request) {
	var req facetec.DBSearchRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.enrollments[req.ExternalDatabaseRefID]
	if !ok {
		writeJSON(w, facetec.ResponseBase{Error: true, ErrorMessage: "no enrollment for externalDatabaseRefID"})
		return
	}
	results := []facetec.DBSearchResult{}
	if MatchLevel >= req.MinMatchLevel {
		for ref := range s.groups[req.GroupName] {
			if ref != req.ExternalDatabaseRefID && s.enrollments[ref] == scan {
				results = append(results, facetec.DBSearchResult{Identifier: ref, MatchLevel: MatchLevel})
			}
		}
	}
	writeJSON(w, facetec.DBSearchResponse{
		ResponseBase: facetec.ResponseBase{Success: true, WasProcessed: true},
		Results:      results,
	})
}

func (s *Server) dbEnroll(w http.ResponseWriter, r *http.Request) {
	var req facetec.DBEnrollRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[req.ExternalDatabaseRefID]; !ok {
		writeJSON(w, facetec.ResponseBase{Error: true, ErrorMessage: "no enrollment for externalDatabaseRefID"})
		return
	}
	group, ok := s.groups[req.GroupName]
	if !ok {
		group = make(map[string]struct{})
		s.groups[req.GroupName] = group
	}
	group[req.ExternalDatabaseRefID] = struct{}{}
	writeJSON(w, facetec.ResponseBase{Success: true, WasProcessed: true})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
