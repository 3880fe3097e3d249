// Package fakeapi is an in-process stand-in for the collaborator services,
// used by tests. It keeps campaigns in memory, issues a session cookie on
// onboarding, counts calls per path, and can fail or hold individual
// requests so tests control response status and resolution order.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"campaigner/internal/types"
)

// Paths served. Kept literal so the api package can test against this server.
const (
	PathOnboarding   = "/api/v1/auth/onboarding"
	PathGenerate     = "/api/v1/content/generate"
	PathSaveCampaign = "/api/v1/campaign/save"
	PathMyCampaigns  = "/api/v1/campaign/my"
	PathPublish      = "/api/v1/content/publish"
)

// SessionCookie is the cookie issued on onboarding.
const SessionCookie = "campaigner_session"

// Failure scripts one non-2xx response.
type Failure struct {
	Status  int
	Message string // omitted from the body when empty
}

// Gate holds one request open until released.
type Gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived is closed once the held request reached the server.
func (g *Gate) Arrived() <-chan struct{} { return g.arrived }

// Release lets the held request respond.
func (g *Gate) Release() { g.once.Do(func() { close(g.release) }) }

// PublishCall records one publish request.
type PublishCall struct {
	CampaignID string `json:"campaignId"`
	Platform   string `json:"platform"`
}

// Server is the fake.
type Server struct {
	*httptest.Server

	// RequireSession rejects non-onboarding calls without the session cookie.
	RequireSession bool
	// OmitListData answers an empty list with {} instead of {"data": []}.
	OmitListData bool
	// GenerateFunc builds the bundle for a prompt.
	GenerateFunc func(prompt string) types.ContentBundle

	mu        sync.Mutex
	calls     map[string]int
	failures  map[string][]Failure
	gates     map[string][]*Gate
	bodies    map[string][]byte
	campaigns []map[string]any
	publishes []PublishCall
	nextID    int
}

// New starts a fake server. Close it when done.
func New() *Server {
	s := &Server{
		RequireSession: true,
		GenerateFunc:   DefaultBundle,
		calls:          map[string]int{},
		failures:       map[string][]Failure{},
		gates:          map[string][]*Gate{},
		bodies:         map[string][]byte{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathOnboarding, s.handleOnboarding)
	mux.HandleFunc("POST "+PathGenerate, s.session(s.handleGenerate))
	mux.HandleFunc("POST "+PathSaveCampaign, s.session(s.handleSave))
	mux.HandleFunc("GET "+PathMyCampaigns, s.session(s.handleList))
	mux.HandleFunc("POST "+PathPublish, s.session(s.handlePublish))
	s.Server = httptest.NewServer(s.intercept(mux))
	return s
}

// DefaultBundle derives a deterministic bundle from the prompt.
func DefaultBundle(prompt string) types.ContentBundle {
	return types.ContentBundle{
		Twitter:  "Tweet: " + prompt,
		LinkedIn: "LinkedIn post: " + prompt,
		Email:    types.EmailContent{Subject: "News: " + prompt, Body: "Email body about " + prompt},
		Blog:     "# " + prompt + "\n\nBlog article.",
		ImageURL: "https://images.example/" + fmt.Sprint(len(prompt)) + ".png",
	}
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests across all paths.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailNext makes the next request on path answer with status and message.
func (s *Server) FailNext(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], Failure{Status: status, Message: message})
}

// Hold makes the next request on path wait for the returned gate.
func (s *Server) Hold(path string) *Gate {
	g := &Gate{arrived: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[path] = append(s.gates[path], g)
	return g
}

// LastBody returns the raw body of the latest request on path.
func (s *Server) LastBody(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

// CampaignCount returns how many campaigns are stored.
func (s *Server) CampaignCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.campaigns)
}

// PublishCalls returns the publish requests received, in arrival order.
func (s *Server) PublishCalls() []PublishCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PublishCall(nil), s.publishes...)
}

// SessionCookieFor returns a valid session cookie, for clients that skip onboarding.
func (s *Server) SessionCookieFor() *http.Cookie {
	return &http.Cookie{Name: SessionCookie, Value: "test-session", Path: "/"}
}

// intercept counts the call, captures the body, waits on a gate and applies
// a scripted failure before the real handler runs.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.bodies[r.URL.Path] = body
		var gate *Gate
		if q := s.gates[r.URL.Path]; len(q) > 0 {
			gate, s.gates[r.URL.Path] = q[0], q[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			close(gate.arrived)
			select {
			case <-gate.release:
			case <-r.Context().Done():
				return
			}
		}

		s.mu.Lock()
		var failure *Failure
		if q := s.failures[r.URL.Path]; len(q) > 0 {
			failure = &q[0]
			s.failures[r.URL.Path] = q[1:]
		}
		s.mu.Unlock()

		if failure != nil {
			body := map[string]any{}
			if failure.Message != "" {
				body["message"] = failure.Message
			}
			writeJSON(w, failure.Status, body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) session(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.RequireSession {
			if c, err := r.Cookie(SessionCookie); err != nil || c.Value == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authenticated"})
				return
			}
		}
		h(w, r)
	}
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var profile types.BrandProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	if profile.CompanyName == "" || len(profile.Platforms) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "companyName and platforms are required"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "session-" + profile.CompanyName, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data": map[string]any{
			"_id":         "user-1",
			"companyName": profile.CompanyName,
			"platforms":   profile.Platforms,
			"brandVoice":  profile.BrandVoice,
		},
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "prompt is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job": map[string]any{
			"status":           "completed",
			"generatedContent": s.GenerateFunc(req.Prompt),
		},
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string         `json:"title"`
		Prompt   string         `json:"prompt"`
		Content  map[string]any `json:"content"`
		ImageURL string         `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	s.nextID++
	doc := map[string]any{
		"_id":       fmt.Sprintf("cmp-%d", s.nextID),
		"title":     req.Title,
		"prompt":    req.Prompt,
		"content":   req.Content,
		"imageUrl":  req.ImageURL,
		"createdAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.campaigns = append(s.campaigns, doc)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": doc})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	docs := append([]map[string]any(nil), s.campaigns...)
	s.mu.Unlock()

	if len(docs) == 0 && s.OmitListData {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var call PublishCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	s.publishes = append(s.publishes, call)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Posted to " + call.Platform})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
