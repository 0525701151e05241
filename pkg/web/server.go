// Package web serves the latest resolution over HTTP so it can be inspected
// while watch mode keeps it current.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/sloanyang/gyp/pkg/logging"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/pubsub"
	"github.com/sloanyang/gyp/pkg/resolve"
	"github.com/sloanyang/gyp/pkg/value"
)

// Status is the body of /api/status
type Status struct {
	State   string   `json:"state"` // "resolving", "resolved", "failed" or "idle"
	RunID   string   `json:"runId,omitempty"`
	Targets int      `json:"targets"`
	Units   int      `json:"units"`
	Files   []string `json:"files"`
	Error   string   `json:"error,omitempty"`
	Updated string   `json:"updated,omitempty"`
}

// TargetView is one resolved target as served by /api/targets/{name}
type TargetView struct {
	Name       string     `json:"name"`
	Unit       string     `json:"unit"`
	Type       string     `json:"type,omitempty"`
	Dependents []string   `json:"dependents"`
	Record     *value.Map `json:"record"`
}

// Server represents the web server
type Server struct {
	router *mux.Router
	broker *pubsub.Broker
	log    *slog.Logger

	mu     sync.RWMutex
	result *resolve.Result
	status Status
}

// NewServer creates a new web server with no resolution loaded yet
func NewServer() *Server {
	broker := pubsub.NewBroker()
	// late subscribers only need the current state
	broker.ConfigureTopic(pubsub.TopicResolution, pubsub.TopicConfig{BufferSize: 1})

	s := &Server{
		router: mux.NewRouter(),
		broker: broker,
		log:    logging.New("web"),
		status: Status{State: "idle", Files: []string{}},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// qualified names contain "..", keep them as written
	s.router.SkipClean(true)
	s.router.Use(logging.Middleware(s.servedRunID))

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/subscribe/resolution", s.handleSubscribe).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/order", s.handleOrder).Methods(http.MethodGet)
	api.HandleFunc("/units", s.handleUnits).Methods(http.MethodGet)
	api.HandleFunc("/graph", s.handleGraph).Methods(http.MethodGet)
	api.HandleFunc("/graph/units", s.handleUnitGraph).Methods(http.MethodGet)
	api.HandleFunc("/targets", s.handleTargets).Methods(http.MethodGet)
	api.HandleFunc("/targets/{name:.+}", s.handleTarget).Methods(http.MethodGet)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// SetResolving marks a run as started
func (s *Server) SetResolving(runID string) {
	s.mu.Lock()
	s.status.State = pubsub.EventResolving
	s.status.RunID = runID
	s.status.Error = ""
	status := s.status
	s.mu.Unlock()

	s.publish(pubsub.EventResolving, status, "resolving")
}

// SetResult stores a successful resolution
func (s *Server) SetResult(res *resolve.Result) {
	s.mu.Lock()
	s.result = res
	s.status = Status{
		State:   pubsub.EventResolved,
		RunID:   res.RunID,
		Targets: res.Targets.Len(),
		Units:   len(res.Units),
		Files:   res.Files,
		Updated: time.Now().Format(time.RFC3339),
	}
	status := s.status
	s.mu.Unlock()

	s.publish(pubsub.EventResolved, status, fmt.Sprintf("resolved %d targets", status.Targets))
}

// SetError records a failed run. The previous result stays served.
func (s *Server) SetError(runID string, err error) {
	s.mu.Lock()
	s.status.State = pubsub.EventFailed
	s.status.RunID = runID
	s.status.Error = err.Error()
	if files := resolve.FilesOf(nil, err); files != nil {
		s.status.Files = files
	}
	s.status.Updated = time.Now().Format(time.RFC3339)
	status := s.status
	s.mu.Unlock()

	s.publish(pubsub.EventFailed, status, "resolution failed")
}

func (s *Server) publish(eventType string, status Status, message string) {
	payload := pubsub.ResolutionStatus{
		RunID:   status.RunID,
		Message: message,
		Targets: status.Targets,
		Units:   status.Units,
		Files:   status.Files,
		Error:   status.Error,
	}
	if err := s.broker.Publish(pubsub.TopicResolution, eventType, payload); err != nil {
		s.log.Warn("failed to publish resolution event", "type", eventType, "error", err)
	}
}

func (s *Server) current() (*resolve.Result, Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.status
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// requireResult writes 503 and returns nil while nothing has resolved yet
func (s *Server) requireResult(w http.ResponseWriter) *resolve.Result {
	res, _ := s.current()
	if res == nil {
		http.Error(w, "no resolution available", http.StatusServiceUnavailable)
	}
	return res
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, status := s.current()
	writeJSON(w, status)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if res := s.requireResult(w); res != nil {
		writeJSON(w, res.Order)
	}
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	res := s.requireResult(w)
	if res == nil {
		return
	}
	units := value.NewMap()
	for _, u := range res.Units {
		units.Set(u.Path, u.Data)
	}
	writeJSON(w, units)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if res := s.requireResult(w); res != nil {
		writeJSON(w, model.ExportGraph(res.Targets))
	}
}

func (s *Server) handleUnitGraph(w http.ResponseWriter, r *http.Request) {
	if res := s.requireResult(w); res != nil {
		writeJSON(w, model.UnitDependencies(res.Targets))
	}
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	res := s.requireResult(w)
	if res == nil {
		return
	}
	targets := value.NewMap()
	for _, ref := range res.Order {
		if t, ok := res.Targets.Get(ref); ok {
			targets.Set(ref, t.Record)
		}
	}
	writeJSON(w, targets)
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	res := s.requireResult(w)
	if res == nil {
		return
	}

	name := mux.Vars(r)["name"]
	t, ok := res.Targets.Get(name)
	if !ok {
		http.Error(w, fmt.Sprintf("target not found: %s", name), http.StatusNotFound)
		return
	}

	view := TargetView{
		Name:       t.Name,
		Unit:       t.Unit,
		Type:       string(t.Type()),
		Dependents: []string{},
		Record:     t.Record,
	}
	if node, ok := res.Graph.Node(name); ok {
		for _, d := range node.Dependents {
			view.Dependents = append(view.Dependents, d.Ref)
		}
	}
	writeJSON(w, view)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.broker.Subscribe(r.Context(), pubsub.TopicResolution)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// initial comment establishes the stream (Safari)
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			s.log.Debug("subscriber went away", "error", err)
			return
		}
		flusher.Flush()
	}
}

// servedRunID is the run id of the result the API currently serves
func (s *Server) servedRunID() string {
	res, _ := s.current()
	if res == nil {
		return ""
	}
	return res.RunID
}

// Start serves on port until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("server shutdown", "error", err)
		}
	}()

	s.log.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on port %d: %w", port, err)
	}
	return nil
}
