package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/pubship/internal/cliconfig"
	"github.com/bft-labs/pubship/internal/ports"
)

const (
	maxTriggerBody  = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// RunFunc runs one pull invocation.
type RunFunc func(ctx context.Context, cfg cliconfig.Config) error

// triggerRequest carries per-invocation overrides. Keys match the
// function environment variable names.
type triggerRequest struct {
	ProjectID      string `json:"PROJECT_ID"`
	SubscriptionID string `json:"SUBSCRIPTION_ID"`
	DataType       string `json:"CHRONICLE_DATA_TYPE"`
}

// Server exposes the pull loop as an HTTP-triggered function.
// Invocations are serialized.
type Server struct {
	config   func() cliconfig.Config
	run      RunFunc
	gatherer prometheus.Gatherer
	logger   ports.Logger

	mu sync.Mutex
}

// NewServer creates a server. config is read at the start of every
// invocation so reloaded configuration takes effect on the next trigger.
func NewServer(config func() cliconfig.Config, run RunFunc, gatherer prometheus.Gatherer, logger ports.Logger) *Server {
	return &Server{
		config:   config,
		run:      run,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Handler returns the HTTP routes: the trigger on "/", "/metrics" and
// "/healthz".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleTrigger)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", ports.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.config()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var req triggerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.ProjectID != "" {
			cfg.ProjectID = req.ProjectID
		}
		if req.SubscriptionID != "" {
			cfg.SubscriptionID = req.SubscriptionID
		}
		if req.DataType != "" {
			cfg.DataType = req.DataType
		}
		if err := cfg.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	err = s.run(r.Context(), cfg)
	s.mu.Unlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}
