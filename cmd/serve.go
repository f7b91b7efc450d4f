package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vc-research-engine/internal/agent"
	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/orchestrator"
	"github.com/sells-group/vc-research-engine/internal/progress"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initResearch(cfg)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("port") && cfg.Server.Port > 0 {
			servePort = cfg.Server.Port
		}

		srv := &server{
			research: env.Orchestrator,
			apiKey:   cfg.Server.APIKey,
			answer: func(ctx context.Context, question string, rep *model.CompositeReport) (*agent.ChatAnswer, error) {
				return agent.Answer(ctx, env.AI, cfg.Anthropic.SonnetModel, question, rep)
			},
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("server listening", zap.Int("port", servePort))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		zap.L().Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	},
}

// researcher is the slice of the orchestrator the HTTP handlers need.
type researcher interface {
	Run(ctx context.Context, company string, params model.RunParams) (*model.CompositeReport, error)
	RunStream(ctx context.Context, company string, params model.RunParams, stream *progress.Stream) (*model.CompositeReport, error)
}

type server struct {
	research researcher
	answer   func(ctx context.Context, question string, rep *model.CompositeReport) (*agent.ChatAnswer, error)
	apiKey   string
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/research", s.handleResearch)
		r.Post("/research/stream", s.handleResearchStream)
		r.Post("/ask", s.handleAsk)
	})

	return r
}

// requireAPIKey gates the research endpoints when an API key is configured.
func (s *server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("X-API-Key")
		if got == "" {
			writeError(w, http.StatusUnauthorized, "missing API key")
			return
		}
		if got != s.apiKey {
			writeError(w, http.StatusForbidden, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type researchRequest struct {
	Company    string   `json:"company"`
	Depth      string   `json:"depth,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

type researchResponse struct {
	Report *model.CompositeReport `json:"report,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func (s *server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := model.RunParams{Depth: model.Depth(req.Depth), FocusAreas: req.FocusAreas}
	rep, err := s.research.Run(r.Context(), req.Company, params)
	if err != nil {
		writeJSON(w, runErrorStatus(err), researchResponse{Report: rep, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, researchResponse{Report: rep})
}

// streamLine is one NDJSON line of a streaming research run. The report
// rides along on the terminal event's line.
type streamLine struct {
	Event  progress.Event         `json:"event"`
	Report *model.CompositeReport `json:"report,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func (s *server) handleResearchStream(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	params := model.RunParams{Depth: model.Depth(req.Depth), FocusAreas: req.FocusAreas}
	stream := progress.NewStream(0)

	type runOutcome struct {
		rep *model.CompositeReport
		err error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		rep, err := s.research.RunStream(r.Context(), req.Company, params, stream)
		outcome <- runOutcome{rep, err}
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	for ev := range stream.Events() {
		line := streamLine{Event: ev}
		if ev.Terminal() {
			// RunStream returns right after emitting the terminal event.
			out := <-outcome
			line.Report = out.rep
			if out.err != nil {
				line.Error = out.err.Error()
			}
		}
		if err := enc.Encode(line); err != nil {
			zap.L().Warn("stream write failed", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

type askRequest struct {
	Question string                 `json:"question"`
	Report   *model.CompositeReport `json:"report,omitempty"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Report == nil {
		writeError(w, http.StatusBadRequest, "report is required")
		return
	}

	answer, err := s.answer(r.Context(), req.Question, req.Report)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// runErrorStatus maps terminal run errors to HTTP statuses. Anything not
// recognized is a bad request: the orchestrator rejects invalid parameters
// before dispatching any work.
func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrRunTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, orchestrator.ErrRejected):
		return http.StatusInternalServerError
	case errors.Is(err, orchestrator.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response write failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
