// Package api serves the job-control REST surface: submit, inspect,
// and cancel executor jobs, plus the read-only status report. Every
// route requires a bearer credential and every response carries a
// correlation id.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/confirm"
	"github.com/ppiankov/clawgate/internal/diag"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/model"
)

// Config holds the listener parameters.
type Config struct {
	Host  string
	Port  int
	Token string
}

// Server is the jobs/status HTTP listener.
type Server struct {
	cfg      Config
	queue    *jobqueue.Queue
	confirms *confirm.Manager
	counters *blockcount.Counters
	statusFn func(ctx context.Context, probe bool) *diag.Report
	srv      *http.Server
}

// NewServer builds the API server. statusFn may be nil; /status then
// returns an empty report. confirms may be nil; /confirm then rejects.
// counters may be nil; auth refusals then go uncounted.
func NewServer(cfg Config, queue *jobqueue.Queue, confirms *confirm.Manager, counters *blockcount.Counters, statusFn func(ctx context.Context, probe bool) *diag.Report) *Server {
	s := &Server{cfg: cfg, queue: queue, confirms: confirms, counters: counters, statusFn: statusFn}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.withAuth(s.handleSubmit))
	mux.HandleFunc("GET /jobs/{id}", s.withAuth(s.handleGet))
	mux.HandleFunc("POST /jobs/{id}/cancel", s.withAuth(s.handleCancel))
	mux.HandleFunc("POST /confirm", s.withAuth(s.handleConfirm))
	mux.HandleFunc("GET /status", s.withAuth(s.handleStatus))

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "api: listening on %s\n", s.srv.Addr)
	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// withAuth wraps a handler with bearer authentication and correlation
// id bookkeeping.
func (s *Server) withAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceID := strings.TrimSpace(r.Header.Get("X-Trace-Id"))
		if traceID == "" {
			traceID = ident.NewCorrelationID()
		}
		w.Header().Set("X-Trace-Id", traceID)

		if s.cfg.Token == "" {
			writeError(w, http.StatusServiceUnavailable, traceID,
				model.CodeAuthNotConfigured, "api token is not configured server-side")
			return
		}

		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			s.countUnauthorized()
			writeError(w, http.StatusUnauthorized, traceID,
				model.CodeAuthFailed, "missing or malformed Authorization header")
			return
		}
		presented := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.cfg.Token)) != 1 {
			s.countUnauthorized()
			writeError(w, http.StatusForbidden, traceID,
				model.CodeAuthFailed, "invalid bearer token")
			return
		}

		next(w, r, traceID)
	}
}

func (s *Server) countUnauthorized() {
	if s.counters != nil {
		s.counters.Inc(blockcount.Unauthorized)
	}
}

type submitRequest struct {
	Executor        string `json:"executor"`
	Task            string `json:"task"`
	Cwd             string `json:"cwd"`
	PermissionLevel string `json:"permission_level"`
	AllowDanger     bool   `json:"allow_danger"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, traceID string) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, traceID,
			model.CodeInternalError, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	job, err := s.queue.Submit(r.Context(), jobqueue.SubmitSpec{
		Executor:        body.Executor,
		Task:            body.Task,
		Cwd:             body.Cwd,
		PermissionLevel: body.PermissionLevel,
		AllowDanger:     body.AllowDanger,
		CorrelationID:   traceID,
	})
	if err != nil {
		writeQueueError(w, traceID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"trace_id": traceID,
		"job_id":   job.JobID,
		"state":    job.State,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, traceID string) {
	job, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeQueueError(w, traceID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "trace_id": traceID, "job": job})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, traceID string) {
	job, err := s.queue.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeQueueError(w, traceID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "trace_id": traceID, "job": job})
}

type confirmRequest struct {
	Token string `json:"token"`
	Scope string `json:"scope"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, traceID string) {
	var body confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, traceID,
			model.CodeInternalError, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if s.confirms == nil {
		writeError(w, http.StatusServiceUnavailable, traceID,
			model.CodeConfirmRejected, "confirmation workflow is not enabled")
		return
	}

	until, err := s.confirms.Confirm(body.Token, body.Scope)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, confirm.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, traceID, model.CodeConfirmRejected, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"trace_id":       traceID,
		"scope":          body.Scope,
		"approved_until": until.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, traceID string) {
	probe := r.URL.Query().Get("probe") == "1"
	var report *diag.Report
	if s.statusFn != nil {
		report = s.statusFn(r.Context(), probe)
	} else {
		report = &diag.Report{Service: "clawgate"}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "trace_id": traceID, "status": report})
}

// writeQueueError maps stable queue error codes to HTTP statuses.
func writeQueueError(w http.ResponseWriter, traceID string, err error) {
	var qe *jobqueue.Error
	if !errors.As(err, &qe) {
		writeError(w, http.StatusInternalServerError, traceID, model.CodeInternalError, err.Error())
		return
	}

	status := http.StatusBadRequest
	switch qe.Code {
	case model.CodePermissionDeny:
		status = http.StatusForbidden
	case model.CodeJobNotFound:
		status = http.StatusNotFound
	case model.CodeExecutorNotAvailable, model.CodeQueueFull:
		status = http.StatusServiceUnavailable
	case model.CodeInternalError:
		status = http.StatusInternalServerError
	}
	writeError(w, status, traceID, qe.Code, qe.Message)
}

func writeError(w http.ResponseWriter, status int, traceID, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok":         false,
		"trace_id":   traceID,
		"error_code": code,
		"error":      message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
