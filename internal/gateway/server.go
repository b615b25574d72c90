// Package gateway exposes the ledger operations over HTTP.
//
// Routes:
//
//	POST /v1/transactions/{function}  submit (commits, publishes the event)
//	POST /v1/queries/{function}       evaluate (never commits)
//	GET  /v1/functions                registered operations
//	GET  /healthz                     liveness
//
// The request body is the operation's JSON argument object. Callers
// authenticate with an HS256 bearer token whose claims name the caller's
// organization, full identity string and attributes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/ledger"
)

// MaxBodyBytes bounds the argument object of one request.
const MaxBodyBytes = 1 << 20

// Response is the body of every gateway reply.
type Response struct {
	Status    string        `json:"status"` // "ok" or "error"
	Data      any           `json:"data,omitempty"`
	TxID      string        `json:"tx_id,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Event     *ledger.Event `json:"event,omitempty"`
	Error     *Error        `json:"error,omitempty"`
}

// Error describes a rejected request.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Server serves the gateway routes.
type Server struct {
	router *dispatch.Router
	secret []byte
	logger *zap.Logger
}

// NewServer returns a Server verifying bearer tokens with secret.
func NewServer(router *dispatch.Router, secret []byte, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{router: router, secret: secret, logger: logger.Named("gateway")}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/functions", s.functions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{function}", s.call(s.router.Submit)).Methods(http.MethodPost)
	api.HandleFunc("/queries/{function}", s.call(s.router.Evaluate)).Methods(http.MethodPost)
	return r
}

type callFunc func(ctx context.Context, function string, caller identity.Credential, args json.RawMessage) (*engine.Result, error)

func (s *Server) call(fn callFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CredentialFrom(r.Context())
		function := mux.Vars(r)["function"]

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			s.writeError(w, r, domain.Validationf("read request body: %v", err))
			return
		}

		res, err := fn(r.Context(), function, caller, body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, Response{
			Status:    "ok",
			Data:      res.Value,
			TxID:      res.TxID,
			Timestamp: domain.FormatTime(res.Timestamp),
			Event:     res.Event,
		})
	}
}

func (s *Server) functions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{Status: "ok", Data: s.router.Functions()})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{Status: "ok", Data: dispatch.CurrentVersion()})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, status, Response{
		Status: "error",
		Error:  &Error{Code: dispatch.ErrorCode(err), Message: err.Error(), Details: dispatch.ErrorDetails(err)},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}
