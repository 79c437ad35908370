package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/contriblog/internal/address"
	"github.com/roach88/contriblog/internal/codec"
	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/program"
)

// Server is the read-only HTTP view of a ledger.
type Server struct {
	ledger   *ledger.Ledger
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	srv      *http.Server

	mu  sync.Mutex
	lis net.Listener
}

// New builds a Server. gatherer may be nil, in which case /metrics is not
// mounted.
func New(l *ledger.Ledger, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{ledger: l, gatherer: gatherer, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/v1/healthz", s.handleHealth)
	r.Get("/v1/address", s.handleAddress)
	r.Get("/v1/log", s.handleLog)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", s.refreshMetrics(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.srv = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Addr returns the bound listener address once ListenAndServe has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()
	s.logger.Info("http view listening", "addr", l.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
		)
	})
}

// refreshMetrics re-reads the log before each scrape so the log gauges
// follow writes made by other processes.
func (s *Server) refreshMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.ledger.RefreshMetrics(r.Context()); err != nil {
			s.logger.Warn("refresh log metrics", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type addressResponse struct {
	ProgramID ir.Pubkey `json:"program_id"`
	Address   ir.Pubkey `json:"address"`
	Bump      uint8     `json:"bump"`
	Seed      string    `json:"seed"`
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.Address()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DERIVATION_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, addressResponse{
		ProgramID: s.ledger.ProgramID(),
		Address:   d.Address,
		Bump:      d.Bump,
		Seed:      address.LogStateSeed,
	})
}

// LogResponse is the body of GET /v1/log.
type LogResponse struct {
	Address       ir.Pubkey               `json:"address"`
	Authority     ir.Pubkey               `json:"authority"`
	Count         int                     `json:"count"`
	Space         int                     `json:"space"`
	Lamports      uint64                  `json:"lamports"`
	Digest        string                  `json:"digest"`
	Contributions []ir.ContributionRecord `json:"contributions"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	addr, acct, err := s.ledger.Slot(r.Context())
	if err != nil {
		var perr *program.Error
		switch {
		case errors.As(err, &perr) && perr.Code == program.ErrCodeNotInitialized:
			writeError(w, http.StatusNotFound, string(perr.Code), perr.Message)
		case errors.As(err, &perr):
			writeError(w, http.StatusInternalServerError, string(perr.Code), perr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		}
		return
	}

	state, n, err := codec.DecodeState(acct.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(program.ErrCodeCorruptLayout), err.Error())
		return
	}
	contributions := state.Contributions
	if contributions == nil {
		contributions = []ir.ContributionRecord{}
	}
	writeJSON(w, http.StatusOK, LogResponse{
		Address:       addr,
		Authority:     state.Authority,
		Count:         state.Len(),
		Space:         len(acct.Data),
		Lamports:      acct.Lamports,
		Digest:        ir.SlotDigest(acct.Data[:n]),
		Contributions: contributions,
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
