package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hsdfat8/pgw-gw/pkg/logger"
	"github.com/hsdfat8/pgw-gw/pkg/metrics"
)

const httpShutdownTimeout = 2 * time.Second

// httpLoop runs the admin plane. Listener setup failure is fatal to
// the whole server: running is cleared so the coordinator observes
// the cascade.
func (s *Server) httpLoop() {
	defer s.wg.Done()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/check_subscriber", s.handleCheckSubscriber)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.HTTPPort)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		logger.Log.Errorw("HTTP server failed to start", "addr", addr, "error", err)
		s.running.Store(false)
		return
	}

	srv := &http.Server{Handler: mux}
	s.httpMu.Lock()
	s.httpSrv = srv
	s.httpMu.Unlock()

	s.httpAddr.Store(ln.Addr().String())
	logger.Log.Infow("HTTP server listening", "addr", ln.Addr().String())

	// A shutdown may have raced past before the listener existed;
	// close now so Serve returns immediately instead of never being
	// told to stop.
	if !s.running.Load() {
		srv.Close()
	}

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		logger.Log.Errorw("HTTP server failed", "error", err)
		s.running.Store(false)
		return
	}
	logger.Log.Infow("HTTP server stopped listening")
}

// shutdownHTTP asks the admin plane to stop accepting and waits a
// bounded time for in-flight handlers. Safe to call more than once
// and from the drain goroutine; never called from inside a handler.
func (s *Server) shutdownHTTP() {
	s.httpMu.Lock()
	srv := s.httpSrv
	s.httpMu.Unlock()
	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Warnw("HTTP shutdown", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleCheckSubscriber(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	imsi := r.URL.Query().Get("imsi")
	if imsi == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "missing imsi param")
		return
	}

	if s.table.Contains(imsi) {
		fmt.Fprint(w, "active")
	} else {
		fmt.Fprint(w, "not active")
	}
}

// handleStop starts a graceful drain and replies immediately; the
// drain goroutine stops the HTTP plane once the table is empty.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprint(w, "method not allowed")
		return
	}

	rate := s.cfg.GracefulShutdownRate
	if raw := r.URL.Query().Get("rate"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			rate = n
		}
	}

	logger.Log.Infow("HTTP /stop called", "rate", rate)
	if !s.StartOffload(rate) {
		fmt.Fprint(w, "already offloading")
		return
	}
	fmt.Fprint(w, "offload_started")
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	snap := s.StatsSnapshot()
	fmt.Fprintf(w, "packets_received: %d\n", snap.PacketsReceived)
	fmt.Fprintf(w, "sessions_created: %d\n", snap.SessionsCreated)
	fmt.Fprintf(w, "sessions_refreshed: %d\n", snap.SessionsRefreshed)
	fmt.Fprintf(w, "packets_rejected: %d\n", snap.PacketsRejected)
	fmt.Fprintf(w, "decode_errors: %d\n", snap.DecodeErrors)
	fmt.Fprintf(w, "sessions_expired: %d\n", snap.SessionsExpired)
	fmt.Fprintf(w, "sessions_offloaded: %d\n", snap.SessionsOffloaded)
	fmt.Fprintf(w, "send_errors: %d\n", snap.SendErrors)
	fmt.Fprintf(w, "active_sessions: %d\n", snap.ActiveSessions)
	fmt.Fprint(w, metrics.FormatMetrics("Session", s.metrics))
}
