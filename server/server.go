package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hsdfat8/pgw-gw/bcd"
	"github.com/hsdfat8/pgw-gw/internal/config"
	"github.com/hsdfat8/pgw-gw/pkg/logger"
	"github.com/hsdfat8/pgw-gw/pkg/metrics"
)

// UDP reply texts. created and rejected share their spelling with the
// CDR action for the same packet.
const (
	replyCreated  = "created"
	replyActive   = "active"
	replyRejected = "rejected"
)

const (
	maxDatagramSize = 512
	recvTimeout     = 1 * time.Second
	sweepInterval   = 1 * time.Second
	offloadInterval = 1 * time.Second

	stopPollInterval = 200 * time.Millisecond
	stopPollAttempts = 10
)

// Server is the PGW control-plane gateway: a datagram session engine
// with an expiry sweeper, a rate-limited offload drainer and an admin
// HTTP plane, all sharing one session table.
//
// Start runs the datagram loop on the caller's goroutine and spawns
// the HTTP plane and sweeper; Stop (from a signal handler or the HTTP
// /stop path) initiates a graceful drain. Both lifecycle flags are
// atomics observed cooperatively by every loop.
type Server struct {
	cfg     *config.Config
	table   *SessionTable
	cdr     *CDRWriter
	trace   *TraceWriter
	metrics *metrics.ActionMetrics
	stats   ServerStats

	running    atomic.Bool
	offloading atomic.Bool

	httpSrv *http.Server
	httpMu  sync.Mutex

	udpAddr  atomic.Value // string
	httpAddr atomic.Value // string

	wg      sync.WaitGroup
	drainWg sync.WaitGroup
}

// ServerStats tracks server counters
type ServerStats struct {
	PacketsReceived   atomic.Uint64
	SessionsCreated   atomic.Uint64
	SessionsRefreshed atomic.Uint64
	PacketsRejected   atomic.Uint64
	DecodeErrors      atomic.Uint64
	SessionsExpired   atomic.Uint64
	SessionsOffloaded atomic.Uint64
	SendErrors        atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the server counters
type StatsSnapshot struct {
	PacketsReceived   uint64
	SessionsCreated   uint64
	SessionsRefreshed uint64
	PacketsRejected   uint64
	DecodeErrors      uint64
	SessionsExpired   uint64
	SessionsOffloaded uint64
	SendErrors        uint64
	ActiveSessions    int
}

// New creates a server from configuration. The CDR file and optional
// pcap trace are opened here; an unopenable CDR file degrades to
// logged no-op appends rather than failing construction.
func New(cfg *config.Config) *Server {
	s := &Server{
		cfg:     cfg,
		table:   NewSessionTable(cfg.Blacklist),
		cdr:     NewCDRWriter(cfg.CDRFile),
		metrics: metrics.NewActionMetrics(),
	}
	if cfg.PcapFile != "" {
		s.trace = NewTraceWriter(cfg.PcapFile)
	}
	return s
}

// Start runs the server. The HTTP plane and the optional stats
// reporter run in background goroutines; the datagram loop runs on
// the caller's goroutine and spawns the expiry sweeper. Start returns
// after every background task has been joined. A second call while
// the server is running logs a warning and returns nil.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		logger.Log.Warnw("Server already running")
		return nil
	}

	logger.Log.Infow("Starting server",
		"udp_ip", s.cfg.UDPIP,
		"udp_port", s.cfg.UDPPort,
		"http_port", s.cfg.HTTPPort)

	s.wg.Add(1)
	go s.httpLoop()

	if s.cfg.StatsIntervalSec > 0 {
		s.wg.Add(1)
		go s.statsLoop(time.Duration(s.cfg.StatsIntervalSec) * time.Second)
	}

	err := s.udpLoop()

	s.shutdownHTTP()
	s.wg.Wait()
	s.drainWg.Wait()

	logger.Log.Infow("Server stopped")
	return err
}

// Stop requests a graceful shutdown: start an offload at the
// configured rate unless one is already draining, stop the HTTP
// plane, then wait a bounded time for the drain to clear the running
// flag before forcing it. Safe to call from a signal context.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}

	logger.Log.Infow("Stop requested, initiating graceful shutdown")
	if !s.offloading.Load() {
		s.StartOffload(s.cfg.GracefulShutdownRate)
	}

	s.shutdownHTTP()

	for i := 0; i < stopPollAttempts && s.running.Load(); i++ {
		time.Sleep(stopPollInterval)
	}
	s.running.Store(false)
}

// Close releases the CDR file and the pcap trace
func (s *Server) Close() error {
	if s.trace != nil {
		if err := s.trace.Close(); err != nil {
			logger.Log.Warnw("Failed to close pcap trace", "error", err)
		}
	}
	return s.cdr.Close()
}

// IsActive reports whether an IMSI has an active session
func (s *Server) IsActive(imsi string) bool {
	return s.table.Contains(imsi)
}

// Running reports whether the server loops are live
func (s *Server) Running() bool {
	return s.running.Load()
}

// UDPAddr returns the bound datagram address, or "" before bind
func (s *Server) UDPAddr() string {
	if addr, ok := s.udpAddr.Load().(string); ok {
		return addr
	}
	return ""
}

// HTTPAddr returns the bound admin address, or "" before bind
func (s *Server) HTTPAddr() string {
	if addr, ok := s.httpAddr.Load().(string); ok {
		return addr
	}
	return ""
}

// StatsSnapshot returns a copy of the server counters
func (s *Server) StatsSnapshot() StatsSnapshot {
	return StatsSnapshot{
		PacketsReceived:   s.stats.PacketsReceived.Load(),
		SessionsCreated:   s.stats.SessionsCreated.Load(),
		SessionsRefreshed: s.stats.SessionsRefreshed.Load(),
		PacketsRejected:   s.stats.PacketsRejected.Load(),
		DecodeErrors:      s.stats.DecodeErrors.Load(),
		SessionsExpired:   s.stats.SessionsExpired.Load(),
		SessionsOffloaded: s.stats.SessionsOffloaded.Load(),
		SendErrors:        s.stats.SendErrors.Load(),
		ActiveSessions:    s.table.Len(),
	}
}

// udpLoop binds the datagram socket and serves packets until running
// clears. Bind failure is fatal: running is cleared and the error is
// returned to Start. Receive uses a short deadline so the loop
// observes shutdown promptly.
func (s *Server) udpLoop() error {
	ip := net.ParseIP(s.cfg.UDPIP)
	if ip == nil {
		s.running.Store(false)
		return fmt.Errorf("invalid udp_ip %q", s.cfg.UDPIP)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: s.cfg.UDPPort})
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("bind udp %s:%d: %w", s.cfg.UDPIP, s.cfg.UDPPort, err)
	}
	defer conn.Close()

	s.udpAddr.Store(conn.LocalAddr().String())
	logger.Log.Infow("UDP server listening", "addr", conn.LocalAddr().String())

	s.wg.Add(1)
	go s.sweepLoop()

	buf := make([]byte, maxDatagramSize)
	for s.running.Load() {
		if err := conn.SetReadDeadline(time.Now().Add(recvTimeout)); err != nil {
			logger.Log.Errorw("Failed to set read deadline", "error", err)
			s.running.Store(false)
			break
		}

		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			logger.Log.Errorw("UDP receive failed", "error", err)
			s.running.Store(false)
			break
		}

		s.handlePacket(conn, peer, buf[:n])
	}

	logger.Log.Infow("UDP loop exiting, closing socket")
	return nil
}

// handlePacket decodes one datagram, applies it to the session table
// and replies to the sender. The CDR append happens after the table
// lock has been released.
func (s *Server) handlePacket(conn *net.UDPConn, peer *net.UDPAddr, payload []byte) {
	s.stats.PacketsReceived.Add(1)

	if s.trace != nil {
		if local, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			s.trace.WritePacket(peer, local, payload)
		}
	}

	imsi, err := bcd.Decode(payload)
	if err != nil {
		s.stats.DecodeErrors.Add(1)
		logger.Log.Warnw("Failed to decode BCD IMSI",
			"bytes", len(payload), "peer", peer.String(), "error", err)
		return
	}

	logger.Log.Infow("Received IMSI", "imsi", imsi, "peer", peer.String())

	var reply string
	switch s.table.Touch(imsi) {
	case TouchRejected:
		reply = replyRejected
		s.stats.PacketsRejected.Add(1)
		s.metrics.Increment(ActionRejected)
		s.cdr.Append(imsi, ActionRejected)
		logger.Log.Infow("IMSI is blacklisted, rejected", "imsi", imsi)
	case TouchCreated:
		reply = replyCreated
		s.stats.SessionsCreated.Add(1)
		s.metrics.Increment(ActionCreated)
		s.cdr.Append(imsi, ActionCreated)
		logger.Log.Infow("Session created", "imsi", imsi)
	case TouchRefreshed:
		reply = replyActive
		s.stats.SessionsRefreshed.Add(1)
		logger.Log.Debugw("Session refreshed", "imsi", imsi)
	}

	if _, err := conn.WriteToUDP([]byte(reply), peer); err != nil {
		s.stats.SendErrors.Add(1)
		logger.Log.Warnw("UDP send failed", "peer", peer.String(), "error", err)
	}
}

// sweepLoop removes sessions older than the configured TTL once a
// second, emitting a timeout CDR per removed IMSI outside the table
// lock. Ages use the monotonic reading carried by the stored instants.
func (s *Server) sweepLoop() {
	defer s.wg.Done()

	ttl := time.Duration(s.cfg.SessionTimeoutSec) * time.Second
	for {
		time.Sleep(sweepInterval)
		if !s.running.Load() {
			return
		}

		expired := s.table.Sweep(time.Now(), ttl)
		for _, imsi := range expired {
			s.stats.SessionsExpired.Add(1)
			s.metrics.Increment(ActionTimeout)
			s.cdr.Append(imsi, ActionTimeout)
			logger.Log.Infow("Session timed out and removed", "imsi", imsi)
		}
	}
}

// statsLoop periodically reports the action metrics table, the way an
// operator tails it in the gateway log
func (s *Server) statsLoop(interval time.Duration) {
	defer s.wg.Done()

	for {
		deadline := time.Now().Add(interval)
		for time.Now().Before(deadline) {
			time.Sleep(time.Second)
			if !s.running.Load() {
				return
			}
		}

		snap := s.StatsSnapshot()
		logger.Log.Infow("Server stats",
			"packets_received", snap.PacketsReceived,
			"active_sessions", snap.ActiveSessions,
			"decode_errors", snap.DecodeErrors,
			"send_errors", snap.SendErrors)
		logger.Log.Infof("%s", metrics.FormatMetrics("Session", s.metrics))
	}
}
