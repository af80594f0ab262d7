package server

import (
	"time"

	"github.com/hsdfat8/pgw-gw/pkg/logger"
)

// StartOffload launches the rate-limited drain of the session table,
// rate sessions per second. At most one drain exists in the process:
// the offloading flag is claimed with a compare-and-swap, and a second
// call returns false without starting anything. The drainer is joined
// by Start during shutdown.
func (s *Server) StartOffload(rate int) bool {
	if rate < 1 {
		rate = 1
	}

	if !s.offloading.CompareAndSwap(false, true) {
		logger.Log.Warnw("Offload already in progress")
		return false
	}

	logger.Log.Infow("Starting offload", "rate", rate)
	s.drainWg.Add(1)
	go s.offloadLoop(rate)
	return true
}

// offloadLoop drains the table one batch per second until it is empty
// or running clears. An empty batch means the drain is complete: the
// running flag is cleared to signal global shutdown and the HTTP
// plane is asked to stop. The offloading flag is cleared on every
// exit path, after the running flag.
func (s *Server) offloadLoop(rate int) {
	defer s.drainWg.Done()
	defer s.offloading.Store(false)

	for s.running.Load() {
		drained := s.table.DrainBatch(rate)
		if len(drained) == 0 {
			logger.Log.Infow("Offload complete, no sessions left")
			break
		}

		for _, imsi := range drained {
			s.stats.SessionsOffloaded.Add(1)
			s.metrics.Increment(ActionOffloaded)
			s.cdr.Append(imsi, ActionOffloaded)
			logger.Log.Infow("Session offloaded", "imsi", imsi)
		}

		time.Sleep(offloadInterval)
	}

	s.running.Store(false)
	s.shutdownHTTP()
}
