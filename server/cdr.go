package server

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hsdfat8/pgw-gw/pkg/logger"
)

// CDR actions. The created/rejected actions double as the UDP reply
// text for their packets.
const (
	ActionCreated   = "created"
	ActionOffloaded = "offloaded"
	ActionTimeout   = "timeout"
	ActionRejected  = "rejected"
)

// cdrTimeLayout renders ISO-8601 local time with a numeric offset,
// e.g. 2024-05-01T12:34:56+0200
const cdrTimeLayout = "2006-01-02T15:04:05-0700"

// CDRWriter appends one audit line per session transition to a log
// file. Appends are serialised by the writer's own mutex, which is
// never held together with the session-table mutex, and each line is
// synced so records survive a crash. If the file cannot be opened the
// writer degrades to logging an error per append.
type CDRWriter struct {
	mu sync.Mutex
	f  *os.File
}

// NewCDRWriter opens the CDR file in append mode. An unopenable file
// is not fatal: the writer is still returned and every Append logs an
// error instead of writing.
func NewCDRWriter(path string) *CDRWriter {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Log.Errorw("Failed to open CDR file", "path", path, "error", err)
		return &CDRWriter{}
	}
	logger.Log.Infow("CDR file opened", "path", path)
	return &CDRWriter{f: f}
}

// Append writes one CDR line for an IMSI transition
func (w *CDRWriter) Append(imsi, action string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		logger.Log.Errorw("CDR file not available, record dropped", "imsi", imsi, "action", action)
		return
	}

	line := fmt.Sprintf("%s, %s, %s\n", time.Now().Format(cdrTimeLayout), imsi, action)
	if _, err := w.f.WriteString(line); err != nil {
		logger.Log.Errorw("Failed to write CDR", "imsi", imsi, "action", action, "error", err)
		return
	}
	if err := w.f.Sync(); err != nil {
		logger.Log.Warnw("Failed to sync CDR file", "error", err)
	}
}

// Close closes the underlying file
func (w *CDRWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
