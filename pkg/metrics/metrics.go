package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ActionMetrics tracks the count of session events for each CDR action
type ActionMetrics struct {
	counters map[string]*atomic.Uint64
	mu       sync.RWMutex
}

// NewActionMetrics creates a new ActionMetrics instance
func NewActionMetrics() *ActionMetrics {
	return &ActionMetrics{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Increment increments the counter for a specific action
func (m *ActionMetrics) Increment(action string) {
	m.mu.Lock()
	counter, exists := m.counters[action]
	if !exists {
		counter = &atomic.Uint64{}
		m.counters[action] = counter
	}
	m.mu.Unlock()
	counter.Add(1)
}

// Get returns the count for a specific action
func (m *ActionMetrics) Get(action string) uint64 {
	m.mu.RLock()
	counter, exists := m.counters[action]
	m.mu.RUnlock()

	if !exists {
		return 0
	}
	return counter.Load()
}

// GetAll returns a snapshot of all action counters
func (m *ActionMetrics) GetAll() map[string]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]uint64)
	for action, counter := range m.counters {
		result[action] = counter.Load()
	}
	return result
}

// Reset clears all counters
func (m *ActionMetrics) Reset() {
	m.mu.Lock()
	m.counters = make(map[string]*atomic.Uint64)
	m.mu.Unlock()
}

// FormatMetrics formats the metrics for display
func FormatMetrics(title string, metrics *ActionMetrics) string {
	var output string
	counters := metrics.GetAll()

	output = fmt.Sprintf("\n%s Metrics by Action:\n", title)
	output += "┌─────────────────────────────────┬───────────┐\n"
	output += "│ Action                          │ Count     │\n"
	output += "├─────────────────────────────────┼───────────┤\n"

	total := uint64(0)
	for action, count := range counters {
		output += fmt.Sprintf("│ %-31s │ %9d │\n", action, count)
		total += count
	}

	output += "├─────────────────────────────────┼───────────┤\n"
	output += fmt.Sprintf("│ %-31s │ %9d │\n", "TOTAL", total)
	output += "└─────────────────────────────────┴───────────┘\n"

	return output
}
