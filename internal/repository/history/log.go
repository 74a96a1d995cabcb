// Package history holds the in-memory interaction log. Append-only for the
// process lifetime; a bounded or durable variant can replace it behind the
// copilot's HistoryStore interface.
package history

import (
	"sync"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Log is a mutex-guarded append-only interaction history. Safe for
// concurrent appenders; readers observe a consistent prefix.
type Log struct {
	mu      sync.RWMutex
	entries []domain.Interaction
}

// New creates an empty interaction log.
func New() *Log {
	return &Log{}
}

// Append adds one interaction record. Records are never mutated afterwards.
func (l *Log) Append(in domain.Interaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, in)
}

// List returns a copy of the history, filtered by caller id when non-empty.
func (l *Log) List(callerID string) []domain.Interaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if callerID == "" {
		out := make([]domain.Interaction, len(l.entries))
		copy(out, l.entries)
		return out
	}

	var out []domain.Interaction
	for _, in := range l.entries {
		if in.CallerID == callerID {
			out = append(out, in)
		}
	}
	return out
}

// Clear discards all recorded interactions.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Counts reports totals over the recorded history: all interactions,
// clinical questions, and guardrail triggers.
func (l *Log) Counts() (total, clinical, guardrailTriggers int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total = len(l.entries)
	for _, in := range l.entries {
		if in.IsClinical {
			clinical++
		}
		if in.Response.GuardrailTriggered {
			guardrailTriggers++
		}
	}
	return total, clinical, guardrailTriggers
}
