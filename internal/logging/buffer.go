package logging

import (
	"sync"
	"time"
)

// LogEntry is one retained log record.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent entries up to a fixed capacity.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

// NewRingBuffer creates a buffer holding up to capacity entries.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{entries: make([]LogEntry, capacity)}
}

// Capacity returns how many entries the buffer retains.
func (rb *RingBuffer) Capacity() int {
	return len(rb.entries)
}

// Write stores entry, dropping the oldest one when the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
	rb.mu.Unlock()
}

// Len returns the number of retained entries.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

// Entries returns up to limit of the newest entries accepted by match,
// oldest first. A nil match accepts everything, a limit below 1 means no
// limit.
func (rb *RingBuffer) Entries(match func(LogEntry) bool, limit int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n := rb.next
	if rb.full {
		n = len(rb.entries)
	}
	if limit < 1 || limit > n {
		limit = n
	}

	// Walk newest to oldest so the limit applies to the most recent matches.
	out := make([]LogEntry, 0, limit)
	for i := 1; i <= n && len(out) < limit; i++ {
		e := rb.entries[(rb.next-i+len(rb.entries))%len(rb.entries)]
		if match == nil || match(e) {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
