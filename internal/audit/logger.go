// Package audit keeps an append-only trail of key lifecycle and signing
// operations. Writes happen off the critical path; sealing and signing
// never block on the log.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names recorded in the trail.
const (
	OpGenerateKey = "GenerateKey"
	OpSealKey     = "SealKey"
	OpUnsealKey   = "UnsealKey"
	OpSign        = "Sign"
	OpVerify      = "Verify"
)

// Entry is one audit record. KeyID and Volume are set when the operation
// involves them; PINs and key material are never recorded.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	KeyID     string    `json:"key_id,omitempty"`
	Volume    string    `json:"volume,omitempty"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
}

// Filter selects entries for Query. Zero fields match everything.
type Filter struct {
	Operation string
	KeyID     string
	Since     time.Time
	Limit     int
}

// Subscriber receives entries as they are processed.
type Subscriber struct {
	C  chan Entry
	id string
}

// Logger is an async audit logger: entries go through a buffered channel
// to a single processing goroutine that stores them, writes them as JSON
// lines, and fans them out to subscribers.
type Logger struct {
	entries chan Entry
	out     io.Writer

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	store       []Entry

	done chan struct{}
}

// NewLogger creates a logger with the given buffer size and output writer.
func NewLogger(bufferSize int, out io.Writer) *Logger {
	l := &Logger{
		entries:     make(chan Entry, bufferSize),
		out:         out,
		subscribers: make(map[string]*Subscriber),
		done:        make(chan struct{}),
	}
	go l.processLoop()
	return l
}

// Record enqueues an entry. If the buffer is full the entry is dropped
// rather than stalling the operation being audited.
func (l *Logger) Record(operation, keyID, volume, status, detail string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		KeyID:     keyID,
		Volume:    volume,
		Status:    status,
		Detail:    detail,
	}

	select {
	case l.entries <- entry:
	default:
		slog.Warn("audit buffer full, dropping entry", "operation", operation)
	}
}

// Subscribe returns a new subscriber fed from the processing loop.
func (l *Logger) Subscribe() *Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub := &Subscriber{
		C:  make(chan Entry, 64),
		id: uuid.NewString(),
	}
	l.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (l *Logger) Unsubscribe(sub *Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.subscribers, sub.id)
	close(sub.C)
}

// Query returns stored entries matching the filter, newest first.
func (l *Logger) Query(f Filter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []Entry
	for i := len(l.store) - 1; i >= 0; i-- {
		e := l.store[i]
		if f.Operation != "" && e.Operation != f.Operation {
			continue
		}
		if f.KeyID != "" && e.KeyID != f.KeyID {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		results = append(results, e)
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}
	return results
}

// Close stops the processing loop after draining queued entries.
func (l *Logger) Close() {
	close(l.entries)
	<-l.done
}

func (l *Logger) processLoop() {
	defer close(l.done)

	for entry := range l.entries {
		l.mu.Lock()
		l.store = append(l.store, entry)
		l.mu.Unlock()

		if l.out != nil {
			data, err := json.Marshal(entry)
			if err != nil {
				slog.Error("audit marshal", "error", err)
				continue
			}
			fmt.Fprintf(l.out, "%s\n", data)
		}

		l.mu.RLock()
		for _, sub := range l.subscribers {
			select {
			case sub.C <- entry:
			default:
				// subscriber too slow, drop
			}
		}
		l.mu.RUnlock()
	}
}
