// Package oplog appends structured records of link operations to a
// JSON-lines log file with size-based rotation. Writes go through a bounded
// channel drained by a single consumer goroutine: entries are independent
// and order-insensitive across batches, but append order is preserved
// within a batch.
package oplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one logged operation.
type Entry struct {
	Time       time.Time `json:"time"`
	SessionID  string    `json:"session_id"`
	Op         string    `json:"op"`
	Path       string    `json:"path,omitempty"`
	NoteTitle  string    `json:"note_title,omitempty"`
	LinksAdded int       `json:"links_added,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Options configures the logger; zero values take the documented defaults.
type Options struct {
	Path          string
	MaxSizeBytes  int64 // rotate when the log exceeds this size
	MaxRotated    int   // rotated files kept
	LogNoteTitles bool  // when false, note titles are dropped from entries
}

const (
	defaultMaxSize = 1 << 20
	defaultRotated = 3
	queueDepth     = 256
)

// Logger is the append-only operation log. Callers hold and pass a *Logger
// explicitly; there is no package-level instance.
type Logger struct {
	opts      Options
	sessionID string

	ch   chan Entry
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// New starts the consumer goroutine. sessionID correlates entries from one
// run.
func New(opts Options, sessionID string) (*Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("oplog: path required")
	}
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = defaultMaxSize
	}
	if opts.MaxRotated <= 0 {
		opts.MaxRotated = defaultRotated
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("oplog: log dir: %w", err)
	}

	l := &Logger{
		opts:      opts,
		sessionID: sessionID,
		ch:        make(chan Entry, queueDepth),
		done:      make(chan struct{}),
	}
	go l.consume()
	return l, nil
}

// Log queues an entry. Best effort: when the queue is full the entry is
// dropped rather than blocking the caller's write path. The send happens
// under the same mutex Close takes, so Log never races the channel close.
func (l *Logger) Log(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID
	if !l.opts.LogNoteTitles {
		e.NoteTitle = ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- e:
	default:
	}
}

// Close stops accepting entries, flushes the queue, and waits for the
// consumer to finish.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	close(l.ch)
	<-l.done
}

// consume drains the channel, batching whatever is immediately available so
// one file append covers a burst.
func (l *Logger) consume() {
	defer close(l.done)
	for e, ok := <-l.ch; ok; e, ok = <-l.ch {
		batch := []Entry{e}
	drain:
		for {
			select {
			case next, more := <-l.ch:
				if !more {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		l.append(batch)
	}
}

// append writes a batch, rotating first when the file is over size.
func (l *Logger) append(batch []Entry) {
	if info, err := os.Stat(l.opts.Path); err == nil && info.Size() >= l.opts.MaxSizeBytes {
		l.rotate()
	}
	f, err := os.OpenFile(l.opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	for _, e := range batch {
		line, err := json.Marshal(e)
		if err != nil {
			continue
		}
		line = append(line, '\n')
		if _, err := f.Write(line); err != nil {
			return
		}
	}
}

// rotate shifts log.N-1 → log.N, dropping the oldest, then moves the live
// file to log.1.
func (l *Logger) rotate() {
	for i := l.opts.MaxRotated; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", l.opts.Path, i)
		if i == l.opts.MaxRotated {
			_ = os.Remove(src)
			continue
		}
		_ = os.Rename(src, fmt.Sprintf("%s.%d", l.opts.Path, i+1))
	}
	_ = os.Rename(l.opts.Path, l.opts.Path+".1")
}
