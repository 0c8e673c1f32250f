// Package tracker keeps in-memory progress and results for background analyses
// so clients can reconnect to a run's stream and read its outcome.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/types"
)

// DefaultTTL is how long a finished run stays readable.
const DefaultTTL = 30 * time.Minute

// DefaultMaxEvents caps the history kept per run.
const DefaultMaxEvents = 100

// ErrDuplicateRun is returned when a run id is already tracked.
var ErrDuplicateRun = errors.New("analysis already tracked")

// EventType classifies run events.
type EventType string

const (
	EventTypeUpdate EventType = "update"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// Event is a sequenced run event.
type Event struct {
	Seq       int64                 `json:"seq"`
	Timestamp time.Time             `json:"timestamp"`
	Type      EventType             `json:"type"`
	Update    *types.AgentUpdate    `json:"update,omitempty"`
	Result    *types.AnalysisResult `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// Run is the event history of one analysis.
type Run struct {
	ID        string
	StartedAt time.Time

	mu         sync.Mutex
	maxEvents  int
	nextSeq    int64
	events     []Event
	changed    chan struct{}
	done       bool
	finishedAt time.Time
	result     *types.AnalysisResult
	err        error
}

func newRun(id string, maxEvents int) *Run {
	return &Run{
		ID:        id,
		StartedAt: time.Now().UTC(),
		maxEvents: maxEvents,
		changed:   make(chan struct{}),
	}
}

// publishLocked appends an event and wakes waiters. r.mu must be held.
func (r *Run) publishLocked(event Event) Event {
	r.nextSeq++
	event.Seq = r.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	r.events = append(r.events, event)
	if len(r.events) > r.maxEvents {
		trim := len(r.events) - r.maxEvents
		r.events = append([]Event(nil), r.events[trim:]...)
	}

	close(r.changed)
	r.changed = make(chan struct{})
	return event
}

// Publish records a progress update. Updates after Finish are dropped.
func (r *Run) Publish(update types.AgentUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.publishLocked(Event{Type: EventTypeUpdate, Update: &update})
}

// Finish records the outcome and closes the run. Only the first call has effect.
func (r *Run) Finish(result *types.AnalysisResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}

	if err != nil {
		r.publishLocked(Event{Type: EventTypeError, Error: err.Error()})
	} else {
		r.publishLocked(Event{Type: EventTypeResult, Result: result})
	}
	r.done = true
	r.finishedAt = time.Now()
	r.result = result
	r.err = err
}

// Since returns events with sequence strictly greater than seq, whether the
// run has finished, and a channel closed on the next change.
func (r *Run) Since(seq int64) ([]Event, bool, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, event := range r.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out, r.done, r.changed
}

// Outcome returns the result or error once the run has finished.
func (r *Run) Outcome() (*types.AnalysisResult, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.done, r.err
}

// Stream calls fn for every event from seq onwards until the run finishes or
// ctx is done.
func (r *Run) Stream(ctx context.Context, seq int64, fn func(Event) error) error {
	for {
		events, done, changed := r.Since(seq)
		for _, event := range events {
			if err := fn(event); err != nil {
				return err
			}
			seq = event.Seq
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (r *Run) expired(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done && now.Sub(r.finishedAt) > ttl
}

// Config configures a Tracker.
type Config struct {
	TTL       time.Duration
	MaxEvents int
	Logger    *zap.Logger
}

// Tracker indexes runs by analysis id.
type Tracker struct {
	mu        sync.RWMutex
	runs      map[string]*Run
	ttl       time.Duration
	maxEvents int
	logger    *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Tracker. Zero-valued config fields take their defaults.
func New(cfg Config) *Tracker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Tracker{
		runs:      make(map[string]*Run),
		ttl:       cfg.TTL,
		maxEvents: cfg.MaxEvents,
		logger:    cfg.Logger,
		stop:      make(chan struct{}),
	}
}

// Start registers a new run.
func (t *Tracker) Start(id string) (*Run, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.runs[id]; ok {
		return nil, ErrDuplicateRun
	}
	run := newRun(id, t.maxEvents)
	t.runs[id] = run
	return run, nil
}

// Get returns the run with the given id.
func (t *Tracker) Get(id string) (*Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[id]
	return run, ok
}

// Len returns the number of tracked runs.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}

// Remove forgets a run.
func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.runs[id]
	delete(t.runs, id)
	return ok
}

// Cleanup removes finished runs older than the TTL and returns how many were removed.
func (t *Tracker) Cleanup(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, run := range t.runs {
		if run.expired(now, t.ttl) {
			delete(t.runs, id)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup every interval until Close is called.
func (t *Tracker) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case now := <-ticker.C:
				if n := t.Cleanup(now); n > 0 {
					t.logger.Debug("expired analyses removed", zap.Int("count", n))
				}
			}
		}
	}()
}

// Close stops the janitor.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.wg.Wait()
}
