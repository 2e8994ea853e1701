// Package progress tracks per-job conversion progress in memory and fans
// events out to subscribers. Entries are keyed by tracking token, not record
// id, so a restarted job gets a clean progress stream.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/logger"
)

type Stage string

const (
	StageInitialized Stage = "initialized"
	StageMetadata    Stage = "retrieving_metadata"
	StageDownloading Stage = "downloading"
	StageProcessing  Stage = "processing"
	StageUploading   Stage = "uploading"
	StageFinalizing  Stage = "finalizing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

func (s Stage) Terminal() bool { return s == StageCompleted || s == StageFailed }

// Event is one progress update delivered to subscribers.
type Event struct {
	At      time.Time `json:"at"`
	Token   string    `json:"token"`
	Stage   Stage     `json:"stage"`
	Message string    `json:"message,omitempty"`
	Percent float64   `json:"percent"`
}

// Entry is a point-in-time snapshot of a job's progress.
type Entry struct {
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Token     string    `json:"token"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Logs      []string  `json:"logs,omitempty"`
	Percent   float64   `json:"percent"`
}

type entry struct {
	snapshot Entry
	subs     map[chan Event]struct{}
	stopKeep chan struct{}
}

type Config struct {
	KeepAliveInterval time.Duration
	MaxLifetime       time.Duration
	// Retention is how long a terminal entry stays queryable before it is
	// dropped from memory.
	Retention time.Duration
}

func (c Config) withDefaults() Config {
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = constants.KeepAliveInterval
	}
	if c.MaxLifetime <= 0 {
		c.MaxLifetime = constants.DefaultMaxJobLifetime
	}
	if c.Retention <= 0 {
		c.Retention = constants.DefaultStalenessThreshold
	}
	return c
}

type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	log     *logger.Logger
	cfg     Config
}

func NewTracker(log *logger.Logger, cfg Config) *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		log:     log.WithComponent("progress"),
		cfg:     cfg.withDefaults(),
	}
}

// Start registers a token. Starting an already-registered token is a no-op.
func (t *Tracker) Start(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[token]; ok {
		return
	}

	now := time.Now()
	e := &entry{
		snapshot: Entry{
			Token:     token,
			Stage:     StageInitialized,
			Message:   "conversion queued",
			StartedAt: now,
			UpdatedAt: now,
		},
		subs:     make(map[chan Event]struct{}),
		stopKeep: make(chan struct{}),
	}
	t.entries[token] = e
	go t.keepAlive(token, e.stopKeep)
}

// Update advances a job's progress. stage "" leaves the stage unchanged and a
// negative percent leaves the percentage unchanged. Percent never moves
// backward and terminal entries accept no further updates. Returns false only
// when the token is unknown.
func (t *Tracker) Update(token string, stage Stage, percent float64, message string) bool {
	t.mu.Lock()
	e, ok := t.entries[token]
	if !ok {
		t.mu.Unlock()
		return false
	}
	if e.snapshot.Stage.Terminal() {
		t.mu.Unlock()
		return true
	}

	if stage != "" {
		e.snapshot.Stage = stage
	}
	if percent >= 0 && percent > e.snapshot.Percent {
		if percent > 100 {
			percent = 100
		}
		e.snapshot.Percent = percent
	}
	if message != "" {
		e.snapshot.Message = message
		e.snapshot.Logs = appendLog(e.snapshot.Logs, message)
	}
	e.snapshot.UpdatedAt = time.Now()

	ev := Event{
		Token:   token,
		Stage:   e.snapshot.Stage,
		Percent: e.snapshot.Percent,
		Message: message,
		At:      e.snapshot.UpdatedAt,
	}

	// Broadcast under the lock. Sends are non-blocking, and holding the lock
	// means no subscriber channel can be closed out from under the send.
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}

	if e.snapshot.Stage.Terminal() {
		close(e.stopKeep)
		for ch := range e.subs {
			close(ch)
		}
		e.subs = make(map[chan Event]struct{})
		time.AfterFunc(t.cfg.Retention, func() {
			t.mu.Lock()
			delete(t.entries, token)
			t.mu.Unlock()
		})
	}
	t.mu.Unlock()
	return true
}

// Complete marks the job done at 100 percent.
func (t *Tracker) Complete(token, message string) {
	t.Update(token, StageCompleted, 100, message)
}

// Fail terminates the job's progress stream with a failure message.
func (t *Tracker) Fail(token, message string) {
	t.Update(token, StageFailed, -1, message)
}

// Snapshot returns the current progress for a token.
func (t *Tracker) Snapshot(token string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[token]
	if !ok {
		return Entry{}, false
	}
	snap := e.snapshot
	snap.Logs = append([]string(nil), e.snapshot.Logs...)
	return snap, true
}

// Subscribe returns a channel of progress events and a cancel function. The
// channel is closed when the job reaches a terminal stage. An unknown token
// yields an already-closed channel.
func (t *Tracker) Subscribe(token string) (<-chan Event, func()) {
	t.mu.Lock()

	e, ok := t.entries[token]
	if !ok || e.snapshot.Stage.Terminal() {
		t.mu.Unlock()
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan Event, 16)
	e.subs[ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if e, ok := t.entries[token]; ok {
			if _, subscribed := e.subs[ch]; subscribed {
				delete(e.subs, ch)
				close(ch)
			}
		}
	}
	return ch, cancel
}

// keepAlive emits a heartbeat while the job runs, and force-fails the entry
// if it outlives the maximum lifetime without reaching a terminal stage.
func (t *Tracker) keepAlive(token string, stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.KeepAliveInterval)
	defer ticker.Stop()

	deadline := time.Now().Add(t.cfg.MaxLifetime)
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if now.After(deadline) {
				t.log.Warn("job exceeded maximum lifetime", "token", token)
				t.Fail(token, fmt.Sprintf("processing exceeded %s", t.cfg.MaxLifetime))
				return
			}
			t.Update(token, "", -1, "still working")
		}
	}
}

func appendLog(logs []string, line string) []string {
	stamped := fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), line)
	logs = append(logs, stamped)
	if len(logs) > constants.MaxProgressLogLines {
		logs = logs[len(logs)-constants.MaxProgressLogLines:]
	}
	return logs
}
