// Package journal persists run snapshots so a dashboard restart can show
// what each run last looked like.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/sequencer"
)

// Entry is the last known state of a run
type Entry struct {
	RunID     string             `json:"run_id" msgpack:"run_id"`
	Wallet    string             `json:"wallet,omitempty" msgpack:"wallet,omitempty"`
	Snapshot  sequencer.Snapshot `json:"snapshot" msgpack:"snapshot"`
	CreatedAt time.Time          `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" msgpack:"updated_at"`
}

// Journal stores entries by run id. Load returns nil, nil for unknown runs.
type Journal interface {
	Save(ctx context.Context, entry *Entry) error
	Load(ctx context.Context, runID string) (*Entry, error)
	Delete(ctx context.Context, runID string) error
	List(ctx context.Context) ([]*Entry, error)
}

// Recorder journals the state events of one run. Writes happen on a
// background goroutine so subscribers never block the sequencer; only the
// latest pending snapshot is written.
type Recorder struct {
	journal Journal
	runID   string
	wallet  string
	created time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	pending *sequencer.Snapshot
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// NewRecorder starts a recorder for runID
func NewRecorder(j Journal, runID, wallet string, log zerolog.Logger) *Recorder {
	r := &Recorder{
		journal: j,
		runID:   runID,
		wallet:  wallet,
		created: time.Now().UTC(),
		log:     log.With().Str("component", "journal").Str("run_id", runID).Logger(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Observe is a sequencer subscriber
func (r *Recorder) Observe(ev sequencer.Event) {
	if ev.Type != sequencer.EventState || ev.State == nil {
		return
	}
	snap := *ev.State

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = &snap
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Close writes the last pending snapshot and stops the writer
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.wake)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)
	for range r.wake {
		r.flush()
	}
	r.flush()
}

func (r *Recorder) flush() {
	r.mu.Lock()
	snap := r.pending
	r.pending = nil
	r.mu.Unlock()
	if snap == nil {
		return
	}

	entry := &Entry{
		RunID:     r.runID,
		Wallet:    r.wallet,
		Snapshot:  *snap,
		CreatedAt: r.created,
	}
	if err := r.journal.Save(context.Background(), entry); err != nil {
		r.log.Warn().Err(err).Msg("failed to journal run state")
	}
}
