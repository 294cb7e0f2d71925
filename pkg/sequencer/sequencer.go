// Package sequencer drives the order lifecycle of a trading agent run: a
// linear, timer-driven state machine that narrates progress, surfaces a
// recommendation and executes it once the user approves.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/types"
)

var (
	ErrAlreadyStarted    = errors.New("run already started")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStopped           = errors.New("run stopped")
)

// Snapshot is a point-in-time copy of a run
type Snapshot struct {
	RunID          string                `json:"run_id"`
	Flow           Flow                  `json:"flow"`
	Stage          Stage                 `json:"stage"`
	Progress       int                   `json:"progress"`
	Messages       []string              `json:"messages"`
	IsLoading      bool                  `json:"is_loading"`
	Recommendation *types.Recommendation `json:"recommendation,omitempty"`
	Order          *types.Order          `json:"order,omitempty"`
	TxHash         string                `json:"tx_hash,omitempty"`
	Error          string                `json:"error,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// EventType distinguishes state changes from user-facing notifications
type EventType string

const (
	EventState        EventType = "state"
	EventNotification EventType = "notification"
)

// NotificationLevel is the severity of a notification
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient message shown to the user
type Notification struct {
	Level       NotificationLevel `json:"level"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
}

// Event is delivered to subscribers. Exactly one of State and Notification is set.
type Event struct {
	Type         EventType     `json:"type"`
	State        *Snapshot     `json:"state,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Sequencer is a single run of either flow. All methods are safe for
// concurrent use; timer callbacks are serialized with them.
type Sequencer struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger
	id  string

	stage     Stage
	progress  int
	messages  []string
	isLoading bool
	rec       *types.Recommendation
	order     *types.Order
	txHash    string
	errMsg    string
	updatedAt time.Time

	// gen is bumped by Reset and Stop so that callbacks scheduled before
	// them are dropped.
	gen     uint64
	timer   Timer
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool

	subs    []subscriber
	nextSub uint64
}

// New creates a run in its flow's initial stage
func New(cfg Config) *Sequencer {
	cfg.applyDefaults()
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Sequencer{
		cfg:       cfg,
		log:       cfg.Logger.With().Str("run_id", id).Str("flow", string(cfg.Flow)).Logger(),
		id:        id,
		stage:     cfg.Flow.InitialStage(),
		updatedAt: cfg.Scheduler.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID returns the run identifier
func (s *Sequencer) ID() string {
	return s.id
}

// Flow returns the flow the run follows
func (s *Sequencer) Flow() Flow {
	return s.cfg.Flow
}

// Start begins the analysis choreography. In the order flow it only
// publishes the initial state; the run advances on Submit.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	if s.cfg.Flow == FlowOrder {
		s.emitState()
		return nil
	}

	s.log.Info().Msg("analysis started")
	s.stage = StageAnalyzing
	s.setProgress(ProgressEntry)
	s.emitState()
	s.after(s.cfg.Timing.AnalyzeDelay, s.enterRecommending)
	return nil
}

// Submit hands an order to the agents. Order flow only, valid in StageCreating.
func (s *Sequencer) Submit(order *types.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.cfg.Flow != FlowOrder {
		return fmt.Errorf("%w: submit is not part of the %s flow", ErrInvalidTransition, s.cfg.Flow)
	}
	if s.stage != StageCreating {
		return fmt.Errorf("%w: cannot submit in stage %s", ErrInvalidTransition, s.stage)
	}
	if err := checkOrder(order); err != nil {
		return err
	}

	o := *order
	s.started = true
	s.order = &o
	s.stage = StageFinding
	s.setProgress(ProgressEntry)
	s.log.Info().Str("sell", o.SellToken).Str("buy", o.BuyToken).Float64("amount", o.SellAmount).Msg("order submitted")
	s.emitState()
	s.after(s.cfg.Timing.FindDelay, s.enterNegotiating)
	return nil
}

// Approve accepts the recommendation of a ready analysis run
func (s *Sequencer) Approve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.stage != StageReady || s.isLoading {
		return fmt.Errorf("%w: cannot approve in stage %s", ErrInvalidTransition, s.stage)
	}

	s.isLoading = true
	s.emitState()

	if s.cfg.Executor == nil || s.order == nil {
		s.after(s.cfg.Timing.ApproveDelay, func() { s.finish(StageSuccess) })
		return nil
	}
	order := *s.order
	s.afterIO(s.cfg.Timing.ApproveDelay, func(ctx context.Context) func() {
		hash, err := s.cfg.Executor.Execute(ctx, &order)
		return func() {
			if err != nil {
				s.abort(err)
				return
			}
			s.txHash = hash
			s.finish(StageSuccess)
		}
	})
	return nil
}

// Reset cancels everything pending and returns the run to its initial stage
func (s *Sequencer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.resetLocked()
	s.emitState()
	return nil
}

// Stop ends the run. Nothing is mutated or emitted afterwards.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel()
	s.subs = nil
	s.log.Debug().Str("stage", string(s.stage)).Msg("run stopped")
}

// Stopped reports whether Stop has been called
func (s *Sequencer) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Snapshot returns a deep copy of the current state
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every subsequent event. fn runs synchronously
// while the run is locked and must not call back into the Sequencer.
func (s *Sequencer) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Sequencer) enterRecommending() {
	s.stage = StageRecommending
	s.setProgress(ProgressMidpoint)
	s.emitState()

	if s.cfg.Analyst == nil {
		rec := *s.cfg.Recommendation
		s.narrate(s.cfg.Script, 0, func() { s.ready(&rec) })
		return
	}
	s.afterIO(0, func(ctx context.Context) func() {
		jobID, err := s.cfg.Analyst.Start(ctx)
		return func() {
			if err != nil {
				s.fail(fmt.Errorf("failed to start analysis: %w", err))
				return
			}
			s.log.Info().Str("job_id", jobID).Msg("analysis job started")
			s.poll(jobID, s.cfg.Scheduler.Now())
		}
	})
}

func (s *Sequencer) poll(jobID string, since time.Time) {
	s.afterIO(s.cfg.Timing.PollInterval, func(ctx context.Context) func() {
		if s.cfg.Scheduler.Now().Sub(since) >= s.cfg.Timing.PollTimeout {
			return s.timeout
		}
		rec, done, err := s.cfg.Analyst.Poll(ctx, jobID)
		return func() {
			switch {
			case err != nil:
				s.fail(fmt.Errorf("failed to poll analysis job %s: %w", jobID, err))
			case done && rec == nil:
				s.fail(fmt.Errorf("analysis job %s completed without a result", jobID))
			case done:
				s.messages = append(s.messages, narration(rec, s.cfg.Pair)...)
				s.ready(rec)
			default:
				s.setProgress(min(ProgressCap, s.progress+ProgressPollStep))
				s.emitState()
				s.poll(jobID, since)
			}
		}
	})
}

func (s *Sequencer) timeout() {
	if s.cfg.StrictTimeout {
		s.stage = StageTimedOut
		s.errMsg = fmt.Sprintf("analysis did not complete within %s", s.cfg.Timing.PollTimeout)
		s.log.Warn().Msg("analysis timed out")
		s.notify(LevelError, "Analysis timed out", s.errMsg)
		s.emitState()
		return
	}
	fb := *s.cfg.Fallback
	fb.Fallback = true
	s.log.Warn().Str("command", string(fb.Command)).Float64("quantity", fb.Quantity).Msg("analysis timed out, using fallback")
	s.messages = append(s.messages, fmt.Sprintf("Analysis timed out. Falling back to %s %s %s.",
		fb.Command, formatQuantity(fb.Quantity), s.cfg.Pair.Base))
	s.ready(&fb)
}

func (s *Sequencer) ready(rec *types.Recommendation) {
	s.rec = rec
	s.order = rec.Order(s.cfg.Pair)
	s.stage = StageReady
	s.setProgress(ProgressCompleted)
	s.emitState()
}

func (s *Sequencer) enterNegotiating() {
	s.stage = StageNegotiating
	s.setProgress(ProgressMidpoint)
	s.emitState()
	s.narrate(s.cfg.Script, 0, s.enterExecuting)
}

func (s *Sequencer) enterExecuting() {
	s.stage = StageExecuting
	s.emitState()

	if s.cfg.Executor == nil {
		s.after(s.cfg.Timing.ExecuteDelay, func() { s.finish(StageCompleted) })
		return
	}
	order := *s.order
	s.afterIO(s.cfg.Timing.ExecuteDelay, func(ctx context.Context) func() {
		hash, err := s.cfg.Executor.Execute(ctx, &order)
		return func() {
			if err != nil {
				s.abort(err)
				return
			}
			s.txHash = hash
			s.finish(StageCompleted)
		}
	})
}

// narrate appends lines one StepDelay apart, then calls done
func (s *Sequencer) narrate(lines []string, i int, done func()) {
	if i >= len(lines) {
		done()
		return
	}
	s.after(s.cfg.Timing.StepDelay, func() {
		s.messages = append(s.messages, lines[i])
		s.setProgress(min(ProgressCap, s.progress+ProgressStep))
		s.emitState()
		s.narrate(lines, i+1, done)
	})
}

func (s *Sequencer) finish(stage Stage) {
	s.isLoading = false
	s.stage = stage
	s.setProgress(ProgressCompleted)
	if s.order == nil {
		// hold recommendations carry nothing to execute
		s.log.Info().Msg("recommendation accepted")
		s.notify(LevelSuccess, "Recommendation accepted", "No trade was needed")
		s.emitState()
		return
	}
	s.log.Info().Str("tx_hash", s.txHash).Msg("order executed")
	desc := "Your order has been executed"
	if s.txHash != "" {
		desc = "Transaction " + s.txHash
	}
	s.notify(LevelSuccess, "Swap executed", desc)
	s.emitState()
}

func (s *Sequencer) fail(err error) {
	s.stage = StageFailed
	s.isLoading = false
	s.errMsg = err.Error()
	s.log.Error().Err(err).Msg("run failed")
	s.notify(LevelError, "Analysis failed", s.errMsg)
	s.emitState()
}

// abort reports an execution failure and starts over
func (s *Sequencer) abort(err error) {
	s.log.Error().Err(err).Str("stage", string(s.stage)).Msg("execution failed")
	s.notify(LevelError, "Transaction failed", err.Error())
	s.resetLocked()
	s.emitState()
}

func (s *Sequencer) resetLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.stage = s.cfg.Flow.InitialStage()
	s.progress = 0
	s.messages = nil
	s.isLoading = false
	s.rec = nil
	s.order = nil
	s.txHash = ""
	s.errMsg = ""
	s.started = false
}

// after runs fn under the lock once d has elapsed, unless the run was reset
// or stopped in the meantime.
func (s *Sequencer) after(d time.Duration, fn func()) {
	gen := s.gen
	s.timer = s.cfg.Scheduler.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped || s.gen != gen {
			return
		}
		s.timer = nil
		fn()
	})
}

// afterIO runs work without the lock once d has elapsed. The function work
// returns is applied under the lock if the run is still current.
func (s *Sequencer) afterIO(d time.Duration, work func(ctx context.Context) func()) {
	gen := s.gen
	s.timer = s.cfg.Scheduler.AfterFunc(d, func() {
		s.mu.Lock()
		if s.stopped || s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		ctx := s.ctx
		s.mu.Unlock()

		apply := work(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped || s.gen != gen || apply == nil {
			return
		}
		apply()
	})
}

func (s *Sequencer) setProgress(p int) {
	if p > s.progress {
		s.progress = p
	}
}

func (s *Sequencer) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:     s.id,
		Flow:      s.cfg.Flow,
		Stage:     s.stage,
		Progress:  s.progress,
		Messages:  append([]string{}, s.messages...),
		IsLoading: s.isLoading,
		TxHash:    s.txHash,
		Error:     s.errMsg,
		UpdatedAt: s.updatedAt,
	}
	if s.rec != nil {
		rec := *s.rec
		snap.Recommendation = &rec
	}
	if s.order != nil {
		o := *s.order
		snap.Order = &o
	}
	return snap
}

func (s *Sequencer) emitState() {
	s.updatedAt = s.cfg.Scheduler.Now()
	s.log.Debug().Str("stage", string(s.stage)).Int("progress", s.progress).Bool("loading", s.isLoading).Msg("state")
	snap := s.snapshotLocked()
	s.emit(Event{Type: EventState, State: &snap})
}

func (s *Sequencer) notify(level NotificationLevel, title, desc string) {
	s.emit(Event{Type: EventNotification, Notification: &Notification{Level: level, Title: title, Description: desc}})
}

func (s *Sequencer) emit(ev Event) {
	for _, sub := range s.subs {
		sub.fn(ev)
	}
}

func checkOrder(o *types.Order) error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: missing order", types.ErrInvalidOrder)
	case o.SellToken == "" || o.BuyToken == "":
		return fmt.Errorf("%w: both tokens are required", types.ErrInvalidOrder)
	case strings.EqualFold(o.SellToken, o.BuyToken):
		return fmt.Errorf("%w: cannot swap %s for itself", types.ErrInvalidOrder, o.SellToken)
	case o.SellAmount <= 0:
		return fmt.Errorf("%w: amount must be positive", types.ErrInvalidOrder)
	}
	return nil
}

func narration(rec *types.Recommendation, p types.Pair) []string {
	lines := []string{}
	if rec.Summary != "" {
		lines = append(lines, rec.Summary)
	}
	switch rec.Command {
	case types.CommandSell:
		lines = append(lines, fmt.Sprintf("Recommended swap: %s %s → %s", formatQuantity(rec.Quantity), p.Base, p.Quote))
	case types.CommandBuy:
		lines = append(lines, fmt.Sprintf("Recommended swap: %s → %s %s", p.Quote, formatQuantity(rec.Quantity), p.Base))
	default:
		lines = append(lines, fmt.Sprintf("Recommendation: hold %s", p.Base))
	}
	lines = append(lines, "Analysis complete. Awaiting your approval.")
	return lines
}

func formatQuantity(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", q), "0"), ".")
}
