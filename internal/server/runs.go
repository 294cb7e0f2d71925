package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/internal/core/domain"
	"github.com/agentdesk/agentdesk/internal/history"
	"github.com/agentdesk/agentdesk/internal/journal"
	"github.com/agentdesk/agentdesk/pkg/sequencer"
)

// ErrRunNotFound is returned for unknown or removed run ids
var ErrRunNotFound = errors.New("run not found")

// RunFactory builds the configuration of a new run. The registry fills in
// the Scheduler when left empty and always sets the Logger.
type RunFactory func(ctx context.Context, flow sequencer.Flow) (sequencer.Config, error)

// SwapRecorder persists executed swaps
type SwapRecorder interface {
	Record(ctx context.Context, swap *history.Swap) error
}

// Run is a mounted sequencer and its live viewers
type Run struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	seq      *sequencer.Sequencer
	hub      *hub
	recorder *journal.Recorder
	unsub    []func()
}

// Sequencer returns the run's state machine
func (r *Run) Sequencer() *sequencer.Sequencer {
	return r.seq
}

// Registry tracks the mounted runs of the dashboard
type Registry struct {
	factory   RunFactory
	scheduler sequencer.Scheduler
	journal   journal.Journal
	swaps     SwapRecorder
	price     func() float64
	log       zerolog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

// RegistryConfig configures a Registry. Only Factory is required.
type RegistryConfig struct {
	Factory   RunFactory
	Scheduler sequencer.Scheduler
	Journal   journal.Journal
	Swaps     SwapRecorder
	// Price returns the native token price recorded with each swap
	Price  func() float64
	Logger zerolog.Logger
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Factory == nil {
		cfg.Factory = func(context.Context, sequencer.Flow) (sequencer.Config, error) {
			return sequencer.Config{}, nil
		}
	}
	if cfg.Price == nil {
		cfg.Price = func() float64 { return domain.DefaultAdaUsdPrice }
	}
	return &Registry{
		factory:   cfg.Factory,
		scheduler: cfg.Scheduler,
		journal:   cfg.Journal,
		swaps:     cfg.Swaps,
		price:     cfg.Price,
		log:       cfg.Logger.With().Str("component", "runs").Logger(),
		runs:      make(map[string]*Run),
	}
}

// Create mounts a new run of flow for owner
func (g *Registry) Create(ctx context.Context, flow sequencer.Flow, owner string) (*Run, error) {
	if !flow.Valid() {
		return nil, fmt.Errorf("%w: unknown flow %q", sequencer.ErrInvalidTransition, flow)
	}
	cfg, err := g.factory(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to configure run: %w", err)
	}
	cfg.Flow = flow
	if cfg.Scheduler == nil {
		cfg.Scheduler = g.scheduler
	}
	cfg.Logger = g.log

	seq := sequencer.New(cfg)
	run := &Run{
		ID:        seq.ID(),
		Owner:     strings.ToLower(owner),
		CreatedAt: time.Now().UTC(),
		seq:       seq,
		hub:       newHub(seq.ID()),
	}

	run.unsub = append(run.unsub, seq.Subscribe(run.hub.publish))
	if g.journal != nil {
		run.recorder = journal.NewRecorder(g.journal, run.ID, run.Owner, g.log)
		run.unsub = append(run.unsub, seq.Subscribe(run.recorder.Observe))
	}
	if g.swaps != nil {
		run.unsub = append(run.unsub, seq.Subscribe(g.swapObserver(run.ID)))
	}

	g.mu.Lock()
	g.runs[run.ID] = run
	g.mu.Unlock()

	g.log.Info().Str("run_id", run.ID).Str("flow", string(flow)).Msg("run mounted")
	return run, nil
}

// Get returns a mounted run
func (g *Registry) Get(id string) (*Run, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	run, ok := g.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// List returns the mounted runs
func (g *Registry) List() []*Run {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Run, 0, len(g.runs))
	for _, r := range g.runs {
		out = append(out, r)
	}
	return out
}

// Remove unmounts a run: its sequencer stops and its viewers are closed
func (g *Registry) Remove(id string) error {
	g.mu.Lock()
	run, ok := g.runs[id]
	delete(g.runs, id)
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	g.unmount(run)
	g.log.Info().Str("run_id", id).Msg("run unmounted")
	return nil
}

// Close unmounts every run
func (g *Registry) Close() {
	g.mu.Lock()
	runs := g.runs
	g.runs = make(map[string]*Run)
	g.mu.Unlock()
	for _, run := range runs {
		g.unmount(run)
	}
}

func (g *Registry) unmount(run *Run) {
	for _, unsub := range run.unsub {
		unsub()
	}
	run.seq.Stop()
	run.hub.close()
	if run.recorder != nil {
		run.recorder.Close()
	}
}

// swapObserver records the order of a run each time it executes. Simulated
// executions have no transaction hash, so they are keyed by run and
// completion time.
func (g *Registry) swapObserver(runID string) func(sequencer.Event) {
	return func(ev sequencer.Event) {
		if ev.Type != sequencer.EventState || ev.State == nil {
			return
		}
		snap := ev.State
		if snap.Order == nil || (snap.Stage != sequencer.StageSuccess && snap.Stage != sequencer.StageCompleted) {
			return
		}

		txHash := snap.TxHash
		if txHash == "" {
			txHash = "sim:" + runID + ":" + snap.UpdatedAt.UTC().Format(time.RFC3339Nano)
		}
		swap := &history.Swap{
			RunID:      runID,
			TxHash:     txHash,
			SellToken:  snap.Order.SellToken,
			BuyToken:   snap.Order.BuyToken,
			SellAmount: snap.Order.SellAmount,
			BuyAmount:  snap.Order.BuyAmount,
			PriceUSD:   g.price(),
			ExecutedAt: snap.UpdatedAt,
		}
		// Subscribers run under the sequencer lock
		go func() {
			if err := g.swaps.Record(context.Background(), swap); err != nil {
				g.log.Error().Err(err).Str("run_id", runID).Msg("failed to record swap")
			}
		}()
	}
}
