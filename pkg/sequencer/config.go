package sequencer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/types"
)

// Progress checkpoints
const (
	ProgressEntry     = 25
	ProgressMidpoint  = 50
	ProgressStep      = 10
	ProgressPollStep  = 5
	ProgressCap       = 95
	ProgressCompleted = 100
)

// Timing holds the simulated delays of a run
type Timing struct {
	AnalyzeDelay time.Duration // analyzing -> recommending
	StepDelay    time.Duration // before each narration line
	FindDelay    time.Duration // finding -> negotiating
	ExecuteDelay time.Duration // executing -> completed
	ApproveDelay time.Duration // ready -> success
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// DefaultTiming returns the stock delays
func DefaultTiming() Timing {
	return Timing{
		AnalyzeDelay: 1500 * time.Millisecond,
		StepDelay:    time.Second,
		FindDelay:    time.Second,
		ExecuteDelay: 1500 * time.Millisecond,
		ApproveDelay: 1500 * time.Millisecond,
		PollInterval: 1500 * time.Millisecond,
		PollTimeout:  300 * time.Second,
	}
}

// DefaultAnalysisScript is the narration of the scripted analysis flow
var DefaultAnalysisScript = []string{
	"Analyzing current market conditions...",
	"Evaluating portfolio risk levels...",
	"Found potential optimization: Convert ADA to DJED to reduce volatility",
	"Recommended swap: 100 ADA → 38 DJED",
	"Expected risk reduction: -15%",
	"Analysis complete. Awaiting your approval.",
}

// DefaultNegotiationScript is the narration of the order flow
var DefaultNegotiationScript = []string{
	"Broadcasting order to liquidity agents...",
	"Market maker agent proposed a quote within slippage tolerance",
	"Routing agent found a cheaper path through the DJED pool",
	"Counter-offer accepted: price improved by 0.3%",
	"Risk agent approved the final terms",
	"Negotiation complete. Preparing execution...",
}

// DefaultRecommendation is the canned result of the scripted analysis flow
var DefaultRecommendation = types.Recommendation{
	Command:       types.CommandSell,
	Quantity:      100,
	Summary:       "Convert ADA to DJED to reduce volatility",
	RiskReduction: 15,
}

// DefaultFallback is substituted when an analysis job never completes
var DefaultFallback = types.Recommendation{
	Command:  types.CommandSell,
	Quantity: 3000,
	Summary:  "Analysis timed out. Reducing exposure as a precaution.",
}

// DefaultPair is the token pair recommendations trade on
var DefaultPair = types.Pair{Base: "ADA", Quote: "DJED"}

// Analyst runs a remote analysis job that is polled until it completes
type Analyst interface {
	Start(ctx context.Context) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (rec *types.Recommendation, done bool, err error)
}

// Executor carries out an approved order and returns the transaction hash
type Executor interface {
	Execute(ctx context.Context, order *types.Order) (txHash string, err error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, order *types.Order) (string, error)

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, order *types.Order) (string, error) {
	return f(ctx, order)
}

// Config configures a run
type Config struct {
	Flow      Flow
	Scheduler Scheduler
	Timing    Timing

	// Script is the narration appended during recommending/negotiating.
	// Defaults depend on the flow.
	Script []string

	// Analyst switches the analysis flow to the polling variant
	Analyst Analyst

	// Executor runs on approve (analysis) or in executing (order). Optional.
	Executor Executor

	// StrictTimeout ends a timed-out poll in StageTimedOut instead of
	// substituting Fallback.
	StrictTimeout bool
	Fallback      *types.Recommendation

	// Recommendation overrides the canned result of the scripted analysis flow
	Recommendation *types.Recommendation
	Pair           types.Pair

	Logger zerolog.Logger
}

func (c *Config) applyDefaults() {
	if !c.Flow.Valid() {
		c.Flow = FlowAnalysis
	}
	if c.Scheduler == nil {
		c.Scheduler = RealScheduler()
	}
	def := DefaultTiming()
	if c.Timing.AnalyzeDelay <= 0 {
		c.Timing.AnalyzeDelay = def.AnalyzeDelay
	}
	if c.Timing.StepDelay <= 0 {
		c.Timing.StepDelay = def.StepDelay
	}
	if c.Timing.FindDelay <= 0 {
		c.Timing.FindDelay = def.FindDelay
	}
	if c.Timing.ExecuteDelay <= 0 {
		c.Timing.ExecuteDelay = def.ExecuteDelay
	}
	if c.Timing.ApproveDelay <= 0 {
		c.Timing.ApproveDelay = def.ApproveDelay
	}
	if c.Timing.PollInterval <= 0 {
		c.Timing.PollInterval = def.PollInterval
	}
	if c.Timing.PollTimeout <= 0 {
		c.Timing.PollTimeout = def.PollTimeout
	}
	if c.Script == nil {
		if c.Flow == FlowOrder {
			c.Script = DefaultNegotiationScript
		} else {
			c.Script = DefaultAnalysisScript
		}
	}
	if c.Fallback == nil {
		fb := DefaultFallback
		c.Fallback = &fb
	}
	if c.Recommendation == nil {
		rec := DefaultRecommendation
		c.Recommendation = &rec
	}
	if c.Pair.Base == "" || c.Pair.Quote == "" {
		c.Pair = DefaultPair
	}
}
