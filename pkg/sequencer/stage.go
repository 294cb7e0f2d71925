package sequencer

// Stage is a named point in an order lifecycle
type Stage string

const (
	StageCreating     Stage = "creating"
	StageAnalyzing    Stage = "analyzing"
	StageRecommending Stage = "recommending"
	StageReady        Stage = "ready"
	StageNegotiating  Stage = "negotiating"
	StageExecuting    Stage = "executing"
	StageSuccess      Stage = "success"
	StageCompleted    Stage = "completed"
	StageFinding      Stage = "finding"

	// Error terminals. A run only reaches these when the analysis backend fails
	// or when a polling timeout is configured to be strict.
	StageFailed   Stage = "failed"
	StageTimedOut Stage = "timed_out"
)

var stages = map[Stage]struct{}{
	StageCreating:     {},
	StageAnalyzing:    {},
	StageRecommending: {},
	StageReady:        {},
	StageNegotiating:  {},
	StageExecuting:    {},
	StageSuccess:      {},
	StageCompleted:    {},
	StageFinding:      {},
	StageFailed:       {},
	StageTimedOut:     {},
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	_, ok := stages[s]
	return ok
}

// Terminal reports whether a run stays in s until it is reset
func (s Stage) Terminal() bool {
	switch s {
	case StageSuccess, StageCompleted, StageFailed, StageTimedOut:
		return true
	}
	return false
}

// Flow selects which linear stage order a run follows
type Flow string

const (
	FlowAnalysis Flow = "analysis"
	FlowOrder    Flow = "order"
)

// Valid reports whether f is a known flow
func (f Flow) Valid() bool {
	return f == FlowAnalysis || f == FlowOrder
}

// InitialStage returns the stage a fresh or reset run starts in
func (f Flow) InitialStage() Stage {
	if f == FlowOrder {
		return StageCreating
	}
	return StageAnalyzing
}

// Stages returns the happy-path stage order of the flow
func (f Flow) Stages() []Stage {
	if f == FlowOrder {
		return []Stage{StageCreating, StageFinding, StageNegotiating, StageExecuting, StageCompleted}
	}
	return []Stage{StageAnalyzing, StageRecommending, StageReady, StageSuccess}
}
