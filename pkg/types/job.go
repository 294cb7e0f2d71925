package types

// JobStatus values reported by the analysis backend
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Holding is one token balance sent along with an analysis request
type Holding struct {
	Symbol  string  `json:"symbol"`
	Balance float64 `json:"balance"`
}

// JobRequest is the request body for POST /jobs
type JobRequest struct {
	WalletAddress string    `json:"wallet_address,omitempty"`
	RiskLevel     string    `json:"risk_level,omitempty"`
	Holdings      []Holding `json:"holdings,omitempty"`
	Pair          Pair      `json:"pair"`
	Preferences   string    `json:"preferences,omitempty"`
}

// JobResponse is the response from POST /jobs
type JobResponse struct {
	JobID string `json:"job_id"`
}

// JobResult wraps the JSON-encoded recommendation
type JobResult struct {
	Raw string `json:"raw"`
}

// JobStatusResponse is the response from GET /jobs/{id}
type JobStatusResponse struct {
	JobID  string     `json:"job_id,omitempty"`
	Status string     `json:"status"`
	Result *JobResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}
