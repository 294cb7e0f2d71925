package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DeployStatus represents the current status of a deployment
type DeployStatus string

const (
	StatusPending   DeployStatus = "pending"   // Plan chosen, deployment not started
	StatusDeploying DeployStatus = "deploying" // Steps in progress
	StatusDeployed  DeployStatus = "deployed"  // Agents installed
	StatusFailed    DeployStatus = "failed"
)

// Deployment steps
const (
	StepIdle      = 0
	StepWallet    = 1 // verifying wallet
	StepConfigure = 2 // configuring agents for the plan and risk level
	StepInstall   = 3 // installing agents
	StepComplete  = 4
	TotalSteps    = StepComplete
)

// DefaultStateFile is used when no state path is configured
const DefaultStateFile = ".agentdesk-deploy-state.json"

// DeployState tracks the progress of an agent deployment
type DeployState struct {
	WalletAddress string       `json:"wallet_address"`
	PlanID        string       `json:"plan_id,omitempty"`
	RiskLevel     string       `json:"risk_level,omitempty"`
	Step          int          `json:"step"`
	Status        DeployStatus `json:"status"`
	AgentIDs      []string     `json:"agent_ids,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
	CreatedAt     time.Time    `json:"created_at"`
	Error         string       `json:"error,omitempty"`
}

// Complete reports whether the deployment has finished successfully
func (s *DeployState) Complete() bool {
	return s.Status == StatusDeployed && s.Step == StepComplete
}

// StateManager handles persistent state storage for deploy operations
type StateManager struct {
	filePath string
	mu       sync.RWMutex
}

// NewStateManager creates a new state manager with the specified file path
func NewStateManager(filePath string) *StateManager {
	if filePath == "" {
		filePath = DefaultStateFile
	}

	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		os.MkdirAll(dir, 0700)
	}

	return &StateManager{
		filePath: filePath,
	}
}

// Load reads the state from disk. A missing file yields nil, nil.
func (sm *StateManager) Load() (*DeployState, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state DeployState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &state, nil
}

// Save writes the state to disk atomically
func (sm *StateManager) Save(state *DeployState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write to temp file first for atomic operation
	tempPath := sm.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tempPath, sm.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save state file: %w", err)
	}

	return nil
}

// Delete removes the state file
func (sm *StateManager) Delete() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := os.Remove(sm.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

func (sm *StateManager) update(fn func(*DeployState)) (*DeployState, error) {
	state, err := sm.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("no state to update")
	}
	fn(state)
	if err := sm.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetStep records progress through the deployment steps
func (sm *StateManager) SetStep(step int) (*DeployState, error) {
	return sm.update(func(s *DeployState) {
		s.Step = step
		s.Status = StatusDeploying
		s.Error = ""
	})
}

// SetDeployed marks the deployment complete
func (sm *StateManager) SetDeployed(agentIDs []string) (*DeployState, error) {
	return sm.update(func(s *DeployState) {
		s.Step = StepComplete
		s.Status = StatusDeployed
		s.AgentIDs = agentIDs
		s.Error = ""
	})
}

// SetFailed records a failure at the current step
func (sm *StateManager) SetFailed(cause error) (*DeployState, error) {
	return sm.update(func(s *DeployState) {
		s.Status = StatusFailed
		s.Error = cause.Error()
	})
}

// CreateInitialState creates a new state for a fresh deployment
func (sm *StateManager) CreateInitialState(walletAddress, planID, riskLevel string) (*DeployState, error) {
	now := time.Now().UTC()
	state := &DeployState{
		WalletAddress: walletAddress,
		PlanID:        planID,
		RiskLevel:     riskLevel,
		Step:          StepIdle,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := sm.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetFilePath returns the path to the state file
func (sm *StateManager) GetFilePath() string {
	return sm.filePath
}
