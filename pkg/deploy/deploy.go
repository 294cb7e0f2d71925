// Package deploy runs the staged agent deployment a user goes through after
// choosing a plan, persisting progress so an interrupted deployment resumes.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
)

// ErrDeploymentInProgress is returned when Deploy is called during a deployment
var ErrDeploymentInProgress = errors.New("deployment already in progress")

// Installer installs the agents once the deployment steps complete
type Installer interface {
	DeployAgents(ctx context.Context) ([]string, error)
}

// Timing holds the delay spent in each step
type Timing struct {
	WalletDelay    time.Duration
	ConfigureDelay time.Duration
	InstallDelay   time.Duration
	DeployDelay    time.Duration // agent installation after step 3
}

// DefaultTiming returns the stock step delays
func DefaultTiming() Timing {
	return Timing{
		WalletDelay:    time.Second,
		ConfigureDelay: 1500 * time.Millisecond,
		InstallDelay:   2 * time.Second,
		DeployDelay:    1500 * time.Millisecond,
	}
}

// DeployConfig contains all configuration for the deployer
type DeployConfig struct {
	StateFilePath string
	Installer     Installer
	Scheduler     sequencer.Scheduler
	Timing        Timing

	// OnUpdate is called with every persisted state change
	OnUpdate func(DeployState)
	Logger   zerolog.Logger
}

// Request describes what is being deployed
type Request struct {
	WalletAddress string `json:"wallet_address"`
	PlanID        string `json:"plan_id"`
	RiskLevel     string `json:"risk_level"`
}

// Deployer handles the staged deployment flow
type Deployer struct {
	config       *DeployConfig
	stateManager *StateManager
	log          zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	timer   sequencer.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewDeployer creates a new deployer instance
func NewDeployer(config *DeployConfig) (*Deployer, error) {
	if config.Installer == nil {
		return nil, fmt.Errorf("installer is required")
	}
	if config.Scheduler == nil {
		config.Scheduler = sequencer.RealScheduler()
	}
	def := DefaultTiming()
	if config.Timing.WalletDelay <= 0 {
		config.Timing.WalletDelay = def.WalletDelay
	}
	if config.Timing.ConfigureDelay <= 0 {
		config.Timing.ConfigureDelay = def.ConfigureDelay
	}
	if config.Timing.InstallDelay <= 0 {
		config.Timing.InstallDelay = def.InstallDelay
	}
	if config.Timing.DeployDelay <= 0 {
		config.Timing.DeployDelay = def.DeployDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Deployer{
		config:       config,
		stateManager: NewStateManager(config.StateFilePath),
		log:          config.Logger.With().Str("component", "deploy").Logger(),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Deploy starts a fresh deployment. It returns once step 1 is recorded; the
// remaining steps run on the scheduler.
func (d *Deployer) Deploy(req Request) error {
	if req.WalletAddress == "" {
		return types.ErrWalletNotConnected
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDeploymentInProgress
	}

	if _, err := d.stateManager.CreateInitialState(req.WalletAddress, req.PlanID, req.RiskLevel); err != nil {
		return fmt.Errorf("failed to create deployment state: %w", err)
	}
	d.log.Info().Str("wallet", req.WalletAddress).Str("plan", req.PlanID).Str("risk", req.RiskLevel).Msg("starting agent deployment")

	d.running = true
	return d.enterStep(StepWallet)
}

// Resume continues a deployment that was interrupted mid-way. It reports
// whether there was anything to resume.
func (d *Deployer) Resume() (bool, error) {
	state, err := d.stateManager.Load()
	if err != nil {
		return false, err
	}
	if state == nil || state.Status != StatusDeploying {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return false, ErrDeploymentInProgress
	}
	step := state.Step
	if step < StepWallet {
		step = StepWallet
	}
	d.log.Info().Int("step", step).Msg("resuming deployment")
	d.running = true
	return true, d.enterStep(step)
}

// State returns the persisted deployment state, or nil before any deployment
func (d *Deployer) State() (*DeployState, error) {
	return d.stateManager.Load()
}

// Clear forgets a finished or failed deployment so the next Deploy starts
// from an empty record. It refuses while a deployment is running.
func (d *Deployer) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDeploymentInProgress
	}
	if err := d.stateManager.Delete(); err != nil {
		return err
	}
	d.log.Info().Msg("deployment record cleared")
	return nil
}

// Running reports whether a deployment is in progress
func (d *Deployer) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Stop cancels the deployment in progress. The state file keeps the last
// recorded step so Resume can pick it up.
func (d *Deployer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.cancel()
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.running = false
}

func (d *Deployer) enterStep(step int) error {
	state, err := d.stateManager.SetStep(step)
	if err != nil {
		d.running = false
		return fmt.Errorf("failed to record step %d: %w", step, err)
	}
	d.log.Debug().Int("step", step).Int("total", TotalSteps).Msg("deployment step")
	d.notify(state)

	var delay time.Duration
	switch step {
	case StepWallet:
		delay = d.config.Timing.WalletDelay
	case StepConfigure:
		delay = d.config.Timing.ConfigureDelay
	default:
		delay = d.config.Timing.InstallDelay
	}

	gen := d.gen
	d.timer = d.config.Scheduler.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen != gen {
			return
		}
		if step < StepInstall {
			if err := d.enterStep(step + 1); err != nil {
				d.log.Error().Err(err).Msg("deployment step failed")
			}
			return
		}
		d.scheduleInstall(gen)
	})
	return nil
}

func (d *Deployer) scheduleInstall(gen uint64) {
	d.timer = d.config.Scheduler.AfterFunc(d.config.Timing.DeployDelay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		ctx := d.ctx
		d.mu.Unlock()

		agentIDs, installErr := d.config.Installer.DeployAgents(ctx)

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen != gen {
			return
		}
		d.running = false

		if installErr != nil {
			d.log.Error().Err(installErr).Msg("agent installation failed")
			if state, err := d.stateManager.SetFailed(installErr); err == nil {
				d.notify(state)
			}
			return
		}

		state, err := d.stateManager.SetDeployed(agentIDs)
		if err != nil {
			d.log.Error().Err(err).Msg("failed to record deployment")
			return
		}
		d.log.Info().Strs("agents", agentIDs).Msg("deployment complete")
		d.notify(state)
	})
}

func (d *Deployer) notify(state *DeployState) {
	if d.config.OnUpdate != nil {
		d.config.OnUpdate(*state)
	}
}
