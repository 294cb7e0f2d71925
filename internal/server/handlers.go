package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentdesk/agentdesk/internal/core/domain"
	"github.com/agentdesk/agentdesk/internal/core/service"
	"github.com/agentdesk/agentdesk/pkg/deploy"
	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/version"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

// Auth

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	nonce, expires, err := s.auth.Challenge(req.Address)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenge":  nonce,
		"message":    wallet.AuthMessagePrefix + nonce,
		"expires_at": expires,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address   string `json:"address"`
		Challenge string `json:"challenge"`
		Signature string `json:"signature"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if !s.auth.Enabled() {
		s.writeError(w, fmt.Errorf("%w: authentication is disabled", errBadRequest))
		return
	}
	token, expires, err := s.auth.Verify(req.Address, req.Challenge, req.Signature)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expires,
	})
}

// Catalog and account

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetBuildInfo())
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans":    s.trading.Plans(),
		"selected": s.trading.SelectedPlan(),
	})
}

func (s *Server) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	plan, err := s.trading.SelectPlan(req.PlanID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	risk := s.trading.RiskLevel()
	writeJSON(w, http.StatusOK, map[string]interface{}{"risk_level": risk, "risk_score": risk.Score()})
}

func (s *Server) handleSetRisk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiskLevel string `json:"risk_level"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	risk, err := s.trading.SetRiskLevel(req.RiskLevel)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"risk_level": risk, "risk_score": risk.Score()})
}

// Wallet

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wallet.Describe(r.Context(), s.wallet))
}

func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if err := s.wallet.Connect(r.Context(), req.Provider); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info().Str("address", s.wallet.Address()).Msg("wallet connected")
	writeJSON(w, http.StatusOK, wallet.Describe(r.Context(), s.wallet))
}

func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	s.wallet.Disconnect()
	writeJSON(w, http.StatusOK, wallet.Describe(r.Context(), s.wallet))
}

// Agents and deployment

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deployed": s.trading.AgentsDeployed(),
		"agents":   s.trading.Agents(),
	})
}

func (s *Server) handleToggleAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.trading.ToggleAgentStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeployAgents(w http.ResponseWriter, r *http.Request) {
	if !s.wallet.IsConnected() {
		s.writeError(w, types.ErrWalletNotConnected)
		return
	}
	plan := s.trading.SelectedPlan()
	if plan == nil {
		s.writeError(w, fmt.Errorf("%w: select a plan first", errBadRequest))
		return
	}

	// Without a deployer the agents are installed immediately
	if s.deployer == nil {
		ids, err := s.trading.DeployAgents(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": deploy.StatusDeployed, "agent_ids": ids})
		return
	}

	err := s.deployer.Deploy(deploy.Request{
		WalletAddress: s.wallet.Address(),
		PlanID:        string(plan.ID),
		RiskLevel:     string(s.trading.RiskLevel()),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	state, err := s.deployer.State()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (s *Server) handleDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deployer == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"deployed": s.trading.AgentsDeployed()})
		return
	}
	state, err := s.deployer.State()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if state == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": deploy.StatusPending, "step": deploy.StepIdle})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleClearDeployment drops a finished or failed deployment record
func (s *Server) handleClearDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deployer != nil {
		if err := s.deployer.Clear(); err != nil {
			s.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Portfolio

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, updated := s.trading.AdaUsdPrice()
	resp := map[string]interface{}{
		"symbol":  domain.NativeToken,
		"ada_usd": price,
	}
	if !updated.IsZero() {
		resp["updated_at"] = updated
	}

	// ?amount=10&currency=ADA formats a USD amount for display
	if amount := r.URL.Query().Get("amount"); amount != "" {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: invalid amount %q", errBadRequest, amount))
			return
		}
		currency := domain.Currency(strings.ToUpper(r.URL.Query().Get("currency")))
		if currency == "" {
			currency = domain.CurrencyUSD
		}
		resp["formatted"] = service.FormatCurrency(v, currency, price)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	info := wallet.Describe(r.Context(), s.wallet)
	writeJSON(w, http.StatusOK, s.trading.Tokens(info.Balance))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	info := wallet.Describe(r.Context(), s.wallet)
	stats, err := s.trading.Stats(r.Context(), info.Balance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, fmt.Errorf("%w: invalid limit %q", errBadRequest, v))
			return
		}
		limit = n
	}
	swaps, err := s.history.Swaps(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if swaps == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

// Runs

type runView struct {
	ID        string             `json:"id"`
	Owner     string             `json:"owner,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Viewers   int                `json:"viewers"`
	State     sequencer.Snapshot `json:"state"`
}

func viewOf(run *Run) runView {
	return runView{
		ID:        run.ID,
		Owner:     run.Owner,
		CreatedAt: run.CreatedAt,
		Viewers:   run.hub.size(),
		State:     run.seq.Snapshot(),
	}
}

func (s *Server) caller(r *http.Request) string {
	if address, ok := AddressFromContext(r.Context()); ok {
		return strings.ToLower(address)
	}
	return ""
}

// getRun returns a run visible to the caller. With auth enabled, runs of
// other wallets are reported as missing.
func (s *Server) getRun(r *http.Request) (*Run, error) {
	run, err := s.runs.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if s.auth.Enabled() && run.Owner != s.caller(r) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return run, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	caller := s.caller(r)
	views := []runView{}
	for _, run := range s.runs.List() {
		if s.auth.Enabled() && run.Owner != caller {
			continue
		}
		views = append(views, viewOf(run))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Flow  sequencer.Flow `json:"flow"`
		Start bool           `json:"start"`
	}
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.Flow == "" {
		req.Flow = sequencer.FlowAnalysis
	}
	if !req.Flow.Valid() {
		s.writeError(w, fmt.Errorf("%w: unknown flow %q", errBadRequest, req.Flow))
		return
	}

	owner := s.caller(r)
	if owner == "" && s.wallet.IsConnected() {
		owner = s.wallet.Address()
	}
	run, err := s.runs.Create(r.Context(), req.Flow, owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Start {
		if err := run.seq.Start(); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, viewOf(run))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.getRun(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(run))
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.getRun(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.runs.Remove(run.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunAction(action func(*sequencer.Sequencer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := s.getRun(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := action(run.seq); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run.seq.Snapshot())
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	run, err := s.getRun(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var order types.Order
	if err := decode(w, r, &order); err != nil {
		s.writeError(w, err)
		return
	}
	if order.OrderType == "" {
		order.OrderType = types.OrderTypeMarket
	}

	info := wallet.Describe(r.Context(), s.wallet)
	if err := s.trading.ValidateOrder(&order, info.Balance); err != nil {
		s.writeError(w, err)
		return
	}
	if err := run.seq.Submit(&order); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run.seq.Snapshot())
}
