package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/agentdesk/agentdesk/internal/core/domain"
	"github.com/agentdesk/agentdesk/pkg/types"
)

// TradingService holds the account-level state of the dashboard: plan,
// risk level, deployed agents and the ADA price.
type TradingService struct {
	catalog       domain.Catalog
	priceService  domain.PriceService
	history       domain.TradeHistory
	pnlCalculator domain.PortfolioCalculator
	log           zerolog.Logger

	mu             sync.RWMutex
	selectedPlan   *domain.Plan
	riskLevel      domain.RiskLevel
	agents         []domain.Agent
	deployed       bool
	adaUsdPrice    float64
	priceUpdatedAt time.Time
}

func NewTradingService(
	catalog domain.Catalog,
	price domain.PriceService,
	history domain.TradeHistory,
	calc domain.PortfolioCalculator,
	log zerolog.Logger,
) *TradingService {
	if calc == nil {
		calc = NewPortfolioCalculator()
	}
	return &TradingService{
		catalog:       catalog,
		priceService:  price,
		history:       history,
		pnlCalculator: calc,
		log:           log.With().Str("component", "trading").Logger(),
		riskLevel:     domain.RiskBalanced,
		adaUsdPrice:   domain.DefaultAdaUsdPrice,
	}
}

// Plans returns the subscription catalog
func (s *TradingService) Plans() []domain.Plan {
	return append([]domain.Plan(nil), s.catalog.Plans...)
}

// SelectPlan picks a plan by id
func (s *TradingService) SelectPlan(id string) (*domain.Plan, error) {
	for _, p := range s.catalog.Plans {
		if string(p.ID) == id {
			plan := p
			s.mu.Lock()
			s.selectedPlan = &plan
			s.mu.Unlock()
			s.log.Info().Str("plan", id).Msg("plan selected")
			return &plan, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, id)
}

// SelectedPlan returns the chosen plan, or nil
func (s *TradingService) SelectedPlan() *domain.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedPlan == nil {
		return nil
	}
	p := *s.selectedPlan
	return &p
}

// RiskLevel returns the selected risk level
func (s *TradingService) RiskLevel() domain.RiskLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.riskLevel
}

// SetRiskLevel validates and stores a risk level
func (s *TradingService) SetRiskLevel(level string) (domain.RiskLevel, error) {
	r, err := domain.ParseRiskLevel(level)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.riskLevel = r
	s.mu.Unlock()
	return r, nil
}

// Agents returns the deployed agents
func (s *TradingService) Agents() []domain.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Agent(nil), s.agents...)
}

// AgentsDeployed reports whether DeployAgents has completed
func (s *TradingService) AgentsDeployed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deployed
}

// DeployAgents installs the catalog agents and returns their ids
func (s *TradingService) DeployAgents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append([]domain.Agent(nil), s.catalog.Agents...)
	s.deployed = true

	ids := make([]string, 0, len(s.agents))
	for _, a := range s.agents {
		ids = append(ids, a.ID)
	}
	s.log.Info().Int("agents", len(ids)).Msg("agents deployed")
	return ids, nil
}

// ToggleAgentStatus flips an agent between running and paused
func (s *TradingService) ToggleAgentStatus(id string) (*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deployed {
		return nil, domain.ErrAgentsNotDeployed
	}
	for i := range s.agents {
		if s.agents[i].ID != id {
			continue
		}
		if s.agents[i].Status == domain.AgentRunning {
			s.agents[i].Status = domain.AgentPaused
		} else {
			s.agents[i].Status = domain.AgentRunning
		}
		a := s.agents[i]
		s.log.Info().Str("agent", id).Str("status", string(a.Status)).Msg("agent toggled")
		return &a, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, id)
}

// AdaUsdPrice returns the last known ADA price
func (s *TradingService) AdaUsdPrice() (float64, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adaUsdPrice, s.priceUpdatedAt
}

// RefreshPrice fetches the ADA price. On error the previous price is kept.
func (s *TradingService) RefreshPrice(ctx context.Context) (float64, error) {
	if s.priceService == nil {
		price, _ := s.AdaUsdPrice()
		return price, nil
	}

	price, err := s.priceService.GetCurrentPrice(ctx, domain.NativeToken)
	if err != nil {
		return 0, fmt.Errorf("failed to get price: %w", err)
	}
	price = math.Round(price*100) / 100

	s.mu.Lock()
	s.adaUsdPrice = price
	s.priceUpdatedAt = time.Now().UTC()
	s.mu.Unlock()
	s.log.Debug().Float64("ada_usd", price).Msg("price refreshed")
	return price, nil
}

// Tokens returns the tradable tokens. The native token carries the wallet balance.
func (s *TradingService) Tokens(walletBalance decimal.Decimal) []domain.Token {
	out := make([]domain.Token, len(s.catalog.Tokens))
	copy(out, s.catalog.Tokens)
	for i := range out {
		if out[i].Symbol == domain.NativeToken {
			out[i].Balance = walletBalance.InexactFloat64()
		}
	}
	return out
}

// ValidateOrder checks an order against the token list before it is submitted
func (s *TradingService) ValidateOrder(order *types.Order, walletBalance decimal.Decimal) error {
	if order == nil || order.SellAmount == 0 {
		return domain.ErrMissingAmount
	}
	if order.SellAmount < 0 {
		return domain.ErrNonPositiveAmount
	}
	if strings.EqualFold(order.SellToken, order.BuyToken) {
		return domain.ErrSameToken
	}

	var sell *domain.Token
	tokens := s.Tokens(walletBalance)
	for i := range tokens {
		if strings.EqualFold(tokens[i].Symbol, order.SellToken) {
			sell = &tokens[i]
		}
	}
	if sell == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownToken, order.SellToken)
	}
	if !s.knownToken(order.BuyToken) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownToken, order.BuyToken)
	}
	if decimal.NewFromFloat(order.SellAmount).GreaterThan(decimal.NewFromFloat(sell.Balance)) {
		return fmt.Errorf("%w: %s balance is %v", domain.ErrInsufficientBalance, sell.Symbol, sell.Balance)
	}
	return nil
}

func (s *TradingService) knownToken(symbol string) bool {
	for _, t := range s.catalog.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return true
		}
	}
	return false
}

// Stats summarizes the portfolio for the dashboard
func (s *TradingService) Stats(ctx context.Context, walletBalance decimal.Decimal) (*domain.PortfolioStats, error) {
	price, _ := s.AdaUsdPrice()

	var trades []domain.Trade
	if s.history != nil {
		var err error
		trades, err = s.history.Trades(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load trade history: %w", err)
		}
	}
	pnl := s.pnlCalculator.Calculate(trades, price)

	s.mu.RLock()
	risk := s.riskLevel
	active := 0
	for _, a := range s.agents {
		if a.Status == domain.AgentRunning {
			active++
		}
	}
	total := len(s.agents)
	s.mu.RUnlock()

	value := walletBalance.Mul(decimal.NewFromFloat(price)).Round(2)

	return &domain.PortfolioStats{
		TotalValue:   value.InexactFloat64(),
		AdaUsdPrice:  price,
		RiskLevel:    risk,
		RiskScore:    risk.Score(),
		ActiveAgents: active,
		TotalAgents:  total,
		Trades:       len(trades),
		PnL:          *pnl,
	}, nil
}
