package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdesk/agentdesk/internal/core/domain"
	"github.com/agentdesk/agentdesk/pkg/types"
)

var testCatalog = domain.Catalog{
	Plans: []domain.Plan{
		{ID: domain.PlanBasic, Name: "Basic", Price: 10},
		{ID: domain.PlanPro, Name: "Pro", Price: 20},
	},
	Tokens: []domain.Token{
		{Symbol: "ADA", Name: "Cardano"},
		{Symbol: "DJED", Name: "Djed Stablecoin", Balance: 100},
		{Symbol: "MIN", Name: "Minswap", Balance: 250},
	},
	Agents: []domain.Agent{
		{ID: "rebalancer-1", Name: "Portfolio Rebalancer", Status: domain.AgentRunning},
		{ID: "yield-1", Name: "Yield Optimizer", Status: domain.AgentPaused},
	},
}

type stubPrice struct {
	price float64
	err   error
}

func (s stubPrice) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, s.err
}

type stubHistory []domain.Trade

func (h stubHistory) Trades(ctx context.Context) ([]domain.Trade, error) {
	return h, nil
}

func newService(price domain.PriceService, history domain.TradeHistory) *TradingService {
	return NewTradingService(testCatalog, price, history, nil, zerolog.Nop())
}

func TestTradingService_Plans(t *testing.T) {
	s := newService(nil, nil)
	assert.Len(t, s.Plans(), 2)
	assert.Nil(t, s.SelectedPlan())

	plan, err := s.SelectPlan("pro")
	require.NoError(t, err)
	assert.Equal(t, 20.0, plan.Price)
	assert.Equal(t, domain.PlanPro, s.SelectedPlan().ID)

	_, err = s.SelectPlan("enterprise")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	assert.Equal(t, domain.PlanPro, s.SelectedPlan().ID)
}

func TestTradingService_RiskLevel(t *testing.T) {
	s := newService(nil, nil)
	assert.Equal(t, domain.RiskBalanced, s.RiskLevel())

	r, err := s.SetRiskLevel(" Risky ")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskRisky, r)
	assert.Equal(t, 100, s.RiskLevel().Score())

	_, err = s.SetRiskLevel("yolo")
	assert.ErrorIs(t, err, domain.ErrInvalidRiskLevel)
	assert.Equal(t, domain.RiskRisky, s.RiskLevel())
}

func TestTradingService_Agents(t *testing.T) {
	s := newService(nil, nil)
	_, err := s.ToggleAgentStatus("yield-1")
	assert.ErrorIs(t, err, domain.ErrAgentsNotDeployed)

	ids, err := s.DeployAgents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rebalancer-1", "yield-1"}, ids)
	assert.True(t, s.AgentsDeployed())

	a, err := s.ToggleAgentStatus("yield-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRunning, a.Status)

	a, err = s.ToggleAgentStatus("yield-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentPaused, a.Status)

	_, err = s.ToggleAgentStatus("ghost")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	// the catalog is not mutated by toggles
	assert.Equal(t, domain.AgentPaused, testCatalog.Agents[1].Status)
}

func TestTradingService_DeployAgentsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newService(nil, nil).DeployAgents(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTradingService_RefreshPrice(t *testing.T) {
	s := newService(stubPrice{price: 0.4271}, nil)
	price, _ := s.AdaUsdPrice()
	assert.Equal(t, domain.DefaultAdaUsdPrice, price)

	got, err := s.RefreshPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.43, got)
	price, at := s.AdaUsdPrice()
	assert.Equal(t, 0.43, price)
	assert.False(t, at.IsZero())

	failing := newService(stubPrice{err: errors.New("upstream down")}, nil)
	_, err = failing.RefreshPrice(context.Background())
	assert.Error(t, err)
	price, _ = failing.AdaUsdPrice()
	assert.Equal(t, domain.DefaultAdaUsdPrice, price)
}

func TestTradingService_Tokens(t *testing.T) {
	s := newService(nil, nil)
	tokens := s.Tokens(decimal.NewFromInt(1000))
	require.Len(t, tokens, 3)
	assert.Equal(t, 1000.0, tokens[0].Balance)
	assert.Equal(t, 0.0, testCatalog.Tokens[0].Balance)
}

func TestTradingService_ValidateOrder(t *testing.T) {
	s := newService(nil, nil)
	balance := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		order   *types.Order
		wantErr error
	}{
		{"valid", &types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 100}, nil},
		{"whole balance", &types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 1000}, nil},
		{"nil", nil, domain.ErrMissingAmount},
		{"missing amount", &types.Order{SellToken: "ADA", BuyToken: "DJED"}, domain.ErrMissingAmount},
		{"negative", &types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: -1}, domain.ErrNonPositiveAmount},
		{"same token", &types.Order{SellToken: "ADA", BuyToken: "ada", SellAmount: 1}, domain.ErrSameToken},
		{"unknown sell", &types.Order{SellToken: "BTC", BuyToken: "ADA", SellAmount: 1}, domain.ErrUnknownToken},
		{"unknown buy", &types.Order{SellToken: "ADA", BuyToken: "BTC", SellAmount: 1}, domain.ErrUnknownToken},
		{"insufficient", &types.Order{SellToken: "DJED", BuyToken: "ADA", SellAmount: 100.01}, domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateOrder(tt.order, balance)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTradingService_Stats(t *testing.T) {
	now := time.Now()
	history := stubHistory{
		{Type: "buy", Amount: 100, PriceUSD: 0.40, Timestamp: now.Add(-2 * time.Hour)},
		{Type: "sell", Amount: 50, PriceUSD: 0.50, Timestamp: now.Add(-time.Hour)},
	}
	s := newService(nil, history)
	s.DeployAgents(context.Background())

	stats, err := s.Stats(context.Background(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, 450.0, stats.TotalValue)
	assert.Equal(t, domain.RiskBalanced, stats.RiskLevel)
	assert.Equal(t, 66, stats.RiskScore)
	assert.Equal(t, 1, stats.ActiveAgents)
	assert.Equal(t, 2, stats.TotalAgents)
	assert.Equal(t, 2, stats.Trades)
	assert.InDelta(t, 5.0, stats.PnL.RealizedPnL, 1e-9)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$10.00", FormatCurrency(10, domain.CurrencyUSD, 0.45))
	assert.Equal(t, "₳22.22", FormatCurrency(10, domain.CurrencyADA, 0.45))
	assert.Equal(t, "₳66.67", FormatCurrency(30, domain.CurrencyADA, 0.45))
	assert.Equal(t, "₳22.22", FormatCurrency(10, domain.CurrencyADA, 0))
}
