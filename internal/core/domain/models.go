package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlanID identifies a subscription plan
type PlanID string

const (
	PlanBasic   PlanID = "basic"
	PlanPro     PlanID = "pro"
	PlanPremium PlanID = "premium"
)

// Plan is a subscription tier. Price is monthly, in USD.
type Plan struct {
	ID       PlanID   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Price    float64  `json:"price" yaml:"price"`
	Features []string `json:"features" yaml:"features"`
}

// RiskLevel is the user's appetite for portfolio risk
type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskBalanced     RiskLevel = "balanced"
	RiskRisky        RiskLevel = "risky"
)

// ParseRiskLevel validates a risk level string
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch r := RiskLevel(strings.ToLower(strings.TrimSpace(s))); r {
	case RiskConservative, RiskBalanced, RiskRisky:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRiskLevel, s)
	}
}

// Score maps the level onto a 0-100 gauge
func (r RiskLevel) Score() int {
	switch r {
	case RiskConservative:
		return 33
	case RiskBalanced:
		return 66
	default:
		return 100
	}
}

// AgentStatus is the run state of a deployed agent
type AgentStatus string

const (
	AgentRunning AgentStatus = "running"
	AgentPaused  AgentStatus = "paused"
	AgentError   AgentStatus = "error"
)

// Agent is a deployed trading agent
type Agent struct {
	ID             string      `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	Icon           string      `json:"icon" yaml:"icon"`
	Status         AgentStatus `json:"status" yaml:"status"`
	PortfolioDrift float64     `json:"portfolio_drift" yaml:"portfolio_drift"`
	ExecutedTrades int         `json:"executed_trades" yaml:"executed_trades"`
	APR            float64     `json:"apr" yaml:"apr"`
}

// Token is a tradable asset with the user's balance
type Token struct {
	Symbol  string  `json:"symbol" yaml:"symbol"`
	Name    string  `json:"name" yaml:"name"`
	Balance float64 `json:"balance" yaml:"balance"`
}

// Currency selects how prices are displayed
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyADA Currency = "ADA"
)

// NativeToken is the token whose balance is the wallet balance
const NativeToken = "ADA"

// DefaultAdaUsdPrice is used until the first price refresh
const DefaultAdaUsdPrice = 0.45

// Catalog is the static product data the service starts from
type Catalog struct {
	Plans             []Plan   `yaml:"plans"`
	Tokens            []Token  `yaml:"tokens"`
	Agents            []Agent  `yaml:"agents"`
	AnalysisScript    []string `yaml:"analysis_script"`
	NegotiationScript []string `yaml:"negotiation_script"`
}

// Trade is a single executed buy or sell of the native token
type Trade struct {
	Type      string    `json:"type"` // "buy" or "sell"
	Amount    float64   `json:"amount"`
	PriceUSD  float64   `json:"price_usd"`
	Timestamp time.Time `json:"timestamp"`
	TxHash    string    `json:"tx_hash"`
}

// PositionPnL contains the profit and loss of the native-token position
type PositionPnL struct {
	TotalBought      float64 `json:"total_bought"`
	TotalSold        float64 `json:"total_sold"`
	NetPosition      float64 `json:"net_position"`
	AverageBuyPrice  float64 `json:"avg_buy_price_usd"`
	AverageSellPrice float64 `json:"avg_sell_price_usd"`

	RealizedPnL   float64 `json:"realized_pnl_usd"`
	UnrealizedPnL float64 `json:"unrealized_pnl_usd"`
	TotalPnL      float64 `json:"total_pnl_usd"`
	ROI           float64 `json:"roi_percentage"`
}

// PortfolioStats is the dashboard summary
type PortfolioStats struct {
	TotalValue   float64     `json:"total_value"`
	AdaUsdPrice  float64     `json:"ada_usd_price"`
	RiskLevel    RiskLevel   `json:"risk_level"`
	RiskScore    int         `json:"risk_score"`
	ActiveAgents int         `json:"active_agents"`
	TotalAgents  int         `json:"total_agents"`
	Trades       int         `json:"trades"`
	PnL          PositionPnL `json:"pnl"`
}
