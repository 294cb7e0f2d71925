package domain

import (
	"context"
	"errors"
)

var (
	ErrPlanNotFound        = errors.New("plan not found")
	ErrAgentNotFound       = errors.New("agent not found")
	ErrAgentsNotDeployed   = errors.New("agents not deployed")
	ErrInvalidRiskLevel    = errors.New("invalid risk level")
	ErrMissingAmount       = errors.New("please enter an amount to swap")
	ErrNonPositiveAmount   = errors.New("amount must be greater than zero")
	ErrSameToken           = errors.New("cannot swap a token for itself")
	ErrUnknownToken        = errors.New("unknown token")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// PriceService defines how to get token price data.
type PriceService interface {
	// GetCurrentPrice returns the current USD price of the token.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// TradeHistory lists executed trades of the native token, oldest first
type TradeHistory interface {
	Trades(ctx context.Context) ([]Trade, error)
}

// PortfolioCalculator defines the logic to compute PnL.
type PortfolioCalculator interface {
	Calculate(trades []Trade, currentPrice float64) *PositionPnL
}
