package service

import (
	"sort"

	"github.com/agentdesk/agentdesk/internal/core/domain"
)

type PortfolioCalculator struct{}

func NewPortfolioCalculator() domain.PortfolioCalculator {
	return &PortfolioCalculator{}
}

// Calculate computes average-cost PnL for the native-token position built by trades.
func (p *PortfolioCalculator) Calculate(trades []domain.Trade, currentPrice float64) *domain.PositionPnL {
	var totalBought, totalSold float64
	var totalCost, totalRevenue float64

	sorted := append([]domain.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	for _, t := range sorted {
		switch t.Type {
		case "buy":
			totalBought += t.Amount
			totalCost += t.Amount * t.PriceUSD
		case "sell":
			totalSold += t.Amount
			totalRevenue += t.Amount * t.PriceUSD
		}
	}

	netPosition := totalBought - totalSold

	avgBuyPrice := 0.0
	if totalBought > 0 {
		avgBuyPrice = totalCost / totalBought
	}

	avgSellPrice := 0.0
	if totalSold > 0 {
		avgSellPrice = totalRevenue / totalSold
	}

	// Sells of tokens that were never bought here (the wallet's starting
	// balance) have no recorded cost, so they are valued at the current price.
	costBasis := avgBuyPrice
	if totalBought == 0 {
		costBasis = currentPrice
	}
	realizedPnL := totalRevenue - totalSold*costBasis

	unrealizedPnL := 0.0
	if netPosition > 0 {
		unrealizedPnL = netPosition * (currentPrice - avgBuyPrice)
	}

	totalPnL := realizedPnL + unrealizedPnL

	roi := 0.0
	if totalCost > 0 {
		roi = (totalPnL / totalCost) * 100
	}

	return &domain.PositionPnL{
		TotalBought:      totalBought,
		TotalSold:        totalSold,
		NetPosition:      netPosition,
		AverageBuyPrice:  avgBuyPrice,
		AverageSellPrice: avgSellPrice,
		RealizedPnL:      realizedPnL,
		UnrealizedPnL:    unrealizedPnL,
		TotalPnL:         totalPnL,
		ROI:              roi,
	}
}
