package service

import (
	"github.com/shopspring/decimal"

	"github.com/agentdesk/agentdesk/internal/core/domain"
)

// FormatCurrency renders a USD price either as dollars or converted to ADA
func FormatCurrency(price float64, currency domain.Currency, adaUsdPrice float64) string {
	p := decimal.NewFromFloat(price)
	if currency != domain.CurrencyADA {
		return "$" + p.StringFixed(2)
	}
	if adaUsdPrice <= 0 {
		adaUsdPrice = domain.DefaultAdaUsdPrice
	}
	ada := p.Div(decimal.NewFromFloat(adaUsdPrice))
	return "₳" + ada.StringFixed(2)
}
