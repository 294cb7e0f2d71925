package price

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gbinance "github.com/adshao/go-binance/v2"
)

// BinanceService reads spot prices from Binance's public ticker
type BinanceService struct {
	client *gbinance.Client
	quote  string
}

// NewBinanceService creates a price source quoting symbols against USDT.
// Keys may be empty; the ticker endpoint is public.
func NewBinanceService(apiKey, secretKey, baseURL string) *BinanceService {
	client := gbinance.NewClient(apiKey, secretKey)
	client.HTTPClient = &http.Client{Timeout: 7 * time.Second}
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &BinanceService{client: client, quote: "USDT"}
}

func (b *BinanceService) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	pair := strings.ToUpper(symbol) + b.quote

	prices, err := b.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance: failed to get price for %s: %w", pair, err)
	}
	for _, p := range prices {
		if p.Symbol != pair {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("binance: failed to parse price %q: %w", p.Price, err)
		}
		return price, nil
	}
	return 0, fmt.Errorf("binance: no price for %s", pair)
}
