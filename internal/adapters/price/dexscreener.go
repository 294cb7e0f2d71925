package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultDexScreenerURL is the public DexScreener API
const DefaultDexScreenerURL = "https://api.dexscreener.com"

// DefaultTokenAddresses maps symbols to the contracts DexScreener indexes them under
var DefaultTokenAddresses = map[string]string{
	"ADA": "0x3EE2200Efb3400fAbB9AacF31297cBdD1d435D47", // Binance-Peg Cardano
}

type DexScreenerService struct {
	baseURL   string
	addresses map[string]string
	client    *http.Client
}

func NewDexScreenerService(baseURL string, addresses map[string]string) *DexScreenerService {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	if addresses == nil {
		addresses = DefaultTokenAddresses
	}
	return &DexScreenerService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		addresses: addresses,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *DexScreenerService) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	tokenAddress, ok := s.addresses[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("dexscreener: no token address for %s", symbol)
	}

	url := fmt.Sprintf("%s/latest/dex/tokens/%s", s.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("dexscreener api returned status: %d", resp.StatusCode)
	}

	var result struct {
		Pairs []struct {
			PriceUsd  string `json:"priceUsd"`
			ChainId   string `json:"chainId"`
			Liquidity struct {
				Usd float64 `json:"usd"`
			} `json:"liquidity"`
		} `json:"pairs"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	if len(result.Pairs) == 0 {
		return 0, fmt.Errorf("dexscreener: no pairs for %s", symbol)
	}

	// Deepest pool wins
	best := 0
	for i, p := range result.Pairs {
		if p.Liquidity.Usd > result.Pairs[best].Liquidity.Usd {
			best = i
		}
	}

	price, err := strconv.ParseFloat(result.Pairs[best].PriceUsd, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price: %w", err)
	}

	return price, nil
}
