package types

import (
	"fmt"
	"strings"
)

// Command is the action an analysis recommends
type Command string

const (
	CommandBuy  Command = "buy"
	CommandSell Command = "sell"
	CommandHold Command = "hold"
)

// ParseCommand normalizes and validates a command string
func ParseCommand(s string) (Command, error) {
	switch c := Command(strings.ToLower(strings.TrimSpace(s))); c {
	case CommandBuy, CommandSell, CommandHold:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, s)
	}
}

// Recommendation is the decoded payload of a finished analysis
type Recommendation struct {
	Command       Command `json:"command"`
	Quantity      float64 `json:"quantity"`
	Summary       string  `json:"summary"`
	RiskReduction float64 `json:"risk_reduction,omitempty"` // percent
	Fallback      bool    `json:"fallback,omitempty"`       // substituted after a polling timeout
}

// Validate checks the command and quantity
func (r *Recommendation) Validate() error {
	if _, err := ParseCommand(string(r.Command)); err != nil {
		return err
	}
	if r.Quantity < 0 || (r.Command != CommandHold && r.Quantity == 0) {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, r.Quantity)
	}
	return nil
}

// Pair is the base/quote token pair a recommendation trades
type Pair struct {
	Base  string `json:"base" yaml:"base"`
	Quote string `json:"quote" yaml:"quote"`
}

// Order is a swap order as entered in the trading form
type Order struct {
	SellToken        string  `json:"sell_token"`
	BuyToken         string  `json:"buy_token"`
	SellAmount       float64 `json:"sell_amount"`
	BuyAmount        float64 `json:"buy_amount,omitempty"`
	Slippage         float64 `json:"slippage,omitempty"`   // percent
	OrderType        string  `json:"order_type,omitempty"` // "market" or "limit"
	AgentPreferences string  `json:"agent_preferences,omitempty"`
}

// Order types
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Order converts a recommendation into a swap order on the given pair.
// Hold recommendations produce no order.
func (r *Recommendation) Order(p Pair) *Order {
	switch r.Command {
	case CommandSell:
		return &Order{
			SellToken:  p.Base,
			BuyToken:   p.Quote,
			SellAmount: r.Quantity,
			OrderType:  OrderTypeMarket,
		}
	case CommandBuy:
		return &Order{
			SellToken: p.Quote,
			BuyToken:  p.Base,
			BuyAmount: r.Quantity,
			OrderType: OrderTypeMarket,
		}
	default:
		return nil
	}
}
