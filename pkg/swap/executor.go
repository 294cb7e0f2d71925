package swap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

// Quoter produces unsigned swap transactions
type Quoter interface {
	Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)
}

// Executor quotes an order, has the wallet sign it and submits it
type Executor struct {
	quoter Quoter
	wallet wallet.Connector
	log    zerolog.Logger
}

// NewExecutor creates an Executor
func NewExecutor(quoter Quoter, w wallet.Connector, log zerolog.Logger) *Executor {
	return &Executor{quoter: quoter, wallet: w, log: log.With().Str("component", "swap").Logger()}
}

// Execute runs the order and returns the transaction hash
func (e *Executor) Execute(ctx context.Context, order *types.Order) (string, error) {
	if order == nil {
		return "", fmt.Errorf("%w: missing order", types.ErrInvalidOrder)
	}
	if !e.wallet.IsConnected() {
		return "", types.ErrWalletNotConnected
	}

	addrs, err := e.wallet.UsedAddresses(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get wallet addresses: %w", err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: wallet has no used addresses", types.ErrWalletNotConnected)
	}

	quote, err := e.quoter.Quote(ctx, &QuoteRequest{
		Address:    addrs[0],
		SellToken:  order.SellToken,
		BuyToken:   order.BuyToken,
		SellAmount: order.SellAmount,
		BuyAmount:  order.BuyAmount,
		Slippage:   order.Slippage,
		OrderType:  order.OrderType,
	})
	if err != nil {
		return "", err
	}
	e.log.Debug().Str("quote_id", quote.QuoteID).Float64("buy_amount", quote.BuyAmount).Msg("quote received")

	signed, err := e.wallet.SignTx(ctx, quote.UnsignedTx)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	hash, err := e.wallet.SubmitTx(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("failed to submit transaction: %w", err)
	}
	e.log.Info().Str("tx_hash", hash).Str("sell", order.SellToken).Str("buy", order.BuyToken).Msg("swap submitted")
	return hash, nil
}
