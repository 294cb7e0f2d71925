// Package wallet connects the sequencer to a signing wallet
package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// Connector is a browser-style wallet: it is connected explicitly, exposes
// the addresses it has used and signs transactions built elsewhere.
type Connector interface {
	Connect(ctx context.Context, provider string) error
	Disconnect()
	IsConnected() bool
	Address() string
	Balance(ctx context.Context) (decimal.Decimal, error)
	UsedAddresses(ctx context.Context) ([]string, error)

	// SignTx signs a hex-encoded unsigned transaction and returns the
	// hex-encoded signed transaction.
	SignTx(ctx context.Context, unsignedTx string) (string, error)

	// SubmitTx broadcasts a signed transaction and returns its hash
	SubmitTx(ctx context.Context, signedTx string) (string, error)
}

// Info is the wallet state exposed to the dashboard
type Info struct {
	Connected bool            `json:"connected"`
	Address   string          `json:"address,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

// Describe reads the current wallet state. Balance errors leave the balance at zero.
func Describe(ctx context.Context, c Connector) Info {
	if !c.IsConnected() {
		return Info{}
	}
	info := Info{Connected: true, Address: c.Address()}
	if bal, err := c.Balance(ctx); err == nil {
		info.Balance = bal
	}
	return info
}
