package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/agentdesk/agentdesk/pkg/types"
)

// Mock wallet defaults
const (
	MockAddress      = "addr1qxck...r8xqz"
	MockConnectDelay = 500 * time.Millisecond
)

// MockBalance is the balance a mock wallet reports once connected
var MockBalance = decimal.NewFromInt(1000)

// MockConnector is an in-memory wallet. Signatures are deterministic hashes,
// not real signatures.
type MockConnector struct {
	mu        sync.Mutex
	connected bool
	provider  string
	submitted []string

	// Delay simulates the provider's approval prompt
	Delay time.Duration
	// Reject makes SignTx fail as if the user declined
	Reject bool
}

// NewMockConnector creates a disconnected mock wallet
func NewMockConnector() *MockConnector {
	return &MockConnector{Delay: MockConnectDelay}
}

// Connect connects after Delay
func (m *MockConnector) Connect(ctx context.Context, provider string) error {
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.provider = provider
	return nil
}

// Disconnect forgets the session
func (m *MockConnector) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.provider = ""
}

func (m *MockConnector) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockConnector) Address() string {
	if !m.IsConnected() {
		return ""
	}
	return MockAddress
}

// Provider returns the name passed to Connect
func (m *MockConnector) Provider() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}

func (m *MockConnector) Balance(ctx context.Context) (decimal.Decimal, error) {
	if !m.IsConnected() {
		return decimal.Zero, types.ErrWalletNotConnected
	}
	return MockBalance, nil
}

func (m *MockConnector) UsedAddresses(ctx context.Context) ([]string, error) {
	if !m.IsConnected() {
		return nil, types.ErrWalletNotConnected
	}
	return []string{MockAddress}, nil
}

func (m *MockConnector) SignTx(ctx context.Context, unsignedTx string) (string, error) {
	if !m.IsConnected() {
		return "", types.ErrWalletNotConnected
	}
	if m.Reject {
		return "", fmt.Errorf("%w: user declined to sign", types.ErrTransactionRejected)
	}
	if strings.TrimSpace(unsignedTx) == "" {
		return "", fmt.Errorf("%w: empty transaction", types.ErrTransactionRejected)
	}
	sig := crypto.Keccak256([]byte(MockAddress), []byte(unsignedTx))
	return unsignedTx + strings.TrimPrefix(hexutil.Encode(sig), "0x"), nil
}

func (m *MockConnector) SubmitTx(ctx context.Context, signedTx string) (string, error) {
	if !m.IsConnected() {
		return "", types.ErrWalletNotConnected
	}
	m.mu.Lock()
	m.submitted = append(m.submitted, signedTx)
	m.mu.Unlock()
	return crypto.Keccak256Hash([]byte(signedTx)).Hex(), nil
}

// Submitted returns every transaction passed to SubmitTx
func (m *MockConnector) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}
