package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/agentdesk/agentdesk/pkg/types"
)

// EthereumConnector is a private-key wallet on an EVM chain
type EthereumConnector struct {
	rpcEndpoint string
	chainID     *big.Int
	privateKey  *ecdsa.PrivateKey
	address     common.Address

	mu     sync.Mutex
	client *ethclient.Client
}

// NewEthereumConnector parses the key and chain id. Nothing is dialed until Connect.
func NewEthereumConnector(rpcEndpoint, chainIDStr, privateKeyHex string) (*EthereumConnector, error) {
	privateKey, address, err := parseKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, ok := new(big.Int).SetString(chainIDStr, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain ID: %s", chainIDStr)
	}

	return &EthereumConnector{
		rpcEndpoint: rpcEndpoint,
		chainID:     chainID,
		privateKey:  privateKey,
		address:     address,
	}, nil
}

// Connect dials the RPC endpoint and checks that it serves the configured chain
func (e *EthereumConnector) Connect(ctx context.Context, provider string) error {
	client, err := ethclient.DialContext(ctx, e.rpcEndpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}

	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if remote.Cmp(e.chainID) != 0 {
		client.Close()
		return fmt.Errorf("RPC serves chain %s, expected %s", remote, e.chainID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
	}
	e.client = client
	return nil
}

// Disconnect closes the RPC connection
func (e *EthereumConnector) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
}

func (e *EthereumConnector) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client != nil
}

// Address returns the checksummed address of the key
func (e *EthereumConnector) Address() string {
	return e.address.Hex()
}

// Balance returns the native balance in ether
func (e *EthereumConnector) Balance(ctx context.Context) (decimal.Decimal, error) {
	client, err := e.rpc()
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := client.BalanceAt(ctx, e.address, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

func (e *EthereumConnector) UsedAddresses(ctx context.Context) ([]string, error) {
	if !e.IsConnected() {
		return nil, types.ErrWalletNotConnected
	}
	return []string{e.address.Hex()}, nil
}

// SignTx decodes a binary-encoded transaction and signs it for the configured chain
func (e *EthereumConnector) SignTx(ctx context.Context, unsignedTx string) (string, error) {
	raw, err := hexutil.Decode(ensureHexPrefix(unsignedTx))
	if err != nil {
		return "", fmt.Errorf("invalid transaction encoding: %w", err)
	}

	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}

	signer := ethtypes.LatestSignerForChainID(e.chainID)
	signedTx, err := ethtypes.SignTx(tx, signer, e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	out, err := signedTx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode signed transaction: %w", err)
	}
	return hexutil.Encode(out), nil
}

// SubmitTx broadcasts a signed transaction
func (e *EthereumConnector) SubmitTx(ctx context.Context, signedTx string) (string, error) {
	client, err := e.rpc()
	if err != nil {
		return "", err
	}

	raw, err := hexutil.Decode(ensureHexPrefix(signedTx))
	if err != nil {
		return "", fmt.Errorf("invalid transaction encoding: %w", err)
	}
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrTransactionRejected, err)
	}
	return tx.Hash().Hex(), nil
}

// Signer returns a challenge signer for the connector's key
func (e *EthereumConnector) Signer() *Signer {
	return &Signer{privateKey: e.privateKey, address: e.address.Hex()}
}

func (e *EthereumConnector) rpc() (*ethclient.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, types.ErrWalletNotConnected
	}
	return e.client, nil
}

func parseKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("failed to derive public key")
	}
	return privateKey, crypto.PubkeyToAddress(*publicKeyECDSA), nil
}

func ensureHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "0x" + s
	}
	return s
}
