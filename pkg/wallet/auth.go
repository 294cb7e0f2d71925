package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/agentdesk/agentdesk/pkg/types"
)

const (
	// AuthMessagePrefix is the prefix used for signing login challenges
	AuthMessagePrefix = "AgentDesk login: "
)

// Signer signs dashboard login challenges
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewSigner creates a signer from a hex private key
func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKey, address, err := parseKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return &Signer{privateKey: privateKey, address: address.Hex()}, nil
}

// SignChallenge signs a challenge with the private key
func (s *Signer) SignChallenge(challenge string) (string, error) {
	hash := hashMessage([]byte(AuthMessagePrefix + challenge))

	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (27/28 instead of 0/1)
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// Address returns the wallet address
func (s *Signer) Address() string {
	return s.address
}

// VerifyChallenge checks that signature is address's signature over challenge
func VerifyChallenge(address, challenge, signature string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: malformed address %q", types.ErrSignatureInvalid, address)
	}

	sig, err := hexutil.Decode(ensureHexPrefix(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: malformed signature", types.ErrSignatureInvalid)
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := hashMessage([]byte(AuthMessagePrefix + challenge))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrSignatureInvalid, err)
	}

	if !strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), common.HexToAddress(address).Hex()) {
		return fmt.Errorf("%w: signer does not match %s", types.ErrSignatureInvalid, address)
	}
	return nil
}

// hashMessage hashes a message with the Ethereum signed message prefix
func hashMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}
