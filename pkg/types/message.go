package types

import (
	"encoding/json"
	"errors"
	"time"
)

// Common errors
var (
	ErrInvalidCommand       = errors.New("invalid command")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrJobFailed            = errors.New("analysis job failed")
	ErrJobNotFound          = errors.New("analysis job not found")
	ErrWalletNotConnected   = errors.New("wallet not connected")
	ErrSignatureInvalid     = errors.New("invalid signature")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrQuoteUnavailable     = errors.New("swap quote unavailable")
	ErrTransactionRejected  = errors.New("transaction rejected")
)

// Message is the envelope pushed to dashboard clients over the run stream
type Message struct {
	Type      string          `json:"type"`
	RunID     string          `json:"run_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MessageType constants
const (
	MessageTypeState        = "state"
	MessageTypeNotification = "notification"
	MessageTypeError        = "error"
	MessageTypePing         = "ping"
)

// NewMessage encodes data into a stream envelope
func NewMessage(msgType, runID string, data interface{}) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{
		Type:      msgType,
		RunID:     runID,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ErrorMessage represents an error pushed to a client
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
