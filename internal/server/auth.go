package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

// ChallengeTTL is how long a login challenge can be answered
const ChallengeTTL = 5 * time.Minute

const tokenIssuer = "agentdesk"

type ctxKey int

const addressKey ctxKey = iota

type challenge struct {
	address string
	expires time.Time
}

// Authenticator issues session tokens to wallets that sign a challenge
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu         sync.Mutex
	challenges map[string]challenge
}

// NewAuthenticator creates an authenticator. An empty secret disables auth.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret:     []byte(secret),
		ttl:        ttl,
		now:        time.Now,
		challenges: make(map[string]challenge),
	}
}

// Enabled reports whether routes are protected
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Challenge creates a one-time challenge for address
func (a *Authenticator) Challenge(address string) (string, time.Time, error) {
	if !common.IsHexAddress(address) {
		return "", time.Time{}, fmt.Errorf("%w: malformed address %q", types.ErrSignatureInvalid, address)
	}
	nonce := uuid.NewString()
	expires := a.now().Add(ChallengeTTL)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked()
	a.challenges[nonce] = challenge{address: strings.ToLower(address), expires: expires}
	return nonce, expires, nil
}

// Verify consumes a challenge and returns a session token for its address
func (a *Authenticator) Verify(address, nonce, signature string) (string, time.Time, error) {
	a.mu.Lock()
	ch, ok := a.challenges[nonce]
	delete(a.challenges, nonce)
	a.mu.Unlock()

	if !ok || a.now().After(ch.expires) {
		return "", time.Time{}, fmt.Errorf("%w: unknown or expired challenge", types.ErrAuthenticationFailed)
	}
	if ch.address != strings.ToLower(address) {
		return "", time.Time{}, fmt.Errorf("%w: challenge was issued to another address", types.ErrAuthenticationFailed)
	}
	if err := wallet.VerifyChallenge(address, nonce, signature); err != nil {
		return "", time.Time{}, err
	}
	return a.issue(common.HexToAddress(address).Hex())
}

func (a *Authenticator) issue(address string) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a session token and returns its wallet address
func (a *Authenticator) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrAuthenticationFailed, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", types.ErrAuthenticationFailed)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid token when auth is enabled.
// Tokens are read from the Authorization header or, for websockets, the
// token query parameter.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing session token"})
			return
		}
		address, err := a.Parse(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), addressKey, address)))
	})
}

func (a *Authenticator) pruneLocked() {
	now := a.now()
	for nonce, ch := range a.challenges {
		if now.After(ch.expires) {
			delete(a.challenges, nonce)
		}
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return strings.TrimSpace(h[len("bearer "):])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// AddressFromContext returns the authenticated wallet address, if any
func AddressFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(addressKey).(string)
	return address, ok && address != ""
}
