package swap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

var _ sequencer.Executor = (*Executor)(nil)

func quoteServer(t *testing.T, status int, resp interface{}) (*httptest.Server, *QuoteRequest) {
	t.Helper()
	got := &QuoteRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/quote", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func connectedMock(t *testing.T) *wallet.MockConnector {
	t.Helper()
	m := wallet.NewMockConnector()
	m.Delay = 0
	require.NoError(t, m.Connect(context.Background(), "nami"))
	return m
}

func TestExecutor_Execute(t *testing.T) {
	srv, got := quoteServer(t, http.StatusOK, QuoteResponse{QuoteID: "q1", UnsignedTx: "84a400", BuyAmount: 38})
	m := connectedMock(t)
	e := NewExecutor(NewClient(srv.URL), m, zerolog.Nop())

	hash, err := e.Execute(context.Background(), &types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 100, Slippage: 0.5})
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.Equal(t, wallet.MockAddress, got.Address)
	assert.Equal(t, "ADA", got.SellToken)
	assert.Equal(t, 100.0, got.SellAmount)
	assert.Equal(t, 0.5, got.Slippage)

	submitted := m.Submitted()
	require.Len(t, submitted, 1)
	assert.Contains(t, submitted[0], "84a400")
}

func TestExecutor_Errors(t *testing.T) {
	order := &types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 100}

	t.Run("wallet disconnected", func(t *testing.T) {
		srv, _ := quoteServer(t, http.StatusOK, QuoteResponse{UnsignedTx: "00"})
		e := NewExecutor(NewClient(srv.URL), wallet.NewMockConnector(), zerolog.Nop())
		_, err := e.Execute(context.Background(), order)
		assert.ErrorIs(t, err, types.ErrWalletNotConnected)
	})

	t.Run("quote error", func(t *testing.T) {
		srv, _ := quoteServer(t, http.StatusServiceUnavailable, ErrorResponse{Error: "no liquidity"})
		e := NewExecutor(NewClient(srv.URL), connectedMock(t), zerolog.Nop())
		_, err := e.Execute(context.Background(), order)
		assert.ErrorIs(t, err, types.ErrQuoteUnavailable)
		assert.Contains(t, err.Error(), "no liquidity")
	})

	t.Run("empty transaction", func(t *testing.T) {
		srv, _ := quoteServer(t, http.StatusOK, QuoteResponse{QuoteID: "q2"})
		e := NewExecutor(NewClient(srv.URL), connectedMock(t), zerolog.Nop())
		_, err := e.Execute(context.Background(), order)
		assert.ErrorIs(t, err, types.ErrQuoteUnavailable)
	})

	t.Run("user rejects", func(t *testing.T) {
		srv, _ := quoteServer(t, http.StatusOK, QuoteResponse{UnsignedTx: "00"})
		m := connectedMock(t)
		m.Reject = true
		e := NewExecutor(NewClient(srv.URL), m, zerolog.Nop())
		_, err := e.Execute(context.Background(), order)
		assert.ErrorIs(t, err, types.ErrTransactionRejected)
		assert.Empty(t, m.Submitted())
	})

	t.Run("nil order", func(t *testing.T) {
		e := NewExecutor(NewClient("http://unused"), connectedMock(t), zerolog.Nop())
		_, err := e.Execute(context.Background(), nil)
		assert.ErrorIs(t, err, types.ErrInvalidOrder)
	})
}
