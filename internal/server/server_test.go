package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdesk/agentdesk/internal/catalog"
	"github.com/agentdesk/agentdesk/internal/core/service"
	"github.com/agentdesk/agentdesk/internal/history"
	"github.com/agentdesk/agentdesk/internal/journal"
	"github.com/agentdesk/agentdesk/pkg/deploy"
	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

const (
	aliceKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	bobKey   = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

type memorySwaps struct {
	mu    sync.Mutex
	swaps []history.Swap
}

func (m *memorySwaps) Record(ctx context.Context, swap *history.Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps = append(m.swaps, *swap)
	return nil
}

func (m *memorySwaps) Swaps(ctx context.Context, limit int) ([]history.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Swap(nil), m.swaps...), nil
}

func (m *memorySwaps) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.swaps)
}

type fixture struct {
	srv    *Server
	http   *httptest.Server
	sched  *sequencer.ManualScheduler
	wallet *wallet.MockConnector
	swaps  *memorySwaps
	token  string
}

func newFixture(t *testing.T, auth *Authenticator) *fixture {
	t.Helper()
	f := &fixture{
		sched:  sequencer.NewManualScheduler(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		wallet: wallet.NewMockConnector(),
		swaps:  &memorySwaps{},
	}
	f.wallet.Delay = 0

	trading := service.NewTradingService(catalog.Default(), nil, nil, nil, zerolog.Nop())
	runs := NewRegistry(RegistryConfig{
		Scheduler: f.sched,
		Swaps:     f.swaps,
		Logger:    zerolog.Nop(),
	})
	f.srv = New(Config{
		Trading: trading,
		Wallet:  f.wallet,
		History: f.swaps,
		Runs:    runs,
		Auth:    auth,
		Log:     zerolog.Nop(),
	})
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(func() {
		f.http.Close()
		runs.Close()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.http.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (f *fixture) createRun(t *testing.T, flow sequencer.Flow) runView {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{"flow": flow})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view runView
	decodeBody(t, resp, &view)
	return view
}

func (f *fixture) snapshot(t *testing.T, id string) sequencer.Snapshot {
	t.Helper()
	resp := f.do(t, http.MethodGet, "/api/runs/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view runView
	decodeBody(t, resp, &view)
	return view.State
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/plans", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plans struct {
		Plans []map[string]interface{} `json:"plans"`
	}
	decodeBody(t, resp, &plans)
	assert.Len(t, plans.Plans, 3)
}

func TestServer_AnalysisRun(t *testing.T) {
	f := newFixture(t, nil)
	view := f.createRun(t, sequencer.FlowAnalysis)
	assert.Equal(t, sequencer.StageCreating, view.State.Stage)

	resp := f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap sequencer.Snapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, sequencer.StageAnalyzing, snap.Stage)
	assert.Equal(t, sequencer.ProgressEntry, snap.Progress)

	// Second start is a conflict
	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/start", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Approve before ready is a conflict
	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.sched.Advance(10 * time.Second)
	snap = f.snapshot(t, view.ID)
	require.Equal(t, sequencer.StageReady, snap.Stage)
	assert.Len(t, snap.Messages, len(sequencer.DefaultAnalysisScript))
	require.NotNil(t, snap.Recommendation)

	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.sched.Advance(2 * time.Second)

	snap = f.snapshot(t, view.ID)
	assert.Equal(t, sequencer.StageSuccess, snap.Stage)
	assert.Equal(t, sequencer.ProgressCompleted, snap.Progress)

	assert.Eventually(t, func() bool { return f.swaps.len() == 1 }, time.Second, 10*time.Millisecond)
	swaps, _ := f.swaps.Swaps(context.Background(), 0)
	assert.True(t, strings.HasPrefix(swaps[0].TxHash, "sim:"+view.ID+":"), swaps[0].TxHash)
	assert.Equal(t, "ADA", swaps[0].SellToken)

	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &snap)
	assert.Equal(t, sequencer.StageCreating, snap.Stage)
	assert.Empty(t, snap.Messages)
}

func TestServer_OrderRun(t *testing.T) {
	f := newFixture(t, nil)
	view := f.createRun(t, sequencer.FlowOrder)
	order := types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 100}

	// Disconnected wallets hold no ADA
	resp := f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/submit", order)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/wallet/connect", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/submit", types.Order{SellToken: "ADA", BuyToken: "ADA", SellAmount: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/submit", order)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap sequencer.Snapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, sequencer.StageFinding, snap.Stage)
	require.NotNil(t, snap.Order)
	assert.Equal(t, types.OrderTypeMarket, snap.Order.OrderType)

	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/submit", order)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.sched.Advance(15 * time.Second)
	snap = f.snapshot(t, view.ID)
	assert.Equal(t, sequencer.StageCompleted, snap.Stage)
	assert.Len(t, snap.Messages, len(sequencer.DefaultNegotiationScript))

	assert.Eventually(t, func() bool { return f.swaps.len() == 1 }, time.Second, 10*time.Millisecond)

	resp = f.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var swaps []history.Swap
	decodeBody(t, resp, &swaps)
	require.Len(t, swaps, 1)
	assert.Equal(t, 100.0, swaps[0].SellAmount)
}

func TestRegistry_RecordsEveryExecution(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	sched := sequencer.NewManualScheduler(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	runs := NewRegistry(RegistryConfig{Scheduler: sched, Swaps: store, Logger: zerolog.Nop()})
	defer runs.Close()

	run, err := runs.Create(ctx, sequencer.FlowOrder, "")
	require.NoError(t, err)
	seq := run.Sequencer()

	// a completed order starts over through reset and executes again
	for i := 0; i < 2; i++ {
		require.NoError(t, seq.Submit(&types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 25}))
		sched.Advance(15 * time.Second)
		require.Equal(t, sequencer.StageCompleted, seq.Snapshot().Stage, "execution %d", i)
		require.NoError(t, seq.Reset())
	}

	var swaps []history.Swap
	require.Eventually(t, func() bool {
		swaps, err = store.Swaps(ctx, 10)
		return err == nil && len(swaps) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotEqual(t, swaps[0].TxHash, swaps[1].TxHash)
	for _, sw := range swaps {
		assert.Equal(t, run.ID, sw.RunID)
		assert.True(t, strings.HasPrefix(sw.TxHash, "sim:"+run.ID+":"), sw.TxHash)
	}
}

func TestRegistry_JournalsLowercaseOwner(t *testing.T) {
	ctx := context.Background()
	j := journal.NewFileJournalWithDir(t.TempDir())
	runs := NewRegistry(RegistryConfig{
		Scheduler: sequencer.NewManualScheduler(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Journal:   j,
		Logger:    zerolog.Nop(),
	})
	defer runs.Close()

	run, err := runs.Create(ctx, sequencer.FlowAnalysis, "0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	require.NoError(t, err)
	assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", run.Owner)

	require.NoError(t, run.Sequencer().Start())
	require.NoError(t, runs.Remove(run.ID))

	entry, err := j.Load(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, run.Owner, entry.Wallet)
	assert.Equal(t, sequencer.StageAnalyzing, entry.Snapshot.Stage)
}

func TestHub_StampsRunID(t *testing.T) {
	h := newHub("run-7")
	client := &wsClient{send: make(chan []byte, 2)}
	require.True(t, h.register(client))

	h.publish(sequencer.Event{
		Type:         sequencer.EventNotification,
		Notification: &sequencer.Notification{Level: sequencer.LevelSuccess, Title: "Swap executed"},
	})
	h.publish(sequencer.Event{
		Type:  sequencer.EventState,
		State: &sequencer.Snapshot{Stage: sequencer.StageCompleted},
	})

	for _, want := range []string{types.MessageTypeNotification, types.MessageTypeState} {
		var msg types.Message
		require.NoError(t, json.Unmarshal(<-client.send, &msg))
		assert.Equal(t, want, msg.Type)
		assert.Equal(t, "run-7", msg.RunID)
	}
}

type stubInstaller struct{}

func (stubInstaller) DeployAgents(ctx context.Context) ([]string, error) {
	return []string{"rebalancer-1"}, nil
}

func TestServer_ClearDeployment(t *testing.T) {
	f := newFixture(t, nil)
	deployer, err := deploy.NewDeployer(&deploy.DeployConfig{
		StateFilePath: filepath.Join(t.TempDir(), "deploy.json"),
		Installer:     stubInstaller{},
		Scheduler:     f.sched,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	f.srv.deployer = deployer

	f.do(t, http.MethodPost, "/api/wallet/connect", nil)
	resp := f.do(t, http.MethodPost, "/api/plan", map[string]string{"plan_id": "pro"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/api/agents/deploy", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/deployment", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.sched.Advance(time.Minute)
	resp = f.do(t, http.MethodGet, "/api/deployment", nil)
	var state map[string]interface{}
	decodeBody(t, resp, &state)
	assert.Equal(t, string(deploy.StatusDeployed), state["status"])

	resp = f.do(t, http.MethodDelete, "/api/deployment", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/deployment", nil)
	state = nil
	decodeBody(t, resp, &state)
	assert.Equal(t, string(deploy.StatusPending), state["status"])
	assert.Equal(t, float64(deploy.StepIdle), state["step"])
}

func TestServer_RunErrors(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/api/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{"flow": "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	view := f.createRun(t, sequencer.FlowAnalysis)
	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/submit", types.Order{SellToken: "ADA", BuyToken: "DJED", SellAmount: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/runs/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/start", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, f.sched.Pending())
}

func TestServer_CreateAndStart(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{"start": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view runView
	decodeBody(t, resp, &view)
	assert.Equal(t, sequencer.FlowAnalysis, view.State.Flow)
	assert.Equal(t, sequencer.StageAnalyzing, view.State.Stage)

	resp = f.do(t, http.MethodGet, "/api/runs", nil)
	var views []runView
	decodeBody(t, resp, &views)
	assert.Len(t, views, 1)
}

func TestServer_AccountRoutes(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/risk", map[string]string{"risk_level": "yolo"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/api/risk", map[string]string{"risk_level": "risky"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/plan", map[string]string{"plan_id": "gold"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/agents/deploy", nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/agents/rebalancer-1/toggle", nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	f.do(t, http.MethodPost, "/api/wallet/connect", nil)
	resp = f.do(t, http.MethodPost, "/api/agents/deploy", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/plan", map[string]string{"plan_id": "pro"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/api/agents/deploy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/agents/rebalancer-1/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var agent map[string]interface{}
	decodeBody(t, resp, &agent)
	assert.Equal(t, "paused", agent["status"])

	resp = f.do(t, http.MethodGet, "/api/price?amount=10&currency=ADA", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var price map[string]interface{}
	decodeBody(t, resp, &price)
	assert.Contains(t, price, "formatted")
}

func login(t *testing.T, f *fixture, key string) string {
	t.Helper()
	signer, err := wallet.NewSigner(key)
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/api/auth/challenge", map[string]string{"address": signer.Address()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ch struct {
		Challenge string `json:"challenge"`
	}
	decodeBody(t, resp, &ch)

	sig, err := signer.SignChallenge(ch.Challenge)
	require.NoError(t, err)
	resp = f.do(t, http.MethodPost, "/api/auth/verify", map[string]string{
		"address":   signer.Address(),
		"challenge": ch.Challenge,
		"signature": sig,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestServer_Auth(t *testing.T) {
	f := newFixture(t, NewAuthenticator("test-secret", time.Hour))

	resp := f.do(t, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Public routes stay open
	resp = f.do(t, http.MethodGet, "/api/plans", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.token = login(t, f, aliceKey)
	view := f.createRun(t, sequencer.FlowAnalysis)
	assert.Equal(t, strings.ToLower("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), view.Owner)

	f.token = login(t, f, bobKey)
	resp = f.do(t, http.MethodGet, "/api/runs/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/runs", nil)
	var views []runView
	decodeBody(t, resp, &views)
	assert.Empty(t, views)

	f.token = "not-a-token"
	resp = f.do(t, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_VerifyRejectsWrongSigner(t *testing.T) {
	f := newFixture(t, NewAuthenticator("test-secret", time.Hour))
	alice, err := wallet.NewSigner(aliceKey)
	require.NoError(t, err)
	bob, err := wallet.NewSigner(bobKey)
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/api/auth/challenge", map[string]string{"address": alice.Address()})
	var ch struct {
		Challenge string `json:"challenge"`
	}
	decodeBody(t, resp, &ch)

	sig, err := bob.SignChallenge(ch.Challenge)
	require.NoError(t, err)
	resp = f.do(t, http.MethodPost, "/api/auth/verify", map[string]string{
		"address":   alice.Address(),
		"challenge": ch.Challenge,
		"signature": sig,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Challenges are single use
	sig, err = alice.SignChallenge(ch.Challenge)
	require.NoError(t, err)
	resp = f.do(t, http.MethodPost, "/api/auth/verify", map[string]string{
		"address":   alice.Address(),
		"challenge": ch.Challenge,
		"signature": sig,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func readMessage(t *testing.T, conn *websocket.Conn) (types.Message, sequencer.Snapshot) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg types.Message
	require.NoError(t, conn.ReadJSON(&msg))
	var snap sequencer.Snapshot
	if msg.Type == types.MessageTypeState {
		require.NoError(t, json.Unmarshal(msg.Data, &snap))
	}
	return msg, snap
}

func TestServer_RunStream(t *testing.T) {
	f := newFixture(t, nil)
	view := f.createRun(t, sequencer.FlowAnalysis)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws/runs/" + view.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg, snap := readMessage(t, conn)
	assert.Equal(t, types.MessageTypeState, msg.Type)
	assert.Equal(t, view.ID, msg.RunID)
	assert.Equal(t, sequencer.StageCreating, snap.Stage)

	require.Eventually(t, func() bool {
		run, err := f.srv.runs.Get(view.ID)
		return err == nil && run.hub.size() == 1
	}, time.Second, 10*time.Millisecond)

	resp := f.do(t, http.MethodPost, "/api/runs/"+view.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg, snap = readMessage(t, conn)
	assert.Equal(t, types.MessageTypeState, msg.Type)
	assert.Equal(t, sequencer.StageAnalyzing, snap.Stage)

	f.sched.Advance(1500 * time.Millisecond)
	_, snap = readMessage(t, conn)
	assert.Equal(t, sequencer.StageRecommending, snap.Stage)

	// Unmounting closes the stream
	resp = f.do(t, http.MethodDelete, "/api/runs/"+view.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
	}
}

func TestServer_RunStreamUnknownRun(t *testing.T) {
	f := newFixture(t, nil)
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws/runs/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrRunNotFound, http.StatusNotFound},
		{sequencer.ErrInvalidTransition, http.StatusConflict},
		{sequencer.ErrStopped, http.StatusGone},
		{types.ErrWalletNotConnected, http.StatusPreconditionFailed},
		{types.ErrAuthenticationFailed, http.StatusUnauthorized},
		{types.ErrInvalidOrder, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
