package hostproto

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingListener struct {
	mu       sync.Mutex
	statuses []string
	opens    []OpenMessage
}

func (l *recordingListener) StatusChanged(_ State, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, status)
}

func (l *recordingListener) Open(_ context.Context, msg OpenMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opens = append(l.opens, msg)
}

func (l *recordingListener) openCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.opens)
}

func (l *recordingListener) lastOpen() OpenMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens[len(l.opens)-1]
}

func fastConfig() Config {
	return Config{APIVersion: 1, ReadyRetries: 3, RetryBackoff: 20 * time.Millisecond, HostTimeout: 2 * time.Second}
}

func startProtocol(t *testing.T, cfg Config) (*Protocol, *MemoryChannel, *recordingListener) {
	t.Helper()
	ch := NewMemoryChannel()
	l := &recordingListener{}
	p := New(ch, l, nil, cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p, ch, l
}

func countMethod(ch *MemoryChannel, method string) int {
	n := 0
	for _, m := range ch.SentMethods() {
		if m == method {
			n++
		}
	}
	return n
}

func TestProtocol_Handshake(t *testing.T) {
	p, ch, l := startProtocol(t, fastConfig())

	require.Eventually(t, func() bool { return countMethod(ch, MethodReady) >= 1 }, time.Second, 5*time.Millisecond)
	var ready map[string]any
	require.NoError(t, json.Unmarshal(ch.Sent()[0], &ready))
	assert.Equal(t, true, ready["sendMessageAsJsObject"])
	assert.Equal(t, float64(1), ready["apiVersion"])

	ch.Deliver([]byte(`{"method":"init"}`))
	require.Eventually(t, func() bool { return p.State() == StateConnected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, countMethod(ch, MethodInitEnd))
	assert.Equal(t, StatusConnected, p.Status())

	ch.Deliver([]byte(`{"method":"open","activity":{"aid":"A1"},"user":{"ulogin":"U1","uname":"Tech"}}`))
	require.Eventually(t, func() bool { return l.openCount() == 1 }, time.Second, 5*time.Millisecond)
	msg := l.lastOpen()
	assert.Equal(t, "A1", msg.Activity["aid"])
	require.NotNil(t, msg.User)
	assert.Equal(t, "U1", msg.User.Login)
}

func TestProtocol_RetriesStopAfterInit(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	p, ch, _ := startProtocol(t, cfg)

	ch.Deliver([]byte(`{"method":"init"}`))
	require.Eventually(t, func() bool { return p.State() == StateConnected }, time.Second, 5*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, countMethod(ch, MethodReady))
}

func TestProtocol_BoundedReadyRetries(t *testing.T) {
	cfg := fastConfig()
	cfg.ReadyRetries = 2
	cfg.RetryBackoff = 10 * time.Millisecond
	p, ch, _ := startProtocol(t, cfg)

	// initial send plus retries at 10ms and a further 20ms
	require.Eventually(t, func() bool { return countMethod(ch, MethodReady) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, countMethod(ch, MethodReady))
	assert.Equal(t, 3, p.ReadyCount())
	assert.Equal(t, StateAwaitingInit, p.State())
}

func TestProtocol_StandaloneIsTerminal(t *testing.T) {
	cfg := fastConfig()
	cfg.HostTimeout = 50 * time.Millisecond
	p, ch, l := startProtocol(t, cfg)

	require.Eventually(t, func() bool { return p.State() == StateStandalone }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusStandalone, p.Status())

	ch.Deliver([]byte(`{"method":"init"}`))
	ch.Deliver([]byte(`{"method":"open","activity":{"aid":"A1"}}`))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateStandalone, p.State())
	assert.Zero(t, countMethod(ch, MethodInitEnd))
	assert.Zero(t, l.openCount())
}

func TestProtocol_IgnoresMalformedAndUnknown(t *testing.T) {
	p, ch, l := startProtocol(t, fastConfig())

	ch.Deliver([]byte(`{not json`))
	ch.Deliver([]byte(`{"activity":{"aid":"A0"}}`))
	ch.Deliver([]byte(`{"method":"open","activity":{"aid":"early"}}`))
	ch.Deliver([]byte(`{"method":"bogus"}`))
	ch.Deliver([]byte(`"{\"method\":\"init\"}"`))

	require.Eventually(t, func() bool { return p.State() == StateConnected }, time.Second, 5*time.Millisecond)
	assert.Zero(t, l.openCount(), "open before init is ignored")
}

func TestProtocol_OpenVariants(t *testing.T) {
	p, ch, l := startProtocol(t, fastConfig())
	ch.Deliver([]byte(`{"method":"init"}`))

	ch.Deliver([]byte(`{"method":"open"}`))
	require.Eventually(t, func() bool { return p.Status() == StatusNoData }, time.Second, 5*time.Millisecond)
	assert.Zero(t, l.openCount())

	ch.Deliver([]byte(`{"method":"open","activityList":[{"aid":"L1"},{"aid":"L2"}]}`))
	ch.Deliver([]byte(`{"method":"open","activity":{"aid":"A2"}}`))
	require.Eventually(t, func() bool { return l.openCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "A2", l.lastOpen().Activity["aid"], "latest open wins")
	assert.Equal(t, StatusConnected, p.Status())

	l.mu.Lock()
	assert.Contains(t, l.statuses, StatusNoData)
	l.mu.Unlock()
}

func TestProtocol_CloseAndUpdate(t *testing.T) {
	p, ch, l := startProtocol(t, fastConfig())
	ch.Deliver([]byte(`{"method":"init"}`))
	require.Eventually(t, func() bool { return p.State() == StateConnected }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Update(ctx, map[string]any{"aid": "A1", "astatus": "completed"}))
	assert.Equal(t, StateConnected, p.State(), "close does not change local state")

	sent := ch.Sent()
	var closeMsg, update map[string]any
	require.NoError(t, json.Unmarshal(sent[len(sent)-2], &closeMsg))
	require.NoError(t, json.Unmarshal(sent[len(sent)-1], &update))
	assert.Equal(t, map[string]any{"apiVersion": float64(1), "method": "close", "isSuccess": true}, closeMsg)
	assert.Equal(t, "update", update["method"])

	// an open racing behind close is still accepted
	ch.Deliver([]byte(`{"method":"open","activity":{"aid":"A9"}}`))
	require.Eventually(t, func() bool { return l.openCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestProtocol_ChannelClosedEndsRun(t *testing.T) {
	ch := NewMemoryChannel()
	p := New(ch, &recordingListener{}, nil, fastConfig(), zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	require.Eventually(t, func() bool { return p.ReadyCount() == 1 }, time.Second, 5*time.Millisecond)
	ch.Close()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrChannelClosed))
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
}

func TestConfig_RetryScheduleFitsTimeout(t *testing.T) {
	def := DefaultConfig()
	assert.Equal(t, 12*time.Second, def.LastReadyAt())
	assert.NoError(t, def.Validate())

	short := def
	short.HostTimeout = 5 * time.Second
	assert.ErrorContains(t, short.Validate(), "ready retry 3 fires at 12s")

	noRetries := short
	noRetries.ReadyRetries = 0
	assert.NoError(t, noRetries.Validate())
	assert.NoError(t, fastConfig().Validate())
}
