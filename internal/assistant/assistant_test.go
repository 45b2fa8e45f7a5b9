package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/partchat/internal/client"
	"github.com/raphaelgruber/partchat/internal/conversation"
	"github.com/raphaelgruber/partchat/internal/models"
	"github.com/raphaelgruber/partchat/internal/session"
)

// fakeGateway answers chat turns from a script. When block is set, Chat
// signals started and waits for release or cancellation.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []string
	requests  []client.ChatRequest
	sessions  int
	createErr error
	deleteErr error
	chatErr   error
	reply     string
	score     *int
	replyID   string

	block   bool
	started chan struct{}
	release chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		reply:   "Door Bin (PS123)\n$45.00 | Whirlpool | In Stock",
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *fakeGateway) CreateSession(ctx context.Context) (*client.SessionResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "create")
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.sessions++
	return &client.SessionResponse{SessionID: fmt.Sprintf("sess-%d", g.sessions)}, nil
}

func (g *fakeGateway) DeleteSession(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "delete:"+id)
	return g.deleteErr
}

func (g *fakeGateway) Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, "chat")
	g.requests = append(g.requests, req)
	block, chatErr, reply, score := g.block, g.chatErr, g.reply, g.score
	sessionID := g.replyID
	g.mu.Unlock()

	if sessionID == "" {
		sessionID = req.SessionID
	}

	if block {
		g.started <- struct{}{}
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if chatErr != nil {
		return nil, chatErr
	}
	return &client.ChatResponse{
		Response:        reply,
		SessionID:       sessionID,
		ValidationScore: score,
		Timestamp:       "2026-01-02T03:04:05",
	}, nil
}

func (g *fakeGateway) count(call string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content()
	}
	return out
}

func waitStarted(t *testing.T, gw *fakeGateway) {
	t.Helper()
	select {
	case <-gw.started:
	case <-time.After(2 * time.Second):
		t.Fatal("chat call never started")
	}
}

func newStarted(t *testing.T, gw *fakeGateway) *Assistant {
	t.Helper()
	a := New(gw, Options{EnableValidation: true, ValidationThreshold: 70}, nil)
	require.NoError(t, a.Start(t.Context()))
	return a
}

func TestSend_Success(t *testing.T) {
	gw := newFakeGateway()
	score := 92
	gw.score = &score
	a := newStarted(t, gw)

	require.NoError(t, a.Send(t.Context(), "  I need a door bin  "))

	msgs := a.Store().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, session.WelcomeMessage, msgs[0].Content())
	assert.True(t, msgs[1].IsUser())
	assert.Equal(t, "I need a door bin", msgs[1].Content())
	assert.True(t, msgs[2].IsAssistant())
	assert.Equal(t, gw.reply, msgs[2].Content())
	got, ok := msgs[2].QualityScore()
	assert.True(t, ok)
	assert.Equal(t, 92, got)
	assert.Equal(t, 2026, msgs[2].CreatedAt().Year(), "reply time comes from the service")

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, "sess-1", req.SessionID)
	require.NotNil(t, req.EnableValidation)
	assert.True(t, *req.EnableValidation)
	require.NotNil(t, req.ValidationThreshold)
	assert.Equal(t, 70, *req.ValidationThreshold)

	assert.False(t, a.Store().Pending())
}

func TestSend_Empty(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)

	assert.ErrorIs(t, a.Send(t.Context(), "   \n"), ErrEmptyMessage)
	assert.Equal(t, 0, gw.count("chat"))
	assert.Equal(t, 1, a.Store().Len())
}

func TestSend_SecondAttemptWhilePendingIsDropped(t *testing.T) {
	gw := newFakeGateway()
	gw.block = true
	a := newStarted(t, gw)

	firstDone := make(chan error, 1)
	go func() { firstDone <- a.Send(context.Background(), "first") }()
	waitStarted(t, gw)

	err := a.Send(t.Context(), "second")
	assert.ErrorIs(t, err, ErrSendPending)
	assert.Equal(t, []string{session.WelcomeMessage, "first"}, contents(a.Store().Messages()))
	assert.Equal(t, 1, gw.count("chat"))

	close(gw.release)
	require.NoError(t, <-firstDone)

	msgs := a.Store().Messages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, 1, gw.count("chat"), "dropped attempt never reaches the network")
	assert.False(t, a.Store().Pending())
}

func TestSend_Failure(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)
	gw.chatErr = errors.New("503 service unavailable")

	err := a.Send(t.Context(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	msgs := a.Store().Messages()
	assert.Equal(t, []string{session.WelcomeMessage, "hello", SendFailureMessage}, contents(msgs))
	assert.True(t, msgs[2].IsAssistant())
	assert.True(t, msgs[2].Synthetic())
	assert.Equal(t, SendFailureBanner, a.Store().Banner())
	assert.False(t, a.Store().Pending(), "guard released after failure")

	gw.chatErr = nil
	require.NoError(t, a.Send(t.Context(), "again"))
	assert.Empty(t, a.Store().Banner(), "next send clears the banner")
	assert.Len(t, a.Store().Messages(), 5, "history survives the failure")
}

func TestSend_AfterInitFailureGoesWithoutSession(t *testing.T) {
	gw := newFakeGateway()
	gw.createErr = errors.New("down")
	a := New(gw, Options{}, nil)

	require.Error(t, a.Start(t.Context()))
	assert.Equal(t, models.SessionFailed, a.Session().State)
	assert.Equal(t, session.InitFailureBanner, a.Store().Banner())

	require.NoError(t, a.Send(t.Context(), "hello"))
	require.Len(t, gw.requests, 1)
	assert.Empty(t, gw.requests[0].SessionID)
	assert.Equal(t, session.InitFailureBanner, a.Store().Banner(), "startup banner persists across sends")
}

func TestSend_AdoptsReplacedSession(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)
	gw.replyID = "sess-server-side"

	require.NoError(t, a.Send(t.Context(), "hello"))
	assert.Equal(t, "sess-server-side", a.Session().ID)
}

func TestReset_ReplacesLog(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)
	require.NoError(t, a.Send(t.Context(), "hello"))

	require.NoError(t, a.Reset(t.Context()))
	assert.Equal(t, []string{"create", "chat", "delete:sess-1", "create"}, gw.Calls())
	assert.Equal(t, []string{session.ResetWelcomeMessage}, contents(a.Store().Messages()))
	assert.Equal(t, "sess-2", a.Session().ID)
}

func TestReset_DeleteFailureStillReseeds(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)
	gw.deleteErr = errors.New("boom")

	require.NoError(t, a.Reset(t.Context()))
	assert.Equal(t, []string{session.ResetWelcomeMessage}, contents(a.Store().Messages()))
	assert.Empty(t, a.Store().Banner())
}

func TestReset_CancelsInflightTurn(t *testing.T) {
	gw := newFakeGateway()
	gw.block = true
	a := newStarted(t, gw)

	sendDone := make(chan error, 1)
	go func() { sendDone <- a.Send(context.Background(), "slow question") }()
	waitStarted(t, gw)

	require.NoError(t, a.Reset(t.Context()))

	select {
	case err := <-sendDone:
		assert.ErrorIs(t, err, ErrStaleResponse)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight send was not cancelled")
	}

	assert.Equal(t, []string{session.ResetWelcomeMessage}, contents(a.Store().Messages()),
		"nothing from the old turn lands in the fresh log")
	assert.Empty(t, a.Store().Banner())
	assert.False(t, a.Store().Pending())
}

func TestReset_BeforeStart(t *testing.T) {
	a := New(newFakeGateway(), Options{}, nil)
	assert.ErrorIs(t, a.Reset(t.Context()), session.ErrNotActive)
}

func TestSend_EmitsScrollEvents(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)
	events, _ := a.Store().Subscribe(t.Context())

	require.NoError(t, a.Send(t.Context(), "hello"))

	var appended []string
	timeout := time.After(time.Second)
	for len(appended) < 2 {
		select {
		case ev := <-events:
			if ev.Type == conversation.EventAppended {
				appended = append(appended, ev.Message.Content())
			}
		case <-timeout:
			t.Fatalf("got %d append events, want 2", len(appended))
		}
	}
	assert.Equal(t, []string{"hello", gw.reply}, appended)
}

func TestClose_DeletesSession(t *testing.T) {
	gw := newFakeGateway()
	a := newStarted(t, gw)

	a.Close(t.Context())
	assert.Equal(t, 1, gw.count("delete:sess-1"))

	idle := New(newFakeGateway(), Options{}, nil)
	idle.Close(t.Context())
}
