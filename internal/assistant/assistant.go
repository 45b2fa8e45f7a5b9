// Package assistant runs the chat loop: a user turn goes into the
// conversation log, out to the assistant service, and the reply (or a
// synthetic error notice) comes back into the log.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/partchat/internal/client"
	"github.com/raphaelgruber/partchat/internal/conversation"
	"github.com/raphaelgruber/partchat/internal/models"
	"github.com/raphaelgruber/partchat/internal/session"
)

// User-visible texts for a failed turn.
const (
	SendFailureMessage = "Sorry, I ran into a problem processing your request. Please try again."
	SendFailureBanner  = "Failed to get a response from the assistant service."
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendPending is returned when a turn is already in flight. The new
	// attempt is dropped, not queued.
	ErrSendPending = errors.New("a message is already being sent")
	// ErrStaleResponse is returned when the conversation was reset while the
	// turn was in flight; its outcome is discarded.
	ErrStaleResponse = errors.New("conversation was reset before the reply arrived")
)

// Gateway is the whole assistant service API used by the chat loop.
type Gateway interface {
	session.Gateway
	Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)
}

// Options are sent with every chat turn.
type Options struct {
	EnableValidation    bool
	ValidationThreshold int
}

// Assistant wires the session controller, the conversation store and the
// gateway together.
type Assistant struct {
	gw       Gateway
	store    *conversation.Store
	sessions *session.Controller
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inflight context.CancelFunc
	resets   uint64
}

// New creates an Assistant with a fresh store and session controller.
// Pass nil logger for default.
func New(gw Gateway, opts Options, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	store := conversation.NewStore(logger)
	return &Assistant{
		gw:       gw,
		store:    store,
		sessions: session.NewController(gw, store, logger),
		opts:     opts,
		logger:   logger.With("component", "assistant"),
		now:      time.Now,
	}
}

// Store returns the conversation log.
func (a *Assistant) Store() *conversation.Store { return a.store }

// Session returns the current session.
func (a *Assistant) Session() models.Session { return a.sessions.Session() }

// Start initializes the session. A failure is fatal to the chat feature but
// not to the process: the banner is set and later sends go out with no
// session id.
func (a *Assistant) Start(ctx context.Context) error {
	return a.sessions.Initialize(ctx)
}

// Send runs one turn. Only one turn may be in flight; a concurrent call
// returns ErrSendPending without touching the log or the network.
//
// On a service error a synthetic assistant message is appended, the banner is
// set and the error is returned. If the conversation is reset while the turn
// is in flight the request is cancelled and ErrStaleResponse is returned
// without touching the new log.
func (a *Assistant) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !a.store.BeginPending() {
		a.logger.Debug("send dropped, request already pending")
		return ErrSendPending
	}
	defer a.store.EndPending()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	resets := a.setInflight(cancel)
	defer func() { a.setInflight(nil) }()

	gen := a.store.Generation()
	a.store.ClearBanner(SendFailureBanner)
	if !a.store.AppendIfCurrent(gen, models.NewUserMessage(text, a.now())) {
		return ErrStaleResponse
	}

	req := client.ChatRequest{
		Message:             text,
		SessionID:           a.sessions.ID(),
		EnableValidation:    &a.opts.EnableValidation,
		ValidationThreshold: &a.opts.ValidationThreshold,
	}
	start := time.Now()
	resp, err := a.gw.Chat(ctx, req)

	if a.resetSince(resets) || a.store.Generation() != gen {
		a.logger.Info("dropping reply for a reset conversation", "error", err)
		return ErrStaleResponse
	}

	if err != nil {
		a.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		a.store.RecordError(gen, models.NewSyntheticMessage(SendFailureMessage, a.now()), SendFailureBanner)
		return fmt.Errorf("send message: %w", err)
	}

	a.sessions.Observe(resp.SessionID)
	if !a.store.AppendIfCurrent(gen, models.NewAssistantMessage(resp.Response, resp.ValidationScore, a.replyTime(resp))) {
		return ErrStaleResponse
	}
	a.logger.Debug("chat turn completed",
		"session_id", resp.SessionID,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_len", len(resp.Response),
	)
	return nil
}

// Reset starts a new conversation. Any in-flight turn is cancelled and its
// reply will not reach the new log. Reset errors are logged, never surfaced.
func (a *Assistant) Reset(ctx context.Context) error {
	a.mu.Lock()
	a.resets++
	if a.inflight != nil {
		a.inflight()
	}
	a.mu.Unlock()

	if _, err := a.sessions.Reset(ctx); err != nil {
		if errors.Is(err, session.ErrNotActive) {
			return err
		}
		a.logger.Warn("reset completed with errors", "error", err)
	}
	return nil
}

// Close releases the current session on the service, best-effort.
func (a *Assistant) Close(ctx context.Context) {
	id := a.sessions.ID()
	if id == "" {
		return
	}
	if err := a.gw.DeleteSession(ctx, id); err != nil {
		a.logger.Warn("failed to delete session on close", "session_id", id, "error", err)
	}
}

// setInflight registers the cancel func of the running turn and returns the
// reset count at that moment.
func (a *Assistant) setInflight(cancel context.CancelFunc) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight = cancel
	return a.resets
}

func (a *Assistant) resetSince(n uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets != n
}

// replyTime uses the service timestamp when it parses, else the local clock.
func (a *Assistant) replyTime(resp *client.ChatResponse) time.Time {
	if ts := client.ParseTimestamp(resp.Timestamp); !ts.IsZero() {
		return ts
	}
	return a.now()
}
