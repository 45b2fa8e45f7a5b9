// Package session owns the identity of the client's conversation session
// with the assistant service.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/partchat/internal/client"
	"github.com/raphaelgruber/partchat/internal/models"
)

// User-visible texts seeded or surfaced by the controller.
const (
	WelcomeMessage = "Hi! I'm the PartSelect parts assistant. I can help you find refrigerator and " +
		"dishwasher parts, check whether a part fits your model, and walk you through installation. " +
		"What can I help you with today?"
	ResetWelcomeMessage = "Started a new conversation. What part can I help you find?"
	InitFailureBanner   = "Could not connect to the assistant service. Restart partchat to try again."
)

var (
	// ErrAlreadyInitialized is returned by Initialize after the first call.
	ErrAlreadyInitialized = errors.New("session already initialized")
	// ErrNotActive is returned by Reset unless the session is active.
	ErrNotActive = errors.New("session is not active")
)

// Gateway is the part of the assistant service the controller needs.
type Gateway interface {
	CreateSession(ctx context.Context) (*client.SessionResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Seeder is the part of the conversation store the controller writes to.
type Seeder interface {
	Replace(msgs ...models.Message) uint64
	SetBanner(text string)
}

// Controller is the single authority over the session id and its lifecycle:
//
//	Uninitialized -> Initializing -> Active | Failed
//	Active -> Resetting -> Active
//
// Other components read the session through ID and Session.
type Controller struct {
	gw     Gateway
	store  Seeder
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	id    string
	state models.SessionState
}

// NewController creates a controller in the Uninitialized state. Pass nil logger for default.
func NewController(gw Gateway, store Seeder, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		gw:     gw,
		store:  store,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
}

// ID returns the current session id, empty when there is none.
func (c *Controller) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// State returns the lifecycle state.
func (c *Controller) State() models.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns a read-only copy of the session.
func (c *Controller) Session() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.Session{ID: c.id, State: c.state}
}

// Initialize obtains the first session id and seeds the log with the welcome
// message. On failure the controller moves to Failed and the banner is set;
// there is no retry.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != models.SessionUninitialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.state = models.SessionInitializing
	c.mu.Unlock()

	resp, err := c.gw.CreateSession(ctx)
	if err != nil {
		c.setState("", models.SessionFailed)
		c.logger.Error("failed to initialize session", "error", err)
		c.store.SetBanner(InitFailureBanner)
		return fmt.Errorf("initialize session: %w", err)
	}

	c.setState(resp.SessionID, models.SessionActive)
	c.store.Replace(models.NewSyntheticMessage(WelcomeMessage, c.now()))
	c.logger.Info("session initialized", "session_id", resp.SessionID)
	return nil
}

// Reset replaces the active session with a fresh one and re-seeds the log.
//
// Deleting the old session is best-effort: a failure is logged and the reset
// carries on, since dropping a stale id client-side is always safe. If the
// new session cannot be created the controller stays Active with no id and
// the error is returned for logging only. The log is re-seeded either way.
// It returns the store generation of the re-seeded log.
func (c *Controller) Reset(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if c.state != models.SessionActive {
		state := c.state
		c.mu.Unlock()
		return 0, fmt.Errorf("reset from %s: %w", state, ErrNotActive)
	}
	oldID := c.id
	c.state = models.SessionResetting
	c.mu.Unlock()

	if oldID != "" {
		if err := c.gw.DeleteSession(ctx, oldID); err != nil {
			c.logger.Warn("failed to delete session, continuing reset", "session_id", oldID, "error", err)
		}
	}

	var resetErr error
	newID := ""
	resp, err := c.gw.CreateSession(ctx)
	if err != nil {
		c.logger.Error("failed to create session during reset", "error", err)
		resetErr = fmt.Errorf("recreate session: %w", err)
	} else {
		newID = resp.SessionID
	}

	c.setState(newID, models.SessionActive)
	gen := c.store.Replace(models.NewSyntheticMessage(ResetWelcomeMessage, c.now()))
	c.logger.Info("session reset", "old_session_id", oldID, "session_id", newID)
	return gen, resetErr
}

// Observe records the session id the service reported for a chat turn. The
// service silently replaces expired sessions, so a different id means the
// old one expired server-side. Only an active session adopts the new id.
func (c *Controller) Observe(sessionID string) {
	if sessionID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != models.SessionActive || c.id == sessionID {
		return
	}
	c.logger.Info("session replaced by service", "old_session_id", c.id, "session_id", sessionID)
	c.id = sessionID
}

func (c *Controller) setState(id string, state models.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.state = state
}
