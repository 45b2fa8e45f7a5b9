// Package conversation holds the in-memory message log of a chat and
// notifies the presentation layer when it changes.
package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/raphaelgruber/partchat/internal/models"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// EventType says what changed in the store.
type EventType int

// Store events.
const (
	// EventAppended follows every append; presentation layers scroll to the newest message.
	EventAppended EventType = iota + 1
	// EventReplaced follows a wholesale reset of the log.
	EventReplaced
	// EventPendingChanged follows BeginPending and EndPending.
	EventPendingChanged
	// EventBannerChanged follows any change to the error banner.
	EventBannerChanged
)

// Event describes one change to the store.
type Event struct {
	Type       EventType
	Message    models.Message // the appended message for EventAppended
	Len        int            // log length after the change
	Generation uint64
	Pending    bool
	Banner     string
}

// Store is an ordered, append-only message log with transient pending and
// error-banner flags. The log is only ever replaced wholesale; each
// replacement starts a new generation so that work begun against an older
// log can be detected and dropped.
//
// All methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	messages   []models.Message
	generation uint64
	pending    bool
	banner     string

	subMu       sync.RWMutex
	subscribers map[string]chan Event

	logger *slog.Logger
}

// NewStore creates an empty store. Pass nil logger for default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "conversation"),
	}
}

// Append adds m to the end of the log.
func (s *Store) Append(m models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	ev := Event{Type: EventAppended, Message: m, Len: len(s.messages), Generation: s.generation}
	s.mu.Unlock()

	s.publish(ev)
}

// AppendIfCurrent appends m only if the log is still at generation gen.
// It reports whether the message was appended.
func (s *Store) AppendIfCurrent(gen uint64, m models.Message) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, m)
	ev := Event{Type: EventAppended, Message: m, Len: len(s.messages), Generation: s.generation}
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// Replace discards the whole log, clears the banner and seeds the log with
// msgs. It returns the new generation.
func (s *Store) Replace(msgs ...models.Message) uint64 {
	s.mu.Lock()
	s.generation++
	s.messages = append([]models.Message(nil), msgs...)
	hadBanner := s.banner != ""
	s.banner = ""
	gen := s.generation
	n := len(s.messages)
	s.mu.Unlock()

	s.publish(Event{Type: EventReplaced, Len: n, Generation: gen})
	if hadBanner {
		s.publish(Event{Type: EventBannerChanged, Generation: gen})
	}
	return gen
}

// Generation returns the current log generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Messages returns a snapshot of the log in order.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages...)
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// BeginPending marks a network call as outstanding. It returns false, and
// changes nothing, if one is already outstanding.
func (s *Store) BeginPending() bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	gen := s.generation
	s.mu.Unlock()

	s.publish(Event{Type: EventPendingChanged, Pending: true, Generation: gen})
	return true
}

// EndPending releases the guard taken by BeginPending.
func (s *Store) EndPending() {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	gen := s.generation
	s.mu.Unlock()

	s.publish(Event{Type: EventPendingChanged, Pending: false, Generation: gen})
}

// Pending reports whether a network call is outstanding.
func (s *Store) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// RecordError appends msg (normally a synthetic assistant message) and sets
// the banner, keeping all prior history. Nothing happens if the log has moved
// past generation gen; the return value reports whether the error was recorded.
func (s *Store) RecordError(gen uint64, msg models.Message, banner string) bool {
	if !s.AppendIfCurrent(gen, msg) {
		return false
	}
	s.SetBanner(banner)
	return true
}

// SetBanner sets the error banner shown outside the message log.
func (s *Store) SetBanner(text string) {
	s.mu.Lock()
	if s.banner == text {
		s.mu.Unlock()
		return
	}
	s.banner = text
	gen := s.generation
	s.mu.Unlock()

	s.publish(Event{Type: EventBannerChanged, Banner: text, Generation: gen})
}

// ClearBanner removes the banner only while it still reads text, so a banner
// set by another component survives. It reports whether the banner was cleared.
func (s *Store) ClearBanner(text string) bool {
	s.mu.Lock()
	if text == "" || s.banner != text {
		s.mu.Unlock()
		return false
	}
	s.banner = ""
	gen := s.generation
	s.mu.Unlock()

	s.publish(Event{Type: EventBannerChanged, Generation: gen})
	return true
}

// Banner returns the current error banner, empty when there is none.
func (s *Store) Banner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banner
}

// Subscribe registers for store events. The returned channel is closed when
// ctx is cancelled or Unsubscribe is called. Events are dropped for
// subscribers that fall behind.
func (s *Store) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	s.subMu.Lock()
	s.subscribers[subID] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(subID string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch, ok := s.subscribers[subID]
	if !ok {
		return
	}
	delete(s.subscribers, subID)
	close(ch)
}

func (s *Store) publish(ev Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("dropped event for slow subscriber", "sub_id", id, "type", ev.Type)
		}
	}
}
