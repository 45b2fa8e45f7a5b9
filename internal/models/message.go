// Package models defines the data structures shared by the partchat client.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role int

// Message roles.
const (
	RoleUser Role = iota + 1
	RoleAssistant
)

// String returns the wire-style name of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Quality score bounds reported by the validation layer.
const (
	MinQualityScore = 0
	MaxQualityScore = 100
)

// Message is a single entry in the conversation log.
// Fields are unexported so a message cannot be edited once created; use the
// constructors and accessors.
type Message struct {
	id        string
	role      Role
	content   string
	createdAt time.Time

	// Assistant only
	score     *int
	synthetic bool
}

// NewUserMessage creates a message typed by the user.
func NewUserMessage(content string, at time.Time) Message {
	return Message{
		id:        uuid.New().String(),
		role:      RoleUser,
		content:   content,
		createdAt: at,
	}
}

// NewAssistantMessage creates a reply from the assistant service.
// A score outside [0,100] is discarded.
func NewAssistantMessage(content string, score *int, at time.Time) Message {
	m := Message{
		id:        uuid.New().String(),
		role:      RoleAssistant,
		content:   content,
		createdAt: at,
	}
	if score != nil && *score >= MinQualityScore && *score <= MaxQualityScore {
		s := *score
		m.score = &s
	}
	return m
}

// NewSyntheticMessage creates an assistant-authored message produced locally
// (welcome text, error notices) rather than by the remote service.
func NewSyntheticMessage(content string, at time.Time) Message {
	m := NewAssistantMessage(content, nil, at)
	m.synthetic = true
	return m
}

// ID returns the message's stable identifier.
func (m Message) ID() string { return m.id }

// Role returns the author role.
func (m Message) Role() Role { return m.role }

// Content returns the raw message text.
func (m Message) Content() string { return m.content }

// CreatedAt returns the creation timestamp.
func (m Message) CreatedAt() time.Time { return m.createdAt }

// IsUser reports whether the user authored the message.
func (m Message) IsUser() bool { return m.role == RoleUser }

// IsAssistant reports whether the assistant authored the message.
func (m Message) IsAssistant() bool { return m.role == RoleAssistant }

// Synthetic reports whether the message was generated locally.
func (m Message) Synthetic() bool { return m.synthetic }

// QualityScore returns the validation score of an assistant reply.
// The second value is false for user messages and for replies without a score.
func (m Message) QualityScore() (int, bool) {
	if m.role != RoleAssistant || m.score == nil {
		return 0, false
	}
	return *m.score, true
}
