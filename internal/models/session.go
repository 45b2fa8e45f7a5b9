package models

import "fmt"

// SessionState is the lifecycle state of the client's session with the
// assistant service.
type SessionState int

// Session lifecycle states.
const (
	SessionUninitialized SessionState = iota
	SessionInitializing
	SessionActive
	SessionResetting
	SessionFailed
)

// String returns a lowercase name for the state.
func (s SessionState) String() string {
	switch s {
	case SessionUninitialized:
		return "uninitialized"
	case SessionInitializing:
		return "initializing"
	case SessionActive:
		return "active"
	case SessionResetting:
		return "resetting"
	case SessionFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is a read-only view of the authoritative session.
type Session struct {
	ID    string
	State SessionState
}
