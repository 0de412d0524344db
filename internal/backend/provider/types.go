package provider

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a session-change event delivered to
// subscribers.
type EventKind string

const (
	EventInitialSession   EventKind = "INITIAL_SESSION"
	EventSignedIn         EventKind = "SIGNED_IN"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
	EventTokenRefreshed   EventKind = "TOKEN_REFRESHED"
)

// User is the provider's view of an account. Profile data beyond the
// signup metadata lives in the relational store, not here.
type User struct {
	ID       uuid.UUID
	Email    string
	Metadata map[string]string
}

// Session mirrors the provider-owned session. The engine never mints
// or rotates tokens itself; it only holds the latest pair the provider
// handed out.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Handler receives session-change events. A nil session accompanies
// EventSignedOut.
type Handler func(kind EventKind, session *Session)
