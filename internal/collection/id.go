package collection

import "github.com/google/uuid"

// localPrefix marks identifiers minted on this machine. It can never
// collide with server-assigned identifiers, which are bare UUIDs.
const localPrefix = "local_"

// ID tags an item as either pending (identified by a local token that
// exists only in this process) or confirmed (identified by the
// server-assigned identifier). The two are distinct fields so a local
// token can never leak out as if it were durable.
type ID struct {
	local  string
	server string
}

// NewLocal mints a pending identifier.
func NewLocal() ID {
	return ID{local: localPrefix + uuid.NewString()}
}

// Confirmed wraps a server-assigned identifier.
func Confirmed(serverID string) ID {
	return ID{server: serverID}
}

// Pending reports whether the item has not yet been confirmed by the
// server.
func (id ID) Pending() bool {
	return id.server == ""
}

// Server returns the server-assigned identifier, or "" while pending.
func (id ID) Server() string {
	return id.server
}

// String renders the identifier for logs. Pending identifiers keep
// their local_ prefix so they are recognizable as not durable.
func (id ID) String() string {
	if id.server != "" {
		return id.server
	}
	return id.local
}
