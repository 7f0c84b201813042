package store

import "github.com/pkg/errors"

// DefaultTitle is the title of a session before any assignment ran.
const DefaultTitle = "New chat"

// ErrOwnerMismatch is returned when a write names a session that exists but
// belongs to a different owner. Sessions are keyed by (id, owner_id); one
// user must never reach another user's transcript.
var ErrOwnerMismatch = errors.New("session belongs to a different owner")

// Session is one per-user conversation. Session identity is independent of
// the vector memory store; the two domains are correlated only by owner id.
type Session struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedTs int64
	UpdatedTs int64
	TurnCount int32 // populated by ListSessions with a JOIN
}

// Turn is one user/assistant exchange inside a session.
type Turn struct {
	ID            int64
	SessionID     string
	UserText      string
	AssistantText string
	CreatedTs     int64
}

// FindSession is the find condition for sessions.
type FindSession struct {
	ID      *string
	OwnerID *string
}

// UpdateSessionTitle updates a session title. When OnlyIfDefault is set the
// update applies only while the title is still DefaultTitle, which keeps
// racing title assignments idempotent.
type UpdateSessionTitle struct {
	ID            string
	Title         string
	UpdatedTs     int64
	OnlyIfDefault bool
}

// DeleteSession deletes a session scoped to its owner.
type DeleteSession struct {
	ID      string
	OwnerID string
}
