package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access to the session store.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	CreateSession(ctx context.Context, create *Session) (*Session, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*Session, error)
	ListTurns(ctx context.Context, sessionID string) ([]*Turn, error)

	// AppendTurn inserts a turn and bumps the session's updated_ts in one
	// transaction, creating the session row if it does not exist yet.
	AppendTurn(ctx context.Context, ownerID string, turn *Turn) error

	// UpdateSessionTitle applies a title update and reports whether any row
	// changed. With OnlyIfDefault set, an already-titled session is left
	// untouched and false is returned.
	UpdateSessionTitle(ctx context.Context, update *UpdateSessionTitle) (bool, error)

	DeleteSession(ctx context.Context, delete *DeleteSession) error
}
