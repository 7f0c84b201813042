// Package store provides the session repository: an append-only per-user
// conversation log behind a driver interface.
package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/medvani/medvani/internal/profile"
)

// Store provides database access to sessions and turns.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{driver: driver, profile: profile}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateSession returns a fresh untitled session for the owner. An existing
// untitled session with no turns is reused instead of stacking up empties.
func (s *Store) CreateSession(ctx context.Context, ownerID string) (*Session, error) {
	existing, err := s.driver.ListSessions(ctx, &FindSession{OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}
	for _, session := range existing {
		if session.Title == DefaultTitle && session.TurnCount == 0 {
			return session, nil
		}
	}

	now := time.Now().Unix()
	return s.driver.CreateSession(ctx, &Session{
		ID:        shortuuid.New(),
		OwnerID:   ownerID,
		Title:     DefaultTitle,
		CreatedTs: now,
		UpdatedTs: now,
	})
}

// ListSessions lists the owner's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, ownerID string) ([]*Session, error) {
	return s.driver.ListSessions(ctx, &FindSession{OwnerID: &ownerID})
}

// GetSession returns one session scoped to its owner, or nil when absent.
func (s *Store) GetSession(ctx context.Context, sessionID, ownerID string) (*Session, error) {
	sessions, err := s.driver.ListSessions(ctx, &FindSession{ID: &sessionID, OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// ListTurns returns a session's turns in append order.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]*Turn, error) {
	return s.driver.ListTurns(ctx, sessionID)
}

// AppendTurn appends one exchange to a session, creating the session when it
// does not exist. Appending to another owner's session fails with
// ErrOwnerMismatch.
func (s *Store) AppendTurn(ctx context.Context, sessionID, ownerID, userText, assistantText string) error {
	return s.driver.AppendTurn(ctx, ownerID, &Turn{
		SessionID:     sessionID,
		UserText:      userText,
		AssistantText: assistantText,
		CreatedTs:     time.Now().Unix(),
	})
}

// AssignTitle sets a session title only while the session is still untitled.
// It reports whether the title was applied; racing assignments lose cleanly.
func (s *Store) AssignTitle(ctx context.Context, sessionID, title string) (bool, error) {
	return s.driver.UpdateSessionTitle(ctx, &UpdateSessionTitle{
		ID:            sessionID,
		Title:         title,
		UpdatedTs:     time.Now().Unix(),
		OnlyIfDefault: true,
	})
}

// DeleteSession removes a session and its turns, scoped to the owner.
func (s *Store) DeleteSession(ctx context.Context, sessionID, ownerID string) error {
	return s.driver.DeleteSession(ctx, &DeleteSession{ID: sessionID, OwnerID: ownerID})
}
