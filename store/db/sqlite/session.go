package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/medvani/medvani/store"
)

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT 'New chat',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_owner ON session (owner_id)`,
		`CREATE TABLE IF NOT EXISTS session_turn (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_text TEXT NOT NULL DEFAULT '',
			assistant_text TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_turn_session ON session_turn (session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate session schema")
		}
	}
	return nil
}

func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	stmt := `INSERT INTO session (id, owner_id, title, created_ts, updated_ts) VALUES (?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.OwnerID, create.Title, create.CreatedTs, create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return create, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "s.id = ?"), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "s.owner_id = ?"), append(args, *find.OwnerID)
	}

	query := `
		SELECT s.id, s.owner_id, s.title, s.created_ts, s.updated_ts, COUNT(t.id)
		FROM session s
		LEFT JOIN session_turn t ON t.session_id = s.id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY s.id
		ORDER BY s.updated_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	list := []*store.Session{}
	for rows.Next() {
		var session store.Session
		if err := rows.Scan(
			&session.ID, &session.OwnerID, &session.Title,
			&session.CreatedTs, &session.UpdatedTs, &session.TurnCount,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		list = append(list, &session)
	}
	return list, rows.Err()
}

func (d *DB) ListTurns(ctx context.Context, sessionID string) ([]*store.Turn, error) {
	query := `
		SELECT id, session_id, user_text, assistant_text, created_ts
		FROM session_turn
		WHERE session_id = ?
		ORDER BY id ASC
	`
	rows, err := d.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list turns")
	}
	defer rows.Close()

	list := []*store.Turn{}
	for rows.Next() {
		var turn store.Turn
		if err := rows.Scan(
			&turn.ID, &turn.SessionID, &turn.UserText, &turn.AssistantText, &turn.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan turn")
		}
		list = append(list, &turn)
	}
	return list, rows.Err()
}

func (d *DB) AppendTurn(ctx context.Context, ownerID string, turn *store.Turn) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin tx")
	}
	defer tx.Rollback()

	// Sessions are keyed by (id, owner_id): an existing session accepts turns
	// only from its owner.
	var existingOwner string
	err = tx.QueryRowContext(ctx,
		`SELECT owner_id FROM session WHERE id = ?`, turn.SessionID,
	).Scan(&existingOwner)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session (id, owner_id, title, created_ts, updated_ts) VALUES (?, ?, ?, ?, ?)`,
			turn.SessionID, ownerID, store.DefaultTitle, turn.CreatedTs, turn.CreatedTs,
		); err != nil {
			return errors.Wrap(err, "failed to create session")
		}
	case err != nil:
		return errors.Wrap(err, "failed to find session owner")
	case existingOwner != ownerID:
		return store.ErrOwnerMismatch
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE session SET updated_ts = ? WHERE id = ?`,
			turn.CreatedTs, turn.SessionID,
		); err != nil {
			return errors.Wrap(err, "failed to touch session")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_turn (session_id, user_text, assistant_text, created_ts) VALUES (?, ?, ?, ?)`,
		turn.SessionID, turn.UserText, turn.AssistantText, turn.CreatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to insert turn")
	}

	return errors.Wrap(tx.Commit(), "failed to commit turn")
}

func (d *DB) UpdateSessionTitle(ctx context.Context, update *store.UpdateSessionTitle) (bool, error) {
	where, args := []string{"id = ?"}, []any{update.Title, update.UpdatedTs, update.ID}
	if update.OnlyIfDefault {
		where = append(where, "title = ?")
		args = append(args, store.DefaultTitle)
	}
	result, err := d.db.ExecContext(ctx,
		`UPDATE session SET title = ?, updated_ts = ? WHERE `+strings.Join(where, " AND "),
		args...,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to update session title")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d *DB) DeleteSession(ctx context.Context, delete *store.DeleteSession) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin tx")
	}
	defer tx.Rollback()

	var result sql.Result
	if result, err = tx.ExecContext(ctx,
		`DELETE FROM session WHERE id = ? AND owner_id = ?`, delete.ID, delete.OwnerID,
	); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_turn WHERE session_id = ?`, delete.ID,
		); err != nil {
			return errors.Wrap(err, "failed to delete session turns")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit delete")
}
