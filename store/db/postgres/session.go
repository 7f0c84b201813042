package postgres

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
			id BIGSERIAL PRIMARY KEY,
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
	fields := []string{"id", "owner_id", "title", "created_ts", "updated_ts"}
	args := []any{create.ID, create.OwnerID, create.Title, create.CreatedTs, create.UpdatedTs}
	stmt := `INSERT INTO session (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return create, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "s.id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "s.owner_id = "+placeholder(len(args)+1)), append(args, *find.OwnerID)
	}

	// LEFT JOIN + COUNT avoids an N+1 query for turn counts.
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
		WHERE session_id = ` + placeholder(1) + `
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
		`SELECT owner_id FROM session WHERE id = `+placeholder(1)+` FOR UPDATE`, turn.SessionID,
	).Scan(&existingOwner)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session (id, owner_id, title, created_ts, updated_ts)
			VALUES (`+placeholders(5)+`)`,
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
			`UPDATE session SET updated_ts = `+placeholder(1)+` WHERE id = `+placeholder(2),
			turn.CreatedTs, turn.SessionID,
		); err != nil {
			return errors.Wrap(err, "failed to touch session")
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_turn (session_id, user_text, assistant_text, created_ts)
		VALUES (`+placeholders(4)+`)`,
		turn.SessionID, turn.UserText, turn.AssistantText, turn.CreatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to insert turn")
	}

	return errors.Wrap(tx.Commit(), "failed to commit turn")
}

func (d *DB) UpdateSessionTitle(ctx context.Context, update *store.UpdateSessionTitle) (bool, error) {
	where := []string{"id = " + placeholder(3)}
	args := []any{update.Title, update.UpdatedTs, update.ID}
	if update.OnlyIfDefault {
		where = append(where, "title = "+placeholder(4))
		args = append(args, store.DefaultTitle)
	}
	result, err := d.db.ExecContext(ctx,
		`UPDATE session SET title = `+placeholder(1)+`, updated_ts = `+placeholder(2)+` WHERE `+strings.Join(where, " AND "),
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

	result, err := tx.ExecContext(ctx,
		`DELETE FROM session WHERE id = `+placeholder(1)+` AND owner_id = `+placeholder(2),
		delete.ID, delete.OwnerID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	if affected, _ := result.RowsAffected(); affected > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_turn WHERE session_id = `+placeholder(1), delete.ID,
		); err != nil {
			return errors.Wrap(err, "failed to delete session turns")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit delete")
}
