// Package sqliterepo persists sessions in a local SQLite database.
package sqliterepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/inboxpilot/inboxpilot/sessions"
)

var _ sessions.Repo = (*Repo)(nil)

// Repo implements sessions.Repo on SQLite. Each write is a single
// transactional statement, so a crash mid-write leaves the previous
// record intact rather than a truncated one. SQLite serialises writers,
// which keeps concurrent read-modify-write cycles on the same session ID
// from corrupting each other.
type Repo struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS user_sessions (
	session_id    TEXT PRIMARY KEY,
	user_email    TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_sessions_expires_at ON user_sessions (expires_at);
`

// New opens (or creates) the session database at dbPath, enables WAL
// mode and applies the schema.
func New(dbPath string) (*Repo, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Repo{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repo) Close() error {
	return r.db.Close()
}

// sessionRow is the persisted representation. Timestamps are stored as
// RFC 3339 UTC text so the on-disk format is lossless to the second and
// unambiguous across time zones.
type sessionRow struct {
	SessionID    string `db:"session_id"`
	UserEmail    string `db:"user_email"`
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	ExpiresAt    string `db:"expires_at"`
	CreatedAt    string `db:"created_at"`
}

func toRow(s *sessions.Session) sessionRow {
	return sessionRow{
		SessionID:    s.SessionID,
		UserEmail:    s.UserEmail,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (row sessionRow) toSession() (*sessions.Session, error) {
	expiresAt, err := time.Parse(time.RFC3339, row.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at %q: %w", row.ExpiresAt, err)
	}
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", row.CreatedAt, err)
	}
	return &sessions.Session{
		SessionID:    row.SessionID,
		UserEmail:    row.UserEmail,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
		CreatedAt:    createdAt.UTC(),
	}, nil
}

func (r *Repo) Create(ctx context.Context, session *sessions.Session) error {
	if session.SessionID == "" {
		return errors.New("session ID is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	row := toRow(session)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO user_sessions (session_id, user_email, access_token, refresh_token, expires_at, created_at)
		VALUES (:session_id, :user_email, :access_token, :refresh_token, :expires_at, :created_at)`,
		row,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return sessions.ErrSessionExists
		}
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT session_id, user_email, access_token, refresh_token, expires_at, created_at
		FROM user_sessions WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return row.toSession()
}

func (r *Repo) Update(ctx context.Context, session *sessions.Session) error {
	row := toRow(session)
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE user_sessions
		SET user_email = :user_email,
		    access_token = :access_token,
		    refresh_token = :refresh_token,
		    expires_at = :expires_at,
		    created_at = :created_at
		WHERE session_id = :session_id`,
		row,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if affected == 0 {
		return sessions.ErrSessionNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *Repo) ListAll(ctx context.Context) ([]*sessions.Session, error) {
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT session_id, user_email, access_token, refresh_token, expires_at, created_at
		FROM user_sessions ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	result := make([]*sessions.Session, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSession()
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func (r *Repo) DeleteExpired(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM user_sessions
		WHERE refresh_token = '' AND expires_at < ?`,
		before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	return nil
}
