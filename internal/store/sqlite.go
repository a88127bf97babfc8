package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/shared"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	writeMaxRetries     = 3
	writeRetryBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository and applies pending migrations.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers; foreign keys so deletes cascade.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("Applied migration", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// execWithRetry runs a write, retrying with exponential backoff when SQLite
// reports lock contention.
func (s *SQLiteStore) execWithRetry(ctx context.Context, op string, query string, args ...any) (sql.Result, error) {
	var lastErr error
	for i := 0; i < writeMaxRetries; i++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !shared.IsSQLiteConflictError(err) || i == writeMaxRetries-1 {
			break
		}
		delay := writeRetryBaseDelay * time.Duration(1<<i)
		slog.Debug("Database locked, retrying write", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	if shared.IsSQLiteUniqueError(lastErr) {
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return nil, fmt.Errorf("%s: %w", op, lastErr)
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, email, name, password_hash, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.execWithRetry(ctx, "insert user", query,
		user.UserID, user.Email, user.Name, user.PasswordHash,
		user.CreatedAt.UnixMilli(), user.UpdatedAt.UnixMilli(),
	)
	return err
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, `
		SELECT user_id, email, name, password_hash, created_at, updated_at
		FROM users WHERE user_id = ?`, userID)
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `
		SELECT user_id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, query, arg)

	var user domain.User
	var createdAt, updatedAt int64
	err := row.Scan(&user.UserID, &user.Email, &user.Name, &user.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.UnixMilli(createdAt)
	user.UpdatedAt = time.UnixMilli(updatedAt)
	return &user, nil
}

// CreateSession stores a login session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.execWithRetry(ctx, "insert session", query,
		session.Token, session.UserID,
		session.ExpiresAt.UnixMilli(), session.CreatedAt.UnixMilli(),
	)
	return err
}

// GetSession retrieves a session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`
	row := s.db.QueryRowContext(ctx, query, token)

	var session domain.Session
	var expiresAt, createdAt int64
	err := row.Scan(&session.Token, &session.UserID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.ExpiresAt = time.UnixMilli(expiresAt)
	session.CreatedAt = time.UnixMilli(createdAt)
	return &session, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.execWithRetry(ctx, "delete session", `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpiredSessions removes sessions that expired before now.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, "delete expired sessions", `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateChat inserts a new chat.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *domain.Chat) error {
	query := `INSERT INTO chats (chat_id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.execWithRetry(ctx, "insert chat", query,
		chat.ID, chat.UserID, chat.Title,
		chat.CreatedAt.UnixMilli(), chat.UpdatedAt.UnixMilli(),
	)
	return err
}

const chatColumns = `
	c.chat_id, c.user_id, c.title, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM turns t WHERE t.chat_id = c.chat_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	var chat domain.Chat
	var createdAt, updatedAt int64
	if err := row.Scan(&chat.ID, &chat.UserID, &chat.Title, &createdAt, &updatedAt, &chat.MessageCount); err != nil {
		return nil, err
	}
	chat.CreatedAt = time.UnixMilli(createdAt)
	chat.UpdatedAt = time.UnixMilli(updatedAt)
	return &chat, nil
}

// GetChat retrieves a chat by ID.
func (s *SQLiteStore) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+chatColumns+` FROM chats c WHERE c.chat_id = ?`, chatID)
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat row: %w", err)
	}
	return chat, nil
}

// ListChats returns a user's chats, most recently updated first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]*domain.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+chatColumns+` FROM chats c WHERE c.user_id = ? ORDER BY c.updated_at DESC, c.rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close chat rows", "error", closeErr)
		}
	}()

	chats := []*domain.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, nil
}

// TouchChat sets a chat's updated_at marker.
func (s *SQLiteStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	res, err := s.execWithRetry(ctx, "touch chat", `UPDATE chats SET updated_at = ? WHERE chat_id = ?`, at.UnixMilli(), chatID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("TouchChat affected 0 rows", "chat_id", chatID)
	}
	return nil
}

// DeleteChat removes a chat and all of its turns.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete chat: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete chat: %w", err)
	}
	return nil
}

// CreateTurn appends a turn to a chat.
func (s *SQLiteStore) CreateTurn(ctx context.Context, turn *domain.Turn) error {
	query := `
	INSERT INTO turns (turn_id, chat_id, role, content, image_data, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var imageData interface{}
	if turn.ImageData != "" {
		imageData = turn.ImageData
	}

	_, err := s.execWithRetry(ctx, "insert turn", query,
		turn.ID, turn.ChatID, string(turn.Role), turn.Content, imageData, turn.CreatedAt.UnixMilli(),
	)
	return err
}

// ListTurns returns the full history of a chat, oldest first.
func (s *SQLiteStore) ListTurns(ctx context.Context, chatID string) ([]*domain.Turn, error) {
	return s.queryTurns(ctx, `
		SELECT turn_id, chat_id, role, content, image_data, created_at
		FROM turns WHERE chat_id = ?
		ORDER BY created_at ASC, seq ASC`, chatID)
}

// RecentTurns returns at most limit turns of a chat, newest first.
func (s *SQLiteStore) RecentTurns(ctx context.Context, chatID string, limit int) ([]*domain.Turn, error) {
	return s.queryTurns(ctx, `
		SELECT turn_id, chat_id, role, content, image_data, created_at
		FROM turns WHERE chat_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`, chatID, limit)
}

func (s *SQLiteStore) queryTurns(ctx context.Context, query string, args ...any) ([]*domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close turn rows", "error", closeErr)
		}
	}()

	turns := []*domain.Turn{}
	for rows.Next() {
		var turn domain.Turn
		var role string
		var imageData sql.NullString
		var createdAt int64
		if err := rows.Scan(&turn.ID, &turn.ChatID, &role, &turn.Content, &imageData, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turn.Role = domain.Role(role)
		turn.ImageData = imageData.String
		turn.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}
