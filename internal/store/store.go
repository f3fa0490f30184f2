// Package store persists users and their conversations in SQLite.
//
// Each conversation row carries its full message history as a JSON
// document. Histories are short (a styling chat, not a log stream) and
// are always read and written whole, so a document column beats a
// per-message table here.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrLastConversation is returned when deleting a user's only
// conversation. Every user keeps at least one.
var ErrLastConversation = errors.New("cannot delete the last conversation")

// ErrNotFound is returned when a conversation does not exist or does
// not belong to the given user.
var ErrNotFound = errors.New("conversation not found")

// DefaultTitle is the title given to conversations before the first
// user message provides a better one.
const DefaultTitle = "New Conversation"

// Message is one turn entry in a conversation history.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64-encoded
}

// Conversation is a stored conversation. Messages is populated only by
// Load; listing calls leave it nil.
type Conversation struct {
	ID        int64
	UserID    string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a SQLite-backed conversation store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		messages TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser inserts the user row if it does not exist.
func (s *Store) EnsureUser(userID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO users (id, created_at) VALUES (?, ?)
	`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// Create starts a new conversation for the user.
func (s *Store) Create(userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	if err := s.EnsureUser(userID); err != nil {
		return nil, err
	}

	now := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO conversations (user_id, title, messages, created_at, updated_at)
		VALUES (?, ?, '[]', ?, ?)
	`, userID, title, now, now)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// List returns the user's conversations, most recently updated first.
// Ties break toward the older (smaller) id. Messages are not loaded.
func (s *Store) List(userID string) ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Active returns the conversation the user should resume: the most
// recently updated one, ties broken by smallest id. Returns ErrNotFound
// when the user has no conversations.
func (s *Store) Active(userID string) (*Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC
		LIMIT 1
	`, userID)

	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("active conversation: %w", err)
	}
	return &c, nil
}

// Load returns the conversation with its message history. A corrupt
// history document is logged and treated as empty rather than failing
// the load; the conversation remains usable.
func (s *Store) Load(userID string, convID int64) (*Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, messages, created_at, updated_at
		FROM conversations
		WHERE id = ? AND user_id = ?
	`, convID, userID)

	var c Conversation
	var raw string
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &raw, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &c.Messages); err != nil {
		s.logger.Warn("conversation history corrupt, starting empty",
			"conversation", c.ID, "error", err)
		c.Messages = []Message{}
	}
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return &c, nil
}

// Save replaces the conversation's message history and bumps its
// updated_at timestamp.
func (s *Store) Save(userID string, convID int64, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE conversations SET messages = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, string(raw), time.Now(), convID, userID)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return s.checkAffected(res)
}

// Rename sets the conversation title.
func (s *Store) Rename(userID string, convID int64, title string) error {
	if title == "" {
		title = DefaultTitle
	}
	res, err := s.db.Exec(`
		UPDATE conversations SET title = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, title, time.Now(), convID, userID)
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	return s.checkAffected(res)
}

// ClearMessages empties the conversation history but keeps the
// conversation and its title.
func (s *Store) ClearMessages(userID string, convID int64) error {
	res, err := s.db.Exec(`
		UPDATE conversations SET messages = '[]', updated_at = ?
		WHERE id = ? AND user_id = ?
	`, time.Now(), convID, userID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return s.checkAffected(res)
}

// Delete removes a conversation. Deleting the user's only conversation
// is refused with ErrLastConversation; the check and the delete run in
// one transaction so a concurrent delete cannot slip below one.
func (s *Store) Delete(userID string, convID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRow(`
		SELECT 1 FROM conversations WHERE id = ? AND user_id = ?
	`, convID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	var count int
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM conversations WHERE user_id = ?
	`, userID).Scan(&count); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if count <= 1 {
		return ErrLastConversation
	}

	res, err := tx.Exec(`
		DELETE FROM conversations WHERE id = ? AND user_id = ?
	`, convID, userID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if err := s.checkAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
