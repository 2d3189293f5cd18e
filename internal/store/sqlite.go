package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/OsianJL/questions-app/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/questions.db". The special path
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/questions.db"
	}

	var db *sql.DB
	var err error
	if dbPath == ":memory:" {
		db, err = sql.Open("sqlite3", ":memory:?_foreign_keys=on")
		if err != nil {
			return nil, err
		}
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}

		db, err = sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
		if err != nil {
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		confirmed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		moto TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS public_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		tematica TEXT NOT NULL,
		idioma TEXT NOT NULL,
		content TEXT NOT NULL,
		reply TEXT,
		responder_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		UNIQUE (user1_id, user2_id)
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_public_messages_tematica ON public_messages(tematica);
	CREATE INDEX IF NOT EXISTS idx_public_messages_created ON public_messages(created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// rowsAffectedOrNotFound turns a zero-row mutation into ErrNotFound.
func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser creates a new, unconfirmed user.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, confirmed, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
	`, email, passwordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, confirmed, created_at, updated_at
		FROM users WHERE `+where, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Confirmed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// ConfirmUser marks a user's email as confirmed.
func (s *SQLiteStore) ConfirmUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET confirmed = 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

// UpdatePassword replaces a user's password hash.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

// CreateProfile creates the profile of p.UserID.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, username, image_url, moto, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.UserID, p.Username, p.ImageURL, p.Moto, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return s.GetProfile(ctx, p.UserID)
}

// GetProfile retrieves the profile owned by userID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, image_url, moto, created_at, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(
		&p.UserID,
		&p.Username,
		&p.ImageURL,
		&p.Moto,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields of patch.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET username = COALESCE(?, username),
			image_url = COALESCE(?, image_url),
			moto = COALESCE(?, moto),
			updated_at = ?
		WHERE user_id = ?
	`, patch.Username, patch.ImageURL, patch.Moto, time.Now().UTC(), userID)
	if err != nil {
		return nil, err
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// DeleteProfile deletes the profile owned by userID.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

const sqliteMessageColumns = `id, author_id, tematica, idioma, content, reply, responder_id, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.PublicMessage, error) {
	msg := &models.PublicMessage{}
	err := row.Scan(
		&msg.ID,
		&msg.AuthorID,
		&msg.Tematica,
		&msg.Idioma,
		&msg.Content,
		&msg.Reply,
		&msg.ResponderID,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateMessage creates a new public message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, authorID int64, tematica, idioma, content string) (*models.PublicMessage, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO public_messages (author_id, tematica, idioma, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, authorID, tematica, idioma, content, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetMessage(ctx, id)
}

// GetMessage retrieves a public message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*models.PublicMessage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteMessageColumns+` FROM public_messages WHERE id = ?
	`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListMessages lists public messages matching filter, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.PublicMessage, error) {
	var where []string
	var args []interface{}
	if filter.Tematica != "" {
		where = append(where, "tematica = ?")
		args = append(args, filter.Tematica)
	}
	if filter.Idioma != "" {
		where = append(where, "idioma = ?")
		args = append(args, filter.Idioma)
	}
	if filter.Answered != nil {
		if *filter.Answered {
			where = append(where, "reply IS NOT NULL")
		} else {
			where = append(where, "reply IS NULL")
		}
	}

	query := `SELECT ` + sqliteMessageColumns + ` FROM public_messages`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.PublicMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// ReplyToMessage stores the single allowed reply of a public message.
func (s *SQLiteStore) ReplyToMessage(ctx context.Context, id, responderID int64, reply string) (*models.PublicMessage, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE public_messages SET reply = ?, responder_id = ?
		WHERE id = ? AND reply IS NULL
	`, reply, responderID, id)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	if n == 0 {
		return nil, ErrConflict
	}
	return msg, nil
}

// DeleteMessage deletes a public message.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM public_messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

// GetOrCreateChat returns the chat between userA and userB, creating it if needed.
func (s *SQLiteStore) GetOrCreateChat(ctx context.Context, userA, userB int64) (*models.Chat, bool, error) {
	u1, u2 := models.OrderedPair(userA, userB)

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chats (user1_id, user2_id, created_at) VALUES (?, ?, ?)
	`, u1, u2, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	chat := &models.Chat{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chats
		WHERE user1_id = ? AND user2_id = ?
	`, u1, u2).Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	return chat, n == 1, nil
}

// GetChat retrieves a chat by ID.
func (s *SQLiteStore) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	chat := &models.Chat{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chats WHERE id = ?
	`, id).Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return chat, nil
}

// ListChats lists the chats userID participates in, most recent first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chats
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY id DESC
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// AddChatMessage appends a message to a chat.
func (s *SQLiteStore) AddChatMessage(ctx context.Context, chatID, senderID int64, content string) (*models.ChatMessage, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (chat_id, sender_id, content, created_at) VALUES (?, ?, ?, ?)
	`, chatID, senderID, content, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.ChatMessage{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// ListChatMessages lists the messages of a chat in the order they were sent.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, chatID int64) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, content, created_at FROM chat_messages
		WHERE chat_id = ?
		ORDER BY id ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Stats returns aggregate counts and the most used tematicas.
func (s *SQLiteStore) Stats(ctx context.Context, topTopics int) (*models.Stats, error) {
	stats := &models.Stats{TopTopics: []models.TopicCount{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM public_messages),
			(SELECT COUNT(*) FROM public_messages WHERE reply IS NOT NULL),
			(SELECT COUNT(*) FROM chats)
	`).Scan(&stats.TotalUsers, &stats.TotalQuestions, &stats.AnsweredQuestions, &stats.TotalChats)
	if err != nil {
		return nil, err
	}

	var last time.Time
	err = s.db.QueryRowContext(ctx, `
		SELECT created_at FROM public_messages ORDER BY id DESC LIMIT 1
	`).Scan(&last)
	switch {
	case err == nil:
		stats.LastActivity = &last
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tematica, COUNT(*) AS n FROM public_messages
		GROUP BY tematica ORDER BY n DESC, tematica ASC LIMIT ?
	`, topTopics)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tc models.TopicCount
		if err := rows.Scan(&tc.Tematica, &tc.Count); err != nil {
			return nil, err
		}
		stats.TopTopics = append(stats.TopTopics, tc)
	}
	return stats, rows.Err()
}
