package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OsianJL/questions-app/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	username TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	moto TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS public_messages (
	id BIGSERIAL PRIMARY KEY,
	author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	tematica TEXT NOT NULL,
	idioma TEXT NOT NULL,
	content TEXT NOT NULL,
	reply TEXT,
	responder_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chats (
	id BIGSERIAL PRIMARY KEY,
	user1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	user2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user1_id, user2_id),
	CHECK (user1_id < user2_id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id BIGSERIAL PRIMARY KEY,
	chat_id BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_public_messages_tematica ON public_messages(tematica);
CREATE INDEX IF NOT EXISTS idx_public_messages_created ON public_messages(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, id);
`

// RunMigrations creates the schema on the database at databaseURL.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return err
}

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// isPgUniqueViolation reports whether err is a unique_violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func tagOrNotFound(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const pgUserColumns = `id, email, password_hash, confirmed, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Confirmed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new, unconfirmed user.
func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING `+pgUserColumns, email, passwordHash))
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail retrieves a user by email address.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, email))
}

// ConfirmUser marks a user's email as confirmed.
func (s *PostgresStore) ConfirmUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET confirmed = TRUE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return tagOrNotFound(tag)
}

// UpdatePassword replaces a user's password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	return tagOrNotFound(tag)
}

const pgProfileColumns = `user_id, username, image_url, moto, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.UserID,
		&p.Username,
		&p.ImageURL,
		&p.Moto,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// CreateProfile creates the profile of p.UserID.
func (s *PostgresStore) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	created, err := scanProfile(s.pool.QueryRow(ctx, `
		INSERT INTO profiles (user_id, username, image_url, moto)
		VALUES ($1, $2, $3, $4)
		RETURNING `+pgProfileColumns, p.UserID, p.Username, p.ImageURL, p.Moto))
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return created, nil
}

// GetProfile retrieves the profile owned by userID.
func (s *PostgresStore) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+pgProfileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

// UpdateProfile applies the non-nil fields of patch.
func (s *PostgresStore) UpdateProfile(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `
		UPDATE profiles
		SET username = COALESCE($1, username),
			image_url = COALESCE($2, image_url),
			moto = COALESCE($3, moto),
			updated_at = NOW()
		WHERE user_id = $4
		RETURNING `+pgProfileColumns, patch.Username, patch.ImageURL, patch.Moto, userID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// DeleteProfile deletes the profile owned by userID.
func (s *PostgresStore) DeleteProfile(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	return tagOrNotFound(tag)
}

const pgMessageColumns = `id, author_id, tematica, idioma, content, reply, responder_id, created_at`

func scanPgMessage(row pgx.Row) (*models.PublicMessage, error) {
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
func (s *PostgresStore) CreateMessage(ctx context.Context, authorID int64, tematica, idioma, content string) (*models.PublicMessage, error) {
	return scanPgMessage(s.pool.QueryRow(ctx, `
		INSERT INTO public_messages (author_id, tematica, idioma, content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+pgMessageColumns, authorID, tematica, idioma, content))
}

// GetMessage retrieves a public message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id int64) (*models.PublicMessage, error) {
	msg, err := scanPgMessage(s.pool.QueryRow(ctx, `
		SELECT `+pgMessageColumns+` FROM public_messages WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListMessages lists public messages matching filter, newest first.
func (s *PostgresStore) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.PublicMessage, error) {
	var where []string
	var args []interface{}
	if filter.Tematica != "" {
		args = append(args, filter.Tematica)
		where = append(where, "tematica = $"+strconv.Itoa(len(args)))
	}
	if filter.Idioma != "" {
		args = append(args, filter.Idioma)
		where = append(where, "idioma = $"+strconv.Itoa(len(args)))
	}
	if filter.Answered != nil {
		if *filter.Answered {
			where = append(where, "reply IS NOT NULL")
		} else {
			where = append(where, "reply IS NULL")
		}
	}

	query := `SELECT ` + pgMessageColumns + ` FROM public_messages`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.PublicMessage{}
	for rows.Next() {
		msg, err := scanPgMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// ReplyToMessage stores the single allowed reply of a public message.
func (s *PostgresStore) ReplyToMessage(ctx context.Context, id, responderID int64, reply string) (*models.PublicMessage, error) {
	msg, err := scanPgMessage(s.pool.QueryRow(ctx, `
		UPDATE public_messages SET reply = $1, responder_id = $2
		WHERE id = $3 AND reply IS NULL
		RETURNING `+pgMessageColumns, reply, responderID, id))
	if err == nil {
		return msg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}

// DeleteMessage deletes a public message.
func (s *PostgresStore) DeleteMessage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM public_messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return tagOrNotFound(tag)
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	chat := &models.Chat{}
	if err := row.Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.CreatedAt); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetOrCreateChat returns the chat between userA and userB, creating it if needed.
func (s *PostgresStore) GetOrCreateChat(ctx context.Context, userA, userB int64) (*models.Chat, bool, error) {
	u1, u2 := models.OrderedPair(userA, userB)

	chat, err := scanChat(s.pool.QueryRow(ctx, `
		INSERT INTO chats (user1_id, user2_id) VALUES ($1, $2)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
		RETURNING id, user1_id, user2_id, created_at
	`, u1, u2))
	if err == nil {
		return chat, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	chat, err = scanChat(s.pool.QueryRow(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chats
		WHERE user1_id = $1 AND user2_id = $2
	`, u1, u2))
	if err != nil {
		return nil, false, err
	}
	return chat, false, nil
}

// GetChat retrieves a chat by ID.
func (s *PostgresStore) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	chat, err := scanChat(s.pool.QueryRow(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chats WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return chat, nil
}

// ListChats lists the chats userID participates in, most recent first.
func (s *PostgresStore) ListChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chats
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

// AddChatMessage appends a message to a chat.
func (s *PostgresStore) AddChatMessage(ctx context.Context, chatID, senderID int64, content string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (chat_id, sender_id, content) VALUES ($1, $2, $3)
		RETURNING id, chat_id, sender_id, content, created_at
	`, chatID, senderID, content).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListChatMessages lists the messages of a chat in the order they were sent.
func (s *PostgresStore) ListChatMessages(ctx context.Context, chatID int64) ([]models.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, sender_id, content, created_at FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC
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
func (s *PostgresStore) Stats(ctx context.Context, topTopics int) (*models.Stats, error) {
	stats := &models.Stats{TopTopics: []models.TopicCount{}}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM public_messages),
			(SELECT COUNT(*) FROM public_messages WHERE reply IS NOT NULL),
			(SELECT COUNT(*) FROM chats),
			(SELECT MAX(created_at) FROM public_messages)
	`).Scan(&stats.TotalUsers, &stats.TotalQuestions, &stats.AnsweredQuestions, &stats.TotalChats, &stats.LastActivity)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT tematica, COUNT(*) AS n FROM public_messages
		GROUP BY tematica ORDER BY n DESC, tematica ASC LIMIT $1
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
