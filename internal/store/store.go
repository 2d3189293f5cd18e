package store

import (
	"context"
	"errors"

	"github.com/OsianJL/questions-app/internal/models"
)

var (
	// ErrNotFound is returned by mutations whose target row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness or
	// write-once rule.
	ErrConflict = errors.New("conflict")
)

// DataStore defines the interface for persistent storage.
// Both PostgresStore and SQLiteStore implement this interface.
// Lookups return (nil, nil) when nothing matches.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ConfirmUser(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Profile operations
	CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error)
	DeleteProfile(ctx context.Context, userID int64) error

	// Public message operations
	CreateMessage(ctx context.Context, authorID int64, tematica, idioma, content string) (*models.PublicMessage, error)
	GetMessage(ctx context.Context, id int64) (*models.PublicMessage, error)
	ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.PublicMessage, error)
	ReplyToMessage(ctx context.Context, id, responderID int64, reply string) (*models.PublicMessage, error)
	DeleteMessage(ctx context.Context, id int64) error

	// Chat operations
	GetOrCreateChat(ctx context.Context, userA, userB int64) (chat *models.Chat, created bool, err error)
	GetChat(ctx context.Context, id int64) (*models.Chat, error)
	ListChats(ctx context.Context, userID int64) ([]models.Chat, error)
	AddChatMessage(ctx context.Context, chatID, senderID int64, content string) (*models.ChatMessage, error)
	ListChatMessages(ctx context.Context, chatID int64) ([]models.ChatMessage, error)

	// Stats operations
	Stats(ctx context.Context, topTopics int) (*models.Stats, error)
}

var (
	_ DataStore = (*PostgresStore)(nil)
	_ DataStore = (*SQLiteStore)(nil)
)
