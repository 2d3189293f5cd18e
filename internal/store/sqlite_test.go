package store

import (
	"context"
	"errors"
	"testing"

	"github.com/OsianJL/questions-app/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustCreateUser(t *testing.T, s *SQLiteStore, email string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "hash")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := mustCreateUser(t, s, "a@b.com")
	if u.ID == 0 || u.Confirmed || u.Email != "a@b.com" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := s.CreateUser(ctx, "a@b.com", "other"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	if err := s.ConfirmUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdatePassword(ctx, u.ID, "newhash"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetUserByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Confirmed || got.PasswordHash != "newhash" {
		t.Fatalf("unexpected user after update %+v", got)
	}

	missing, err := s.GetUserByID(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing user, got %v, %v", missing, err)
	}
	if err := s.ConfirmUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := mustCreateUser(t, s, "a@b.com")

	p, err := s.CreateProfile(ctx, &models.Profile{UserID: u.ID, Username: "ana", ImageURL: "http://img", Moto: "hola"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Username != "ana" || p.Moto != "hola" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := s.CreateProfile(ctx, &models.Profile{UserID: u.ID, Username: "again"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	name := "ana2"
	p, err = s.UpdateProfile(ctx, u.ID, models.ProfilePatch{Username: &name})
	if err != nil {
		t.Fatal(err)
	}
	if p.Username != "ana2" || p.ImageURL != "http://img" || p.Moto != "hola" {
		t.Fatalf("patch touched unset fields: %+v", p)
	}

	if err := s.DeleteProfile(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.GetProfile(ctx, u.ID); p != nil {
		t.Fatal("profile should be gone")
	}
	if _, err := s.UpdateProfile(ctx, u.ID, models.ProfilePatch{Username: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteProfile(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublicMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	author := mustCreateUser(t, s, "author@b.com")
	other := mustCreateUser(t, s, "other@b.com")

	first, err := s.CreateMessage(ctx, author.ID, "Ciencia", "Español", "¿Qué es un quark?")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CreateMessage(ctx, author.ID, "Arte", "English", "Favourite painter?")
	if err != nil {
		t.Fatal(err)
	}

	all, err := s.ListMessages(ctx, models.MessageFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	ciencia, err := s.ListMessages(ctx, models.MessageFilter{Tematica: "Ciencia"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ciencia) != 1 || ciencia[0].ID != first.ID {
		t.Fatalf("unexpected filtered list %+v", ciencia)
	}

	replied, err := s.ReplyToMessage(ctx, first.ID, other.ID, "Una partícula")
	if err != nil {
		t.Fatal(err)
	}
	if !replied.Answered() || *replied.ResponderID != other.ID {
		t.Fatalf("unexpected reply %+v", replied)
	}
	if _, err := s.ReplyToMessage(ctx, first.ID, other.ID, "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second reply, got %v", err)
	}
	if _, err := s.ReplyToMessage(ctx, 999, other.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	answered := true
	list, err := s.ListMessages(ctx, models.MessageFilter{Answered: &answered})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("unexpected answered list %+v", list)
	}
	answered = false
	list, _ = s.ListMessages(ctx, models.MessageFilter{Answered: &answered, Idioma: "English"})
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("unexpected unanswered list %+v", list)
	}

	if err := s.DeleteMessage(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteMessage(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := mustCreateUser(t, s, "a@b.com")
	b := mustCreateUser(t, s, "b@b.com")
	c := mustCreateUser(t, s, "c@b.com")

	chat, created, err := s.GetOrCreateChat(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !created || chat.User1ID != a.ID || chat.User2ID != b.ID {
		t.Fatalf("unexpected chat %+v created=%v", chat, created)
	}

	again, created, err := s.GetOrCreateChat(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != chat.ID {
		t.Fatalf("expected the existing chat, got %+v created=%v", again, created)
	}

	if _, _, err := s.GetOrCreateChat(ctx, a.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	chats, err := s.ListChats(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats for a, got %d", len(chats))
	}
	chats, _ = s.ListChats(ctx, b.ID)
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat for b, got %d", len(chats))
	}

	for _, content := range []string{"hola", "qué tal", "bien"} {
		if _, err := s.AddChatMessage(ctx, chat.ID, a.ID, content); err != nil {
			t.Fatal(err)
		}
	}
	msgs, err := s.ListChatMessages(ctx, chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 || msgs[0].Content != "hola" || msgs[2].Content != "bien" {
		t.Fatalf("expected messages in send order, got %+v", msgs)
	}

	if missing, err := s.GetChat(ctx, 999); err != nil || missing != nil {
		t.Fatalf("expected (nil, nil), got %v, %v", missing, err)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Stats(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if empty.TotalQuestions != 0 || empty.LastActivity != nil || len(empty.TopTopics) != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}

	a := mustCreateUser(t, s, "a@b.com")
	b := mustCreateUser(t, s, "b@b.com")
	for _, topic := range []string{"Arte", "Ciencia", "Ciencia"} {
		if _, err := s.CreateMessage(ctx, a.ID, topic, "Español", "?"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.ReplyToMessage(ctx, 1, b.ID, "!"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.GetOrCreateChat(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalUsers != 2 || stats.TotalQuestions != 3 || stats.AnsweredQuestions != 1 || stats.TotalChats != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.LastActivity == nil {
		t.Fatal("expected last activity")
	}
	if len(stats.TopTopics) != 1 || stats.TopTopics[0] != (models.TopicCount{Tematica: "Ciencia", Count: 2}) {
		t.Fatalf("unexpected top topics %+v", stats.TopTopics)
	}
}
