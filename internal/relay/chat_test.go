package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/session"
)

type fakeTranslator struct {
	out string
	err error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func newTestSession(t *testing.T) (*session.Manager, *domain.Session) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mgr := session.NewManager(rdb, time.Hour)
	a := &domain.Player{ID: "u1", Username: "alice", LanguagePreferred: "English"}
	b := &domain.Player{ID: "u2", Username: "bob", LanguagePreferred: "Spanish"}
	s, err := mgr.Create(context.Background(), a, b, domain.Blitz)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return mgr, s
}

func TestSendTranslatesForRecipient(t *testing.T) {
	mgr, s := newTestSession(t)
	relay := NewChatRelay(mgr, &fakeTranslator{out: "hola"})

	msg, err := relay.Send(context.Background(), s.ID, "u1", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Text != "hello" || msg.TranslatedText != "hola" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	got, err := mgr.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Chat) != 1 || got.Chat[0].TranslatedText != "hola" {
		t.Fatalf("chat not persisted: %+v", got.Chat)
	}
}

func TestSendDeliversOriginalWhenTranslationFails(t *testing.T) {
	mgr, s := newTestSession(t)
	relay := NewChatRelay(mgr, &fakeTranslator{err: errors.New("upstream 503")})

	msg, err := relay.Send(context.Background(), s.ID, "u1", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Text != "hello" {
		t.Fatalf("original text lost: %+v", msg)
	}
	if msg.TranslatedText != "" {
		t.Fatalf("expected empty translation on failure, got %q", msg.TranslatedText)
	}

	got, err := mgr.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Chat) != 1 || got.Chat[0].Text != "hello" {
		t.Fatalf("message dropped on translation failure: %+v", got.Chat)
	}
}

func TestSendWithoutTranslator(t *testing.T) {
	mgr, s := newTestSession(t)
	relay := NewChatRelay(mgr, nil)

	msg, err := relay.Send(context.Background(), s.ID, "u2", "hi there")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.TranslatedText != "" {
		t.Fatalf("unexpected translation: %q", msg.TranslatedText)
	}
}

func TestSendRejectsOutsiderAndEmpty(t *testing.T) {
	mgr, s := newTestSession(t)
	relay := NewChatRelay(mgr, nil)

	if _, err := relay.Send(context.Background(), s.ID, "intruder", "hi"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := relay.Send(context.Background(), s.ID, "u1", "   "); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestSendOnClosedSession(t *testing.T) {
	mgr, s := newTestSession(t)
	relay := NewChatRelay(mgr, nil)

	if _, err := mgr.Close(context.Background(), s.ID, domain.OutcomeResign, domain.White); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := relay.Send(context.Background(), s.ID, "u1", "gg"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
