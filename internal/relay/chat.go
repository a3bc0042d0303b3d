// Package relay forwards in-session traffic between the two participants.
// Chat messages pass through the translation collaborator on the way; the
// WebRTC signaling payloads are validated at the gateway boundary and
// broadcast verbatim.
package relay

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chessio/chessio-server/internal/domain"
	"github.com/chessio/chessio-server/internal/obslog"
	"github.com/chessio/chessio-server/internal/session"
	"github.com/chessio/chessio-server/internal/translate"
)

type ChatRelay struct {
	sessions   *session.Manager
	translator translate.Translator
}

// NewChatRelay wires the relay. translator may be nil, in which case every
// message delivers untranslated.
func NewChatRelay(sessions *session.Manager, translator translate.Translator) *ChatRelay {
	return &ChatRelay{sessions: sessions, translator: translator}
}

// Send translates the text for the recipient, appends the chat entry to the
// session, and returns it for broadcast. Translation failure degrades to
// delivering the original text; the message is never dropped.
func (r *ChatRelay) Send(ctx context.Context, sessionID, senderID, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.TrimSpace(senderID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	s, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != domain.StatusOpen {
		return nil, domain.ErrSessionClosed
	}
	if s.PlayerColor(senderID) == "" {
		return nil, domain.ErrNotParticipant
	}

	msg := domain.ChatMessage{
		SenderID: senderID,
		Text:     text,
		SentAt:   time.Now(),
	}
	if targetLang := strings.TrimSpace(s.RecipientLang(senderID)); targetLang != "" && r.translator != nil {
		translated, terr := r.translator.Translate(ctx, text, targetLang)
		if terr != nil {
			obslog.L().Warn("chat_translate_failed",
				zap.String("session_id", sessionID),
				zap.String("sender_id", senderID),
				zap.String("target_lang", targetLang),
				zap.Error(terr),
			)
		} else {
			msg.TranslatedText = translated
		}
	}

	if _, err := r.sessions.AppendChat(ctx, sessionID, msg); err != nil {
		return nil, err
	}
	obslog.L().Info("chat_relay",
		zap.String("session_id", sessionID),
		zap.String("sender_id", senderID),
		zap.Bool("translated", msg.TranslatedText != ""),
	)
	return &msg, nil
}
