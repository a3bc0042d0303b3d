package domain

import "errors"

// Sentinel errors shared across the core. Handlers map these onto error
// frames for the originating connection; none of them mutates state.
var (
	ErrInvalidGameType = errors.New("invalid game type")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already closed")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrAlreadyClosed   = errors.New("session already settled")
	ErrAlreadyQueued   = errors.New("player already in a queue")
	ErrNotInQueue      = errors.New("player not in queue")
	ErrNotParticipant  = errors.New("player not in session")
	ErrConflict        = errors.New("concurrent update conflict")
)

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrSessionNotFound)
}
