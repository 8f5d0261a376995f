package domain

import "time"

// SessionStatus enumerates conversational states a user can be in.
type SessionStatus string

const (
	// SessionAwaitingPrompt means the user has sent a rendering photo and the
	// bot is waiting for an optional custom instruction.
	SessionAwaitingPrompt SessionStatus = "awaiting_prompt"
)

// Session is the explicit per-user conversation record. A session exists only
// between receiving a source image and kicking off generation; it is cleared
// as soon as generation starts.
type Session struct {
	UserID         string
	Status         SessionStatus
	ImageMessageID string
	CreatedAt      time.Time
}
