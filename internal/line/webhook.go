package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event types delivered by the LINE platform that this bot reacts to.
const (
	EventTypeFollow   = "follow"
	EventTypeUnfollow = "unfollow"
	EventTypeMessage  = "message"

	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// WebhookRequest is the envelope POSTed to the webhook endpoint.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string        `json:"type"`
	ReplyToken string        `json:"replyToken"`
	Source     Source        `json:"source"`
	Message    *EventMessage `json:"message,omitempty"`
}

type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseWebhook decodes a webhook request body.
func ParseWebhook(body []byte) (*WebhookRequest, error) {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}
	return &req, nil
}

// ValidateSignature reports whether signature matches the HMAC-SHA256 of body
// under the channel secret, as documented by the LINE platform.
func ValidateSignature(secret, signature string, body []byte) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
