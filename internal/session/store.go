package session

import (
	"sync"
	"time"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/domain"
)

const defaultTTL = 30 * time.Minute

// Store keeps per-user conversation sessions in memory. Sessions are
// short-lived: one is created when a source image arrives and cleared when
// generation starts, with a TTL guarding against abandoned conversations.
type Store struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// BeginAwaitingPrompt records that the user has sent an image and the bot now
// waits for their custom instruction. Any previous session is replaced.
func (s *Store) BeginAwaitingPrompt(userID, imageMessageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = domain.Session{
		UserID:         userID,
		Status:         domain.SessionAwaitingPrompt,
		ImageMessageID: imageMessageID,
		CreatedAt:      s.now(),
	}
}

// Get returns the user's active session, dropping it if expired.
func (s *Store) Get(userID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return domain.Session{}, false
	}
	if s.now().Sub(sess.CreatedAt) > s.ttl {
		delete(s.sessions, userID)
		return domain.Session{}, false
	}
	return sess, true
}

// Clear removes the user's session, if any.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
