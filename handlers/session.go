package handlers

import (
	"sync"
	"time"

	"crystosjewel-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionCookie = "crystosjewel_session"

// Session is the per-visitor state the storefront keeps server-side: the
// guest cart and the applied-promotion marker consumed at pricing time.
type Session struct {
	ID           string
	Cart         models.GuestCart
	AppliedPromo string
	CreatedAt    time.Time
}

// SessionStore keeps sessions in memory behind a cookie id. One request owns
// one session; the RWMutex only guards the map itself.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns the session for the request cookie, creating both the session
// and the cookie when absent.
func (s *SessionStore) Get(c *gin.Context) *Session {
	if id, err := c.Cookie(sessionCookie); err == nil {
		s.mu.RLock()
		session, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return session
		}
	}

	session := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	c.SetCookie(sessionCookie, session.ID, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return session
}

// Peek returns the session only if the cookie maps to one.
func (s *SessionStore) Peek(c *gin.Context) (*Session, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Drop removes a session, e.g. after a guest converts to a full customer.
func (s *SessionStore) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
