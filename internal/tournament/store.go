package tournament

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSessionCapacity = 1024
	DefaultSessionTTL      = 24 * time.Hour
)

// Store is the persistence abstraction for session state.
// The SessionRepository uses Store for all reads and writes; callers of the
// repository do not need to know which Store is used.
type Store interface {
	GetSession(id SessionID) (*SessionState, bool)
	SetSession(s *SessionState)
	DeleteSession(id SessionID)
	SessionCount() int
}

// LRUStore keeps sessions in memory with a capacity bound and a time-to-live.
// A session that expires or is evicted is gone, exactly as if it was deleted.
type LRUStore struct {
	sessions *expirable.LRU[SessionID, *SessionState]
}

// NewLRUStore returns an empty store holding at most capacity sessions, each
// for at most ttl after its last write. Non-positive arguments select the defaults.
func NewLRUStore(capacity int, ttl time.Duration) *LRUStore {
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &LRUStore{
		sessions: expirable.NewLRU[SessionID, *SessionState](capacity, nil, ttl),
	}
}

// GetSession implements Store.GetSession.
func (s *LRUStore) GetSession(id SessionID) (*SessionState, bool) {
	return s.sessions.Get(id)
}

// SetSession implements Store.SetSession.
func (s *LRUStore) SetSession(st *SessionState) {
	s.sessions.Add(st.ID, st)
}

// DeleteSession implements Store.DeleteSession.
func (s *LRUStore) DeleteSession(id SessionID) {
	s.sessions.Remove(id)
}

// SessionCount implements Store.SessionCount.
func (s *LRUStore) SessionCount() int {
	return s.sessions.Len()
}
