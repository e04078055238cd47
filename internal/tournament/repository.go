package tournament

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Repository defines the concurrency-safe contract for reading and replacing
// per-session state.
type Repository interface {
	// CreateSession starts a session holding the given credential and returns its id.
	CreateSession(token *oauth2.Token) SessionID

	// DestroySession drops all state for the session. Unknown ids are a no-op.
	DestroySession(id SessionID)

	// Token returns the session's credential. ok is false for unknown or
	// expired sessions.
	Token(id SessionID) (token *oauth2.Token, ok bool)

	// SetPool replaces the session's pool and clears its bracket, since a
	// bracket drawn from an older pool is no longer valid.
	SetPool(id SessionID, pool []VideoRef) error

	// SetBracket replaces the session's bracket.
	SetBracket(id SessionID, bracket []VideoRef) error

	// DrawBracket calls draw with the session's current pool and stores the
	// result as its bracket, all under one write lock, so the bracket always
	// comes from the pool it is stored next to. An error from draw is
	// returned and nothing is stored.
	DrawBracket(id SessionID, draw func(pool []VideoRef) ([]VideoRef, error)) ([]VideoRef, error)

	// SetToken replaces the session's credential, e.g. after a refresh.
	SetToken(id SessionID, token *oauth2.Token) error

	// Snapshot returns copies of the pool and bracket read together. ok is
	// false for unknown or expired sessions.
	Snapshot(id SessionID) (pool, bracket []VideoRef, ok bool)

	// Pool and Bracket return copies of the current values, or an empty
	// slice when unset.
	Pool(id SessionID) []VideoRef
	Bracket(id SessionID) []VideoRef

	// HasPool and HasBracket report whether the value is set and non-empty.
	HasPool(id SessionID) bool
	HasBracket(id SessionID) bool

	// Stage reports how far along the workflow the session is.
	Stage(id SessionID) Stage

	// ActiveSessionCount returns the number of live sessions.
	// Used for metrics.
	ActiveSessionCount() int
}

// ErrSessionNotFound is returned when writing state for a session that does
// not exist or has expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository is a concurrency-safe implementation of Repository on top
// of a Store.
type SessionRepository struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewSessionRepository constructs a repository with a default LRU store.
func NewSessionRepository() *SessionRepository {
	return NewSessionRepositoryWithStore(NewLRUStore(0, 0))
}

// NewSessionRepositoryWithStore constructs a repository that uses the given Store.
func NewSessionRepositoryWithStore(store Store) *SessionRepository {
	return &SessionRepository{store: store, now: time.Now}
}

// CreateSession implements Repository.CreateSession.
func (r *SessionRepository) CreateSession(token *oauth2.Token) SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := SessionID(uuid.NewString())
	r.store.SetSession(&SessionState{
		ID:        id,
		Token:     token,
		CreatedAt: r.now().UTC(),
	})
	return id
}

// DestroySession implements Repository.DestroySession.
func (r *SessionRepository) DestroySession(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.DeleteSession(id)
}

// Token implements Repository.Token.
func (r *SessionRepository) Token(id SessionID) (*oauth2.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	if !ok {
		return nil, false
	}
	return st.Token, true
}

// SetPool implements Repository.SetPool.
func (r *SessionRepository) SetPool(id SessionID, pool []VideoRef) error {
	return r.replace(id, func(next *SessionState) error {
		next.Pool = slices.Clone(pool)
		next.Bracket = nil
		return nil
	})
}

// SetBracket implements Repository.SetBracket.
func (r *SessionRepository) SetBracket(id SessionID, bracket []VideoRef) error {
	return r.replace(id, func(next *SessionState) error {
		next.Bracket = slices.Clone(bracket)
		return nil
	})
}

// DrawBracket implements Repository.DrawBracket.
func (r *SessionRepository) DrawBracket(id SessionID, draw func(pool []VideoRef) ([]VideoRef, error)) ([]VideoRef, error) {
	var drawn []VideoRef
	err := r.replace(id, func(next *SessionState) error {
		b, err := draw(slices.Clone(next.Pool))
		if err != nil {
			return err
		}
		drawn = b
		next.Bracket = slices.Clone(b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drawn, nil
}

// SetToken implements Repository.SetToken.
func (r *SessionRepository) SetToken(id SessionID, token *oauth2.Token) error {
	return r.replace(id, func(next *SessionState) error {
		next.Token = token
		return nil
	})
}

// Snapshot implements Repository.Snapshot.
func (r *SessionRepository) Snapshot(id SessionID) ([]VideoRef, []VideoRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	if !ok {
		return []VideoRef{}, []VideoRef{}, false
	}
	pool, bracket := []VideoRef{}, []VideoRef{}
	if st.Pool != nil {
		pool = slices.Clone(st.Pool)
	}
	if st.Bracket != nil {
		bracket = slices.Clone(st.Bracket)
	}
	return pool, bracket, true
}

// Pool implements Repository.Pool.
func (r *SessionRepository) Pool(id SessionID) []VideoRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	if !ok || st.Pool == nil {
		return []VideoRef{}
	}
	return slices.Clone(st.Pool)
}

// Bracket implements Repository.Bracket.
func (r *SessionRepository) Bracket(id SessionID) []VideoRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	if !ok || st.Bracket == nil {
		return []VideoRef{}
	}
	return slices.Clone(st.Bracket)
}

// HasPool implements Repository.HasPool.
func (r *SessionRepository) HasPool(id SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	return ok && len(st.Pool) > 0
}

// HasBracket implements Repository.HasBracket.
func (r *SessionRepository) HasBracket(id SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	return ok && len(st.Bracket) > 0
}

// Stage implements Repository.Stage.
func (r *SessionRepository) Stage(id SessionID) Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetSession(id)
	switch {
	case !ok:
		return StageUnauthenticated
	case len(st.Pool) == 0:
		return StageAuthenticated
	case len(st.Bracket) == 0:
		return StagePoolReady
	default:
		return StageBracketReady
	}
}

// ActiveSessionCount implements Repository.ActiveSessionCount.
func (r *SessionRepository) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.store.SessionCount()
}

// replace stores a modified copy of the session's state so readers only
// ever see the old value or the new one. If mutate fails nothing is stored.
func (r *SessionRepository) replace(id SessionID, mutate func(next *SessionState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.store.GetSession(id)
	if !ok {
		return ErrSessionNotFound
	}
	next := *cur
	if err := mutate(&next); err != nil {
		return err
	}
	r.store.SetSession(&next)
	return nil
}
