package memory

import (
	"sync"
	"time"

	"u-tutor-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewSessionRepository(idleExpiry time.Duration) *SessionRepository {
	if idleExpiry <= 0 {
		idleExpiry = 1 * time.Hour
	}
	// Idle sessions expire; the janitor sweeps every 10 minutes.
	c := cache.New(idleExpiry, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

// GetOrCreate returns the session for the id, creating and saving a fresh
// one when none exists. Reading refreshes the idle expiry.
func (r *SessionRepository) GetOrCreate(sessionID string) *store.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(sessionID); found {
		sess := x.(*store.Session)
		r.cache.Set(sessionID, sess, cache.DefaultExpiration)
		return sess
	}
	sess := store.NewSession(sessionID)
	r.cache.Set(sessionID, sess, cache.DefaultExpiration)
	return sess
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
