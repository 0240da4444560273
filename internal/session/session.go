package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/playlist"
)

const CookieName = "clipdeck_session"

type contextKey string

const sessionKey contextKey = "session"

// Session holds one browser's clip table. Apply serializes writers.
type Session struct {
	ID string

	mu       sync.Mutex
	state    playlist.State
	lastSeen time.Time
}

// Apply runs ev through playlist.Reduce and stores the result.
func (s *Session) Apply(ev playlist.Event) (playlist.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := playlist.Reduce(s.state, ev)
	s.state = next
	return next, err
}

func (s *Session) State() playlist.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time
}

func NewStore(idleTimeout time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Get returns the session for id and marks it as seen.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.lastSeen = st.now()
	}
	return s, ok
}

func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &Session{ID: uuid.NewString(), lastSeen: st.now()}
	st.sessions[s.ID] = s
	return s
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// ExpireIdle removes sessions not seen within the idle timeout and returns how
// many were removed.
func (st *Store) ExpireIdle() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.idleTimeout <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.idleTimeout)
	removed := 0
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func StartExpiryLoop(ctx context.Context, st *Store, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("session: expiry loop shutting down")
				return
			case <-ticker.C:
				if n := st.ExpireIdle(); n > 0 {
					slog.Info("session: expired idle sessions", "count", n, "remaining", st.Len())
				}
			}
		}
	}()
}

// Middleware attaches the caller's session to the request context, creating
// one and setting the cookie when none exists.
func (st *Store) Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s *Session
			if cookie, err := r.Cookie(CookieName); err == nil {
				s, _ = st.Get(cookie.Value)
			}
			if s == nil {
				s = st.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    s.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// ContextWithSession is used by handlers invoked outside the middleware.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}
