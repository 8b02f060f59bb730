// Package session provides cookie-keyed browser sessions stored in a cache.Store.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/canvas-oauth/internal/cache"
)

// Documented session keys.
const (
	// KeyCanvasDomain caches the Canvas domain resolved for this browser session.
	KeyCanvasDomain = "canvas_domain"
	// KeyUserID holds the host application user identity established at launch.
	KeyUserID = "user_id"
	// KeyCourseID holds the Canvas course id captured at launch.
	KeyCourseID = "custom_canvas_course_id"
)

// Session is a short-lived attachment to one browser. Each key is stored as
// a separate cache entry named session:<id>:<key> with the session TTL.
type Session struct {
	id    string
	store cache.Store
	ttl   time.Duration
}

// New returns a Session bound to id.
func New(id string, store cache.Store, ttl time.Duration) *Session {
	return &Session{id: id, store: store, ttl: ttl}
}

// ID returns the session identifier carried by the cookie.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key.
func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	value, found, err := s.store.Get(ctx, s.cacheKey(key))
	if err != nil || !found {
		return "", false, err
	}
	return string(value), true, nil
}

// Set stores value under key, refreshing its TTL.
func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.cacheKey(key), []byte(value), s.ttl)
}

// Delete removes key from the session.
func (s *Session) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.cacheKey(key))
}

func (s *Session) cacheKey(key string) string {
	return "session:" + s.id + ":" + key
}

type sessionKey struct{}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext retrieves the session placed by Manager.Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}

// Manager issues session cookies and attaches a Session to each request.
// Every issued id has a session:<id> marker in the store; a cookie whose id
// has no marker is replaced, so a browser cannot pick its own session id.
type Manager struct {
	store      cache.Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager creates a Manager.
func NewManager(store cache.Store, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Middleware reads the session cookie, minting a new id when it is missing,
// malformed or unknown to the store, and stores the Session in the request context.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := c.Cookie(m.cookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = ""
		}
		if id != "" {
			_, issued, err := m.store.Get(ctx, markerKey(id))
			if err != nil {
				abortUnavailable(c, err)
				return
			}
			if !issued {
				id = ""
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		s, err := m.issue(c, id)
		if err != nil {
			abortUnavailable(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithSession(ctx, s))
		c.Next()
	}
}

// Renew moves the request to a freshly minted session and retires the
// current id. Call it before recording a new identity on the session.
func (m *Manager) Renew(c *gin.Context) (*Session, error) {
	ctx := c.Request.Context()
	if current, ok := FromContext(ctx); ok {
		if err := m.store.Delete(ctx, markerKey(current.ID())); err != nil {
			return nil, err
		}
	}

	s, err := m.issue(c, uuid.NewString())
	if err != nil {
		return nil, err
	}
	c.Request = c.Request.WithContext(WithSession(ctx, s))
	return s, nil
}

// issue refreshes the marker of id and writes the cookie carrying it.
func (m *Manager) issue(c *gin.Context, id string) (*Session, error) {
	if err := m.store.Set(c.Request.Context(), markerKey(id), []byte("1"), m.ttl); err != nil {
		return nil, err
	}

	// Canvas embeds the tool in an iframe, which needs SameSite=None; browsers
	// only accept that together with Secure.
	sameSite := http.SameSiteLaxMode
	if m.secure {
		sameSite = http.SameSiteNoneMode
	}

	// Drop a cookie set earlier in this request so the response carries one id.
	header := c.Writer.Header()
	prefix := m.cookieName + "="
	var kept []string
	for _, value := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(value, prefix) {
			kept = append(kept, value)
		}
	}
	header.Del("Set-Cookie")
	for _, value := range kept {
		header.Add("Set-Cookie", value)
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: sameSite,
	})

	return New(id, m.store, m.ttl), nil
}

func abortUnavailable(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error":   "session_unavailable",
		"message": "Session store is unavailable",
	})
}

func markerKey(id string) string {
	return "session:" + id
}
