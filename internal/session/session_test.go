package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/canvas-oauth/internal/cache"
)

func TestSession_GetSetDelete(t *testing.T) {
	store := cache.NewMemoryStore(0)
	defer func() { require.NoError(t, store.Close()) }()
	ctx := context.Background()

	s := New("abc", store, time.Minute)
	require.NoError(t, s.Set(ctx, KeyCanvasDomain, "canvas.example.edu"))

	value, found, err := s.Get(ctx, KeyCanvasDomain)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "canvas.example.edu", value)

	raw, found, err := store.Get(ctx, "session:abc:canvas_domain")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "canvas.example.edu", string(raw))

	require.NoError(t, s.Delete(ctx, KeyCanvasDomain))
	_, found, err = s.Get(ctx, KeyCanvasDomain)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_IsolatedByID(t *testing.T) {
	store := cache.NewMemoryStore(0)
	defer func() { require.NoError(t, store.Close()) }()
	ctx := context.Background()

	require.NoError(t, New("a", store, time.Minute).Set(ctx, KeyUserID, "42"))

	_, found, err := New("b", store, time.Minute).Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestManager_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(0)
	defer func() { require.NoError(t, store.Close()) }()

	manager := NewManager(store, "sid", time.Hour, true)

	router := gin.New()
	router.Use(manager.Middleware())
	router.GET("/whoami", func(c *gin.Context) {
		s, ok := FromContext(c.Request.Context())
		require.True(t, ok)
		c.String(http.StatusOK, s.ID())
	})

	t.Run("MintsSessionWhenCookieMissing", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, uuid.Validate(w.Body.String()))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sid", cookies[0].Name)
		assert.Equal(t, w.Body.String(), cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
	})

	t.Run("ReusesIssuedCookie", func(t *testing.T) {
		first := httptest.NewRecorder()
		router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		id := first.Body.String()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: id})
		router.ServeHTTP(w, req)

		assert.Equal(t, id, w.Body.String())
	})

	t.Run("ReplacesUnissuedCookie", func(t *testing.T) {
		planted := uuid.NewString()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: planted})
		router.ServeHTTP(w, req)

		assert.NotEqual(t, planted, w.Body.String())
		assert.NoError(t, uuid.Validate(w.Body.String()))

		_, found, err := store.Get(context.Background(), "session:"+planted)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ReplacesMalformedCookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc"})
		router.ServeHTTP(w, req)

		assert.NotEqual(t, "../../etc", w.Body.String())
		assert.NoError(t, uuid.Validate(w.Body.String()))
	})
}

func TestManager_Renew(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(0)
	defer func() { require.NoError(t, store.Close()) }()
	ctx := context.Background()

	manager := NewManager(store, "sid", time.Hour, false)

	router := gin.New()
	router.Use(manager.Middleware())
	router.POST("/launch", func(c *gin.Context) {
		before, _ := FromContext(c.Request.Context())
		renewed, err := manager.Renew(c)
		require.NoError(t, err)
		require.NoError(t, renewed.Set(c.Request.Context(), KeyUserID, "42"))

		current, ok := FromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, renewed.ID(), current.ID())
		c.String(http.StatusOK, before.ID()+" "+renewed.ID())
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/launch", nil))
	ids := strings.Fields(first.Body.String())
	require.Len(t, ids, 2)
	oldID, newID := ids[0], ids[1]
	assert.NotEqual(t, oldID, newID)

	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, newID, cookies[0].Value)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	_, found, err := store.Get(ctx, "session:"+oldID)
	require.NoError(t, err)
	assert.False(t, found)

	value, found, err := New(newID, store, time.Hour).Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", value)

	t.Run("RetiredIDIsNotReused", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/launch", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: oldID})
		router.ServeHTTP(w, req)

		assert.NotContains(t, w.Body.String(), oldID)
	})
}

type unavailableStore struct {
	cache.Store
}

func (unavailableStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestManager_MiddlewareStoreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewManager(unavailableStore{}, "sid", time.Hour, false)

	router := gin.New()
	router.Use(manager.Middleware())
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, "reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: uuid.NewString()})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "session_unavailable")
	assert.Empty(t, w.Result().Cookies())
}
