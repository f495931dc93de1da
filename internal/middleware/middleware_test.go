package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"fileboard/internal/logging"
	"fileboard/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	users map[string]models.User
	err   error
}

func (f *fakeUsers) Get(_ context.Context, username string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return models.User{}, errors.New("not found")
	}
	return u, nil
}

// newRouter собирает роутер с сессиями и служебным маршрутом /test-login.
func newRouter(users UserLookup) *gin.Engine {
	log := logging.Nop()
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(RefreshVerification(users, log))

	r.GET("/test-login", func(c *gin.Context) {
		u := models.User{Username: c.Query("u"), Email: c.Query("u") + "@example.com"}
		u.Verified, _ = strconv.ParseBool(c.Query("v"))
		if err := StartSession(sessions.Default(c), u); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/test-logout", func(c *gin.Context) {
		_ = ClearSession(sessions.Default(c))
		c.Status(http.StatusNoContent)
	})
	r.GET("/test-corrupt", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(KeyLoggedIn, true)
		s.Set(KeyUsername, 42)
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})

	protected := r.Group("/")
	protected.Use(AuthRequired(log))
	protected.GET("/whoami", func(c *gin.Context) {
		id := CurrentIdentity(c)
		c.String(http.StatusOK, "%s verified=%t", id.Username, id.Verified)
	})
	return r
}

// do выполняет запрос с cookie и возвращает ответ вместе с обновленными cookie.
func do(r http.Handler, path string, cookies []*http.Cookie) (*httptest.ResponseRecorder, []*http.Cookie) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		cookies = set
	}
	return w, cookies
}

func TestAuthRequired_RedirectsWithoutSession(t *testing.T) {
	r := newRouter(&fakeUsers{})

	w, _ := do(r, "/whoami", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAuthRequired_PassesWithSession(t *testing.T) {
	users := &fakeUsers{users: map[string]models.User{"ana": {Username: "ana"}}}
	r := newRouter(users)

	_, cookies := do(r, "/test-login?u=ana&v=false", nil)
	w, _ := do(r, "/whoami", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana verified=false", w.Body.String())
}

func TestAuthRequired_AfterLogout(t *testing.T) {
	users := &fakeUsers{users: map[string]models.User{"ana": {Username: "ana"}}}
	r := newRouter(users)

	_, cookies := do(r, "/test-login?u=ana", nil)
	_, cookies = do(r, "/test-logout", cookies)
	w, _ := do(r, "/whoami", cookies)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAuthRequired_CorruptSession(t *testing.T) {
	r := newRouter(&fakeUsers{})

	_, cookies := do(r, "/test-corrupt", nil)
	w, _ := do(r, "/whoami", cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRefreshVerification_UpdatesSession(t *testing.T) {
	users := &fakeUsers{users: map[string]models.User{"bob": {Username: "bob", Verified: false}}}
	r := newRouter(users)

	_, cookies := do(r, "/test-login?u=bob&v=false", nil)

	// Флаг изменен "снаружи".
	users.users["bob"] = models.User{Username: "bob", Verified: true}

	w, cookies := do(r, "/whoami", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob verified=true", w.Body.String())

	// И обратно.
	users.users["bob"] = models.User{Username: "bob", Verified: false}
	w, _ = do(r, "/whoami", cookies)
	assert.Equal(t, "bob verified=false", w.Body.String())
}

func TestRefreshVerification_StoreErrorKeepsSession(t *testing.T) {
	users := &fakeUsers{users: map[string]models.User{"bob": {Username: "bob"}}}
	r := newRouter(users)

	_, cookies := do(r, "/test-login?u=bob&v=true", nil)
	users.err = errors.New("disk on fire")

	w, _ := do(r, "/whoami", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob verified=true", w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "info", "text")

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Contains(t, buf.String(), "request_id="+id)
	assert.Contains(t, buf.String(), "status=200")

	// Корректный входящий идентификатор сохраняется.
	const given = "6f1c2a4e-1d2b-4c3d-8e9f-0a1b2c3d4e5f"
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "level=ERROR")
}
