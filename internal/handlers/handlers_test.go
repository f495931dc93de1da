package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fileboard/internal/database"
	"fileboard/internal/logging"
	"fileboard/internal/models"
	"fileboard/internal/realtime"
	"fileboard/internal/services"
	"fileboard/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	srv   *httptest.Server
	users *services.Users
	files *services.Files
	hub   *realtime.Hub
	dir   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	log := logging.Nop()

	store, err := database.OpenJSON(dir)
	require.NoError(t, err)
	blobs, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	hub := realtime.NewHub(log)
	users := services.NewUsers(store, log)
	files := services.NewFiles(store, blobs, log)

	router, err := NewRouter(Deps{
		Users:         users,
		Files:         files,
		Messages:      services.NewMessages(store, hub, log),
		Hub:           hub,
		Log:           log,
		CookieSecret:  []byte("test-secret"),
		SessionMaxAge: time.Hour,
		MaxUpload:     1 << 20,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &testApp{srv: srv, users: users, files: files, hub: hub, dir: dir}
}

// client - браузер с собственными cookie, не следующий редиректам.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (a *testApp) newClient(t *testing.T) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: a.srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type result struct {
	code     int
	body     string
	location string
	header   http.Header
}

func (c *client) do(req *http.Request) result {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return result{code: resp.StatusCode, body: string(body), location: resp.Header.Get("Location"), header: resp.Header}
}

func (c *client) get(path string) result {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) post(path string, form url.Values) result {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// upload отправляет multipart-форму с полем field.
func (c *client) upload(field, filename, content string) result {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(c.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/upload", &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) register(username, email, password string) result {
	c.t.Helper()
	return c.post("/register", url.Values{"username": {username}, "email": {email}, "password": {password}})
}

func (c *client) login(identifier, password string) result {
	c.t.Helper()
	return c.post("/login", url.Values{"username_or_email": {identifier}, "password": {password}})
}

// signUp регистрирует и сразу входит.
func (c *client) signUp(username, password string) {
	c.t.Helper()
	r := c.register(username, username+"@example.com", password)
	require.Equal(c.t, http.StatusFound, r.code, r.body)
	r = c.login(username, password)
	require.Equal(c.t, http.StatusFound, r.code, r.body)
	require.Equal(c.t, "/", r.location)
}

func TestOwnerUploadsAndDeletes(t *testing.T) {
	app := newTestApp(t)
	a := app.newClient(t)

	r := a.register("A", "a@x.com", "p")
	require.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/login", r.location)

	r = a.login("a@x.com", "p")
	require.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/", r.location)

	r = a.upload("file", "a.txt", "hello")
	require.Equal(t, http.StatusFound, r.code, r.body)
	assert.Equal(t, "/files", r.location)

	r = a.get("/files")
	require.Equal(t, http.StatusOK, r.code)
	assert.Contains(t, r.body, "a.txt")
	assert.Contains(t, r.body, "0.00 KB")

	r = a.get("/download/a.txt")
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "hello", r.body)
	assert.Equal(t, "attachment; filename=a.txt", r.header.Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", r.header.Get("Content-Type"))

	r = a.post("/delete/a.txt", nil)
	require.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/files", r.location)

	r = a.get("/download/a.txt")
	assert.Equal(t, http.StatusNotFound, r.code)
	assert.Contains(t, r.body, "Archivo no encontrado")

	recs, err := app.files.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoFileExists(t, filepath.Join(app.dir, "uploads", "a.txt"))
}

func TestVerifiedUserDeletesUnverifiedFile(t *testing.T) {
	app := newTestApp(t)
	a := app.newClient(t)
	b := app.newClient(t)

	a.signUp("A", "pa")
	require.Equal(t, http.StatusFound, a.upload("file", "x.txt", "data").code)

	b.signUp("B", "pb")

	// Пока B не проверен, удалить чужой файл нельзя.
	r := b.post("/delete/x.txt", nil)
	assert.Equal(t, http.StatusForbidden, r.code)
	assert.Contains(t, r.body, "No tienes permiso")

	// Проверка выполняется снаружи; сессия B обновится на следующем запросе.
	require.NoError(t, app.users.SetVerified(context.Background(), "B", true))

	r = b.get("/")
	require.Equal(t, http.StatusOK, r.code)
	assert.Contains(t, r.body, "Usuario verificado")

	r = b.post("/delete/x.txt", nil)
	require.Equal(t, http.StatusFound, r.code, r.body)

	r = a.post("/delete/x.txt", nil)
	assert.Equal(t, http.StatusNotFound, r.code)
}

func TestVerifiedCannotDeleteVerifiedFile(t *testing.T) {
	app := newTestApp(t)
	a := app.newClient(t)
	b := app.newClient(t)

	a.signUp("A", "pa")
	require.NoError(t, app.users.SetVerified(context.Background(), "A", true))
	// Снимок статуса берется из сессии на момент загрузки.
	require.Equal(t, http.StatusOK, a.get("/").code)
	require.Equal(t, http.StatusFound, a.upload("file", "v.txt", "v").code)

	b.signUp("B", "pb")
	require.NoError(t, app.users.SetVerified(context.Background(), "B", true))

	r := b.post("/delete/v.txt", nil)
	assert.Equal(t, http.StatusForbidden, r.code)

	r = b.get("/files")
	require.Equal(t, http.StatusOK, r.code)
	assert.NotContains(t, r.body, `action="/delete/v.txt"`)
}

func TestProtectedRoutesRedirect(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	for _, path := range []string{"/", "/files", "/messages", "/download/a.txt"} {
		r := c.get(path)
		assert.Equal(t, http.StatusFound, r.code, path)
		assert.Equal(t, "/login", r.location, path)
	}

	r := c.post("/send_message", url.Values{"message": {"hola"}})
	assert.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/login", r.location)
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	assert.Equal(t, http.StatusOK, c.get("/login").code)
	assert.Equal(t, http.StatusOK, c.get("/register").code)
	assert.Equal(t, http.StatusOK, c.get("/static/style.css").code)

	r := c.get("/healthz")
	require.Equal(t, http.StatusOK, r.code)
	assert.JSONEq(t, `{"status":"ok"}`, r.body)
}

func TestRegisterErrors(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	require.Equal(t, http.StatusFound, c.register("ana", "ana@example.com", "p").code)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		want     string
	}{
		{"missing fields", "", "x@example.com", "p", "Todos los campos son obligatorios"},
		{"bad email", "x", "not-an-email", "p", "Correo electrónico no válido"},
		{"email taken", "otra", "ana@example.com", "p", "El correo electrónico ya está registrado"},
		{"username taken", "ana", "otra@example.com", "p", "El nombre de usuario ya existe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.register(tt.username, tt.email, tt.password)
			assert.Equal(t, http.StatusBadRequest, r.code)
			assert.Contains(t, r.body, tt.want)
		})
	}
}

func TestLoginFailure(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	require.Equal(t, http.StatusFound, c.register("ana", "ana@example.com", "p").code)

	r := c.login("ana", "wrong")
	assert.Equal(t, http.StatusUnauthorized, r.code)
	assert.Contains(t, r.body, "Credenciales incorrectas")

	r = c.login("nadie", "p")
	assert.Equal(t, http.StatusUnauthorized, r.code)

	// Сессия не появилась.
	assert.Equal(t, http.StatusFound, c.get("/").code)
}

func TestRegisterAndLogin_LongPassword(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	password := strings.Repeat("k", 100)

	r := c.register("ana", "ana@example.com", password)
	require.Equal(t, http.StatusFound, r.code, r.body)
	assert.Equal(t, "/login", r.location)

	r = c.login("ana", password)
	require.Equal(t, http.StatusFound, r.code, r.body)
	assert.Equal(t, "/", r.location)

	r = c.login("ana", password[:72])
	assert.Equal(t, http.StatusUnauthorized, r.code)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.signUp("ana", "p")
	require.Equal(t, http.StatusOK, c.get("/").code)

	r := c.get("/logout")
	require.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/login", r.location)

	r = c.get("/")
	assert.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/login", r.location)
}

func TestUploadErrors(t *testing.T) {
	app := newTestApp(t)
	a := app.newClient(t)
	b := app.newClient(t)
	a.signUp("A", "p")
	b.signUp("B", "p")

	r := a.upload("other", "a.txt", "x")
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "No file part", r.body)

	r = a.upload("file", "", "x")
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "No selected file", r.body)

	r = a.post("/upload", url.Values{"x": {"y"}})
	assert.Equal(t, http.StatusBadRequest, r.code)

	r = a.upload("file", "big.bin", strings.Repeat("z", 1<<20+32<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, r.code)

	// Имя занято другим пользователем.
	require.Equal(t, http.StatusFound, a.upload("file", "same.txt", "one").code)
	r = b.upload("file", "same.txt", "two")
	assert.Equal(t, http.StatusConflict, r.code)
	assert.Contains(t, r.body, msgFileExists)

	// Повторная загрузка владельцем заменяет файл.
	require.Equal(t, http.StatusFound, a.upload("file", "same.txt", "three").code)
	r = b.get("/download/same.txt")
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "three", r.body)

	recs, err := app.files.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestDownloadEscapedName(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.signUp("ana", "p")

	require.Equal(t, http.StatusFound, c.upload("file", "mi informe.pdf", "%PDF").code)

	r := c.get("/files")
	require.Equal(t, http.StatusOK, r.code)
	assert.Contains(t, r.body, "/download/mi%20informe.pdf")

	r = c.get("/download/mi%20informe.pdf")
	require.Equal(t, http.StatusOK, r.code)
	assert.Equal(t, "%PDF", r.body)
	assert.Equal(t, "application/pdf", r.header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="mi informe.pdf"`, r.header.Get("Content-Disposition"))
}

func TestDeleteMissing(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.signUp("ana", "p")

	r := c.post("/delete/nope.txt", nil)
	assert.Equal(t, http.StatusNotFound, r.code)
}

func TestMessages(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.signUp("ana", "p")

	r := c.post("/send_message", url.Values{"message": {""}})
	assert.Equal(t, http.StatusBadRequest, r.code)
	assert.Equal(t, "Mensaje vacío", r.body)

	r = c.post("/send_message", url.Values{"message": {"hola a todos"}})
	require.Equal(t, http.StatusFound, r.code)
	assert.Equal(t, "/messages", r.location)

	r = c.get("/messages")
	require.Equal(t, http.StatusOK, r.code)
	assert.Contains(t, r.body, "hola a todos")
	assert.Contains(t, r.body, "ana")
}

func TestMessageFeed(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.signUp("ana", "p")

	base, err := url.Parse(app.srv.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, ck := range c.http.Jar.Cookies(base) {
		header.Add("Cookie", ck.String())
	}

	wsURL := "ws" + strings.TrimPrefix(app.srv.URL, "http") + "/ws/messages"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return app.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusFound, c.post("/send_message", url.Values{"message": {"en vivo"}}).code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ana", got.Username)
	assert.Equal(t, "en vivo", got.Message)
}

func TestMessageFeed_RequiresLogin(t *testing.T) {
	app := newTestApp(t)

	wsURL := "ws" + strings.TrimPrefix(app.srv.URL, "http") + "/ws/messages"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestNewRouter_RequiresSecret(t *testing.T) {
	_, err := NewRouter(Deps{Log: logging.Nop()})
	assert.Error(t, err)
}
