package handlers

import (
	// Стандартные библиотеки
	"fmt"
	"net/http"
	"time"

	// Внутренние пакеты
	"fileboard/internal/logging"
	"fileboard/internal/middleware"
	"fileboard/internal/realtime"
	"fileboard/internal/services"
	"fileboard/web"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionCookieName - имя cookie сессии.
const SessionCookieName = "fileboard"

// Deps - все, что нужно роутеру.
type Deps struct {
	Users    *services.Users
	Files    *services.Files
	Messages *services.Messages
	Hub      *realtime.Hub
	Log      logging.Logger

	CookieSecret  []byte
	CookieSecure  bool
	SessionMaxAge time.Duration
	MaxUpload     int64 // Максимальный размер тела запроса загрузки, байт
}

// NewRouter собирает gin.Engine со всеми маршрутами.
func NewRouter(d Deps) (*gin.Engine, error) {
	if len(d.CookieSecret) == 0 {
		return nil, fmt.Errorf("секрет cookie не задан")
	}

	h := &Handler{
		users:     d.Users,
		files:     d.Files,
		messages:  d.Messages,
		hub:       d.Hub,
		log:       d.Log,
		maxUpload: d.MaxUpload,
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	// Доверенных прокси нет: IP клиента берется из соединения.
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("ошибка установки доверенных прокси: %w", err)
	}

	// Часть multipart-формы больше 10 МБ уходит во временные файлы.
	router.MaxMultipartMemory = 10 << 20

	store := cookie.NewStore(d.CookieSecret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(d.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   d.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(SessionCookieName, store))
	router.Use(middleware.RefreshVerification(d.Users, d.Log))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблонов: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(web.Static()))

	public := router.Group("/")
	{
		public.GET("/login", h.ShowLoginPage)
		public.POST("/login", h.HandleLogin)
		public.GET("/register", h.ShowRegisterPage)
		public.POST("/register", h.HandleRegister)
		public.GET("/logout", h.HandleLogout)
		public.POST("/logout", h.HandleLogout)
		public.GET("/healthz", h.Health)
	}

	protected := router.Group("/")
	protected.Use(middleware.AuthRequired(d.Log))
	{
		protected.GET("/", h.ShowIndex)
		protected.POST("/upload", h.HandleUpload)
		protected.GET("/files", h.ListFiles)
		protected.GET("/download/:filename", h.DownloadFile)
		protected.POST("/delete/:filename", h.DeleteFile)
		protected.POST("/send_message", h.SendMessage)
		protected.GET("/messages", h.ShowMessages)
		protected.GET("/ws/messages", h.MessageFeed)
	}

	return router, nil
}
