package middleware

import (
	// Стандартные библиотеки
	"context"
	"net/http"
	"time"

	// Внутренние пакеты
	"fileboard/internal/logging"
	"fileboard/internal/models"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserLookup - источник актуальных данных пользователя.
type UserLookup interface {
	Get(ctx context.Context, username string) (models.User, error)
}

// AuthRequired - middleware для маршрутов, требующих входа.
// Без сессии пользователь перенаправляется на /login.
func AuthRequired(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		identity, ok := SessionIdentity(session)
		if !ok {
			// Флаг входа есть, но данные повреждены - очищаем сессию.
			if session.Get(KeyLoggedIn) != nil {
				log.Warn(c.Request.Context(), "некорректные данные сессии, сессия будет очищена", "ip", c.ClientIP())
				if err := ClearSession(session); err != nil {
					log.Error(c.Request.Context(), "ошибка сохранения сессии при очистке", "error", err)
				}
			}
			log.Debug(c.Request.Context(), "доступ запрещен (не аутентифицирован)", "path", c.Request.URL.Path, "ip", c.ClientIP())

			c.Redirect(http.StatusFound, "/login")
			// Прерываем цепочку, чтобы хендлер не выполнился.
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RefreshVerification перед каждым запросом сверяет флаг verified в сессии
// с хранилищем и обновляет сессию, если он изменился.
// Ошибки хранилища только логируются: запрос продолжается со старым значением.
func RefreshVerification(users UserLookup, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		identity, ok := SessionIdentity(session)
		if !ok {
			c.Next()
			return
		}

		user, err := users.Get(c.Request.Context(), identity.Username)
		switch {
		case err != nil:
			log.Warn(c.Request.Context(), "не удалось проверить статус пользователя", "username", identity.Username, "error", err)
		case user.Verified != identity.Verified:
			session.Set(KeyVerified, user.Verified)
			if err := session.Save(); err != nil {
				log.Error(c.Request.Context(), "ошибка сохранения сессии", "error", err)
			} else {
				log.Info(c.Request.Context(), "статус verified обновлен в сессии", "username", identity.Username, "verified", user.Verified)
			}
		}
		c.Next()
	}
}

// RequestIDHeader - заголовок с идентификатором запроса.
const RequestIDHeader = "X-Request-ID"

// RequestLogger присваивает запросу идентификатор и пишет строку лога
// после его обработки.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error(ctx, "http запрос", args...)
		case status >= http.StatusBadRequest:
			log.Warn(ctx, "http запрос", args...)
		default:
			log.Info(ctx, "http запрос", args...)
		}
	}
}
