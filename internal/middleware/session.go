package middleware

import (
	// Внутренние пакеты
	"fileboard/internal/models"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Ключи данных сессии.
const (
	KeyLoggedIn = "logged_in"
	KeyUsername = "username"
	KeyEmail    = "email"
	KeyVerified = "verified"
)

// identityKey - ключ gin.Context, под которым AuthRequired кладет Identity.
const identityKey = "identity"

// SessionIdentity читает пользователя из сессии.
// ok=false, если сессия не авторизована или данные повреждены.
func SessionIdentity(session sessions.Session) (models.Identity, bool) {
	loggedIn, _ := session.Get(KeyLoggedIn).(bool)
	if !loggedIn {
		return models.Identity{}, false
	}
	username, ok := session.Get(KeyUsername).(string)
	if !ok || username == "" {
		return models.Identity{}, false
	}
	email, _ := session.Get(KeyEmail).(string)
	verified, _ := session.Get(KeyVerified).(bool)
	return models.Identity{Username: username, Email: email, Verified: verified}, true
}

// StartSession заполняет сессию после успешного входа и сохраняет ее.
func StartSession(session sessions.Session, user models.User) error {
	session.Set(KeyLoggedIn, true)
	session.Set(KeyUsername, user.Username)
	session.Set(KeyEmail, user.Email)
	session.Set(KeyVerified, user.Verified)
	return session.Save()
}

// ClearSession удаляет все данные и просит браузер забыть cookie.
func ClearSession(session sessions.Session) error {
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// CurrentIdentity возвращает пользователя, сохраненного AuthRequired.
func CurrentIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.Identity{}
}
