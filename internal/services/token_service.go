package services

import (
	// Стандартные библиотеки
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken возвращает length случайных байт в URL-safe base64.
// Используется, например, как секрет cookie, если COOKIE_SECRET не задан.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	// Читаем случайные байты из криптографического источника ОС
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("не удалось сгенерировать случайные байты: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
