package auth

import (
	// Стандартные библиотеки
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	// Сторонние библиотеки
	"golang.org/x/crypto/bcrypt"
)

// maxBcryptInput - bcrypt учитывает не больше 72 байт пароля,
// а GenerateFromPassword на более длинный вход возвращает ErrPasswordTooLong.
const maxBcryptInput = 72

// bcryptInput возвращает то, что передается в bcrypt: короткий пароль как есть,
// длинный - как base64 от SHA-256 (44 байта).
func bcryptInput(password string) []byte {
	if len(password) <= maxBcryptInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword принимает пароль в виде строки и возвращает его bcrypt-хеш.
// Используем bcrypt.DefaultCost - рекомендуемое значение по умолчанию.
// Пароль любой длины допустим: длинные сначала сворачиваются через SHA-256.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(bytes), nil
}

// IsHash сообщает, похожа ли строка на bcrypt-хеш ($2a$, $2b$, $2y$).
func IsHash(stored string) bool {
	return len(stored) == 60 && (strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$"))
}

// CheckPassword сравнивает введенный пароль с сохраненным значением.
// Для bcrypt-хешей используется bcrypt.CompareHashAndPassword,
// старые записи users.json с открытым паролем сравниваются побайтно.
func CheckPassword(password, stored string) bool {
	if IsHash(stored) {
		// Соль встроена в сам хеш.
		return bcrypt.CompareHashAndPassword([]byte(stored), bcryptInput(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}
