package models

import "time"

// TimeLayout - формат дат, в котором хранятся upload_date и timestamp.
const TimeLayout = "2006-01-02 15:04:05"

// User представляет зарегистрированного пользователя.
// Поля соответствуют объектам в users.json (и столбцам таблицы users в SQLite).
type User struct {
	Username string `json:"username"` // Имя пользователя (уникальное)
	Email    string `json:"email"`    // Электронная почта (уникальная)
	Password string `json:"password"` // bcrypt-хеш; у старых записей может быть открытый текст
	Verified bool   `json:"verified"` // Флаг проверенного пользователя, по умолчанию false
}

// Identity - то, что хранится в сессии о вошедшем пользователе.
type Identity struct {
	Username string
	Email    string
	Verified bool
}

// Identity возвращает сессионное представление пользователя.
func (u User) Identity() Identity {
	return Identity{Username: u.Username, Email: u.Email, Verified: u.Verified}
}

// FileRecord - запись о загруженном файле (files_info.json).
// Name одновременно является ключом файла в хранилище.
type FileRecord struct {
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	OwnerVerified bool   `json:"owner_verified"` // Снимок статуса владельца на момент загрузки
	UploadDate    string `json:"upload_date"`
	Size          string `json:"size"` // Например "12.34 KB"
}

// Message - сообщение на общей доске (messages.json). Только добавляются.
type Message struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Verified  bool   `json:"verified"` // Снимок статуса отправителя
	Timestamp string `json:"timestamp"`
}

// FormatTime приводит время к формату хранения.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
