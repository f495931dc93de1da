package services

import "errors"

// Ошибки регистрации и входа.
var (
	ErrMissingFields      = errors.New("не заполнены обязательные поля")
	ErrInvalidEmail       = errors.New("некорректный адрес электронной почты")
	ErrEmailTaken         = errors.New("адрес электронной почты уже зарегистрирован")
	ErrUsernameTaken      = errors.New("имя пользователя уже занято")
	ErrInvalidCredentials = errors.New("неверные учетные данные")
	ErrUserNotFound       = errors.New("пользователь не найден")
)

// Ошибки файловых операций.
var (
	ErrFileNotFound     = errors.New("файл не найден")
	ErrPermissionDenied = errors.New("нет прав на удаление файла")
	ErrFileExists       = errors.New("файл с таким именем принадлежит другому пользователю")
)

// ErrEmptyMessage - попытка отправить пустое сообщение.
var ErrEmptyMessage = errors.New("пустое сообщение")
