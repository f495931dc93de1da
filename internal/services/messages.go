package services

import (
	// Стандартные библиотеки
	"context"
	"time"

	// Внутренние пакеты
	"fileboard/internal/database"
	"fileboard/internal/logging"
	"fileboard/internal/models"
)

// Publisher получает каждое новое сообщение (живая лента).
type Publisher interface {
	Publish(msg models.Message)
}

// Messages - общая доска сообщений.
type Messages struct {
	store *database.Store
	pub   Publisher
	log   logging.Logger
	now   func() time.Time
}

// NewMessages создает сервис; pub может быть nil.
func NewMessages(store *database.Store, pub Publisher, log logging.Logger) *Messages {
	return &Messages{store: store, pub: pub, log: log, now: time.Now}
}

// Send добавляет сообщение со снимком статуса отправителя и временем сервера.
func (s *Messages) Send(ctx context.Context, who models.Identity, text string) (models.Message, error) {
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	msg := models.Message{
		Username:  who.Username,
		Message:   text,
		Verified:  who.Verified,
		Timestamp: models.FormatTime(s.now()),
	}
	err := s.store.Messages.Update(ctx, func(items []models.Message) ([]models.Message, error) {
		return append(items, msg), nil
	})
	if err != nil {
		return models.Message{}, err
	}

	if s.pub != nil {
		s.pub.Publish(msg)
	}
	s.log.Debug(ctx, "сообщение отправлено", "username", who.Username)
	return msg, nil
}

// List возвращает всю историю в порядке отправки.
func (s *Messages) List(ctx context.Context) ([]models.Message, error) {
	return s.store.Messages.Load(ctx)
}
