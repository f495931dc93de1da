// Package logging - минимальный интерфейс структурного логирования,
// которым пользуются все слои приложения.
package logging

import "context"

// Logger - структурный логгер с контекстом.
//
// Дополнительные аргументы - пары ключ-значение:
//
//	log.Info(ctx, "файл загружен", "name", name, "owner", owner)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With возвращает дочерний логгер, который всегда добавляет указанные пары.
	With(args ...any) Logger
}
