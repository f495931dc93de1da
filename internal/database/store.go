// Package database реализует хранилище записей: три коллекции
// (пользователи, файлы, сообщения), которые читаются и пишутся целиком.
//
// Поддерживаются два бэкенда: JSON-файлы (users.json, files_info.json,
// messages.json) и встроенная база SQLite.
package database

import (
	// Стандартные библиотеки
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	// Внутренние пакеты
	"fileboard/internal/models"
)

// Имена файлов коллекций для JSON-бэкенда.
const (
	UsersFile    = "users.json"
	FilesFile    = "files_info.json"
	MessagesFile = "messages.json"
)

// Драйверы хранилища.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver возвращается Open для неизвестного значения STORE_DRIVER.
var ErrUnknownDriver = errors.New("неизвестный драйвер хранилища")

// backend - низкоуровневое чтение/запись коллекции целиком.
type backend[T any] interface {
	load(ctx context.Context) ([]T, error)
	save(ctx context.Context, items []T) error
}

// Collection - коллекция записей одного типа.
// Все операции сериализуются мьютексом, поэтому Update внутри одного
// процесса не теряет чужие изменения.
type Collection[T any] struct {
	mu sync.Mutex
	b  backend[T]
}

func newCollection[T any](b backend[T]) *Collection[T] {
	return &Collection[T]{b: b}
}

// Load возвращает все записи в порядке хранения.
// Отсутствующий файл или таблица дают пустой срез.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.b.load(ctx)
}

// Save полностью перезаписывает коллекцию.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.b.save(ctx, items)
}

// Update выполняет чтение-изменение-запись под одной блокировкой.
// Если fn возвращает ошибку, коллекция не перезаписывается.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.b.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return c.b.save(ctx, updated)
}

// Store объединяет три коллекции приложения.
type Store struct {
	Users    *Collection[models.User]
	Files    *Collection[models.FileRecord]
	Messages *Collection[models.Message]

	closeFn func() error
}

// Close освобождает ресурсы бэкенда (соединение с БД).
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Options описывает, какой бэкенд открыть.
type Options struct {
	Driver  string // "json" (по умолчанию) или "sqlite"
	DataDir string // Папка для JSON-файлов
	DBPath  string // Путь к файлу SQLite
}

// Open открывает хранилище согласно настройкам.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case "", DriverJSON:
		return OpenJSON(opts.DataDir)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.DBPath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// OpenJSON создает хранилище поверх трех JSON-файлов в папке dir.
func OpenJSON(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	return &Store{
		Users:    newCollection[models.User](jsonFile[models.User]{path: filepath.Join(dir, UsersFile)}),
		Files:    newCollection[models.FileRecord](jsonFile[models.FileRecord]{path: filepath.Join(dir, FilesFile)}),
		Messages: newCollection[models.Message](jsonFile[models.Message]{path: filepath.Join(dir, MessagesFile)}),
	}, nil
}
