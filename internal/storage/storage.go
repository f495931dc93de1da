// Package storage хранит байты загруженных файлов.
// Ключом служит имя файла, которое прислал клиент (после проверки SanitizeName).
package storage

import (
	// Стандартные библиотеки
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound - файла с таким именем нет в хранилище.
	ErrNotFound = errors.New("файл не найден в хранилище")
	// ErrInvalidName - имя файла пустое или содержит разделители пути.
	ErrInvalidName = errors.New("недопустимое имя файла")
)

// BlobStore - плоское хранилище файлов по имени.
type BlobStore interface {
	// Put записывает (или перезаписывает) файл и возвращает число записанных байт.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	// Open открывает файл для чтения и возвращает его размер.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	// Remove удаляет файл. Отсутствие файла ошибкой не считается.
	Remove(ctx context.Context, name string) error
}

// SanitizeName проверяет, что имя можно использовать как ключ в плоской папке:
// без разделителей пути, не "." и не "..".
func SanitizeName(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	return name, nil
}
