package storage

import (
	// Стандартные библиотеки
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore хранит файлы в одной папке на диске.
type LocalStore struct {
	baseDir string
}

// NewLocalStore создает папку (если нужно) и возвращает хранилище поверх нее.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать папку %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Path возвращает полный путь к файлу на диске.
func (s *LocalStore) Path(name string) (string, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, name), nil
}

// Put пишет во временный файл и переименовывает его, поэтому при ошибке
// чтения прежняя версия файла остается на месте.
func (s *LocalStore) Put(_ context.Context, name string, r io.Reader) (int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("не удалось создать временный файл в %s: %w", s.baseDir, err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("ошибка закрытия файла %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("ошибка chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("ошибка сохранения файла %s: %w", path, err)
	}
	return size, nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка открытия %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("ошибка stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, ErrNotFound
	}
	return f, info.Size(), nil
}

func (s *LocalStore) Remove(_ context.Context, name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("не удалось удалить файл %s: %w", path, err)
	}
	return nil
}
