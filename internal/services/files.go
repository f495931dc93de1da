package services

import (
	// Стандартные библиотеки
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	// Внутренние пакеты
	"fileboard/internal/auth"
	"fileboard/internal/database"
	"fileboard/internal/logging"
	"fileboard/internal/models"
	"fileboard/internal/storage"
)

// FormatSize отображает размер в килобайтах с двумя знаками: "1.50 KB".
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}

// Files - загрузка, список, скачивание и удаление файлов.
type Files struct {
	store *database.Store
	blobs storage.BlobStore
	log   logging.Logger
	now   func() time.Time
}

func NewFiles(store *database.Store, blobs storage.BlobStore, log logging.Logger) *Files {
	return &Files{store: store, blobs: blobs, log: log, now: time.Now}
}

// Upload сохраняет байты под именем name и добавляет запись о файле.
//
// На одно имя приходится одна запись: повторная загрузка тем же владельцем
// заменяет его запись, а имя чужого файла занять нельзя (ErrFileExists).
// Запись байтов и индекса выполняется под блокировкой коллекции files.
func (s *Files) Upload(ctx context.Context, who models.Identity, name string, r io.Reader) (models.FileRecord, error) {
	name, err := storage.SanitizeName(name)
	if err != nil {
		return models.FileRecord{}, err
	}

	var (
		rec      models.FileRecord
		written  bool
		replaced bool
	)
	err = s.store.Files.Update(ctx, func(items []models.FileRecord) ([]models.FileRecord, error) {
		for _, fi := range items {
			if fi.Name != name {
				continue
			}
			if fi.Owner != who.Username {
				return nil, ErrFileExists
			}
			replaced = true
		}

		size, err := s.blobs.Put(ctx, name, r)
		if err != nil {
			return nil, err
		}
		written = true

		rec = models.FileRecord{
			Name:          name,
			Owner:         who.Username,
			OwnerVerified: who.Verified,
			UploadDate:    models.FormatTime(s.now()),
			Size:          FormatSize(size),
		}

		kept := items[:0]
		for _, fi := range items {
			if fi.Name != name {
				kept = append(kept, fi)
			}
		}
		return append(kept, rec), nil
	})
	if err != nil {
		// Индекс не записан: новый файл без записи удаляем.
		if written && !replaced {
			s.cleanup(ctx, name)
		}
		return models.FileRecord{}, err
	}

	s.log.Info(ctx, "файл загружен", "name", name, "owner", who.Username, "size", rec.Size)
	return rec, nil
}

// List возвращает все записи без фильтрации по владельцу.
func (s *Files) List(ctx context.Context) ([]models.FileRecord, error) {
	return s.store.Files.Load(ctx)
}

// Open открывает файл для скачивания. Права не проверяются:
// скачать может любой вошедший пользователь.
func (s *Files) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	rc, size, err := s.blobs.Open(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, 0, ErrFileNotFound
	}
	return rc, size, err
}

// Delete удаляет файл, если это разрешает auth.CanDelete.
// Решение принимается по первой записи с таким именем,
// а из индекса удаляются все записи с этим именем.
//
// Байты удаляются под блокировкой коллекции files, как и пишутся в Upload:
// параллельная загрузка того же имени дождется конца удаления.
// Если удалить байты не удалось, индекс не меняется.
func (s *Files) Delete(ctx context.Context, who models.Identity, name string) error {
	var target models.FileRecord
	err := s.store.Files.Update(ctx, func(items []models.FileRecord) ([]models.FileRecord, error) {
		found := false
		for _, fi := range items {
			if fi.Name == name {
				target, found = fi, true
				break
			}
		}
		if !found {
			return nil, ErrFileNotFound
		}
		if !auth.CanDelete(who, target) {
			return nil, ErrPermissionDenied
		}

		if err := s.blobs.Remove(ctx, name); err != nil {
			return nil, fmt.Errorf("ошибка удаления файла %s: %w", name, err)
		}

		kept := items[:0]
		for _, fi := range items {
			if fi.Name != name {
				kept = append(kept, fi)
			}
		}
		return kept, nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "файл удален", "name", name, "owner", target.Owner, "by", who.Username)
	return nil
}

// cleanup удаляет файл, оставшийся без записи после ошибки.
func (s *Files) cleanup(ctx context.Context, name string) {
	if err := s.blobs.Remove(ctx, name); err != nil {
		s.log.Warn(ctx, "не удалось удалить файл после ошибки", "name", name, "error", err)
		return
	}
	s.log.Info(ctx, "файл удален после ошибки обработки", "name", name)
}
