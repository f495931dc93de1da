package storage

import (
	// Стандартные библиотеки
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	// Сторонние библиотеки
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPrefix - префикс ключей объектов в бакете.
const objectPrefix = "uploads/"

// MinioConfig - параметры S3-совместимого хранилища.
type MinioConfig struct {
	Endpoint  string // "minio:9000" или "https://s3.example.com"
	AccessKey string
	SecretKey string
	Bucket    string
}

// MinioStore хранит файлы в бакете S3-совместимого сервиса.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// normaliseEndpoint принимает "host:port" или URL со схемой
// и возвращает host:port и признак TLS.
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("пустой endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("некорректный endpoint %q", raw)
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint не должен содержать путь: %q", raw)
		}
		return u.Host, u.Scheme == "https", nil
	}

	// Без схемы - host:port без TLS (локальный MinIO).
	return raw, false, nil
}

// NewMinioStore подключается к хранилищу и создает бакет, если его нет.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("конфигурация minio неполная")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки бакета %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("не удалось создать бакет %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(name string) (string, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return objectPrefix + name, nil
}

func (s *MinioStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	key, err := objectKey(name)
	if err != nil {
		return 0, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка загрузки объекта %s: %w", key, err)
	}
	return info.Size, nil
}

func (s *MinioStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	key, err := objectKey(name)
	if err != nil {
		return nil, 0, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения объекта %s: %w", key, err)
	}
	// Stat заранее выявляет отсутствующий объект.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("ошибка stat объекта %s: %w", key, err)
	}
	return obj, st.Size, nil
}

func (s *MinioStore) Remove(ctx context.Context, name string) error {
	key, err := objectKey(name)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}
