package main

import (
	// Стандартные библиотеки
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	// Внутренние пакеты
	"fileboard/internal/config"
	"fileboard/internal/database"
	"fileboard/internal/handlers"
	"fileboard/internal/logging"
	"fileboard/internal/realtime"
	"fileboard/internal/services"
	"fileboard/internal/storage"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "КРИТИЧЕСКАЯ ОШИБКА: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "сервер остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Папки проверяются до инициализации зависимых компонентов.
	if err := checkOrCreateDir(log, cfg.DataDir); err != nil {
		return err
	}
	if cfg.StoreDriver == database.DriverSQLite {
		if err := checkOrCreateDir(log, filepath.Dir(cfg.DBPath)); err != nil {
			return err
		}
	}

	store, err := database.Open(ctx, database.Options{
		Driver:  cfg.StoreDriver,
		DataDir: cfg.DataDir,
		DBPath:  cfg.DBPath,
	})
	if err != nil {
		return fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}
	defer store.Close()

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	secret, err := cookieSecret(log, cfg.CookieSecret)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(log)
	defer hub.Close()

	users := services.NewUsers(store, log)
	gin.SetMode(gin.ReleaseMode)
	router, err := handlers.NewRouter(handlers.Deps{
		Users:         users,
		Files:         services.NewFiles(store, blobs, log),
		Messages:      services.NewMessages(store, hub, log),
		Hub:           hub,
		Log:           log,
		CookieSecret:  secret,
		CookieSecure:  cfg.CookieSecure,
		SessionMaxAge: cfg.SessionMaxAge,
		MaxUpload:     cfg.MaxUploadBytes(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "сервер запускается", "addr", srv.Addr, "store", cfg.StoreDriver, "blobs", cfg.BlobDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info(context.Background(), "получен сигнал остановки")
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("не удалось запустить сервер: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// WebSocket-соединения Shutdown не закрывает, их закрывает hub.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	log.Info(context.Background(), "сервер остановлен")
	return nil
}

// openBlobs выбирает хранилище байтов по BLOB_DRIVER.
func openBlobs(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.BlobDriver {
	case "minio":
		s, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к S3: %w", err)
		}
		return s, nil
	default:
		s, err := storage.NewLocalStore(cfg.UploadPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации папки загрузок: %w", err)
		}
		return s, nil
	}
}

// cookieSecret возвращает секрет подписи cookie. Без COOKIE_SECRET
// генерируется случайный, и сессии не переживают перезапуск.
func cookieSecret(log logging.Logger, configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	token, err := services.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации секрета cookie: %w", err)
	}
	log.Warn(context.Background(), "COOKIE_SECRET не задан, используется случайный секрет")
	return []byte(token), nil
}

// checkOrCreateDir проверяет, что dirPath - папка, и создает ее при необходимости.
func checkOrCreateDir(log logging.Logger, dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("путь к директории не может быть пустым")
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		log.Info(context.Background(), "папка не найдена, создаем", "path", dirPath)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("не удалось создать папку %s: %w", dirPath, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка при проверке папки %s: %w", dirPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("путь %s существует, но не является директорией", dirPath)
	}
	return nil
}
