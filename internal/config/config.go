// Package config собирает настройки сервера: значения по умолчанию,
// затем необязательный YAML-файл, затем переменные окружения.
package config

import (
	// Стандартные библиотеки
	"fmt"
	"os"
	"strconv"
	"time"

	// Сторонние библиотеки
	"gopkg.in/yaml.v3"
)

// EnvConfigPath - переменная окружения с путем к YAML-файлу настроек.
const EnvConfigPath = "FILEBOARD_CONFIG"

// S3Config - параметры S3-совместимого хранилища для BLOB_DRIVER=minio.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

// Config - настройки приложения.
type Config struct {
	ListenPort    string        `yaml:"listen_port"`
	DataDir       string        `yaml:"data_dir"`    // Папка users.json / files_info.json / messages.json
	UploadPath    string        `yaml:"upload_path"` // Папка загруженных файлов
	StoreDriver   string        `yaml:"store_driver"`
	DBPath        string        `yaml:"db_path"`
	CookieSecret  string        `yaml:"cookie_secret"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`
	MaxUploadMB   int64         `yaml:"max_upload_mb"`
	BlobDriver    string        `yaml:"blob_driver"`
	S3            S3Config      `yaml:"s3"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// LoadDefaults заполняет настройки значениями для локального запуска.
func (c *Config) LoadDefaults() {
	c.ListenPort = "5000"
	c.DataDir = "."
	c.UploadPath = "uploads"
	c.StoreDriver = "json"
	c.DBPath = "fileboard.db"
	c.CookieSecret = ""
	c.CookieSecure = false
	c.SessionMaxAge = 7 * 24 * time.Hour
	c.MaxUploadMB = 32
	c.BlobDriver = "local"
	c.S3 = S3Config{}
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load строит конфигурацию. Если path пустой, путь к YAML-файлу
// берется из FILEBOARD_CONFIG; если и он пуст, файл не читается.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ошибка проверки конфигурации: %w", err)
	}
	return cfg, nil
}

// LoadFile накладывает значения из YAML-файла поверх текущих.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла конфигурации %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
	}
	return nil
}

// applyEnv накладывает переменные окружения; lookup - обычно os.LookupEnv.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	str("LISTEN_PORT", &c.ListenPort)
	str("DATA_DIR", &c.DataDir)
	str("UPLOAD_PATH", &c.UploadPath)
	str("STORE_DRIVER", &c.StoreDriver)
	str("DB_PATH", &c.DBPath)
	str("COOKIE_SECRET", &c.CookieSecret)
	str("BLOB_DRIVER", &c.BlobDriver)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	str("S3_BUCKET", &c.S3.Bucket)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup("COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v, ok := lookup("SESSION_MAX_AGE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_MAX_AGE: %w", err)
		}
		c.SessionMaxAge = d
	}
	if v, ok := lookup("MAX_UPLOAD_MB"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	return nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("неподдерживаемый STORE_DRIVER: %q", c.StoreDriver)
	}
	switch c.BlobDriver {
	case "local":
	case "minio":
		if c.S3.Endpoint == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" || c.S3.Bucket == "" {
			return fmt.Errorf("для BLOB_DRIVER=minio нужны S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY и S3_BUCKET")
		}
	default:
		return fmt.Errorf("неподдерживаемый BLOB_DRIVER: %q", c.BlobDriver)
	}
	if c.ListenPort == "" {
		return fmt.Errorf("LISTEN_PORT не может быть пустым")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB должен быть положительным")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE должен быть положительным")
	}
	return nil
}

// MaxUploadBytes - предел размера тела запроса загрузки.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
