package storage

import (
	// Стандартные библиотеки
	"mime"
	"path/filepath"
	"strings"
)

// ContentType определяет Content-Type по расширению для ответа клиенту.
// Неизвестные расширения отдаются как application/octet-stream.
func ContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case "":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
