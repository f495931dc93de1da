package handlers

import (
	// Стандартные библиотеки
	"errors"
	"mime"
	"net/http"

	// Внутренние пакеты
	"fileboard/internal/auth"
	"fileboard/internal/logging"
	"fileboard/internal/middleware"
	"fileboard/internal/models"
	"fileboard/internal/realtime"
	"fileboard/internal/services"
	"fileboard/internal/storage"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Тексты, которые видит пользователь.
const (
	msgBadCredentials   = "Credenciales incorrectas"
	msgInvalidEmail     = "Correo electrónico no válido"
	msgEmailTaken       = "El correo electrónico ya está registrado"
	msgUsernameTaken    = "El nombre de usuario ya existe"
	msgMissingFields    = "Todos los campos son obligatorios"
	msgServerError      = "Error interno del servidor"
	msgNoFilePart       = "No file part"
	msgNoSelectedFile   = "No selected file"
	msgInvalidFilename  = "Nombre de archivo no válido"
	msgFileExists       = "Ya existe un archivo con ese nombre de otro usuario"
	msgFileTooLarge     = "El archivo es demasiado grande"
	msgFileNotFound     = "Archivo no encontrado"
	msgPermissionDenied = "No tienes permiso para eliminar este archivo"
	msgEmptyMessage     = "Mensaje vacío"
)

// Handler содержит зависимости HTTP-обработчиков.
type Handler struct {
	users     *services.Users
	files     *services.Files
	messages  *services.Messages
	hub       *realtime.Hub
	log       logging.Logger
	maxUpload int64
}

// ShowLoginPage отображает страницу входа.
func (h *Handler) ShowLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// HandleLogin проверяет имя (или почту) и пароль.
// При успехе заполняет сессию и перенаправляет на главную.
func (h *Handler) HandleLogin(c *gin.Context) {
	identifier := c.PostForm("username_or_email")
	password := c.PostForm("password")

	renderLoginWithError := func(status int, message string) {
		c.HTML(status, "login.html", gin.H{
			"error":      message,
			"identifier": identifier,
		})
	}

	user, err := h.users.Login(c.Request.Context(), identifier, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		renderLoginWithError(http.StatusUnauthorized, msgBadCredentials)
		return
	}
	if err != nil {
		h.log.Error(c.Request.Context(), "ошибка проверки учетных данных", "error", err)
		renderLoginWithError(http.StatusInternalServerError, msgServerError)
		return
	}

	if err := middleware.StartSession(sessions.Default(c), user); err != nil {
		h.log.Error(c.Request.Context(), "ошибка сохранения сессии после входа", "username", user.Username, "error", err)
		renderLoginWithError(http.StatusInternalServerError, msgServerError)
		return
	}

	h.log.Info(c.Request.Context(), "пользователь вошел в систему", "username", user.Username)
	c.Redirect(http.StatusFound, "/")
}

// ShowRegisterPage отображает страницу регистрации.
func (h *Handler) ShowRegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

// HandleRegister создает пользователя и перенаправляет на /login.
// При ошибке форма отображается снова с сообщением.
func (h *Handler) HandleRegister(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")

	_, err := h.users.Register(c.Request.Context(), username, email, password)
	if err == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	status, message := http.StatusBadRequest, ""
	switch {
	case errors.Is(err, services.ErrMissingFields):
		message = msgMissingFields
	case errors.Is(err, services.ErrInvalidEmail):
		message = msgInvalidEmail
	case errors.Is(err, services.ErrEmailTaken):
		message = msgEmailTaken
	case errors.Is(err, services.ErrUsernameTaken):
		message = msgUsernameTaken
	default:
		h.log.Error(c.Request.Context(), "ошибка создания пользователя", "username", username, "error", err)
		status, message = http.StatusInternalServerError, msgServerError
	}

	c.HTML(status, "register.html", gin.H{
		"error":    message,
		"username": username,
		"email":    email,
	})
}

// HandleLogout очищает сессию.
func (h *Handler) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	username, _ := session.Get(middleware.KeyUsername).(string)

	if err := middleware.ClearSession(session); err != nil {
		h.log.Error(c.Request.Context(), "ошибка сохранения сессии при выходе", "username", username, "error", err)
	} else if username != "" {
		h.log.Info(c.Request.Context(), "пользователь вышел из системы", "username", username)
	}
	c.Redirect(http.StatusFound, "/login")
}

// ShowIndex - главная страница: имя и статус пользователя.
func (h *Handler) ShowIndex(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"username": identity.Username,
		"verified": identity.Verified,
	})
}

// HandleUpload принимает поле "file" multipart-формы.
func (h *Handler) HandleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), c.Request.ContentLength > h.maxUpload:
			c.String(http.StatusRequestEntityTooLarge, msgFileTooLarge)
		case errors.Is(err, http.ErrMissingFile) && hasEmptyFilePart(c):
			// Часть "file" без имени файла парсер кладет в обычные значения формы.
			c.String(http.StatusBadRequest, msgNoSelectedFile)
		default:
			c.String(http.StatusBadRequest, msgNoFilePart)
		}
		return
	}
	if fileHeader.Filename == "" {
		c.String(http.StatusBadRequest, msgNoSelectedFile)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error(c.Request.Context(), "не удалось открыть загруженный файл", "name", fileHeader.Filename, "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}
	defer file.Close()

	identity := middleware.CurrentIdentity(c)
	_, err = h.files.Upload(c.Request.Context(), identity, fileHeader.Filename, file)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/files")
	case errors.Is(err, storage.ErrInvalidName):
		c.String(http.StatusBadRequest, msgInvalidFilename)
	case errors.Is(err, services.ErrFileExists):
		c.String(http.StatusConflict, msgFileExists)
	default:
		h.log.Error(c.Request.Context(), "ошибка сохранения файла", "name", fileHeader.Filename, "owner", identity.Username, "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
	}
}

func hasEmptyFilePart(c *gin.Context) bool {
	form := c.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value["file"]
	return ok
}

// fileRow - строка таблицы файлов.
type fileRow struct {
	models.FileRecord
	CanDelete bool
}

// ListFiles показывает все файлы, независимо от владельца.
func (h *Handler) ListFiles(c *gin.Context) {
	records, err := h.files.List(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "ошибка загрузки списка файлов", "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}

	identity := middleware.CurrentIdentity(c)
	rows := make([]fileRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, fileRow{FileRecord: rec, CanDelete: auth.CanDelete(identity, rec)})
	}
	c.HTML(http.StatusOK, "files.html", gin.H{
		"files":    rows,
		"username": identity.Username,
	})
}

// DownloadFile отдает файл как вложение любому вошедшему пользователю.
func (h *Handler) DownloadFile(c *gin.Context) {
	name := c.Param("filename")

	rc, size, err := h.files.Open(c.Request.Context(), name)
	switch {
	case errors.Is(err, services.ErrFileNotFound), errors.Is(err, storage.ErrInvalidName):
		c.String(http.StatusNotFound, msgFileNotFound)
		return
	case err != nil:
		h.log.Error(c.Request.Context(), "ошибка открытия файла", "name", name, "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if disposition == "" {
		disposition = "attachment"
	}
	c.DataFromReader(http.StatusOK, size, storage.ContentType(name), rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

// DeleteFile удаляет файл по правилам auth.CanDelete.
func (h *Handler) DeleteFile(c *gin.Context) {
	name := c.Param("filename")
	identity := middleware.CurrentIdentity(c)

	err := h.files.Delete(c.Request.Context(), identity, name)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/files")
	case errors.Is(err, services.ErrFileNotFound):
		c.String(http.StatusNotFound, msgFileNotFound)
	case errors.Is(err, services.ErrPermissionDenied):
		h.log.Info(c.Request.Context(), "отказано в удалении файла", "name", name, "by", identity.Username)
		c.String(http.StatusForbidden, msgPermissionDenied)
	default:
		h.log.Error(c.Request.Context(), "ошибка удаления файла", "name", name, "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
	}
}

// SendMessage добавляет сообщение на доску.
func (h *Handler) SendMessage(c *gin.Context) {
	_, err := h.messages.Send(c.Request.Context(), middleware.CurrentIdentity(c), c.PostForm("message"))
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/messages")
	case errors.Is(err, services.ErrEmptyMessage):
		c.String(http.StatusBadRequest, msgEmptyMessage)
	default:
		h.log.Error(c.Request.Context(), "ошибка сохранения сообщения", "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
	}
}

// ShowMessages показывает всю историю сообщений.
func (h *Handler) ShowMessages(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "ошибка загрузки сообщений", "error", err)
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}
	c.HTML(http.StatusOK, "messages.html", gin.H{
		"messages": msgs,
		"username": middleware.CurrentIdentity(c).Username,
	})
}

// MessageFeed подключает клиента к живой ленте сообщений.
func (h *Handler) MessageFeed(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}

// Health - проверка живости для балансировщика.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
