package services

import (
	// Стандартные библиотеки
	"context"
	"fmt"
	"regexp"

	// Внутренние пакеты
	"fileboard/internal/auth"
	"fileboard/internal/database"
	"fileboard/internal/logging"
	"fileboard/internal/models"
)

// emailPattern - допустимый формат адреса при регистрации.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail проверяет адрес по фиксированному регулярному выражению.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Users - регистрация, вход и управление флагом verified.
type Users struct {
	store *database.Store
	log   logging.Logger
}

func NewUsers(store *database.Store, log logging.Logger) *Users {
	return &Users{store: store, log: log}
}

// Register создает пользователя с verified=false.
// Проверки идут в порядке: поля, формат почты, занятая почта, занятое имя.
// Сравнения точные и чувствительные к регистру.
func (s *Users) Register(ctx context.Context, username, email, password string) (models.User, error) {
	if username == "" || email == "" || password == "" {
		return models.User{}, ErrMissingFields
	}
	if !ValidEmail(email) {
		return models.User{}, ErrInvalidEmail
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{Username: username, Email: email, Password: hash, Verified: false}
	err = s.store.Users.Update(ctx, func(users []models.User) ([]models.User, error) {
		for _, u := range users {
			if u.Email == email {
				return nil, ErrEmailTaken
			}
		}
		for _, u := range users {
			if u.Username == username {
				return nil, ErrUsernameTaken
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return models.User{}, err
	}

	s.log.Info(ctx, "пользователь зарегистрирован", "username", username)
	return user, nil
}

// Login ищет пользователя по имени ИЛИ почте с точно совпадающим паролем.
func (s *Users) Login(ctx context.Context, identifier, password string) (models.User, error) {
	users, err := s.store.Users.Load(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("ошибка загрузки пользователей: %w", err)
	}

	for _, u := range users {
		if u.Username != identifier && u.Email != identifier {
			continue
		}
		if auth.CheckPassword(password, u.Password) {
			return u, nil
		}
	}

	s.log.Info(ctx, "неудачная попытка входа", "identifier", identifier)
	return models.User{}, ErrInvalidCredentials
}

// Get возвращает пользователя по имени.
func (s *Users) Get(ctx context.Context, username string) (models.User, error) {
	users, err := s.store.Users.Load(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("ошибка загрузки пользователей: %w", err)
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// List возвращает всех пользователей в порядке регистрации.
func (s *Users) List(ctx context.Context) ([]models.User, error) {
	return s.store.Users.Load(ctx)
}

// SetVerified меняет флаг verified. Это и есть "внешний механизм" проверки,
// которым пользуется fileboardctl.
func (s *Users) SetVerified(ctx context.Context, username string, verified bool) error {
	return s.modify(ctx, username, func(u *models.User) error {
		u.Verified = verified
		return nil
	})
}

// SetPassword сохраняет bcrypt-хеш нового пароля.
func (s *Users) SetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return ErrMissingFields
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.modify(ctx, username, func(u *models.User) error {
		u.Password = hash
		return nil
	})
}

func (s *Users) modify(ctx context.Context, username string, fn func(u *models.User) error) error {
	return s.store.Users.Update(ctx, func(users []models.User) ([]models.User, error) {
		for i := range users {
			if users[i].Username == username {
				if err := fn(&users[i]); err != nil {
					return nil, err
				}
				return users, nil
			}
		}
		return nil, ErrUserNotFound
	})
}
