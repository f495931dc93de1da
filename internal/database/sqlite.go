package database

import (
	// Стандартные библиотеки
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Внутренние пакеты
	"fileboard/internal/models"

	// Драйвер SQLite. Пустой импорт регистрирует драйвер "sqlite" в database/sql.
	_ "modernc.org/sqlite"
)

// OpenSQLite открывает (или создает) базу SQLite по пути dataSourceName,
// создает таблицы и возвращает хранилище поверх них.
func OpenSQLite(ctx context.Context, dataSourceName string) (*Store, error) {
	// Параметры соединения:
	// - journal_mode(WAL): читатели не блокируют писателя.
	// - busy_timeout(5000): ждать снятия блокировки до 5 секунд.
	// - foreign_keys(1), synchronous(NORMAL): как и раньше.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)", dataSourceName)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии %s: %w", dataSourceName, err)
	}

	// Для SQLite одно соединение: параллельная запись в один файл все равно невозможна.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения с %s: %w", dataSourceName, err)
	}

	if err = createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при создании таблиц: %w", err)
	}

	return &Store{
		Users:    newCollection[models.User](usersTable(db)),
		Files:    newCollection[models.FileRecord](filesTable(db)),
		Messages: newCollection[models.Message](messagesTable(db)),
		closeFn:  db.Close,
	}, nil
}

// createTables создает таблицы users, files и messages, если их еще нет.
// Столбец pos хранит порядок записей в коллекции.
func createTables(ctx context.Context, db *sql.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			pos INTEGER NOT NULL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			verified INTEGER NOT NULL DEFAULT 0
		);`},
		{"files", `
		CREATE TABLE IF NOT EXISTS files (
			pos INTEGER NOT NULL PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT NOT NULL,
			owner_verified INTEGER NOT NULL DEFAULT 0,
			upload_date TEXT NOT NULL,
			size TEXT NOT NULL
		);`},
		{"idx_files_name", `CREATE INDEX IF NOT EXISTS idx_files_name ON files (name);`},
		{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			pos INTEGER NOT NULL PRIMARY KEY,
			username TEXT NOT NULL,
			message TEXT NOT NULL,
			verified INTEGER NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL
		);`},
	}

	for _, st := range statements {
		if _, err := db.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("ошибка при создании %s: %w", st.name, err)
		}
	}
	return nil
}

// sqliteTable отображает коллекцию на таблицу.
type sqliteTable[T any] struct {
	db      *sql.DB
	table   string
	columns []string
	scan    func(rows *sql.Rows) (T, error)
	args    func(item T) []any
}

func (t sqliteTable[T]) load(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY pos", strings.Join(t.columns, ", "), t.table)
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса %s: %w", t.table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования %s: %w", t.table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", t.table, err)
	}
	return items, nil
}

// save заменяет содержимое таблицы в одной транзакции.
func (t sqliteTable[T]) save(ctx context.Context, items []T) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции %s: %w", t.table, err)
	}
	// Если Commit() не вызван, транзакция будет отменена.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.table); err != nil {
		return fmt.Errorf("ошибка очистки %s: %w", t.table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)+1), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (pos, %s) VALUES (%s)", t.table, strings.Join(t.columns, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса %s: %w", t.table, err)
	}
	defer stmt.Close()

	for i, item := range items {
		args := append([]any{i}, t.args(item)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("нарушение уникальности в %s (запись %d): %w", t.table, i, err)
			}
			return fmt.Errorf("ошибка вставки в %s: %w", t.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции %s: %w", t.table, err)
	}
	return nil
}

func usersTable(db *sql.DB) sqliteTable[models.User] {
	return sqliteTable[models.User]{
		db:      db,
		table:   "users",
		columns: []string{"username", "email", "password", "verified"},
		scan: func(rows *sql.Rows) (models.User, error) {
			var u models.User
			err := rows.Scan(&u.Username, &u.Email, &u.Password, &u.Verified)
			return u, err
		},
		args: func(u models.User) []any {
			return []any{u.Username, u.Email, u.Password, u.Verified}
		},
	}
}

func filesTable(db *sql.DB) sqliteTable[models.FileRecord] {
	return sqliteTable[models.FileRecord]{
		db:      db,
		table:   "files",
		columns: []string{"name", "owner", "owner_verified", "upload_date", "size"},
		scan: func(rows *sql.Rows) (models.FileRecord, error) {
			var f models.FileRecord
			err := rows.Scan(&f.Name, &f.Owner, &f.OwnerVerified, &f.UploadDate, &f.Size)
			return f, err
		},
		args: func(f models.FileRecord) []any {
			return []any{f.Name, f.Owner, f.OwnerVerified, f.UploadDate, f.Size}
		},
	}
}

func messagesTable(db *sql.DB) sqliteTable[models.Message] {
	return sqliteTable[models.Message]{
		db:      db,
		table:   "messages",
		columns: []string{"username", "message", "verified", "timestamp"},
		scan: func(rows *sql.Rows) (models.Message, error) {
			var m models.Message
			err := rows.Scan(&m.Username, &m.Message, &m.Verified, &m.Timestamp)
			return m, err
		},
		args: func(m models.Message) []any {
			return []any{m.Username, m.Message, m.Verified, m.Timestamp}
		},
	}
}
