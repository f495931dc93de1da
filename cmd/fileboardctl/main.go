// Команда fileboardctl - инструмент администратора: список пользователей,
// установка флага verified и смена пароля.
package main

import (
	// Стандартные библиотеки
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	// Внутренние пакеты
	"fileboard/internal/config"
	"fileboard/internal/database"
	"fileboard/internal/logging"
	"fileboard/internal/services"

	// Сторонние библиотеки
	"golang.org/x/term"
)

// readPassword подменяется в тестах, чтобы не трогать терминал.
var readPassword = term.ReadPassword

const usage = `Использование: fileboardctl [-config путь] <команда>

Команды:
  users              список пользователей
  verify <имя>       отметить пользователя как проверенного
  unverify <имя>     снять отметку
  passwd <имя>       задать новый пароль (ввод без эха)
`

func main() {
	fs := flag.NewFlagSet("fileboardctl", flag.ExitOnError)
	configPath := fs.String("config", "", "путь к YAML-файлу настроек (по умолчанию FILEBOARD_CONFIG)")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	store, err := database.Open(ctx, database.Options{
		Driver:  cfg.StoreDriver,
		DataDir: cfg.DataDir,
		DBPath:  cfg.DBPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка открытия хранилища: %v\n", err)
		os.Exit(1)
	}
	err = run(ctx, fs.Args(), services.NewUsers(store, log), os.Stdout)
	store.Close()
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "ошибка: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("неверные аргументы")

// run выполняет одну команду над пользователями.
func run(ctx context.Context, args []string, users *services.Users, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "users":
		if len(rest) != 0 {
			return errUsage
		}
		return listUsers(ctx, users, out)

	case "verify", "unverify":
		if len(rest) != 1 {
			return errUsage
		}
		verified := cmd == "verify"
		if err := users.SetVerified(ctx, rest[0], verified); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: verified=%t\n", rest[0], verified)
		return nil

	case "passwd":
		if len(rest) != 1 {
			return errUsage
		}
		// Пользователь проверяется до запроса пароля.
		if _, err := users.Get(ctx, rest[0]); err != nil {
			return err
		}
		password, err := promptPassword(out)
		if err != nil {
			return err
		}
		if err := users.SetPassword(ctx, rest[0], password); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: пароль изменен\n", rest[0])
		return nil
	}
	return errUsage
}

func listUsers(ctx context.Context, users *services.Users, out io.Writer) error {
	list, err := users.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tEMAIL\tVERIFIED")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", u.Username, u.Email, u.Verified)
	}
	return tw.Flush()
}

// promptPassword дважды спрашивает пароль без эха.
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Новый пароль: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Повторите пароль: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("пароли не совпадают")
	}
	return string(first), nil
}
