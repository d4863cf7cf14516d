// Command adduser creates a user or admin account in the configured store.
//
//	adduser -email ada@example.com -first Ada -last Lovelace [-role Admin]
//
// The password is prompted for unless -password is given or it is piped on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bilancio/internal/auth"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	applog "bilancio/internal/log"

	"golang.org/x/term"
)

func main() {
	cli.LoadEnvFile()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in          core.UserInput
		role        string
		backendType string
		dbPath      string
		databaseURL string
	)
	fs.StringVar(&in.Email, "email", "", "email address (login)")
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&role, "role", string(core.RoleUser), "role: User or Admin")
	fs.StringVar(&in.Password, "password", "", "password (prompted when empty)")
	fs.StringVar(&backendType, "backend", cfg.DataBackend, "store: sqlite or postgres")
	fs.StringVar(&dbPath, "db", cfg.SQLiteDBPath, "sqlite database path")
	fs.StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "postgres connection URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in.Role = core.Role(normalizeRole(role))

	if in.Password == "" {
		pw, err := readPassword(stdin, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "read password: %v\n", err)
			return 1
		}
		in.Password = pw
	}

	u, err := in.Validate()
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(stderr, "%s: %s\n", f.Field, f.Message)
			}
			return 1
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	u.PasswordHash, err = auth.HashPassword(in.Password)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	bcfg := backend.Config{Type: backend.BackendType(backendType), SQLiteDBPath: dbPath, DatabaseURL: databaseURL}
	if err := bcfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	store, err := backend.NewFactory(applog.Nop()).CreateBackend(ctx, bcfg)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	defer func() { _ = store.Cleanup() }()

	if err := store.Store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			fmt.Fprintf(stderr, "a user with email %s already exists\n", u.Email)
			return 1
		}
		fmt.Fprintf(stderr, "create user: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "created %s %s <%s> id=%s\n", u.Role, u.FullName(), u.Email, u.ID)
	return 0
}

// normalizeRole accepts "admin" / "user" in any case.
func normalizeRole(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return string(core.RoleAdmin)
	case "user", "":
		return string(core.RoleUser)
	default:
		return s
	}
}

// readPassword prompts twice on a terminal; otherwise it reads one line.
func readPassword(stdin io.Reader, prompt io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		fmt.Fprint(prompt, "Repeat password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
