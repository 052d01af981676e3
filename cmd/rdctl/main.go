package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"rdapi/internal/config"
	"rdapi/internal/domain"
	"rdapi/internal/observability/logging"
	"rdapi/internal/service"
	impl "rdapi/internal/service/impl"
	"rdapi/internal/store"
	"rdapi/pkg/db"

	"github.com/google/uuid"
)

const adminName = "admin"

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	cfg := config.Load()
	slog.SetDefault(logging.NewLogger(logging.Config{
		ServiceName: "rdctl",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Output:      os.Stderr,
	}))

	var err error
	switch cmd {
	case "migrate":
		err = runMigrate(cfg)
	case "init-admin":
		err = runInitAdmin(cfg)
	case "set-password":
		err = runSetPassword(cfg, args)
	case "create-user":
		err = runCreateUser(cfg, args)
	case "seed":
		err = runSeed(cfg, args)
	case "prune-tokens":
		err = runPruneTokens(cfg)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  migrate        Create or update the database schema")
	fmt.Fprintln(os.Stderr, "  init-admin     Create the admin account with a random password")
	fmt.Fprintln(os.Stderr, "  set-password   Set a user's password (admin by default)")
	fmt.Fprintln(os.Stderr, "  create-user    Create a user account")
	fmt.Fprintln(os.Stderr, "  seed           Load users, groups and address books from a YAML file")
	fmt.Fprintln(os.Stderr, "  prune-tokens   Delete tokens idle longer than TOKEN_IDLE_TIMEOUT")
	os.Exit(2)
}

type env struct {
	store  *store.Store
	tokens *impl.TokenServiceImpl
	users  *impl.UserServiceImpl
	close  func()
}

// open connects to the database, migrates the schema and builds the user
// service. Tokens are signed with a throwaway key since the CLI only revokes
// and prunes them.
func open(cfg config.Config) (*env, error) {
	gdb, err := db.OpenGorm(db.Config{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		LogSQL: cfg.LogSQL,
	})
	if err != nil {
		return nil, err
	}
	st := store.New(gdb)
	if err := st.AutoMigrate(context.Background()); err != nil {
		return nil, err
	}
	ts, err := impl.NewTokenService(impl.TokenConfig{
		Issuer:      cfg.Issuer,
		IdleTimeout: cfg.IdleTimeout,
		SigningKey:  []byte(uuid.NewString()),
	}, st)
	if err != nil {
		return nil, err
	}
	return &env{
		store:  st,
		tokens: ts,
		users:  impl.NewUserServiceImpl(st, impl.NewPasswordServiceArgon2id(), ts, cfg.DefaultGroup),
		close:  func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}, nil
}

func runMigrate(cfg config.Config) error {
	e, err := open(cfg)
	if err != nil {
		return err
	}
	defer e.close()
	fmt.Println("schema is up to date")
	return nil
}

func runInitAdmin(cfg config.Config) error {
	e, err := open(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()
	if _, err := e.users.Get(ctx, adminName); err == nil {
		fmt.Println("admin account already exists")
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	pwd := strings.ReplaceAll(uuid.NewString(), "-", "")[24:]
	if _, err := e.users.Create(ctx, service.CreateUserInput{
		Username:    adminName,
		Password:    pwd,
		IsStaff:     true,
		IsSuperuser: true,
	}); err != nil {
		return err
	}
	fmt.Printf("admin account created, password: %s\n", pwd)
	return nil
}

func runSetPassword(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("set-password", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("user", adminName, "account to update")
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return errors.New("-password is required")
	}

	e, err := open(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()
	err = e.users.SetPassword(ctx, *username, *password)
	if errors.Is(err, domain.ErrUserNotFound) && *username == adminName {
		_, err = e.users.Create(ctx, service.CreateUserInput{
			Username:    adminName,
			Password:    *password,
			IsStaff:     true,
			IsSuperuser: true,
		})
		if err == nil {
			fmt.Println("admin account did not exist and has been created")
			return nil
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("password of %s updated\n", *username)
	return nil
}

func runCreateUser(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var in service.CreateUserInput
	fs.StringVar(&in.Username, "user", "", "username")
	fs.StringVar(&in.Password, "password", "", "password")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.FullName, "name", "", "full name")
	fs.StringVar(&in.Group, "group", "", "group, the default group when empty")
	fs.BoolVar(&in.IsStaff, "staff", false, "grant console administration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := open(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	u, err := e.users.Create(context.Background(), in)
	if err != nil {
		return err
	}
	fmt.Printf("user %s created (%s)\n", u.Username, u.ID)
	return nil
}

func runSeed(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("file", "seed.yaml", "seed file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()
	seed, err := parseSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", *path, err)
	}

	e, err := open(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	personals := impl.NewPersonalServiceImpl(e.store, e.users)
	n, err := seed.apply(context.Background(), e.users, personals)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d objects\n", n)
	return nil
}

func runPruneTokens(cfg config.Config) error {
	e, err := open(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	n, err := e.tokens.PruneIdle(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d idle tokens\n", n)
	return nil
}
