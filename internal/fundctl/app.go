// Package fundctl implements the operator CLI: schema migrations, admin
// provisioning and system settings. It talks to the database directly and
// shares the server's config layering, so -d and FUNDKEEPER_DATABASE_DSN
// work the same way for both binaries.
package fundctl

import (
	"bufio"
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dmitrijs2005/fundkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/config"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fundkeeper/internal/server/services"
)

// AdminPasswordEnv lets create-admin run unattended.
const AdminPasswordEnv = "FUNDKEEPER_ADMIN_PASSWORD"

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Seams for tests.
var (
	openDB     = repomanager.OpenDB
	newManager = repomanager.NewPostgresRepositoryManager
	lookupEnv  = os.LookupEnv
)

type App struct {
	config *config.Config
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	return &App{config: c, reader: bufio.NewReader(in), out: out}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"migrate":      {"migrate", (*App).migrate},
	"create-admin": {"create-admin -email EMAIL [-name NAME]", (*App).createAdmin},
	"set-setting":  {"set-setting -key KEY -value VALUE | set-setting KEY VALUE", (*App).setSetting},
	"get-setting":  {"get-setting [-key KEY | KEY]", (*App).getSetting},
	"version":      {"version", (*App).version},
}

// Run dispatches on the first argument naming a command. Arguments before
// it belong to the config layer; arguments after it to the command.
func (a *App) Run(ctx context.Context, args []string) error {
	for i, arg := range args {
		cmd, ok := commands[arg]
		if !ok {
			continue
		}
		return cmd.run(a, ctx, args[i+1:])
	}
	a.usage()
	return ErrUnknownCommand
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "Usage: fundctl [config flags] <command> [command flags]")
	fmt.Fprintln(a.out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
}

// withStore opens the database and hands fn a repository manager bound to it.
func (a *App) withStore(ctx context.Context, fn func(db *sql.DB, rm repomanager.RepositoryManager) error) error {
	if a.config.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	db, err := openDB(ctx, a.config.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, newManager())
}

func (a *App) migrate(ctx context.Context, args []string) error {
	return a.withStore(ctx, func(db *sql.DB, rm repomanager.RepositoryManager) error {
		if err := rm.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		fmt.Fprintln(a.out, "Migrations applied")
		return nil
	})
}

func (a *App) createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = getSimpleText(a.reader, "Admin email", a.out); err != nil {
			return err
		}
	}
	if *name == "" {
		if *name, err = getSimpleText(a.reader, "Admin name", a.out); err != nil {
			return err
		}
	}

	password, err := a.adminPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	return a.withStore(ctx, func(db *sql.DB, rm repomanager.RepositoryManager) error {
		// No tokens are issued here, so the user service needs no token service.
		users := services.NewUserService(db, rm, nil)
		user, err := users.CreateAdmin(ctx, *name, *email, string(password))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Admin %s (id %d) is ready\n", user.Email, user.ID)
		return nil
	})
}

// adminPassword takes the password from AdminPasswordEnv, or prompts twice.
func (a *App) adminPassword() ([]byte, error) {
	if pw, ok := lookupEnv(AdminPasswordEnv); ok && pw != "" {
		return []byte(pw), nil
	}

	first, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return nil, err
	}
	second, err := getPassword(a.out, "Repeat password: ")
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if subtle.ConstantTimeCompare(first, second) != 1 {
		common.WipeByteArray(first)
		return nil, ErrPasswordMismatch
	}
	return first, nil
}

func (a *App) setSetting(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-setting", flag.ContinueOnError)
	fs.SetOutput(a.out)
	key := fs.String("key", "", "setting key")
	value := fs.String("value", "", "setting value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" && fs.NArg() == 2 {
		*key, *value = fs.Arg(0), fs.Arg(1)
	}

	return a.withStore(ctx, func(db *sql.DB, rm repomanager.RepositoryManager) error {
		s, err := services.NewSettingsService(db, rm).Set(ctx, *key, *value)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s=%s\n", s.Key, s.Value)
		return nil
	})
}

func (a *App) getSetting(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get-setting", flag.ContinueOnError)
	fs.SetOutput(a.out)
	key := fs.String("key", "", "setting key; all settings when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" && fs.NArg() == 1 {
		*key = fs.Arg(0)
	}

	return a.withStore(ctx, func(db *sql.DB, rm repomanager.RepositoryManager) error {
		svc := services.NewSettingsService(db, rm)
		if *key != "" {
			s, err := svc.Get(ctx, *key)
			if err != nil {
				return fmt.Errorf("%s: %w", *key, err)
			}
			fmt.Fprintf(a.out, "%s=%s\n", s.Key, s.Value)
			return nil
		}

		all, err := svc.All(ctx)
		if err != nil {
			return err
		}
		for _, s := range all {
			fmt.Fprintf(a.out, "%s=%s\n", s.Key, s.Value)
		}
		return nil
	})
}

func (a *App) version(context.Context, []string) error {
	buildinfo.PrintBuildData(a.out)
	return nil
}
