package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/erazemk/lostfound/internal/config"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/setup"
	"github.com/erazemk/lostfound/internal/store"
)

const usage = `Usage: lostfoundctl <command> [flags] [args]

Commands:
  init                     create the database and an admin account
  subscribers              list notification subscriptions
  unsubscribe <email>      stop notifications for an address
  promote <username>       grant administrator rights
  deluser <username>       delete an account (its items stay, without a reporter)

Every command accepts -db <path> (env LOSTFOUND_DB, default: lostfound.db).
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var run func(ctx context.Context, cfg *config.Config, args []string) error
	switch os.Args[1] {
	case "init":
		run = cmdInit
	case "subscribers":
		run = cmdSubscribers
	case "unsubscribe":
		run = cmdUnsubscribe
	case "promote":
		run = cmdPromote
	case "deluser":
		run = cmdDeleteUser
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parse reads the common -db flag and checks the positional argument count.
func parse(name string, cfg *config.Config, args []string, nargs int) ([]string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to SQLite database file")
	if name == "init" {
		fs.StringVar(&cfg.Admin, "user", cfg.Admin, "admin username")
	}
	fs.Parse(args)

	if fs.NArg() != nargs {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", name, nargs, fs.NArg())
	}
	return fs.Args(), nil
}

// open opens an existing database and brings its schema up to date.
func open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func cmdInit(ctx context.Context, cfg *config.Config, args []string) error {
	if _, err := parse("init", cfg, args, 0); err != nil {
		return err
	}

	if _, err := os.Stat(cfg.DBPath); err == nil {
		return fmt.Errorf("database file %s already exists", cfg.DBPath)
	}

	database, password, err := setup.InitDatabase(ctx, cfg.DBPath, cfg.Admin)
	if err != nil {
		return err
	}
	database.Close()

	setup.PrintResult(cfg.DBPath, cfg.Admin, password)
	return nil
}

func cmdSubscribers(ctx context.Context, cfg *config.Config, args []string) error {
	if _, err := parse("subscribers", cfg, args, 0); err != nil {
		return err
	}
	database, err := open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	subs, err := store.ListSubscriptions(ctx, database)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tACTIVE\tSINCE")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%t\t%s\n", s.Email, s.Active, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func cmdUnsubscribe(ctx context.Context, cfg *config.Config, args []string) error {
	rest, err := parse("unsubscribe", cfg, args, 1)
	if err != nil {
		return err
	}
	database, err := open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	email := model.NormalizeEmail(rest[0])
	if err := store.Unsubscribe(ctx, database, email); err != nil {
		return err
	}
	fmt.Printf("Unsubscribed %s\n", email)
	return nil
}

func cmdPromote(ctx context.Context, cfg *config.Config, args []string) error {
	rest, err := parse("promote", cfg, args, 1)
	if err != nil {
		return err
	}
	database, err := open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	user, err := lookupUser(ctx, database, rest[0])
	if err != nil {
		return err
	}
	if err := store.SetUserRole(ctx, database, user.ID, model.RoleAdmin); err != nil {
		return err
	}
	fmt.Printf("%s is now an administrator\n", user.Username)
	return nil
}

func cmdDeleteUser(ctx context.Context, cfg *config.Config, args []string) error {
	rest, err := parse("deluser", cfg, args, 1)
	if err != nil {
		return err
	}
	database, err := open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	user, err := lookupUser(ctx, database, rest[0])
	if err != nil {
		return err
	}
	if err := store.DeleteUser(ctx, database, user.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted user %s\n", user.Username)
	return nil
}

func lookupUser(ctx context.Context, database *sql.DB, username string) (*model.User, error) {
	user, err := store.GetUserByUsername(ctx, database, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q: %w", username, model.ErrNotFound)
	}
	return user, nil
}
