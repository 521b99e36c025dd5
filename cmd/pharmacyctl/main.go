// Command pharmacyctl performs administrative tasks against the pharmacy
// database without going through the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"pharmacy/m/domain"
	"pharmacy/m/internal/config"
	"pharmacy/m/internal/database"
	"pharmacy/m/internal/logging"
	"pharmacy/m/internal/migrations"
	"pharmacy/m/internal/seed"
	"pharmacy/m/internal/store"
)

const usage = `Usage: pharmacyctl <command> [arguments]
Commands:
  migrate                         apply the database schema
  seed <csv>                      load a medicine catalog into an empty database
  create-user <username> <role>   create a user (roles: admin, pharmacy_admin, staff)
  list-users                      list all users`

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	log := logging.New(cfg.LogLevel, cfg.Env, os.Stderr)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		fail(err)
	}
	defer db.Close()

	c := &cli{db: db, log: log, out: os.Stdout, readPassword: promptPassword}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Println(usage)
		}
		db.Close()
		fail(err)
	}
}

func fail(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// promptPassword reads a password from the terminal without echo, twice.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt requires a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

type cli struct {
	db           *sqlx.DB
	log          zerolog.Logger
	out          io.Writer
	readPassword func() (string, error)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	ok := color.New(color.FgGreen)

	switch args[0] {
	case "migrate":
		if err := migrations.Run(ctx, c.db); err != nil {
			return err
		}
		ok.Fprintln(c.out, "schema up to date")
	case "seed":
		if len(args) < 2 {
			return errUsage
		}
		n, err := seed.LoadMedicinesFile(ctx, c.db, args[1], c.log)
		if err != nil {
			return err
		}
		if n == 0 {
			color.New(color.FgYellow).Fprintln(c.out, "catalog already populated, nothing loaded")
			return nil
		}
		ok.Fprintf(c.out, "loaded %d medicines\n", n)
	case "create-user":
		if len(args) < 3 {
			return errUsage
		}
		role := domain.Role(args[2])
		if !role.Valid() {
			return &domain.ValidationError{Field: "role", Reason: "must be one of admin, pharmacy_admin, staff"}
		}
		password, err := c.readPassword()
		if err != nil {
			return err
		}
		if password == "" {
			return &domain.ValidationError{Field: "password", Reason: "is required"}
		}
		id, err := store.NewUserStore(c.db, c.log).Create(ctx, args[1], password, role)
		if err != nil {
			return err
		}
		ok.Fprintf(c.out, "created %s %q with id %d\n", role, args[1], id)
	case "list-users":
		users, err := store.NewUserStore(c.db, c.log).List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tCREATED")
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown command %q: %w", strings.TrimSpace(args[0]), errUsage)
	}
	return nil
}
