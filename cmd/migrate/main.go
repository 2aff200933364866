package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Schema management for the rule catalog database.
//
//	migrate [-database URL] [-migrations DIR] <up|down|version|force N>
func main() {
	databaseURL := flag.String("database", os.Getenv("DATABASE_URL"),
		"postgres URL (defaults to DATABASE_URL)")
	dir := flag.String("migrations", "migrations", "migrations directory")
	flag.Usage = usage
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("no database URL: pass -database or set DATABASE_URL")
	}

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	m, err := migrate.New("file://"+*dir, *databaseURL)
	if err != nil {
		log.Fatalf("open migrations: %v", err)
	}
	defer m.Close()

	if err := run(m, command, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(flag.CommandLine.Output(),
		"usage: migrate [flags] <up|down|version|force N>")
	flag.PrintDefaults()
}

func run(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Println("rule catalog schema already current")
				return nil
			}
			return fmt.Errorf("migrate up: %w", err)
		}
		log.Println("rule catalog schema migrated")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Println("rule catalog schema rolled back")

	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		log.Printf("schema version %d (dirty=%v)", v, dirty)

	case "force":
		if len(args) < 2 {
			return errors.New("force needs a version: migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad version %q: %w", args[1], err)
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("force version %d: %w", v, err)
		}
		log.Printf("schema version forced to %d", v)

	default:
		return fmt.Errorf("unknown command %q (up, down, version, force)", command)
	}
	return nil
}
