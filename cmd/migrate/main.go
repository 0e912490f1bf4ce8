// Applies database migrations from migrations/.
//
//	go run cmd/migrate/main.go            # apply all pending migrations
//	go run cmd/migrate/main.go -down      # roll back everything
//	go run cmd/migrate/main.go -steps -1  # roll back one migration
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		dbURL   = flag.String("db", os.Getenv("DATABASE_URL"), "Database URL (defaults to DATABASE_URL)")
		migPath = flag.String("path", "file://migrations", "Path to migration files")
		down    = flag.Bool("down", false, "Roll back all migrations")
		steps   = flag.Int("steps", 0, "Number of migrations to apply (negative rolls back)")
	)
	flag.Parse()

	if *dbURL == "" {
		log.Fatal("migrate: DATABASE_URL is required")
	}

	m, err := migrate.New(*migPath, *dbURL)
	if err != nil {
		log.Fatalf("migrate: setup failed: %v", err)
	}
	defer m.Close()

	switch {
	case *steps != 0:
		err = m.Steps(*steps)
	case *down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("migrate: could not read version: %v", err)
	}
	log.Printf("migrate: version %d (dirty: %v)", version, dirty)
}
