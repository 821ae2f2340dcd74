package main

// Apply or inspect the run-status schema:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate -version   # print the applied version

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/storage/db"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	versionOnly := fs.Bool("version", false, "print the applied schema version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(stderr, "DATABASE_URL is required")
		return 1
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.ProfileMigrate)
	if err != nil {
		fmt.Fprintf(stderr, "connect: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	if !*versionOnly {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			fmt.Fprintf(stderr, "migrate: %v\n", err)
			return 1
		}
	}

	version, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		fmt.Fprintf(stderr, "version: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "schema version %d\n", version)
	return 0
}
