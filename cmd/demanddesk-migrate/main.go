package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/migrations"
	"github.com/demanddesk/demanddesk/internal/rowsource/postgres"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|status")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	flag.Parse()

	cfg, err := config.LoadFromEnv("demanddesk-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := postgres.Ping(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		_ = db.Close()
		os.Exit(1)
	}

	runner := migrations.NewRunner()
	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d schema step(s)\n", applied)
	case "down":
		rolledBack, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("reverted %d schema step(s)\n", rolledBack)
	case "status":
		status, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration status failed: %v\n", err)
			os.Exit(1)
		}
		for _, step := range status.Steps {
			state := "pending"
			if step.Applied {
				state = "applied " + step.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%06d %-16s %s\n", step.Version, step.Name, state)
		}
		for _, version := range status.Unknown {
			fmt.Printf("%06d %-16s applied, not embedded in this build\n", version, "?")
		}
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(1)
	}
}
