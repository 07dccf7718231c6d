package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/listini-pricing/pkg/config"
	"github.com/angelmondragon/listini-pricing/pkg/db"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/migrate"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the set embedded in the binary")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version; empty prints the current version")

	flag.Parse()

	// create and validate work on files only and do not need config
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		var err error
		if *dir == "" {
			err = migrate.ValidateFS(migrate.Migrations())
		} else {
			err = migrate.ValidateDir(*dir)
		}
		if err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	var fsys fs.FS = migrate.Migrations()
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}
	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	requireResource(ctx, logg, "goose provider", err)
	defer runner.Close()

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up":
		if err := runner.Up(ctx); err != nil {
			fail("goose up failed: %v", err)
		}

	case "down":
		if err := runner.Down(ctx); err != nil {
			fail("goose down failed: %v", err)
		}

	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			fail("goose status failed: %v", err)
		}
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-16d %-8s %-20s %s\n", st.Source.Version, st.State, applied, st.Source.Path)
		}

	case "version":
		if *version == "" {
			current, err := runner.Version(ctx)
			if err != nil {
				fail("goose version failed: %v", err)
			}
			fmt.Println("current version:", current)
			return
		}
		if err := runner.To(ctx, *version); err != nil {
			fail("goose version migrate failed: %v", err)
		}

	default:
		fail("unknown -cmd value: %s", *cmd)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
