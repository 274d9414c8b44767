package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logg := logger.New(cfg.Log)
	defer logg.Sync()

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database, logg)
	if err != nil {
		logg.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDir := "migrations"
	migrationFiles, err := listMigrations(migrationDir, direction)
	if err != nil {
		logg.Fatal("read migration directory", zap.Error(err))
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationDir, filename))
		if err != nil {
			logg.Fatal("read migration file", zap.String("file", filename), zap.Error(err))
		}

		logg.Info("running migration", zap.String("file", filename))
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			logg.Fatal("execute migration", zap.String("file", filename), zap.Error(err))
		}
	}

	logg.Info("migrations complete", zap.Int("count", len(migrationFiles)), zap.String("direction", direction))
}

// listMigrations returns the files for direction in the order they must
// run: ascending for up, descending for down.
func listMigrations(dir, direction string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			names = append(names, file.Name())
		}
	}

	sort.Strings(names)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names, nil
}
