// migrate_gorm.go - Run this file to apply the schema without starting the server
// Usage: go run migrate_gorm.go [-reset]

//go:build ignore

package main

import (
	"flag"

	"github.com/sahilchouksey/adaptive-tutor-api/config"
	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate every table")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		panic(err)
	}
	cfg, err := config.Get()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LOG_MODE)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store, err := database.Open(cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return
	}
	defer store.Close()

	if *reset {
		err = store.Reset()
	} else {
		err = store.Init()
	}
	if err != nil {
		log.Error("migration failed", "error", err)
		return
	}

	if err := store.HealthCheck(); err != nil {
		log.Error("database health check failed", "error", err)
		return
	}

	tables := make([]string, 0, len(database.Models()))
	for _, m := range database.Models() {
		stmt := store.GetDB().Model(m).Statement
		if err := stmt.Parse(m); err == nil {
			tables = append(tables, stmt.Schema.Table)
		}
	}
	log.Info("migrations completed", "driver", cfg.DB_DRIVER, "tables", tables)
}
