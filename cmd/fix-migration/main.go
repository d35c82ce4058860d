// Package main repairs a dirty golang-migrate state. A migration interrupted
// part-way leaves schema_migrations marked dirty and the server refuses to start.
// This tool clears the flag, or with -force sets an explicit version, so the
// migration runner can retry on the next startup.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/blokid/blokid-backend/internal/config"
	"github.com/blokid/blokid-backend/internal/db"
)

func main() {
	force := flag.Int("force", -1, "set the migration version explicitly and clear the dirty flag")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database successfully")

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		log.Fatalf("Failed to check migration state: %v", err)
	}
	log.Printf("Current migration state: version=%d, dirty=%v", version, dirty)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case *force >= 0:
		log.Printf("Forcing migration version to %d...", *force)
		if err := db.ForceMigrationVersion(database.DB, *force); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
	case dirty:
		log.Println("Fixing dirty migration state...")
		if _, err := database.ExecContext(ctx, "UPDATE schema_migrations SET dirty = false"); err != nil {
			log.Fatalf("Failed to fix dirty state: %v", err)
		}
	default:
		log.Println("Migration state is already clean")
		return
	}

	version, dirty, err = db.GetMigrationVersion(database.DB)
	if err != nil {
		log.Fatalf("Failed to check final migration state: %v", err)
	}
	log.Printf("Final migration state: version=%d, dirty=%v", version, dirty)
}
