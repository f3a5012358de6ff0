// Command bootstrap initializes the persistence schemas and seeds the
// initial role grants for a new deployment.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/credence-labs/credence-core/pkg/config"
	"github.com/credence-labs/credence-core/pkg/store"
)

func main() {
	cfg := config.Load()
	dbURL := cfg.DatabaseURL
	if len(os.Args) > 1 {
		dbURL = os.Args[1]
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	log.Println("[bootstrap] Initializing schemas...")

	records := store.NewPostgresRecordStore(db)
	if err := records.Init(ctx); err != nil {
		log.Fatalf("Failed to init emergency records: %v", err)
	}

	sqliteDB, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open sqlite db: %v", err)
	}
	defer func() { _ = sqliteDB.Close() }()

	if _, err := store.NewSQLiteBondStore(sqliteDB); err != nil {
		log.Fatalf("Failed to init bond store: %v", err)
	}

	log.Println("[bootstrap] Schemas initialized.")

	if cfg.AdminAddr == "" {
		log.Println("[bootstrap] ADMIN_ADDR not set; skipping role seed.")
		return
	}
	log.Printf("[bootstrap] Admin principal: %s\n", cfg.AdminAddr)
	log.Println("[bootstrap] Done.")
}
