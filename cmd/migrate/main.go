package main

import (
	"context"
	"log"
	"os"

	"mrforecast/adapters/hyperfile"
	"mrforecast/adapters/postgres"
	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <schema|import|list|delete> [args]\n" +
			"  migrate schema\n" +
			"  migrate import <dataset_name> <hyper_file>\n" +
			"  migrate list\n" +
			"  migrate delete <dataset_name>")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	log.Printf("Schema at version %s", runner.Version())

	repo := postgres.NewHyperRepository(db)

	switch os.Args[1] {
	case "schema":
		return
	case "import":
		if len(os.Args) != 4 {
			log.Fatal("Usage: migrate import <dataset_name> <hyper_file>")
		}
		name, err := core.ParseDatasetName(os.Args[2])
		if err != nil {
			log.Fatalf("Invalid dataset name: %v", err)
		}
		table, err := hyperfile.NewReader(os.Args[3]).Load(ctx, hyper.Layout{})
		if err != nil {
			log.Fatalf("Failed to read %s: %v", os.Args[3], err)
		}
		if err := repo.Save(ctx, name, table); err != nil {
			log.Fatalf("Failed to import %s: %v", name, err)
		}
		log.Printf("Imported %d draws into %s (fingerprint %s)", table.Len(), name, table.Fingerprint())
	case "list":
		datasets, err := repo.ListDatasets(ctx)
		if err != nil {
			log.Fatalf("Failed to list datasets: %v", err)
		}
		for _, d := range datasets {
			log.Printf("%-24s n_pop=%d rows=%d fingerprint=%s", d.Name, d.NPop, d.Rows, d.Fingerprint)
		}
		log.Printf("%d datasets", len(datasets))
	case "delete":
		if len(os.Args) != 3 {
			log.Fatal("Usage: migrate delete <dataset_name>")
		}
		if err := repo.Delete(ctx, core.DatasetName(os.Args[2])); err != nil {
			log.Fatalf("Failed to delete %s: %v", os.Args[2], err)
		}
		log.Printf("Deleted %s", os.Args[2])
	default:
		log.Fatalf("Unknown command %q", os.Args[1])
	}
}
