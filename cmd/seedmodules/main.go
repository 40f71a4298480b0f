// Command seedmodules loads a module catalog from a yaml file into the
// database. It is idempotent; rerunning it updates existing rows in place.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/storage/postgres"
	"github.com/nexboard/module_layer/internal/platform/migrations"
)

type catalog struct {
	BaseModules []struct {
		ID              string `yaml:"id"`
		Name            string `yaml:"name"`
		SortOrder       int    `yaml:"sort_order"`
		Implementations []struct {
			Key           string                 `yaml:"key"`
			EntryPoint    string                 `yaml:"entry_point"`
			DefaultConfig map[string]interface{} `yaml:"default_config"`
		} `yaml:"implementations"`
	} `yaml:"base_modules"`
}

func main() {
	var (
		catalogPath = flag.String("catalog", "./seed/modules.yaml", "Path to the module catalog yaml")
		envFile     = flag.String("env", "", "Optional .env file with DATABASE_DSN")
		migrate     = flag.Bool("migrate", true, "Apply schema before seeding")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN is required")
	}

	data, err := os.ReadFile(filepath.Clean(*catalogPath))
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		log.Fatalf("parse catalog: %v", err)
	}
	if len(cat.BaseModules) == 0 {
		log.Fatalf("catalog %s contains no base modules", *catalogPath)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if *migrate {
		if err := migrations.Apply(ctx, db); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}

	store := postgres.New(db)
	seeded := 0
	for _, bm := range cat.BaseModules {
		if err := store.UpsertBaseModule(ctx, module.BaseModule{ID: bm.ID, Name: bm.Name, SortOrder: bm.SortOrder}); err != nil {
			log.Fatalf("seed base module %s: %v", bm.ID, err)
		}
		for _, impl := range bm.Implementations {
			err := store.UpsertImplementation(ctx, module.Implementation{
				BaseModuleID:  bm.ID,
				Key:           impl.Key,
				EntryPoint:    impl.EntryPoint,
				DefaultConfig: impl.DefaultConfig,
			})
			if err != nil {
				log.Fatalf("seed implementation %s/%s: %v", bm.ID, impl.Key, err)
			}
			seeded++
		}
	}
	log.Printf("seeded %d base modules, %d implementations", len(cat.BaseModules), seeded)
}
