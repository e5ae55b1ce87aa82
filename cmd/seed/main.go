package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/store"
	"github.com/andresuchdata/scamark/backend-go/internal/store/memstore"
	"github.com/andresuchdata/scamark/backend-go/internal/store/postgres"
	"github.com/andresuchdata/scamark/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type mirrorKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string of the document mirror",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-provider", Usage: "Object storage provider (minio or sevalla)"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Object storage endpoint"},
		&cli.StringFlag{Name: "storage-access-key", Usage: "Object storage access key"},
		&cli.StringFlag{Name: "storage-secret-key", Usage: "Object storage secret key"},
		&cli.StringFlag{Name: "storage-bucket", Usage: "Bucket holding the exports"},
		&cli.StringFlag{Name: "storage-region", Usage: "Bucket region"},
		&cli.BoolFlag{Name: "storage-use-ssl", Usage: "Use TLS to reach the bucket"},
	}
}

// initMirror opens the mirror through the pgx driver and stores it in the context.
func initMirror(c *cli.Context) error {
	sqlDB, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.PingContext(c.Context); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db := postgres.Wrap(sqlx.NewDb(sqlDB, "pgx"))
	if err := db.EnsureSchema(c.Context); err != nil {
		db.Close()
		return err
	}

	c.Context = context.WithValue(c.Context, mirrorKey{}, db)
	return nil
}

func closeMirror(c *cli.Context) error {
	if db, ok := c.Context.Value(mirrorKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func mirror(c *cli.Context) (*postgres.DocumentStore, error) {
	db, ok := c.Context.Value(mirrorKey{}).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("document mirror is not initialized")
	}
	return postgres.NewDocumentStore(db), nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	if err := logger.Init(os.Getenv("LOG_LEVEL"), ""); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Load document exports into the postgres mirror",
		Commands: []*cli.Command{
			{
				Name:  "load",
				Usage: "Upsert JSON exports from a local directory or the object bucket",
				Flags: append([]cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing JSON exports",
						Value:   "./data/seeds/exports",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
					&cli.BoolFlag{
						Name:  "from-bucket",
						Usage: "Download the exports from object storage first",
					},
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object key prefix of the exports",
						Value:   "exports",
						EnvVars: []string{"SEED_OBJECT_PREFIX"},
					},
					&cli.StringFlag{
						Name:  "object",
						Usage: "Single object key to download instead of the whole prefix",
					},
					&cli.StringFlag{
						Name:  "download-dir",
						Usage: "Where downloaded exports are written",
						Value: "./data/tmp/exports",
					},
				}, storageFlags()...),
				Before: initMirror,
				After:  closeMirror,
				Action: runLoad,
			},
			{
				Name:   "demo",
				Usage:  "Upsert the demo dataset",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initMirror,
				After:  closeMirror,
				Action: func(c *cli.Context) error {
					docs, err := mirror(c)
					if err != nil {
						return err
					}
					return upsertDataset(c.Context, docs, memstore.DemoDataset(time.Now()))
				},
			},
			{
				Name:  "export-demo",
				Usage: "Write the demo dataset as a JSON export, optionally uploading it",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output file",
						Value: "./data/seeds/exports/demo.json",
					},
					&cli.StringFlag{
						Name:  "upload-key",
						Usage: "Also upload the export under this object key",
					},
				}, storageFlags()...),
				Action: runExportDemo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func runLoad(c *cli.Context) error {
	docs, err := mirror(c)
	if err != nil {
		return err
	}

	var paths []string
	if c.Bool("from-bucket") {
		downloader, err := newBucketDownloader(c)
		if err != nil {
			return err
		}
		if paths, err = downloader.download(c.Context, c.String("prefix"), c.String("object")); err != nil {
			return err
		}
	} else {
		if paths, err = localExports(c.String("data-dir")); err != nil {
			return err
		}
	}

	var ds store.Dataset
	for _, path := range paths {
		part, err := readDataset(path)
		if err != nil {
			return err
		}
		log.Info().Str("file", path).Int("documents", part.Len()).Msg("read export")
		ds.Merge(part)
	}
	return upsertDataset(c.Context, docs, ds)
}

func localExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isExport(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no JSON exports in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

func readDataset(path string) (store.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.Dataset{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := store.DecodeDataset(f)
	if err != nil {
		return store.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

func upsertDataset(ctx context.Context, docs *postgres.DocumentStore, ds store.Dataset) error {
	start := time.Now()
	batch := postgres.DatasetDocuments(ds)
	if err := docs.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}
	log.Info().
		Int("decisions", len(ds.Decisions)).
		Int("articles", len(ds.Articles)).
		Int("clients", len(ds.Clients)).
		Int("documents", len(batch)).
		Dur("took", time.Since(start)).
		Msg("mirror seeded")
	return nil
}

func runExportDemo(c *cli.Context) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(memstore.DemoDataset(time.Now())); err != nil {
		return fmt.Errorf("failed to encode demo dataset: %w", err)
	}

	out := c.String("out")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", out, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", out, err)
	}
	log.Info().Str("file", out).Msg("demo export written")

	key := c.String("upload-key")
	if key == "" {
		return nil
	}
	client, err := storageClient(c)
	if err != nil {
		return err
	}
	if err := client.UploadObject(c.Context, key, buf.Bytes()); err != nil {
		return err
	}
	log.Info().Str("key", key).Msg("demo export uploaded")
	return nil
}
