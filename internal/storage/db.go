package storage

import (
	"context"
	"fmt"
	"io"

	"airroutes/internal/ingest"
)

// Config holds connection settings for every supported backend.
type Config struct {
	SQLitePath string           `yaml:"sqlite_path"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		SQLitePath: "airroutes.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "airroutes",
			User:     "airroutes",
			Password: "airroutes",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "airroutes",
			User:     "default",
			Password: "",
		},
	}
}

// DatasetSource supplies the reference dataset loaded into the store at startup.
type DatasetSource interface {
	LoadDataset(ctx context.Context) (*ingest.Dataset, error)
}

// DatasetImporter replaces a backend's reference tables with a dataset.
type DatasetImporter interface {
	ImportDataset(ctx context.Context, d *ingest.Dataset) error
	Counts(ctx context.Context) (TableCounts, error)
}

// Backend names accepted by OpenSource and OpenImporter.
const (
	BackendFiles    = "files"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// OpenSource returns the dataset source for a backend. The returned closer
// releases any database connection and is never nil.
func OpenSource(ctx context.Context, backend string, cfg Config, files ingest.Paths) (DatasetSource, io.Closer, error) {
	switch backend {
	case "", BackendFiles:
		return ingest.FileSource{Paths: files}, nopCloser{}, nil
	case BackendSQLite:
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return db, db, nil
	case BackendPostgres:
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		return pg, closerFunc(pg.Close), nil
	default:
		return nil, nil, fmt.Errorf("unknown dataset backend %q", backend)
	}
}

// OpenImporter returns the importer for a database backend.
func OpenImporter(ctx context.Context, backend string, cfg Config) (DatasetImporter, io.Closer, error) {
	if backend != BackendSQLite && backend != BackendPostgres {
		return nil, nil, fmt.Errorf("cannot import into %q backend", backend)
	}
	src, closer, err := OpenSource(ctx, backend, cfg, ingest.Paths{})
	if err != nil {
		return nil, nil, err
	}
	return src.(DatasetImporter), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
