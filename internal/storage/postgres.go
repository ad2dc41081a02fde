package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"airroutes/internal/ingest"
	"airroutes/internal/store"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PostgresDB wraps a PostgreSQL connection pool holding a reference dataset.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the dataset tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS airlines (
		seq         BIGSERIAL PRIMARY KEY,
		id          INTEGER NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		alias       TEXT NOT NULL DEFAULT '',
		iata        TEXT NOT NULL DEFAULT '',
		icao        TEXT NOT NULL DEFAULT '',
		callsign    TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		active      TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_airlines_iata ON airlines(iata);

	CREATE TABLE IF NOT EXISTS airports (
		seq         BIGSERIAL PRIMARY KEY,
		id          INTEGER NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		city        TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		iata        TEXT NOT NULL DEFAULT '',
		icao        TEXT NOT NULL DEFAULT '',
		latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
		altitude    INTEGER NOT NULL DEFAULT 0,
		timezone    DOUBLE PRECISION NOT NULL DEFAULT 0,
		dst         TEXT NOT NULL DEFAULT '',
		tz          TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports(iata);

	CREATE TABLE IF NOT EXISTS routes (
		seq             BIGSERIAL PRIMARY KEY,
		airline_iata    TEXT NOT NULL DEFAULT '',
		airline_id      INTEGER NOT NULL DEFAULT -1,
		source_iata     TEXT NOT NULL DEFAULT '',
		source_id       INTEGER NOT NULL DEFAULT -1,
		dest_iata       TEXT NOT NULL DEFAULT '',
		dest_id         INTEGER NOT NULL DEFAULT -1,
		codeshare       TEXT NOT NULL DEFAULT '',
		stops           INTEGER NOT NULL DEFAULT 0,
		equipment       TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_routes_source ON routes(source_iata);
	CREATE INDEX IF NOT EXISTS idx_routes_dest ON routes(dest_iata);
	`

	_, err := d.pool.Exec(ctx, schema)
	return err
}

var (
	airlineColumns = []string{"id", "name", "alias", "iata", "icao", "callsign", "country", "active"}
	airportColumns = []string{"id", "name", "city", "country", "iata", "icao", "latitude", "longitude", "altitude", "timezone", "dst", "tz", "type", "source"}
	routeColumns   = []string{"airline_iata", "airline_id", "source_iata", "source_id", "dest_iata", "dest_id", "codeshare", "stops", "equipment"}
)

// ImportDataset truncates the dataset tables and bulk-copies ds into them in
// one transaction.
func (d *PostgresDB) ImportDataset(ctx context.Context, ds *ingest.Dataset) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE routes, airports, airlines RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"airlines"}, airlineColumns,
		pgx.CopyFromSlice(len(ds.Airlines), func(i int) ([]any, error) {
			a := ds.Airlines[i]
			return []any{a.ID, a.Name, a.Alias, a.IATA, a.ICAO, a.Callsign, a.Country, a.Active}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy airlines: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"airports"}, airportColumns,
		pgx.CopyFromSlice(len(ds.Airports), func(i int) ([]any, error) {
			a := ds.Airports[i]
			return []any{a.ID, a.Name, a.City, a.Country, a.IATA, a.ICAO, a.Latitude, a.Longitude, a.Altitude, a.Timezone, a.DST, a.TZ, a.Type, a.Source}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy airports: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"routes"}, routeColumns,
		pgx.CopyFromSlice(len(ds.Routes), func(i int) ([]any, error) {
			r := ds.Routes[i]
			return []any{r.AirlineIATA, r.AirlineID, r.SourceIATA, r.SourceID, r.DestIATA, r.DestID, r.Codeshare, r.Stops, r.Equipment}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy routes: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadDataset reads the three tables back in insertion order.
func (d *PostgresDB) LoadDataset(ctx context.Context) (*ingest.Dataset, error) {
	var ds ingest.Dataset

	rows, err := d.pool.Query(ctx, `SELECT id, name, alias, iata, icao, callsign, country, active FROM airlines ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query airlines: %w", err)
	}
	ds.Airlines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Airline, error) {
		var a store.Airline
		err := row.Scan(&a.ID, &a.Name, &a.Alias, &a.IATA, &a.ICAO, &a.Callsign, &a.Country, &a.Active)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan airlines: %w", err)
	}

	rows, err = d.pool.Query(ctx, `SELECT id, name, city, country, iata, icao, latitude, longitude, altitude, timezone, dst, tz, type, source FROM airports ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query airports: %w", err)
	}
	ds.Airports, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Airport, error) {
		var a store.Airport
		err := row.Scan(&a.ID, &a.Name, &a.City, &a.Country, &a.IATA, &a.ICAO, &a.Latitude, &a.Longitude, &a.Altitude, &a.Timezone, &a.DST, &a.TZ, &a.Type, &a.Source)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan airports: %w", err)
	}

	rows, err = d.pool.Query(ctx, `SELECT airline_iata, airline_id, source_iata, source_id, dest_iata, dest_id, codeshare, stops, equipment FROM routes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	ds.Routes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Route, error) {
		var r store.Route
		err := row.Scan(&r.AirlineIATA, &r.AirlineID, &r.SourceIATA, &r.SourceID, &r.DestIATA, &r.DestID, &r.Codeshare, &r.Stops, &r.Equipment)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan routes: %w", err)
	}

	return &ds, nil
}

// Counts returns the number of rows in each dataset table.
func (d *PostgresDB) Counts(ctx context.Context) (TableCounts, error) {
	var c TableCounts
	err := d.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM airlines), (SELECT COUNT(*) FROM airports), (SELECT COUNT(*) FROM routes)
	`).Scan(&c.Airlines, &c.Airports, &c.Routes)
	if err != nil {
		return c, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
