// Package storage keeps reference datasets in SQLite or PostgreSQL and records
// route search analytics in ClickHouse. The live store is never written back.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"airroutes/internal/ingest"
	"airroutes/internal/store"
)

// SQLiteDB wraps a SQLite database holding a reference dataset.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// createSQLiteSchema creates the dataset tables and indices. Rows keep file
// order through the implicit rowid.
func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS airlines (
		id INTEGER NOT NULL,
		name TEXT,
		alias TEXT,
		iata TEXT,
		icao TEXT,
		callsign TEXT,
		country TEXT,
		active TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_airlines_iata ON airlines(iata);

	CREATE TABLE IF NOT EXISTS airports (
		id INTEGER NOT NULL,
		name TEXT,
		city TEXT,
		country TEXT,
		iata TEXT,
		icao TEXT,
		latitude REAL,
		longitude REAL,
		altitude INTEGER,
		timezone REAL,
		dst TEXT,
		tz TEXT,
		type TEXT,
		source TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports(iata);

	CREATE TABLE IF NOT EXISTS routes (
		airline_iata TEXT,
		airline_id INTEGER,
		source_iata TEXT,
		source_id INTEGER,
		dest_iata TEXT,
		dest_id INTEGER,
		codeshare TEXT,
		stops INTEGER,
		equipment TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_routes_source ON routes(source_iata);
	CREATE INDEX IF NOT EXISTS idx_routes_dest ON routes(dest_iata);
	`

	_, err := db.Exec(schema)
	return err
}

// ImportDataset replaces the contents of all three tables in one transaction.
func (d *SQLiteDB) ImportDataset(ctx context.Context, ds *ingest.Dataset) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"routes", "airports", "airlines"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	err = insertEach(ctx, tx, "airlines",
		`INSERT INTO airlines (id, name, alias, iata, icao, callsign, country, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.Airlines, func(a store.Airline) (string, []any) {
			return fmt.Sprintf("airline %d", a.ID), []any{a.ID, a.Name, a.Alias, a.IATA, a.ICAO, a.Callsign, a.Country, a.Active}
		})
	if err != nil {
		return err
	}

	err = insertEach(ctx, tx, "airports",
		`INSERT INTO airports (id, name, city, country, iata, icao, latitude, longitude, altitude, timezone, dst, tz, type, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.Airports, func(a store.Airport) (string, []any) {
			return fmt.Sprintf("airport %d", a.ID), []any{a.ID, a.Name, a.City, a.Country, a.IATA, a.ICAO, a.Latitude, a.Longitude, a.Altitude, a.Timezone, a.DST, a.TZ, a.Type, a.Source}
		})
	if err != nil {
		return err
	}

	err = insertEach(ctx, tx, "routes",
		`INSERT INTO routes (airline_iata, airline_id, source_iata, source_id, dest_iata, dest_id, codeshare, stops, equipment) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.Routes, func(r store.Route) (string, []any) {
			return fmt.Sprintf("route %s %s-%s", r.AirlineIATA, r.SourceIATA, r.DestIATA), []any{r.AirlineIATA, r.AirlineID, r.SourceIATA, r.SourceID, r.DestIATA, r.DestID, r.Codeshare, r.Stops, r.Equipment}
		})
	if err != nil {
		return err
	}

	return tx.Commit()
}

// insertEach runs one prepared insert per record, closing the statement on every path.
func insertEach[T any](ctx context.Context, tx *sql.Tx, table, query string, records []T, row func(T) (string, []any)) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		name, args := row(rec)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	return nil
}

// LoadDataset reads the three tables back in insertion order.
func (d *SQLiteDB) LoadDataset(ctx context.Context) (*ingest.Dataset, error) {
	var ds ingest.Dataset

	rows, err := d.db.QueryContext(ctx, `SELECT id, name, alias, iata, icao, callsign, country, active FROM airlines ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query airlines: %w", err)
	}
	for rows.Next() {
		var a store.Airline
		var name, alias, iata, icao, callsign, country, active sql.NullString
		if err := rows.Scan(&a.ID, &name, &alias, &iata, &icao, &callsign, &country, &active); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan airline: %w", err)
		}
		a.Name, a.Alias, a.IATA, a.ICAO = name.String, alias.String, iata.String, icao.String
		a.Callsign, a.Country, a.Active = callsign.String, country.String, active.String
		ds.Airlines = append(ds.Airlines, a)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = d.db.QueryContext(ctx, `SELECT id, name, city, country, iata, icao, latitude, longitude, altitude, timezone, dst, tz, type, source FROM airports ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query airports: %w", err)
	}
	for rows.Next() {
		var a store.Airport
		var name, city, country, iata, icao, dst, tz, typ, source sql.NullString
		var lat, lon, timezone sql.NullFloat64
		var altitude sql.NullInt64
		if err := rows.Scan(&a.ID, &name, &city, &country, &iata, &icao, &lat, &lon, &altitude, &timezone, &dst, &tz, &typ, &source); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan airport: %w", err)
		}
		a.Name, a.City, a.Country, a.IATA, a.ICAO = name.String, city.String, country.String, iata.String, icao.String
		a.Latitude, a.Longitude, a.Timezone = lat.Float64, lon.Float64, timezone.Float64
		a.Altitude = int(altitude.Int64)
		a.DST, a.TZ, a.Type, a.Source = dst.String, tz.String, typ.String, source.String
		ds.Airports = append(ds.Airports, a)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = d.db.QueryContext(ctx, `SELECT airline_iata, airline_id, source_iata, source_id, dest_iata, dest_id, codeshare, stops, equipment FROM routes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var r store.Route
		var airline, src, dst, codeshare, equipment sql.NullString
		var airlineID, srcID, dstID, stops sql.NullInt64
		if err := rows.Scan(&airline, &airlineID, &src, &srcID, &dst, &dstID, &codeshare, &stops, &equipment); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		r.AirlineIATA, r.SourceIATA, r.DestIATA = airline.String, src.String, dst.String
		r.AirlineID, r.SourceID, r.DestID = nullID(airlineID), nullID(srcID), nullID(dstID)
		r.Codeshare, r.Equipment = codeshare.String, equipment.String
		r.Stops = int(stops.Int64)
		ds.Routes = append(ds.Routes, r)
	}

	return &ds, rows.Err()
}

// TableCounts reports row counts per dataset table.
type TableCounts struct {
	Airlines int
	Airports int
	Routes   int
}

// Counts returns the number of rows in each dataset table.
func (d *SQLiteDB) Counts(ctx context.Context) (TableCounts, error) {
	var c TableCounts
	for table, dst := range map[string]*int{"airlines": &c.Airlines, "airports": &c.Airports, "routes": &c.Routes} {
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil {
			return c, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return c, nil
}

func nullID(v sql.NullInt64) int {
	if !v.Valid {
		return -1
	}
	return int(v.Int64)
}
