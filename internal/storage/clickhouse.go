package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouseDB wraps a ClickHouse connection for search analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the search analytics table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS route_searches (
		searched_at     DateTime64(3),
		kind            LowCardinality(String),
		source          LowCardinality(String),
		dest            LowCardinality(String),
		results         UInt32,
		best_distance   Float64,
		duration_us     UInt64
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(searched_at)
	ORDER BY (kind, source, dest, searched_at)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SearchRecord is one route search served by the API.
type SearchRecord struct {
	SearchedAt   time.Time
	Kind         string // "direct" or "onehop".
	Source       string
	Dest         string
	Results      int
	BestDistance float64 // Zero when nothing was found.
	Duration     time.Duration
}

// InsertSearches stores a batch of search records.
func (d *ClickHouseDB) InsertSearches(ctx context.Context, records []SearchRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO route_searches (searched_at, kind, source, dest, results, best_distance, duration_us)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err := batch.Append(r.SearchedAt, r.Kind, r.Source, r.Dest, uint32(r.Results), r.BestDistance, uint64(r.Duration.Microseconds()))
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// PairCount is a source/destination pair with its search count.
type PairCount struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
	Dest   string `json:"dest"`
	Count  uint64 `json:"count"`
}

// TopSearches returns the most searched pairs since the given time.
func (d *ClickHouseDB) TopSearches(ctx context.Context, since time.Time, limit int) ([]PairCount, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.Query(ctx, `
		SELECT kind, source, dest, count() AS n
		FROM route_searches
		WHERE searched_at >= ?
		GROUP BY kind, source, dest
		ORDER BY n DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PairCount
	for rows.Next() {
		var p PairCount
		if err := rows.Scan(&p.Kind, &p.Source, &p.Dest, &p.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
