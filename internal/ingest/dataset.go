package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"airroutes/internal/store"
)

// Dataset is a parsed reference dataset ready to be loaded into a store.
type Dataset struct {
	Airlines []store.Airline
	Airports []store.Airport
	Routes   []store.Route
}

// LoadReport describes what a bulk load kept.
type LoadReport struct {
	Airlines store.LoadStats `json:"airlines"`
	Airports store.LoadStats `json:"airports"`
	Routes   store.LoadStats `json:"routes"`
}

// Apply loads the dataset into s. Airlines and airports go first so that
// routes can be checked against them.
func (d *Dataset) Apply(s *store.Store) LoadReport {
	var rep LoadReport
	rep.Airlines = s.LoadAirlines(d.Airlines)
	rep.Airports = s.LoadAirports(d.Airports)
	rep.Routes = s.LoadRoutes(d.Routes)
	return rep
}

// scanRecords calls fn for every non-blank, non-comment line of r.
func scanRecords(r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(line)
	}
	return sc.Err()
}

// ReadAirlines parses every airline line in r.
func ReadAirlines(r io.Reader) ([]store.Airline, error) {
	var out []store.Airline
	err := scanRecords(r, func(line string) {
		out = append(out, ParseAirline(line))
	})
	return out, err
}

// ReadAirports parses every airport line in r.
func ReadAirports(r io.Reader) ([]store.Airport, error) {
	var out []store.Airport
	err := scanRecords(r, func(line string) {
		out = append(out, ParseAirport(line))
	})
	return out, err
}

// ReadRoutes parses every route line in r.
func ReadRoutes(r io.Reader) ([]store.Route, error) {
	var out []store.Route
	err := scanRecords(r, func(line string) {
		out = append(out, ParseRoute(line))
	})
	return out, err
}

// Paths locates the three dataset files.
type Paths struct {
	Airlines string `yaml:"airlines"`
	Airports string `yaml:"airports"`
	Routes   string `yaml:"routes"`
}

// DefaultPaths returns the conventional file names inside dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Airlines: filepath.Join(dir, "airlines.dat"),
		Airports: filepath.Join(dir, "airports.dat"),
		Routes:   filepath.Join(dir, "routes.dat"),
	}
}

// LoadFiles reads the three dataset files concurrently. Any missing or
// unreadable file fails the whole load.
func LoadFiles(ctx context.Context, p Paths) (*Dataset, error) {
	var d Dataset
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		d.Airlines, err = readFile(p.Airlines, ReadAirlines)
		return err
	})
	g.Go(func() error {
		var err error
		d.Airports, err = readFile(p.Airports, ReadAirports)
		return err
	})
	g.Go(func() error {
		var err error
		d.Routes, err = readFile(p.Routes, ReadRoutes)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

// FileSource loads a dataset from .dat files.
type FileSource struct {
	Paths Paths
}

// LoadDataset implements the dataset source interface used at startup.
func (f FileSource) LoadDataset(ctx context.Context) (*Dataset, error) {
	return LoadFiles(ctx, f.Paths)
}
