package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airroutes/internal/store"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", `a,b,c`, []string{"a", "b", "c"}},
		{"quoted comma", `1,"Goroka, PNG",x`, []string{"1", "Goroka, PNG", "x"}},
		{"escaped quote", `"say ""hi""",2`, []string{`say "hi"`, "2"}},
		{"empty fields", `a,,c,`, []string{"a", "", "c", ""}},
		{"placeholder kept", `\N,N/A`, []string{`\N`, "N/A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLine(tt.line)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d fields, got %d: %q", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("field %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseAirline(t *testing.T) {
	got := ParseAirline(`24,"American Airlines",\N,"AA","AAL","AMERICAN","United States","Y"`)
	want := store.Airline{ID: 24, Name: "American Airlines", IATA: "AA", ICAO: "AAL", Callsign: "AMERICAN", Country: "United States", Active: "Y"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if got := ParseAirline(`24,"American Airlines"`); got.Found() {
		t.Errorf("short line should yield a zero record, got %+v", got)
	}
	if got := ParseAirline(`abc,"Bad ID",\N,"BD",\N,\N,\N,"Y"`); got.ID != 0 {
		t.Errorf("non-numeric ID should default to 0, got %d", got.ID)
	}
}

func TestParseAirport(t *testing.T) {
	line := `3484,"Los Angeles International Airport","Los Angeles","United States","LAX","KLAX",33.94250107,-118.4079971,125,-8,"A","America/Los_Angeles","airport","OurAirports"`
	got := ParseAirport(line)

	if got.ID != 3484 || got.IATA != "LAX" || got.ICAO != "KLAX" || got.City != "Los Angeles" {
		t.Errorf("unexpected identity fields %+v", got)
	}
	if got.Latitude != 33.94250107 || got.Longitude != -118.4079971 {
		t.Errorf("unexpected coordinates %f,%f", got.Latitude, got.Longitude)
	}
	if got.Altitude != 125 || got.Timezone != -8 || got.DST != "A" || got.TZ != "America/Los_Angeles" {
		t.Errorf("unexpected time fields %+v", got)
	}
	if got.Type != "airport" || got.Source != "OurAirports" {
		t.Errorf("unexpected type/source %q %q", got.Type, got.Source)
	}

	placeholders := ParseAirport(`9,"Somewhere",\N,N/A,"SMW",\N,\N,N/A,\N,x,\N,\N,\N,\N`)
	if placeholders.City != "" || placeholders.Country != "" || placeholders.Latitude != 0 || placeholders.Timezone != 0 {
		t.Errorf("placeholders not mapped to defaults: %+v", placeholders)
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		name string
		line string
		want store.Route
	}{
		{
			name: "complete",
			line: `AA,24,LAX,3484,JFK,3797,,0,321 32B`,
			want: store.Route{AirlineIATA: "AA", AirlineID: 24, SourceIATA: "LAX", SourceID: 3484, DestIATA: "JFK", DestID: 3797, Equipment: "321 32B"},
		},
		{
			name: "unknown IDs",
			line: `2B,\N,AER,2965,KZN,\N,Y,0,CR2`,
			want: store.Route{AirlineIATA: "2B", AirlineID: -1, SourceIATA: "AER", SourceID: 2965, DestIATA: "KZN", DestID: -1, Codeshare: "Y", Equipment: "CR2"},
		},
		{
			name: "bad stops",
			line: `AA,24,LAX,3484,JFK,3797,,x,`,
			want: store.Route{AirlineIATA: "AA", AirlineID: 24, SourceIATA: "LAX", SourceID: 3484, DestIATA: "JFK", DestID: 3797},
		},
		{
			name: "too short",
			line: `AA,24,LAX`,
			want: store.Route{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRoute(tt.line); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestReadSkipsBlankAndComments(t *testing.T) {
	input := strings.Join([]string{
		"# airlines",
		`1,"Private flight",\N,"-","N/A","","","Y"`,
		"",
		"   ",
		`24,"American Airlines",\N,"AA","AAL","AMERICAN","United States","Y"`,
	}, "\r\n")

	airlines, err := ReadAirlines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(airlines) != 2 {
		t.Fatalf("expected 2 records, got %d", len(airlines))
	}
	if airlines[1].Active != "Y" {
		t.Errorf("carriage return leaked into last field: %q", airlines[1].Active)
	}
}

const (
	airlinesDat = `24,"American Airlines",\N,"AA","AAL","AMERICAN","United States","Y"
-1,"Unknown",\N,"-","N/A",\N,\N,"Y"
`
	airportsDat = `3484,"Los Angeles International Airport","Los Angeles","United States","LAX","KLAX",33.9425,-118.4081,125,-8,"A","America/Los_Angeles","airport","OurAirports"
3797,"John F Kennedy International Airport","New York","United States","JFK","KJFK",40.6413,-73.7781,13,-5,"A","America/New_York","airport","OurAirports"
5000,"No Code",\N,\N,\N,\N,0,0,0,0,\N,\N,\N,\N
`
	routesDat = `AA,24,LAX,3484,JFK,3797,,0,321
AA,24,LAX,3484,JFK,3797,,0,738
AA,24,JFK,3797,LAX,3484,,0,321
UA,5209,LAX,3484,JFK,3797,,0,757
`
)

func writeDataset(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"airlines.dat": airlinesDat,
		"airports.dat": airportsDat,
		"routes.dat":   routesDat,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return DefaultPaths(dir)
}

func TestLoadFilesAndApply(t *testing.T) {
	paths := writeDataset(t)

	d, err := FileSource{Paths: paths}.LoadDataset(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(d.Airlines) != 2 || len(d.Airports) != 3 || len(d.Routes) != 4 {
		t.Fatalf("unexpected record counts: %d airlines, %d airports, %d routes", len(d.Airlines), len(d.Airports), len(d.Routes))
	}

	s := store.New()
	rep := d.Apply(s)

	if rep.Airlines.Loaded != 1 || rep.Airlines.Malformed != 1 {
		t.Errorf("unexpected airline report %+v", rep.Airlines)
	}
	if rep.Airports.Loaded != 2 || rep.Airports.Malformed != 1 {
		t.Errorf("unexpected airport report %+v", rep.Airports)
	}
	// Second LAX-JFK is a duplicate triple, UA is not a loaded airline.
	if rep.Routes.Loaded != 2 || rep.Routes.Duplicate != 1 || rep.Routes.Dangling != 1 {
		t.Errorf("unexpected route report %+v", rep.Routes)
	}

	if got := s.AirportByIATA("JFK"); got.Timezone != -5 {
		t.Errorf("unexpected JFK record %+v", got)
	}
}

func TestLoadFilesMissing(t *testing.T) {
	paths := writeDataset(t)
	paths.Routes = filepath.Join(t.TempDir(), "missing.dat")

	if _, err := LoadFiles(context.Background(), paths); err == nil {
		t.Fatal("expected error for missing routes file")
	}
}
