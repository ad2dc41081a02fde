package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airroutes/internal/query"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"airlines.dat": `24,"American Airlines",\N,"AA","AAL","AMERICAN","United States","Y"
5209,"United Airlines",\N,"UA","UAL","UNITED","United States","Y"
`,
		"airports.dat": `3484,"Los Angeles International Airport","Los Angeles","United States","LAX","KLAX",33.94250107,-118.4079971,125,-8,"A","America/Los_Angeles","airport","OurAirports"
3797,"John F Kennedy International Airport","New York","United States","JFK","KJFK",40.63980103,-73.77890015,13,-5,"A","America/New_York","airport","OurAirports"
3830,"Chicago O'Hare International Airport","Chicago","United States","ORD","KORD",41.9786,-87.9048,672,-6,"A","America/Chicago","airport","OurAirports"
`,
		"routes.dat": `AA,24,LAX,3484,JFK,3797,,0,321 32B
UA,5209,LAX,3484,ORD,3830,,0,739
AA,24,ORD,3830,JFK,3797,,0,738
AA,24,ORD,3830,SFO,3469,,0,738
`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestQueryDirect(t *testing.T) {
	dir := writeDataset(t)

	out, err := execute(t, "--data-dir", dir, "--source", "files", "query", "direct", "lax", "jfk")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var routes []query.DirectRoute
	if err := json.Unmarshal([]byte(out), &routes); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(routes) != 1 || routes[0].Route.Equipment != "321 32B" || routes[0].AirlineName != "American Airlines" {
		t.Errorf("unexpected routes %+v", routes)
	}
}

func TestQueryOneHop(t *testing.T) {
	dir := writeDataset(t)

	out, err := execute(t, "--data-dir", dir, "--source", "files", "--hop-policy", "last-seen", "query", "onehop", "LAX", "JFK")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var routes []query.OneHopRoute
	if err := json.Unmarshal([]byte(out), &routes); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(routes) != 1 || routes[0].Intermediate.IATA != "ORD" || routes[0].Airlines[0] != "UA" {
		t.Errorf("unexpected connections %+v", routes)
	}
}

func TestQueryUnknownAirport(t *testing.T) {
	dir := writeDataset(t)

	if _, err := execute(t, "--data-dir", dir, "--source", "files", "query", "direct", "LAX", "SYD"); err == nil || !strings.Contains(err.Error(), "SYD") {
		t.Errorf("expected unknown airport error, got %v", err)
	}
}

func TestStats(t *testing.T) {
	dir := writeDataset(t)

	out, err := execute(t, "--data-dir", dir, "--source", "files", "stats")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, want := range []string{
		"routes            3          0          0         1",
		"Countries: 1",
		"ORD",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidSource(t *testing.T) {
	if _, err := execute(t, "--source", "mysql", "stats"); err == nil {
		t.Error("expected configuration error")
	}
}
