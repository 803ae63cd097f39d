package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sparkify/sparkify-etl/internal/util"
)

func mustRecord(t *testing.T, s string) Record {
	t.Helper()
	var rec Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return rec
}

func TestRecord_Int(t *testing.T) {
	rec := mustRecord(t, `{"num":39,"str":"39","float":2.0,"frac":2.5,"empty":"","null":null}`)

	tests := []struct {
		field   string
		want    int64
		wantErr bool
	}{
		{"num", 39, false},
		{"str", 39, false},
		{"float", 2, false},
		{"frac", 0, true},
		{"empty", 0, true},
		{"null", 0, true},
		{"missing", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := rec.Int(tt.field)
			if tt.wantErr {
				if !errors.Is(err, util.ErrSchema) {
					t.Errorf("expected ErrSchema, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRecord_Optional(t *testing.T) {
	rec := mustRecord(t, `{"lat":null,"lon":-122.42,"loc":"","year":0}`)

	lat, err := rec.OptFloat("lat")
	if err != nil || lat != nil {
		t.Errorf("expected nil latitude, got %v (err %v)", lat, err)
	}

	lon, err := rec.OptFloat("lon")
	if err != nil || lon == nil || *lon != -122.42 {
		t.Errorf("expected longitude -122.42, got %v (err %v)", lon, err)
	}

	loc, err := rec.OptString("loc")
	if err != nil || loc == nil || *loc != "" {
		t.Errorf("expected empty location, got %v (err %v)", loc, err)
	}

	year, err := rec.OptInt("year")
	if err != nil || year == nil || *year != 0 {
		t.Errorf("expected year 0, got %v (err %v)", year, err)
	}

	if _, err := rec.OptString("missing"); !errors.Is(err, util.ErrSchema) {
		t.Errorf("expected ErrSchema for missing optional field, got %v", err)
	}
}

func TestRecord_TypeMismatch(t *testing.T) {
	rec := mustRecord(t, `{"title":42,"duration":"long"}`)

	if _, err := rec.String("title"); !errors.Is(err, util.ErrSchema) {
		t.Errorf("expected ErrSchema for numeric title, got %v", err)
	}
	if _, err := rec.Float("duration"); !errors.Is(err, util.ErrSchema) {
		t.Errorf("expected ErrSchema for string duration, got %v", err)
	}
}

func TestRecord_Fields(t *testing.T) {
	rec := mustRecord(t, `{"b":1,"a":2}`)
	fields := rec.Fields()
	if len(fields) != 2 || fields[0] != "a" || fields[1] != "b" {
		t.Errorf("expected [a b], got %v", fields)
	}
	if !rec.Has("a") || rec.Has("c") {
		t.Error("Has returned wrong result")
	}
}

func TestRecord_MissingFieldListsFields(t *testing.T) {
	rec := Record{
		"page": json.RawMessage(`"NextSong"`),
		"ts":   json.RawMessage(`1541440000000`),
	}

	_, err := rec.String("song")
	if !errors.Is(err, util.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if !strings.Contains(err.Error(), "page, ts") {
		t.Errorf("expected present fields in error, got %q", err.Error())
	}
}
