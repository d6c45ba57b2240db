package search

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

func TestParseDefaults(t *testing.T) {
	q, err := Parse(url.Values{}, fixedNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Limit != DefaultLimit || q.Offset != 0 {
		t.Fatalf("unexpected pagination: limit=%d offset=%d", q.Limit, q.Offset)
	}
	if q.Verified != nil || len(q.Tags) != 0 || !q.Dates.Empty() || q.Text != "" {
		t.Fatalf("expected empty filters, got %+v", q)
	}
}

func TestParseFilters(t *testing.T) {
	values := url.Values{
		"q":           {"  hoja de vida "},
		"tiporecurso": {"Tesis"},
		"idioma":      {"es"},
		"ubicacion":   {"Biblioteca"},
		"verificado":  {"true"},
		"etiquetas":   {"tesis, 2023 ,,Tesis"},
		"limit":       {"5"},
		"offset":      {"10"},
	}
	q, err := Parse(values, fixedNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Text != "hoja de vida" {
		t.Fatalf("unexpected text %q", q.Text)
	}
	if q.Verified == nil || !*q.Verified {
		t.Fatalf("expected verificado=true")
	}
	if !reflect.DeepEqual(q.Tags, []string{"tesis", "2023"}) {
		t.Fatalf("unexpected tags %v", q.Tags)
	}
	if q.Limit != 5 || q.Offset != 10 {
		t.Fatalf("unexpected pagination: limit=%d offset=%d", q.Limit, q.Offset)
	}
}

func TestParseRejectsInvalidParams(t *testing.T) {
	cases := []url.Values{
		{"limit": {"0"}},
		{"limit": {"101"}},
		{"limit": {"abc"}},
		{"offset": {"-1"}},
		{"offset": {"x"}},
		{"verificado": {"maybe"}},
	}
	for _, values := range cases {
		if _, err := Parse(values, fixedNow); !errors.Is(err, ErrInvalidParam) {
			t.Fatalf("expected ErrInvalidParam for %v, got %v", values, err)
		}
	}
}

func TestParseIgnoresMalformedDates(t *testing.T) {
	q, err := Parse(url.Values{"fecha_inicio": {"2024-13-45"}, "fecha_fin": {"ayer"}}, fixedNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !q.Dates.Empty() {
		t.Fatalf("expected no date bounds, got %+v", q.Dates)
	}
}

func TestSplitTagsEmpty(t *testing.T) {
	if got := SplitTags(" , ,"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
