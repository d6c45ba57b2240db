package search

import (
	"net/url"
	"strings"
	"testing"

	"mayorsearch/pkg/domain"
)

func strPtr(s string) *string { return &s }

func date(t *testing.T, raw string) *domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return &d
}

func TestFoldAndCompact(t *testing.T) {
	if got := Fold("Éxito ÁRBOL Niño"); got != "exito arbol nino" {
		t.Fatalf("fold: got %q", got)
	}
	if got := Compact("Hoja de\tVida"); got != "hojadevida" {
		t.Fatalf("compact: got %q", got)
	}
}

func TestTextMatchCompoundAndAccents(t *testing.T) {
	c := Candidate{Resource: domain.Resource{Title: "Hoja de Vida del Investigador"}}
	for _, text := range []string{"hojadevida", "HOJA DE VIDA", "investigádor"} {
		if !(TextMatch{Text: text}).Match(c) {
			t.Fatalf("expected %q to match", text)
		}
	}
	if (TextMatch{Text: "astronomia"}).Match(c) {
		t.Fatalf("unexpected match")
	}
}

func TestTextMatchAuthors(t *testing.T) {
	c := Candidate{Resource: domain.Resource{Title: "Redes"}, Authors: []string{"María José Pérez"}}
	if !(TextMatch{Text: "mariajose"}).Match(c) {
		t.Fatalf("expected author match")
	}
}

func TestHasAllTagsRequiresEveryTag(t *testing.T) {
	p := HasAllTags{Names: []string{"Tesis", "2023"}}
	both := Candidate{Tags: []string{"tesis", "2023", "redes"}}
	one := Candidate{Tags: []string{"tesis"}}
	if !p.Match(both) {
		t.Fatalf("expected resource with both tags to match")
	}
	if p.Match(one) {
		t.Fatalf("expected resource with one tag to be rejected")
	}
}

func TestDateRangeRejectsMissingDate(t *testing.T) {
	p := DateRange{Bounds: ResolveDates("2023-01-01", "", "", fixedNow)}
	if p.Match(Candidate{}) {
		t.Fatalf("resource without date must not match")
	}
	if !p.Match(Candidate{Resource: domain.Resource{PublishedOn: date(t, "2023-02-01")}}) {
		t.Fatalf("expected match")
	}
}

func TestContainsAndEquals(t *testing.T) {
	c := Candidate{Resource: domain.Resource{Type: "Tesis Doctoral", Language: strPtr("Español"), Verified: true}}
	if !(Contains{Field: FieldType, Value: "tesis"}).Match(c) {
		t.Fatalf("expected type match")
	}
	if !(Contains{Field: FieldLanguage, Value: "espanol"}).Match(c) {
		t.Fatalf("expected language match")
	}
	if (Contains{Field: FieldLocation, Value: "x"}).Match(c) {
		t.Fatalf("nil location must not match")
	}
	if !(Equals{Field: FieldVerified, Value: true}).Match(c) {
		t.Fatalf("expected verified match")
	}
}

func TestPredicatesBindValues(t *testing.T) {
	injection := "x'; DROP TABLE recurso; --"
	preds := []Predicate{
		TextMatch{Text: injection},
		Contains{Field: FieldType, Value: injection},
		HasAllTags{Names: []string{injection}},
	}
	for _, p := range preds {
		expr := p.SQL(DefaultTextConfig)
		if strings.Contains(expr.SQL, "DROP TABLE") {
			t.Fatalf("value interpolated into SQL: %s", expr.SQL)
		}
		if len(expr.Vars) == 0 || strings.Count(expr.SQL, "?") != len(expr.Vars) {
			t.Fatalf("placeholder/var mismatch for %T: %d vs %d", p, strings.Count(expr.SQL, "?"), len(expr.Vars))
		}
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	if got := likePattern(`50%_a\b`); got != `%50\%\_a\\b%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestPlanOrderAndRank(t *testing.T) {
	q, err := Parse(url.Values{"q": {"redes"}, "etiquetas": {"tesis"}, "verificado": {"0"}}, fixedNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := q.Plan()
	if !p.Ranked() {
		t.Fatalf("expected ranked plan")
	}
	if len(p.Predicates) != 3 {
		t.Fatalf("expected 3 predicates, got %d", len(p.Predicates))
	}
	if _, ok := p.Predicates[0].(TextMatch); !ok {
		t.Fatalf("expected text predicate first, got %T", p.Predicates[0])
	}

	unranked, _ := Parse(url.Values{}, fixedNow)
	if unranked.Plan().Ranked() {
		t.Fatalf("plan without text must not be ranked")
	}
}

func TestRankScore(t *testing.T) {
	r := Rank{Text: "redes neuronales"}
	strong := Candidate{Resource: domain.Resource{Title: "Redes neuronales", Content: strPtr("redes y más redes")}}
	weak := Candidate{Resource: domain.Resource{Title: "Redes de computadoras"}}
	none := Candidate{Resource: domain.Resource{Title: "Botánica"}}
	if r.Score(none) != 0 {
		t.Fatalf("expected zero score")
	}
	if !(r.Score(strong) > r.Score(weak)) {
		t.Fatalf("expected strong > weak: %f vs %f", r.Score(strong), r.Score(weak))
	}
}
