package search

import (
	"strings"

	"gorm.io/gorm/clause"
)

// DefaultTextConfig is the PostgreSQL text search configuration used when
// none is configured.
const DefaultTextConfig = "spanish"

// Plan is an executable search: filters, optional ranking and a page window.
type Plan struct {
	Predicates []Predicate
	Rank       *Rank
	Limit      int
	Offset     int
}

// Plan builds the predicate list for q. The order of predicates is stable so
// the rendered SQL is deterministic for equal queries.
func (q Query) Plan() Plan {
	p := Plan{Limit: q.Limit, Offset: q.Offset}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if q.Text != "" {
		p.Predicates = append(p.Predicates, TextMatch{Text: q.Text})
		p.Rank = &Rank{Text: q.Text}
	}
	if q.Type != "" {
		p.Predicates = append(p.Predicates, Contains{Field: FieldType, Value: q.Type})
	}
	if q.Language != "" {
		p.Predicates = append(p.Predicates, Contains{Field: FieldLanguage, Value: q.Language})
	}
	if q.Location != "" {
		p.Predicates = append(p.Predicates, Contains{Field: FieldLocation, Value: q.Location})
	}
	if q.Verified != nil {
		p.Predicates = append(p.Predicates, Equals{Field: FieldVerified, Value: *q.Verified})
	}
	if !q.Dates.Empty() {
		p.Predicates = append(p.Predicates, DateRange{Bounds: q.Dates})
	}
	if len(q.Tags) > 0 {
		p.Predicates = append(p.Predicates, HasAllTags{Names: q.Tags})
	}
	return p
}

// Match reports whether c passes every predicate.
func (p Plan) Match(c Candidate) bool {
	for _, pred := range p.Predicates {
		if !pred.Match(c) {
			return false
		}
	}
	return true
}

// Ranked reports whether results are ordered by relevance first.
func (p Plan) Ranked() bool {
	return p.Rank != nil
}

// Rank scores matches of a free text query. It is independent of the
// filters: a resource admitted by the substring branch of TextMatch may
// still score zero.
type Rank struct {
	Text string
}

// SQL renders the rank column expression.
func (r Rank) SQL(textConfig string) clause.Expr {
	return clause.Expr{
		SQL:  "ts_rank(to_tsvector(CAST(? AS regconfig), unaccent(" + documentSQL + ")), plainto_tsquery(CAST(? AS regconfig), unaccent(?)))",
		Vars: []any{textConfig, textConfig, r.Text},
	}
}

// Score approximates ts_rank in memory: the share of query terms found in
// the document, damped by how often they occur.
func (r Rank) Score(c Candidate) float64 {
	words := terms(Fold(r.Text))
	if len(words) == 0 {
		return 0
	}
	docWords := strings.Fields(Fold(document(c.Resource)))
	counts := make(map[string]int, len(docWords))
	for _, w := range docWords {
		counts[strings.Trim(w, ".,;:!?()\"'")]++
	}
	var found, hits int
	for _, w := range words {
		if n := counts[w]; n > 0 {
			found++
			hits += n
		}
	}
	if found == 0 {
		return 0
	}
	coverage := float64(found) / float64(len(words))
	return coverage * float64(hits) / float64(hits+1)
}
