package search

import (
	"strings"

	"gorm.io/gorm/clause"

	"mayorsearch/pkg/domain"
)

// Field names a filterable resource column.
type Field string

const (
	FieldType     Field = "tiporecurso"
	FieldLanguage Field = "idioma"
	FieldLocation Field = "ubicacion"
	FieldVerified Field = "verificado"
)

func (f Field) column() string {
	return "r." + string(f)
}

// Candidate is a resource with the linked names the predicates look at.
// The in-memory store evaluates plans against candidates.
type Candidate struct {
	Resource domain.Resource
	Authors  []string
	Tags     []string
}

func (c Candidate) value(f Field) any {
	switch f {
	case FieldType:
		return c.Resource.Type
	case FieldLanguage:
		return deref(c.Resource.Language)
	case FieldLocation:
		return deref(c.Resource.Location)
	case FieldVerified:
		return c.Resource.Verified
	}
	return nil
}

// Predicate is one filter of a search plan. The set of implementations is
// closed: Equals, Contains, DateRange, HasAllTags and TextMatch.
type Predicate interface {
	// SQL renders the predicate against the recurso table aliased as r.
	SQL(textConfig string) clause.Expr
	// Match evaluates the same predicate in memory.
	Match(Candidate) bool
	isPredicate()
}

// Equals is exact equality on a column.
type Equals struct {
	Field Field
	Value any
}

func (p Equals) SQL(string) clause.Expr {
	return clause.Expr{SQL: p.Field.column() + " = ?", Vars: []any{p.Value}}
}

func (p Equals) Match(c Candidate) bool {
	return c.value(p.Field) == p.Value
}

func (Equals) isPredicate() {}

// Contains is a case and accent insensitive substring match.
type Contains struct {
	Field Field
	Value string
}

func (p Contains) SQL(string) clause.Expr {
	return clause.Expr{
		SQL:  "lower(unaccent(COALESCE(" + p.Field.column() + ", ''))) LIKE ?",
		Vars: []any{likePattern(Fold(p.Value))},
	}
}

func (p Contains) Match(c Candidate) bool {
	s, _ := c.value(p.Field).(string)
	return strings.Contains(Fold(s), Fold(p.Value))
}

func (Contains) isPredicate() {}

// DateRange keeps resources whose publication date lies inside the bounds.
// Resources without a publication date never match a non-empty range.
type DateRange struct {
	Bounds DateBounds
}

func (p DateRange) SQL(string) clause.Expr {
	var (
		parts []string
		vars  []any
	)
	if p.Bounds.From != nil {
		parts = append(parts, "r.fechapublicacion >= CAST(? AS date)")
		vars = append(vars, p.Bounds.From.String())
	}
	if p.Bounds.To != nil {
		parts = append(parts, "r.fechapublicacion <= CAST(? AS date)")
		vars = append(vars, p.Bounds.To.String())
	}
	if len(parts) == 0 {
		return clause.Expr{SQL: "TRUE"}
	}
	return clause.Expr{SQL: strings.Join(parts, " AND "), Vars: vars}
}

func (p DateRange) Match(c Candidate) bool {
	if p.Bounds.Empty() {
		return true
	}
	if c.Resource.PublishedOn == nil {
		return false
	}
	return p.Bounds.Contains(*c.Resource.PublishedOn)
}

func (DateRange) isPredicate() {}

// HasAllTags keeps resources linked to every listed tag. Names compare folded.
type HasAllTags struct {
	Names []string
}

func (p HasAllTags) folded() []string {
	out := make([]string, 0, len(p.Names))
	seen := make(map[string]struct{}, len(p.Names))
	for _, name := range p.Names {
		key := Fold(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func (p HasAllTags) SQL(string) clause.Expr {
	names := p.folded()
	if len(names) == 0 {
		return clause.Expr{SQL: "TRUE"}
	}
	return clause.Expr{
		SQL: `r.idrecurso IN (
			SELECT re.idrecurso
			FROM recurso_etiqueta re
			JOIN etiqueta e ON e.idetiqueta = re.idetiqueta
			WHERE lower(unaccent(e.nombreetiqueta)) IN ?
			GROUP BY re.idrecurso
			HAVING COUNT(DISTINCT lower(unaccent(e.nombreetiqueta))) = ?)`,
		Vars: []any{names, len(names)},
	}
}

func (p HasAllTags) Match(c Candidate) bool {
	have := make(map[string]struct{}, len(c.Tags))
	for _, tag := range c.Tags {
		have[Fold(tag)] = struct{}{}
	}
	for _, want := range p.folded() {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}

func (HasAllTags) isPredicate() {}

// TextMatch is the free text filter. A resource matches when the full text
// query hits its document, or when the folded text (or the folded text with
// whitespace removed) occurs in the title, description, content or the name
// of a linked author.
type TextMatch struct {
	Text string
}

const documentSQL = "COALESCE(r.titulo, '') || ' ' || COALESCE(r.descripcion, '') || ' ' || COALESCE(r.contenidotexto, '')"

func foldedSQL(col string) string {
	return "lower(unaccent(COALESCE(" + col + ", '')))"
}

func compactSQL(col string) string {
	return `regexp_replace(` + foldedSQL(col) + `, '\s+', '', 'g')`
}

func (p TextMatch) SQL(textConfig string) clause.Expr {
	folded := likePattern(Fold(p.Text))
	compact := likePattern(Compact(p.Text))

	var b strings.Builder
	vars := make([]any, 0, 12)
	b.WriteString("(to_tsvector(CAST(? AS regconfig), unaccent(" + documentSQL + ")) @@ plainto_tsquery(CAST(? AS regconfig), unaccent(?))")
	vars = append(vars, textConfig, textConfig, p.Text)
	for _, col := range []string{"r.titulo", "r.descripcion", "r.contenidotexto"} {
		b.WriteString(" OR " + foldedSQL(col) + " LIKE ?")
		b.WriteString(" OR " + compactSQL(col) + " LIKE ?")
		vars = append(vars, folded, compact)
	}
	b.WriteString(` OR EXISTS (
		SELECT 1 FROM recurso_autor ra
		JOIN autor a ON a.idautor = ra.idautor
		WHERE ra.idrecurso = r.idrecurso
		AND (` + foldedSQL("a.nombreautor") + ` LIKE ? OR ` + compactSQL("a.nombreautor") + ` LIKE ?)))`)
	vars = append(vars, folded, compact)
	return clause.Expr{SQL: b.String(), Vars: vars}
}

func (p TextMatch) Match(c Candidate) bool {
	folded := Fold(p.Text)
	compact := Compact(p.Text)
	if folded == "" {
		return true
	}
	fields := []string{c.Resource.Title, deref(c.Resource.Description), deref(c.Resource.Content)}
	fields = append(fields, c.Authors...)
	for _, field := range fields {
		if strings.Contains(Fold(field), folded) || strings.Contains(Compact(field), compact) {
			return true
		}
	}
	return allTerms(Fold(document(c.Resource)), terms(folded))
}

func (TextMatch) isPredicate() {}

func document(r domain.Resource) string {
	return r.Title + " " + deref(r.Description) + " " + deref(r.Content)
}

func terms(folded string) []string {
	return strings.Fields(folded)
}

func allTerms(doc string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	docWords := make(map[string]struct{})
	for _, w := range strings.Fields(doc) {
		docWords[strings.Trim(w, ".,;:!?()\"'")] = struct{}{}
	}
	for _, w := range words {
		if _, ok := docWords[w]; !ok {
			return false
		}
	}
	return true
}

// likePattern wraps s for a LIKE substring match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
