// Package search composes the filtered, ranked and paginated resource query.
//
// Parse turns request parameters into a Query, Query.Plan turns that into an
// ordered set of typed predicates, and the store applies the plan to gorm.
// Every value reaches SQL as a bound parameter.
package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidParam marks a malformed or out-of-range query parameter.
var ErrInvalidParam = errors.New("invalid search parameter")

// Query is the parsed form of a search request.
type Query struct {
	Text     string
	Type     string
	Language string
	Location string
	Verified *bool
	Tags     []string
	Dates    DateBounds
	Limit    int
	Offset   int
}

// Parse reads the search parameters. Malformed pagination and verificado
// values are rejected with ErrInvalidParam; malformed dates are ignored.
func Parse(values url.Values, now time.Time) (Query, error) {
	q := Query{
		Text:     strings.TrimSpace(values.Get("q")),
		Type:     strings.TrimSpace(values.Get("tiporecurso")),
		Language: strings.TrimSpace(values.Get("idioma")),
		Location: strings.TrimSpace(values.Get("ubicacion")),
		Tags:     SplitTags(values.Get("etiquetas")),
		Limit:    DefaultLimit,
	}

	if raw := strings.TrimSpace(values.Get("verificado")); raw != "" {
		v, err := parseBool(raw)
		if err != nil {
			return Query{}, fmt.Errorf("%w: verificado: %v", ErrInvalidParam, err)
		}
		q.Verified = &v
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			return Query{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParam, MaxLimit)
		}
		q.Limit = n
	}
	if raw := strings.TrimSpace(values.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Query{}, fmt.Errorf("%w: offset must be a non-negative integer", ErrInvalidParam)
		}
		q.Offset = n
	}

	q.Dates = ResolveDates(values.Get("fecha_inicio"), values.Get("fecha_fin"), values.Get("fecha"), now)
	return q, nil
}

// SplitTags splits a comma-separated tag list, dropping blanks and repeats.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := Fold(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "t", "si", "sí", "yes":
		return true, nil
	case "false", "0", "f", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized boolean %q", raw)
}
