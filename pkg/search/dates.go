package search

import (
	"strings"
	"time"

	"mayorsearch/pkg/domain"
)

// bucketDays maps the relative date aliases accepted by the fecha parameter.
var bucketDays = map[string]int{
	"reciente":    7,
	"recientes":   7,
	"recent":      7,
	"mes":         30,
	"ultimo_mes":  30,
	"month":       30,
	"anio":        365,
	"ultimo_anio": 365,
	"year":        365,
}

// DateBounds is an inclusive publication date range. A nil bound is open.
type DateBounds struct {
	From *domain.Date
	To   *domain.Date
}

func (b DateBounds) Empty() bool {
	return b.From == nil && b.To == nil
}

// Contains reports whether d falls inside the bounds.
func (b DateBounds) Contains(d domain.Date) bool {
	if b.From != nil && d.Before(b.From.Time) {
		return false
	}
	if b.To != nil && d.After(b.To.Time) {
		return false
	}
	return true
}

// ResolveDates turns the explicit range and the relative bucket into bounds.
// Unparseable explicit bounds are dropped. When at least one explicit bound
// survives it wins over the bucket; otherwise a known bucket yields the range
// [today-N days, today]. Unknown buckets produce no bounds.
func ResolveDates(start, end, bucket string, now time.Time) DateBounds {
	var out DateBounds
	if d, ok := parseLenient(start); ok {
		out.From = &d
	}
	if d, ok := parseLenient(end); ok {
		out.To = &d
	}
	if !out.Empty() {
		return out
	}
	days, ok := bucketDays[strings.ToLower(strings.TrimSpace(bucket))]
	if !ok {
		return out
	}
	today := domain.NewDate(now)
	from := domain.NewDate(today.AddDate(0, 0, -days))
	out.From = &from
	out.To = &today
	return out
}

func parseLenient(raw string) (domain.Date, bool) {
	if strings.TrimSpace(raw) == "" {
		return domain.Date{}, false
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, false
	}
	return d, true
}
