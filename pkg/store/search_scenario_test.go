package store

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)

var scenarioNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

type catalogFixture struct {
	hojaDeVida domain.Resource
	redes      domain.Resource
	botanica   domain.Resource
	sinFecha   domain.Resource
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int        { return &n }

func datePtr(t *testing.T, raw string) *domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return &d
}

func seedCatalog(t *testing.T, s Store) catalogFixture {
	t.Helper()
	ctx := context.Background()
	mustResource := func(r domain.Resource) domain.Resource {
		created, err := s.CreateResource(ctx, r)
		if err != nil {
			t.Fatalf("create resource: %v", err)
		}
		return created
	}
	var fx catalogFixture
	fx.hojaDeVida = mustResource(domain.Resource{
		Title:       "Hoja de Vida del Investigador",
		Type:        "Tesis",
		Description: strPtr("Guía para armar la hoja de vida académica"),
		PublishedOn: datePtr(t, "2024-05-18"),
		Language:    strPtr("Español"),
		Verified:    true,
		CreatedAt:   scenarioNow.Add(-4 * time.Hour),
	})
	fx.redes = mustResource(domain.Resource{
		Title:       "Redes neuronales aplicadas",
		Type:        "Artículo",
		Content:     strPtr("redes neuronales convolucionales y redes recurrentes"),
		PublishedOn: datePtr(t, "2023-03-01"),
		Language:    strPtr("Español"),
		CreatedAt:   scenarioNow.Add(-3 * time.Hour),
	})
	fx.botanica = mustResource(domain.Resource{
		Title:       "Botánica del páramo",
		Type:        "Tesis",
		PublishedOn: datePtr(t, "2023-08-10"),
		Location:    strPtr("Biblioteca Central"),
		CreatedAt:   scenarioNow.Add(-2 * time.Hour),
	})
	fx.sinFecha = mustResource(domain.Resource{
		Title:     "Manual de redes",
		Type:      "Libro",
		CreatedAt: scenarioNow.Add(-1 * time.Hour),
	})

	tesis, err := s.CreateTag(ctx, domain.Tag{Name: "tesis"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	y2023, err := s.CreateTag(ctx, domain.Tag{Name: "2023"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	for _, l := range []domain.ResourceTag{
		{ResourceID: fx.botanica.ID, TagID: tesis.ID},
		{ResourceID: fx.botanica.ID, TagID: y2023.ID},
		{ResourceID: fx.hojaDeVida.ID, TagID: tesis.ID},
		{ResourceID: fx.redes.ID, TagID: y2023.ID},
	} {
		if err := s.AddResourceTag(ctx, l); err != nil {
			t.Fatalf("link tag: %v", err)
		}
	}

	ana, err := s.CreateAuthor(ctx, domain.Author{Name: "Ana Gómez"})
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	luis, err := s.CreateAuthor(ctx, domain.Author{Name: "Luis Pérez"})
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	for _, l := range []domain.ResourceAuthor{
		{ResourceID: fx.redes.ID, AuthorID: luis.ID, Order: intPtr(1)},
		{ResourceID: fx.redes.ID, AuthorID: ana.ID, Order: intPtr(2)},
		{ResourceID: fx.botanica.ID, AuthorID: ana.ID, Order: intPtr(1)},
	} {
		if err := s.AddResourceAuthor(ctx, l); err != nil {
			t.Fatalf("link author: %v", err)
		}
	}

	topic, err := s.CreateTopic(ctx, domain.Topic{Name: "Inteligencia artificial"})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	if err := s.AddResourceTopic(ctx, domain.ResourceTopic{ResourceID: fx.redes.ID, TopicID: topic.ID}); err != nil {
		t.Fatalf("link topic: %v", err)
	}
	return fx
}

func runSearch(t *testing.T, s Store, values url.Values) domain.SearchPage {
	t.Helper()
	q, err := search.Parse(values, scenarioNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	page, err := s.SearchResources(context.Background(), q.Plan())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	return page
}

func ids(page domain.SearchPage) []int64 {
	out := make([]int64, 0, len(page.Results))
	for _, hit := range page.Results {
		out = append(out, hit.ID)
	}
	return out
}

func sameIDs(got []int64, want ...int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// runSearchScenario checks the search contract against any Store.
func runSearchScenario(t *testing.T, s Store) {
	fx := seedCatalog(t, s)

	t.Run("no text orders by creation and ranks zero", func(t *testing.T) {
		page := runSearch(t, s, url.Values{})
		if page.Total != 4 {
			t.Fatalf("expected 4 results, got %d", page.Total)
		}
		if !sameIDs(ids(page), fx.sinFecha.ID, fx.botanica.ID, fx.redes.ID, fx.hojaDeVida.ID) {
			t.Fatalf("unexpected order %v", ids(page))
		}
		for _, hit := range page.Results {
			if hit.Rank != 0 {
				t.Fatalf("expected zero rank, got %f", hit.Rank)
			}
		}
	})

	t.Run("all tags required", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"etiquetas": {"tesis,2023"}})
		if !sameIDs(ids(page), fx.botanica.ID) {
			t.Fatalf("expected only botanica, got %v", ids(page))
		}
		if !strings.Contains(page.Results[0].Tags, "tesis") || !strings.Contains(page.Results[0].Tags, "2023") {
			t.Fatalf("unexpected tags %q", page.Results[0].Tags)
		}
	})

	t.Run("compound words and accents", func(t *testing.T) {
		for _, q := range []string{"hojadevida", "HOJA DE VIDA", "investigádor"} {
			page := runSearch(t, s, url.Values{"q": {q}})
			if !sameIDs(ids(page), fx.hojaDeVida.ID) {
				t.Fatalf("q=%q: expected hoja de vida, got %v", q, ids(page))
			}
		}
	})

	t.Run("author names match", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"q": {"ana gomez"}})
		if !sameIDs(ids(page), fx.botanica.ID, fx.redes.ID) {
			t.Fatalf("unexpected results %v", ids(page))
		}
	})

	t.Run("ranked text search", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"q": {"redes"}})
		if page.Total != 2 {
			t.Fatalf("expected 2 results, got %d (%v)", page.Total, ids(page))
		}
		if page.Results[0].ID != fx.redes.ID {
			t.Fatalf("expected redes first, got %v", ids(page))
		}
		if page.Results[0].Rank <= 0 {
			t.Fatalf("expected positive rank, got %f", page.Results[0].Rank)
		}
		if page.Results[0].Authors != "Luis Pérez, Ana Gómez" {
			t.Fatalf("unexpected authors %q", page.Results[0].Authors)
		}
		if page.Results[0].Topics != "Inteligencia artificial" {
			t.Fatalf("unexpected topics %q", page.Results[0].Topics)
		}
	})

	t.Run("recent bucket", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"fecha": {"reciente"}})
		if !sameIDs(ids(page), fx.hojaDeVida.ID) {
			t.Fatalf("expected hoja de vida only, got %v", ids(page))
		}
	})

	t.Run("explicit range inclusive", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"fecha_inicio": {"2023-03-01"}, "fecha_fin": {"2023-08-10"}})
		if !sameIDs(ids(page), fx.botanica.ID, fx.redes.ID) {
			t.Fatalf("unexpected results %v", ids(page))
		}
	})

	t.Run("partial field filters", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"tiporecurso": {"TESIS"}, "verificado": {"false"}})
		if !sameIDs(ids(page), fx.botanica.ID) {
			t.Fatalf("unexpected results %v", ids(page))
		}
		page = runSearch(t, s, url.Values{"idioma": {"espanol"}, "ubicacion": {""}})
		if page.Total != 2 {
			t.Fatalf("expected 2 spanish results, got %d", page.Total)
		}
	})

	t.Run("total is the unpaged count", func(t *testing.T) {
		page := runSearch(t, s, url.Values{"limit": {"1"}, "offset": {"1"}})
		if page.Total != 4 || len(page.Results) != 1 {
			t.Fatalf("expected total 4 with one row, got total=%d rows=%d", page.Total, len(page.Results))
		}
		if page.Results[0].ID != fx.botanica.ID {
			t.Fatalf("unexpected page row %d", page.Results[0].ID)
		}
		page = runSearch(t, s, url.Values{"offset": {"10"}})
		if page.Total != 4 || len(page.Results) != 0 {
			t.Fatalf("expected empty page past the end, got total=%d rows=%d", page.Total, len(page.Results))
		}
	})
}
