package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"mayorsearch/pkg/domain"
)

// openTestGormStore connects to CATALOG_TEST_DATABASE_URL and empties every
// catalog table. The database must be disposable.
func openTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("CATALOG_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("CATALOG_TEST_DATABASE_URL not set")
	}
	s, err := NewGormStore(dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.db.Exec(`TRUNCATE favorito, recurso_autor, recurso_tema, recurso_etiqueta,
		recurso, archivo, autor, tema, etiqueta, usuario RESTART IDENTITY CASCADE`).Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestGormStoreSearch(t *testing.T) {
	s := openTestGormStore(t)
	runSearchScenario(t, s)
}

func TestGormStoreConstraints(t *testing.T) {
	s := openTestGormStore(t)
	ctx := context.Background()

	if _, err := s.CreateTag(ctx, domain.Tag{Name: "tesis"}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := s.CreateTag(ctx, domain.Tag{Name: "tesis"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	r, err := s.CreateResource(ctx, domain.Resource{Title: "Uno", Type: "Tesis"})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if err := s.AddResourceTopic(ctx, domain.ResourceTopic{ResourceID: r.ID, TopicID: 999}); !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}

	u, err := s.CreateUser(ctx, domain.User{Name: "Ana", Email: "ana@example.com", Role: domain.RoleNormal, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, domain.User{Name: "Ana", Email: "ana@example.com", Role: domain.RoleNormal}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.AddFavorite(ctx, u.ID, r.ID, time.Now()); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if _, err := s.DeleteResource(ctx, r.ID); err != nil {
		t.Fatalf("delete resource: %v", err)
	}
	if fav, err := s.IsFavorite(ctx, u.ID, r.ID); err != nil || fav {
		t.Fatalf("expected favorite cascaded away: fav=%v err=%v", fav, err)
	}
	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
