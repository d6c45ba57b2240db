package app

import (
	"context"
	"testing"
	"time"
)

func TestFavorites(t *testing.T) {
	clock := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, func(c *Config) {
		c.Now = func() time.Time { return clock }
	})
	ctx := context.Background()
	user := registerUser(t, env, "laura@example.com")

	first, err := env.app.CreateResource(ctx, ResourceInput{Title: "Primero", Type: "libro"}, pdfUpload("a.pdf"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := env.app.CreateResource(ctx, ResourceInput{Title: "Segundo", Type: "libro"}, pdfUpload("b.pdf"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.app.AddFavorite(ctx, user, first.ID); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	clock = clock.Add(time.Minute)
	fav, err := env.app.AddFavorite(ctx, user, second.ID)
	if err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if !fav.AddedAt.Equal(clock) {
		t.Fatalf("added at = %v", fav.AddedAt)
	}

	_, err = env.app.AddFavorite(ctx, user, first.ID)
	assertKind(t, err, ErrConflict, "FAVORITE_CONFLICT")
	_, err = env.app.AddFavorite(ctx, user, 999)
	assertKind(t, err, ErrNotFound, "RESOURCE_NOT_FOUND")

	list, err := env.app.ListFavorites(ctx, user)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest favorite first, got %+v", list)
	}

	ok, err := env.app.IsFavorite(ctx, user, first.ID)
	if err != nil || !ok {
		t.Fatalf("is favorite: %v %v", ok, err)
	}
	if err := env.app.RemoveFavorite(ctx, user, first.ID); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	assertKind(t, env.app.RemoveFavorite(ctx, user, first.ID), ErrNotFound, "FAVORITE_NOT_FOUND")
	if ok, _ := env.app.IsFavorite(ctx, user, first.ID); ok {
		t.Fatal("favorite should be gone")
	}
}
