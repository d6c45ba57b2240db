package app

import (
	"context"
	"fmt"

	"mayorsearch/pkg/domain"
)

// AddFavorite marks a resource as a favorite of the user.
func (a *App) AddFavorite(ctx context.Context, user domain.User, resourceID int64) (domain.Favorite, error) {
	if err := a.requireResource(ctx, resourceID); err != nil {
		return domain.Favorite{}, err
	}
	fav, err := a.store.AddFavorite(ctx, user.ID, resourceID, a.now().UTC())
	if err != nil {
		return domain.Favorite{}, storeError("add favorite", err, errResourceNotFound, errFavoriteExists)
	}
	return fav, nil
}

func (a *App) RemoveFavorite(ctx context.Context, user domain.User, resourceID int64) error {
	return storeError("remove favorite", a.store.RemoveFavorite(ctx, user.ID, resourceID), errFavoriteNotFound, nil)
}

// ListFavorites returns the user's favorites, most recently added first.
func (a *App) ListFavorites(ctx context.Context, user domain.User) ([]domain.FavoriteResource, error) {
	list, err := a.store.ListFavorites(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if list == nil {
		list = []domain.FavoriteResource{}
	}
	return list, nil
}

func (a *App) IsFavorite(ctx context.Context, user domain.User, resourceID int64) (bool, error) {
	ok, err := a.store.IsFavorite(ctx, user.ID, resourceID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}
