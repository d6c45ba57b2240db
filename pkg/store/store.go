package store

import (
	"context"
	"time"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
)

// Store defines persistence operations for the catalog, users and favorites.
// Lookups return (value, found, err); updates and deletes of absent rows
// return ErrNotFound.
type Store interface {
	// files
	CreateFile(ctx context.Context, f domain.File) (domain.File, error)
	GetFile(ctx context.Context, id int64) (domain.File, bool, error)
	DeleteFile(ctx context.Context, id int64) error

	// resources
	CreateResource(ctx context.Context, r domain.Resource) (domain.Resource, error)
	GetResource(ctx context.Context, id int64) (domain.Resource, bool, error)
	ListResources(ctx context.Context) ([]domain.Resource, error)
	UpdateResource(ctx context.Context, id int64, p domain.ResourcePatch) (domain.Resource, error)
	// DeleteResource removes the resource and its file row and returns what
	// was deleted so the caller can drop the stored object.
	DeleteResource(ctx context.Context, id int64) (domain.Resource, error)
	SearchResources(ctx context.Context, plan search.Plan) (domain.SearchPage, error)
	ListResourcesByAuthor(ctx context.Context, authorID int64) ([]domain.ResourceSummary, error)

	// authors
	CreateAuthor(ctx context.Context, a domain.Author) (domain.Author, error)
	GetAuthor(ctx context.Context, id int64) (domain.Author, bool, error)
	ListAuthors(ctx context.Context) ([]domain.Author, error)
	UpdateAuthor(ctx context.Context, id int64, p domain.AuthorPatch) (domain.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	// topics
	CreateTopic(ctx context.Context, t domain.Topic) (domain.Topic, error)
	GetTopic(ctx context.Context, id int64) (domain.Topic, bool, error)
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	UpdateTopic(ctx context.Context, id int64, p domain.TopicPatch) (domain.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error

	// tags
	CreateTag(ctx context.Context, t domain.Tag) (domain.Tag, error)
	GetTag(ctx context.Context, id int64) (domain.Tag, bool, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	UpdateTag(ctx context.Context, id int64, p domain.TagPatch) (domain.Tag, error)
	DeleteTag(ctx context.Context, id int64) error

	// links
	AddResourceAuthor(ctx context.Context, l domain.ResourceAuthor) error
	ListResourceAuthors(ctx context.Context) ([]domain.ResourceAuthor, error)
	RemoveResourceAuthor(ctx context.Context, resourceID, authorID int64) error
	AddResourceTopic(ctx context.Context, l domain.ResourceTopic) error
	ListResourceTopics(ctx context.Context) ([]domain.ResourceTopic, error)
	RemoveResourceTopic(ctx context.Context, resourceID, topicID int64) error
	AddResourceTag(ctx context.Context, l domain.ResourceTag) error
	ListResourceTags(ctx context.Context) ([]domain.ResourceTag, error)
	RemoveResourceTag(ctx context.Context, resourceID, tagID int64) error

	// users
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int64, p domain.UserPatch) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error

	// favorites
	AddFavorite(ctx context.Context, userID, resourceID int64, at time.Time) (domain.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, resourceID int64) error
	IsFavorite(ctx context.Context, userID, resourceID int64) (bool, error)
	ListFavorites(ctx context.Context, userID int64) ([]domain.FavoriteResource, error)

	Ping(ctx context.Context) error
}
