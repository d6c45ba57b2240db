package app

import (
	"context"
	"fmt"
	"strings"

	"mayorsearch/pkg/domain"
)

const (
	maxAuthorNameLen = 150
	maxProfileURLLen = 250
	maxORCIDLen      = 50
	maxTopicNameLen  = 100
	maxTagNameLen    = 100
)

// authors

func (a *App) CreateAuthor(ctx context.Context, in domain.Author) (domain.Author, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateAuthor(in.Name, in.ProfileURL, in.ORCID); err != nil {
		return domain.Author{}, err
	}
	in.ID = 0
	created, err := a.store.CreateAuthor(ctx, in)
	if err != nil {
		return domain.Author{}, storeError("create author", err, nil, nil)
	}
	return created, nil
}

func (a *App) GetAuthor(ctx context.Context, id int64) (domain.Author, error) {
	author, ok, err := a.store.GetAuthor(ctx, id)
	if err != nil {
		return domain.Author{}, fmt.Errorf("get author: %w", err)
	}
	if !ok {
		return domain.Author{}, errAuthorNotFound
	}
	return author, nil
}

func (a *App) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	list, err := a.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return list, nil
}

func (a *App) UpdateAuthor(ctx context.Context, id int64, p domain.AuthorPatch) (domain.Author, error) {
	name := "-"
	if p.Name.Set {
		p.Name.Value = strings.TrimSpace(p.Name.Value)
		name = p.Name.Value
	}
	var profile, orcid *string
	if v, ok := p.ProfileURL.Get(); ok {
		profile = v
	}
	if v, ok := p.ORCID.Get(); ok {
		orcid = v
	}
	if err := validateAuthor(name, profile, orcid); err != nil {
		return domain.Author{}, err
	}
	updated, err := a.store.UpdateAuthor(ctx, id, p)
	if err != nil {
		return domain.Author{}, storeError("update author", err, errAuthorNotFound, nil)
	}
	return updated, nil
}

func (a *App) DeleteAuthor(ctx context.Context, id int64) error {
	return storeError("delete author", a.store.DeleteAuthor(ctx, id), errAuthorNotFound, nil)
}

// AuthorResources lists the resources an author is linked to, with their
// aggregated names.
func (a *App) AuthorResources(ctx context.Context, id int64) ([]domain.ResourceSummary, error) {
	if _, err := a.GetAuthor(ctx, id); err != nil {
		return nil, err
	}
	list, err := a.store.ListResourcesByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list author resources: %w", err)
	}
	if list == nil {
		list = []domain.ResourceSummary{}
	}
	return list, nil
}

func validateAuthor(name string, profile, orcid *string) error {
	if name == "" {
		return invalid("AUTHOR_INVALID_NAME", "El nombre del autor es obligatorio")
	}
	if err := checkLen("AUTHOR_INVALID_NAME", "nombreautor", name, maxAuthorNameLen); err != nil {
		return err
	}
	if profile != nil {
		if err := checkLen("AUTHOR_INVALID_PROFILE", "profileurl", *profile, maxProfileURLLen); err != nil {
			return err
		}
	}
	if orcid != nil {
		if err := checkLen("AUTHOR_INVALID_ORCID", "orcid", *orcid, maxORCIDLen); err != nil {
			return err
		}
	}
	return nil
}

// topics

// CreateTopic inserts a topic. A parent, when given, must exist.
func (a *App) CreateTopic(ctx context.Context, in domain.Topic) (domain.Topic, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateTopicName(in.Name); err != nil {
		return domain.Topic{}, err
	}
	in.ID = 0
	if err := a.checkParent(ctx, 0, in.ParentID); err != nil {
		return domain.Topic{}, err
	}
	created, err := a.store.CreateTopic(ctx, in)
	if err != nil {
		return domain.Topic{}, storeError("create topic", err, parentNotFound(in.ParentID), nil)
	}
	return created, nil
}

func (a *App) GetTopic(ctx context.Context, id int64) (domain.Topic, error) {
	topic, ok, err := a.store.GetTopic(ctx, id)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	if !ok {
		return domain.Topic{}, errTopicNotFound
	}
	return topic, nil
}

func (a *App) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	list, err := a.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return list, nil
}

// UpdateTopic rejects a topic naming itself as parent.
func (a *App) UpdateTopic(ctx context.Context, id int64, p domain.TopicPatch) (domain.Topic, error) {
	if p.Name.Set {
		p.Name.Value = strings.TrimSpace(p.Name.Value)
		if err := validateTopicName(p.Name.Value); err != nil {
			return domain.Topic{}, err
		}
	}
	if _, err := a.GetTopic(ctx, id); err != nil {
		return domain.Topic{}, err
	}
	if parent, ok := p.ParentID.Get(); ok {
		if err := a.checkParent(ctx, id, parent); err != nil {
			return domain.Topic{}, err
		}
	}
	updated, err := a.store.UpdateTopic(ctx, id, p)
	if err != nil {
		return domain.Topic{}, storeError("update topic", err, errTopicNotFound, nil)
	}
	return updated, nil
}

func (a *App) DeleteTopic(ctx context.Context, id int64) error {
	return storeError("delete topic", a.store.DeleteTopic(ctx, id), errTopicNotFound, nil)
}

func (a *App) checkParent(ctx context.Context, self int64, parent *int64) error {
	if parent == nil {
		return nil
	}
	if self != 0 && *parent == self {
		return invalid("TOPIC_INVALID_PARENT", "Un tema no puede ser su propio tema padre")
	}
	if _, ok, err := a.store.GetTopic(ctx, *parent); err != nil {
		return fmt.Errorf("get parent topic: %w", err)
	} else if !ok {
		return parentNotFound(parent)
	}
	return nil
}

func parentNotFound(parent *int64) *Error {
	if parent == nil {
		return nil
	}
	return newError(ErrNotFound, "TOPIC_PARENT_NOT_FOUND", "Tema padre no encontrado")
}

func validateTopicName(name string) error {
	if name == "" {
		return invalid("TOPIC_INVALID_NAME", "El nombre del tema es obligatorio")
	}
	return checkLen("TOPIC_INVALID_NAME", "nombretema", name, maxTopicNameLen)
}

// tags

// CreateTag inserts a tag; names are unique.
func (a *App) CreateTag(ctx context.Context, in domain.Tag) (domain.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateTagName(in.Name); err != nil {
		return domain.Tag{}, err
	}
	in.ID = 0
	created, err := a.store.CreateTag(ctx, in)
	if err != nil {
		return domain.Tag{}, storeError("create tag", err, nil, errTagExists)
	}
	return created, nil
}

func (a *App) GetTag(ctx context.Context, id int64) (domain.Tag, error) {
	tag, ok, err := a.store.GetTag(ctx, id)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("get tag: %w", err)
	}
	if !ok {
		return domain.Tag{}, errTagNotFound
	}
	return tag, nil
}

func (a *App) ListTags(ctx context.Context) ([]domain.Tag, error) {
	list, err := a.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return list, nil
}

func (a *App) UpdateTag(ctx context.Context, id int64, p domain.TagPatch) (domain.Tag, error) {
	if p.Name.Set {
		p.Name.Value = strings.TrimSpace(p.Name.Value)
		if err := validateTagName(p.Name.Value); err != nil {
			return domain.Tag{}, err
		}
	}
	updated, err := a.store.UpdateTag(ctx, id, p)
	if err != nil {
		return domain.Tag{}, storeError("update tag", err, errTagNotFound, errTagExists)
	}
	return updated, nil
}

func (a *App) DeleteTag(ctx context.Context, id int64) error {
	return storeError("delete tag", a.store.DeleteTag(ctx, id), errTagNotFound, nil)
}

func validateTagName(name string) error {
	if name == "" {
		return invalid("TAG_INVALID_NAME", "El nombre de la etiqueta es obligatorio")
	}
	return checkLen("TAG_INVALID_NAME", "nombreetiqueta", name, maxTagNameLen)
}

// links

// LinkAuthor attaches an author to a resource. Both must exist and the pair
// must be new.
func (a *App) LinkAuthor(ctx context.Context, l domain.ResourceAuthor) (domain.ResourceAuthor, error) {
	if err := a.requireResource(ctx, l.ResourceID); err != nil {
		return domain.ResourceAuthor{}, err
	}
	if _, err := a.GetAuthor(ctx, l.AuthorID); err != nil {
		return domain.ResourceAuthor{}, err
	}
	if l.Order != nil && *l.Order < 0 {
		return domain.ResourceAuthor{}, invalid("LINK_INVALID_ORDER", "El orden debe ser mayor o igual a cero")
	}
	if err := a.store.AddResourceAuthor(ctx, l); err != nil {
		return domain.ResourceAuthor{}, storeError("link author", err, errResourceNotFound, errLinkExists)
	}
	return l, nil
}

func (a *App) ListAuthorLinks(ctx context.Context) ([]domain.ResourceAuthor, error) {
	list, err := a.store.ListResourceAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list author links: %w", err)
	}
	return list, nil
}

func (a *App) UnlinkAuthor(ctx context.Context, resourceID, authorID int64) error {
	return storeError("unlink author", a.store.RemoveResourceAuthor(ctx, resourceID, authorID), errLinkNotFound, nil)
}

func (a *App) LinkTopic(ctx context.Context, l domain.ResourceTopic) (domain.ResourceTopic, error) {
	if err := a.requireResource(ctx, l.ResourceID); err != nil {
		return domain.ResourceTopic{}, err
	}
	if _, err := a.GetTopic(ctx, l.TopicID); err != nil {
		return domain.ResourceTopic{}, err
	}
	if err := a.store.AddResourceTopic(ctx, l); err != nil {
		return domain.ResourceTopic{}, storeError("link topic", err, errResourceNotFound, errLinkExists)
	}
	return l, nil
}

func (a *App) ListTopicLinks(ctx context.Context) ([]domain.ResourceTopic, error) {
	list, err := a.store.ListResourceTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topic links: %w", err)
	}
	return list, nil
}

func (a *App) UnlinkTopic(ctx context.Context, resourceID, topicID int64) error {
	return storeError("unlink topic", a.store.RemoveResourceTopic(ctx, resourceID, topicID), errLinkNotFound, nil)
}

func (a *App) LinkTag(ctx context.Context, l domain.ResourceTag) (domain.ResourceTag, error) {
	if err := a.requireResource(ctx, l.ResourceID); err != nil {
		return domain.ResourceTag{}, err
	}
	if _, err := a.GetTag(ctx, l.TagID); err != nil {
		return domain.ResourceTag{}, err
	}
	if err := a.store.AddResourceTag(ctx, l); err != nil {
		return domain.ResourceTag{}, storeError("link tag", err, errResourceNotFound, errLinkExists)
	}
	return l, nil
}

func (a *App) ListTagLinks(ctx context.Context) ([]domain.ResourceTag, error) {
	list, err := a.store.ListResourceTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tag links: %w", err)
	}
	return list, nil
}

func (a *App) UnlinkTag(ctx context.Context, resourceID, tagID int64) error {
	return storeError("unlink tag", a.store.RemoveResourceTag(ctx, resourceID, tagID), errLinkNotFound, nil)
}

func (a *App) requireResource(ctx context.Context, id int64) error {
	_, ok, err := a.store.GetResource(ctx, id)
	if err != nil {
		return fmt.Errorf("get resource: %w", err)
	}
	if !ok {
		return errResourceNotFound
	}
	return nil
}
