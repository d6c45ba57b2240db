package app

import (
	"context"
	"net/url"
	"testing"
	"time"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/patch"
	"mayorsearch/pkg/search"
)

func TestAuthorCRUDAndResources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author, err := env.app.CreateAuthor(ctx, domain.Author{Name: " Ana Gómez ", ORCID: strPtr("0000-0001-2345-6789")})
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	if author.Name != "Ana Gómez" {
		t.Fatalf("name not trimmed: %q", author.Name)
	}

	_, err = env.app.CreateAuthor(ctx, domain.Author{Name: ""})
	assertKind(t, err, ErrValidation, "AUTHOR_INVALID_NAME")

	updated, err := env.app.UpdateAuthor(ctx, author.ID, domain.AuthorPatch{ProfileURL: patch.Of(strPtr("https://perfil.example/ana"))})
	if err != nil {
		t.Fatalf("update author: %v", err)
	}
	if updated.Name != "Ana Gómez" || updated.ProfileURL == nil || updated.ORCID == nil {
		t.Fatalf("unexpected author after update %+v", updated)
	}

	res, err := env.app.CreateResource(ctx, ResourceInput{Title: "Grafos", Type: "libro"}, pdfUpload("grafos.pdf"))
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	order := 1
	if _, err := env.app.LinkAuthor(ctx, domain.ResourceAuthor{ResourceID: res.ID, AuthorID: author.ID, Order: &order}); err != nil {
		t.Fatalf("link author: %v", err)
	}
	list, err := env.app.AuthorResources(ctx, author.ID)
	if err != nil {
		t.Fatalf("author resources: %v", err)
	}
	if len(list) != 1 || list[0].ID != res.ID || list[0].Authors != "Ana Gómez" {
		t.Fatalf("unexpected author resources %+v", list)
	}

	_, err = env.app.AuthorResources(ctx, 999)
	assertKind(t, err, ErrNotFound, "AUTHOR_NOT_FOUND")

	if err := env.app.DeleteAuthor(ctx, author.ID); err != nil {
		t.Fatalf("delete author: %v", err)
	}
	assertKind(t, env.app.DeleteAuthor(ctx, author.ID), ErrNotFound, "AUTHOR_NOT_FOUND")
}

func TestTopicParentRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root, err := env.app.CreateTopic(ctx, domain.Topic{Name: "Matemáticas"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, err := env.app.CreateTopic(ctx, domain.Topic{Name: "Análisis Numérico", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Fatalf("unexpected parent %+v", child)
	}

	missing := int64(404)
	_, err = env.app.CreateTopic(ctx, domain.Topic{Name: "Huérfano", ParentID: &missing})
	assertKind(t, err, ErrNotFound, "TOPIC_PARENT_NOT_FOUND")

	_, err = env.app.UpdateTopic(ctx, child.ID, domain.TopicPatch{ParentID: patch.Of(&child.ID)})
	assertKind(t, err, ErrValidation, "TOPIC_INVALID_PARENT")

	cleared, err := env.app.UpdateTopic(ctx, child.ID, domain.TopicPatch{ParentID: patch.Of[*int64](nil)})
	if err != nil {
		t.Fatalf("clear parent: %v", err)
	}
	if cleared.ParentID != nil || cleared.Name != "Análisis Numérico" {
		t.Fatalf("unexpected topic %+v", cleared)
	}

	_, err = env.app.UpdateTopic(ctx, 999, domain.TopicPatch{Name: patch.Of("x")})
	assertKind(t, err, ErrNotFound, "TOPIC_NOT_FOUND")
}

func TestTagNamesAreUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tesis, err := env.app.CreateTag(ctx, domain.Tag{Name: "tesis"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	_, err = env.app.CreateTag(ctx, domain.Tag{Name: " tesis "})
	assertKind(t, err, ErrConflict, "TAG_CONFLICT")

	other, err := env.app.CreateTag(ctx, domain.Tag{Name: "2023"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	_, err = env.app.UpdateTag(ctx, other.ID, domain.TagPatch{Name: patch.Of("tesis")})
	assertKind(t, err, ErrConflict, "TAG_CONFLICT")

	_, err = env.app.UpdateTag(ctx, tesis.ID, domain.TagPatch{Name: patch.Of("")})
	assertKind(t, err, ErrValidation, "TAG_INVALID_NAME")

	assertKind(t, env.app.DeleteTag(ctx, 999), ErrNotFound, "TAG_NOT_FOUND")
}

func TestLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.app.CreateResource(ctx, ResourceInput{Title: "Tesis de grado", Type: "tesis"}, pdfUpload("tesis.pdf"))
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	topic, _ := env.app.CreateTopic(ctx, domain.Topic{Name: "Redes"})
	tag, _ := env.app.CreateTag(ctx, domain.Tag{Name: "tesis"})

	if _, err := env.app.LinkTopic(ctx, domain.ResourceTopic{ResourceID: res.ID, TopicID: topic.ID}); err != nil {
		t.Fatalf("link topic: %v", err)
	}
	_, err = env.app.LinkTopic(ctx, domain.ResourceTopic{ResourceID: res.ID, TopicID: topic.ID})
	assertKind(t, err, ErrConflict, "LINK_CONFLICT")

	_, err = env.app.LinkTag(ctx, domain.ResourceTag{ResourceID: 999, TagID: tag.ID})
	assertKind(t, err, ErrNotFound, "RESOURCE_NOT_FOUND")
	_, err = env.app.LinkTag(ctx, domain.ResourceTag{ResourceID: res.ID, TagID: 999})
	assertKind(t, err, ErrNotFound, "TAG_NOT_FOUND")
	_, err = env.app.LinkAuthor(ctx, domain.ResourceAuthor{ResourceID: res.ID, AuthorID: 999})
	assertKind(t, err, ErrNotFound, "AUTHOR_NOT_FOUND")

	if _, err := env.app.LinkTag(ctx, domain.ResourceTag{ResourceID: res.ID, TagID: tag.ID}); err != nil {
		t.Fatalf("link tag: %v", err)
	}
	links, err := env.app.ListTagLinks(ctx)
	if err != nil || len(links) != 1 {
		t.Fatalf("list tag links: %v %v", links, err)
	}

	if err := env.app.UnlinkTag(ctx, res.ID, tag.ID); err != nil {
		t.Fatalf("unlink tag: %v", err)
	}
	assertKind(t, env.app.UnlinkTag(ctx, res.ID, tag.ID), ErrNotFound, "LINK_NOT_FOUND")
	assertKind(t, env.app.UnlinkAuthor(ctx, res.ID, 1), ErrNotFound, "LINK_NOT_FOUND")
}

func TestSearchThroughApp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, title := range []string{"Hoja de Vida", "Redes Neuronales"} {
		if _, err := env.app.CreateResource(ctx, ResourceInput{Title: title, Type: "documento"}, pdfUpload("doc.pdf")); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}
	q, err := search.Parse(url.Values{"q": {"hojadevida"}}, time.Now())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	page, err := env.app.Search(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 || len(page.Results) != 1 || page.Results[0].Title != "Hoja de Vida" {
		t.Fatalf("unexpected page %+v", page)
	}

	q, _ = search.Parse(url.Values{"tiporecurso": {"inexistente"}}, time.Now())
	page, err = env.app.Search(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 0 || page.Results == nil {
		t.Fatalf("expected empty non-nil results, got %+v", page)
	}
}
