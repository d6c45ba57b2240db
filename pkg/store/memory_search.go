package store

import (
	"context"
	"sort"
	"strings"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
)

// candidate collects the linked names of a resource. Callers hold m.mu.
func (m *MemoryStore) candidate(r domain.Resource) (search.Candidate, domain.ResourceSummary) {
	type ordered struct {
		name  string
		order int
	}
	byName := make(map[string]int)
	for k, l := range m.resAuthor {
		if k.a != r.ID {
			continue
		}
		a, ok := m.authors[k.b]
		if !ok {
			continue
		}
		o := orderOf(l.Order)
		if prev, seen := byName[a.Name]; !seen || o < prev {
			byName[a.Name] = o
		}
	}
	authors := make([]ordered, 0, len(byName))
	for name, o := range byName {
		authors = append(authors, ordered{name, o})
	}
	sort.Slice(authors, func(i, j int) bool {
		if authors[i].order != authors[j].order {
			return authors[i].order < authors[j].order
		}
		return authors[i].name < authors[j].name
	})
	authorNames := make([]string, 0, len(authors))
	for _, a := range authors {
		authorNames = append(authorNames, a.name)
	}

	var topicNames, tagNames []string
	for k := range m.resTopic {
		if t, ok := m.topics[k.b]; ok && k.a == r.ID {
			topicNames = append(topicNames, t.Name)
		}
	}
	for k := range m.resTag {
		if t, ok := m.tags[k.b]; ok && k.a == r.ID {
			tagNames = append(tagNames, t.Name)
		}
	}
	topicNames = distinctSorted(topicNames)
	tagNames = distinctSorted(tagNames)

	r.File = nil
	c := search.Candidate{Resource: r, Authors: authorNames, Tags: tagNames}
	s := domain.ResourceSummary{
		Resource: r,
		Authors:  strings.Join(authorNames, ", "),
		Topics:   strings.Join(topicNames, ", "),
		Tags:     strings.Join(tagNames, ", "),
	}
	return c, s
}

func distinctSorted(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i > 0 && n == names[i-1] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// SearchResources evaluates the plan against every resource.
func (m *MemoryStore) SearchResources(_ context.Context, plan search.Plan) (domain.SearchPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]domain.SearchHit, 0)
	for _, r := range m.resources {
		c, summary := m.candidate(r)
		if !plan.Match(c) {
			continue
		}
		hit := domain.SearchHit{ResourceSummary: summary}
		if plan.Ranked() {
			hit.Rank = plan.Rank.Score(c)
		}
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if plan.Ranked() && hits[i].Rank != hits[j].Rank {
			return hits[i].Rank > hits[j].Rank
		}
		return newerFirst(hits[i].Resource, hits[j].Resource)
	})

	page := domain.SearchPage{Total: int64(len(hits)), Limit: plan.Limit, Offset: plan.Offset, Results: []domain.SearchHit{}}
	if plan.Offset >= len(hits) {
		return page, nil
	}
	end := plan.Offset + plan.Limit
	if end > len(hits) {
		end = len(hits)
	}
	page.Results = append(page.Results, hits[plan.Offset:end]...)
	return page, nil
}

func (m *MemoryStore) ListResourcesByAuthor(_ context.Context, authorID int64) ([]domain.ResourceSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var linked []domain.Resource
	for k := range m.resAuthor {
		if k.b != authorID {
			continue
		}
		if r, ok := m.resources[k.a]; ok {
			linked = append(linked, r)
		}
	}
	sort.Slice(linked, func(i, j int) bool { return newerFirst(linked[i], linked[j]) })
	res := make([]domain.ResourceSummary, 0, len(linked))
	for _, r := range linked {
		_, s := m.candidate(r)
		res = append(res, s)
	}
	return res, nil
}

func (m *MemoryStore) ListFavorites(_ context.Context, userID int64) ([]domain.FavoriteResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.FavoriteResource, 0)
	for k, at := range m.favorites {
		if k.a != userID {
			continue
		}
		r, ok := m.resources[k.b]
		if !ok {
			continue
		}
		_, s := m.candidate(r)
		res = append(res, domain.FavoriteResource{ResourceSummary: s, AddedAt: at})
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].AddedAt.Equal(res[j].AddedAt) {
			return res[i].AddedAt.After(res[j].AddedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}
