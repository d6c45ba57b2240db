package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mayorsearch/pkg/domain"
)

type pair struct{ a, b int64 }

// MemoryStore keeps the catalog in-process. It follows the same foreign key
// and uniqueness rules as the database schema.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       map[string]int64
	files     map[int64]domain.File
	resources map[int64]domain.Resource
	authors   map[int64]domain.Author
	topics    map[int64]domain.Topic
	tags      map[int64]domain.Tag
	resAuthor map[pair]domain.ResourceAuthor
	resTopic  map[pair]struct{}
	resTag    map[pair]struct{}
	users     map[int64]domain.User
	favorites map[pair]time.Time // key: user ID, resource ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:       make(map[string]int64),
		files:     make(map[int64]domain.File),
		resources: make(map[int64]domain.Resource),
		authors:   make(map[int64]domain.Author),
		topics:    make(map[int64]domain.Topic),
		tags:      make(map[int64]domain.Tag),
		resAuthor: make(map[pair]domain.ResourceAuthor),
		resTopic:  make(map[pair]struct{}),
		resTag:    make(map[pair]struct{}),
		users:     make(map[int64]domain.User),
		favorites: make(map[pair]time.Time),
	}
}

func (m *MemoryStore) next(table string) int64 {
	m.seq[table]++
	return m.seq[table]
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// files

func (m *MemoryStore) CreateFile(_ context.Context, f domain.File) (domain.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = m.next("archivo")
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	m.files[f.ID] = f
	return f, nil
}

func (m *MemoryStore) GetFile(_ context.Context, id int64) (domain.File, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	return f, ok, nil
}

func (m *MemoryStore) DeleteFile(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	for rid, r := range m.resources {
		if r.FileID != nil && *r.FileID == id {
			r.FileID = nil
			m.resources[rid] = r
		}
	}
	return nil
}

// resources

func (m *MemoryStore) CreateResource(_ context.Context, r domain.Resource) (domain.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.FileID != nil {
		if _, ok := m.files[*r.FileID]; !ok {
			return domain.Resource{}, ErrMissingReference
		}
	}
	r.ID = m.next("recurso")
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.File = nil
	m.resources[r.ID] = r
	return m.withFile(r), nil
}

func (m *MemoryStore) withFile(r domain.Resource) domain.Resource {
	r.File = nil
	if r.FileID != nil {
		if f, ok := m.files[*r.FileID]; ok {
			r.File = &f
		}
	}
	return r
}

func (m *MemoryStore) GetResource(_ context.Context, id int64) (domain.Resource, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return domain.Resource{}, false, nil
	}
	return m.withFile(r), true, nil
}

// ListResources returns every resource, newest first.
func (m *MemoryStore) ListResources(context.Context) ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		r.File = nil
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return newerFirst(res[i], res[j]) })
	return res, nil
}

func newerFirst(a, b domain.Resource) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (m *MemoryStore) UpdateResource(_ context.Context, id int64, p domain.ResourcePatch) (domain.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return domain.Resource{}, ErrNotFound
	}
	p.Apply(&r)
	if r.FileID != nil {
		if _, ok := m.files[*r.FileID]; !ok {
			return domain.Resource{}, ErrMissingReference
		}
	}
	m.resources[id] = r
	return m.withFile(r), nil
}

func (m *MemoryStore) DeleteResource(_ context.Context, id int64) (domain.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return domain.Resource{}, ErrNotFound
	}
	r = m.withFile(r)
	delete(m.resources, id)
	if r.FileID != nil {
		delete(m.files, *r.FileID)
	}
	for k := range m.resAuthor {
		if k.a == id {
			delete(m.resAuthor, k)
		}
	}
	for k := range m.resTopic {
		if k.a == id {
			delete(m.resTopic, k)
		}
	}
	for k := range m.resTag {
		if k.a == id {
			delete(m.resTag, k)
		}
	}
	for k := range m.favorites {
		if k.b == id {
			delete(m.favorites, k)
		}
	}
	return r, nil
}

// authors

func (m *MemoryStore) CreateAuthor(_ context.Context, a domain.Author) (domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.next("autor")
	m.authors[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAuthor(_ context.Context, id int64) (domain.Author, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.authors[id]
	return a, ok, nil
}

func (m *MemoryStore) ListAuthors(context.Context) ([]domain.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Author, 0, len(m.authors))
	for _, a := range m.authors {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MemoryStore) UpdateAuthor(_ context.Context, id int64, p domain.AuthorPatch) (domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.authors[id]
	if !ok {
		return domain.Author{}, ErrNotFound
	}
	p.Apply(&a)
	m.authors[id] = a
	return a, nil
}

func (m *MemoryStore) DeleteAuthor(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.authors[id]; !ok {
		return ErrNotFound
	}
	delete(m.authors, id)
	for k := range m.resAuthor {
		if k.b == id {
			delete(m.resAuthor, k)
		}
	}
	return nil
}

// topics

func (m *MemoryStore) CreateTopic(_ context.Context, t domain.Topic) (domain.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ParentID != nil {
		if _, ok := m.topics[*t.ParentID]; !ok {
			return domain.Topic{}, ErrMissingReference
		}
	}
	t.ID = m.next("tema")
	m.topics[t.ID] = t
	return t, nil
}

func (m *MemoryStore) GetTopic(_ context.Context, id int64) (domain.Topic, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[id]
	return t, ok, nil
}

func (m *MemoryStore) ListTopics(context.Context) ([]domain.Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Topic, 0, len(m.topics))
	for _, t := range m.topics {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MemoryStore) UpdateTopic(_ context.Context, id int64, p domain.TopicPatch) (domain.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[id]
	if !ok {
		return domain.Topic{}, ErrNotFound
	}
	p.Apply(&t)
	if t.ParentID != nil {
		if _, ok := m.topics[*t.ParentID]; !ok {
			return domain.Topic{}, ErrMissingReference
		}
	}
	m.topics[id] = t
	return t, nil
}

func (m *MemoryStore) DeleteTopic(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[id]; !ok {
		return ErrNotFound
	}
	delete(m.topics, id)
	for tid, t := range m.topics {
		if t.ParentID != nil && *t.ParentID == id {
			t.ParentID = nil
			m.topics[tid] = t
		}
	}
	for k := range m.resTopic {
		if k.b == id {
			delete(m.resTopic, k)
		}
	}
	return nil
}

// tags

func (m *MemoryStore) tagNameTaken(name string, except int64) bool {
	for id, t := range m.tags {
		if id != except && t.Name == name {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateTag(_ context.Context, t domain.Tag) (domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagNameTaken(t.Name, 0) {
		return domain.Tag{}, ErrDuplicate
	}
	t.ID = m.next("etiqueta")
	m.tags[t.ID] = t
	return t, nil
}

func (m *MemoryStore) GetTag(_ context.Context, id int64) (domain.Tag, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tags[id]
	return t, ok, nil
}

func (m *MemoryStore) ListTags(context.Context) ([]domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemoryStore) UpdateTag(_ context.Context, id int64, p domain.TagPatch) (domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok {
		return domain.Tag{}, ErrNotFound
	}
	p.Apply(&t)
	if m.tagNameTaken(t.Name, id) {
		return domain.Tag{}, ErrDuplicate
	}
	m.tags[id] = t
	return t, nil
}

func (m *MemoryStore) DeleteTag(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[id]; !ok {
		return ErrNotFound
	}
	delete(m.tags, id)
	for k := range m.resTag {
		if k.b == id {
			delete(m.resTag, k)
		}
	}
	return nil
}

// links

func (m *MemoryStore) AddResourceAuthor(_ context.Context, l domain.ResourceAuthor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, okR := m.resources[l.ResourceID]
	_, okA := m.authors[l.AuthorID]
	if !okR || !okA {
		return ErrMissingReference
	}
	k := pair{l.ResourceID, l.AuthorID}
	if _, exists := m.resAuthor[k]; exists {
		return ErrDuplicate
	}
	m.resAuthor[k] = l
	return nil
}

func (m *MemoryStore) ListResourceAuthors(context.Context) ([]domain.ResourceAuthor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ResourceAuthor, 0, len(m.resAuthor))
	for _, l := range m.resAuthor {
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ResourceID != res[j].ResourceID {
			return res[i].ResourceID < res[j].ResourceID
		}
		if oi, oj := orderOf(res[i].Order), orderOf(res[j].Order); oi != oj {
			return oi < oj
		}
		return res[i].AuthorID < res[j].AuthorID
	})
	return res, nil
}

func orderOf(o *int) int {
	if o == nil {
		return int(^uint32(0) >> 1)
	}
	return *o
}

func (m *MemoryStore) RemoveResourceAuthor(_ context.Context, resourceID, authorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{resourceID, authorID}
	if _, ok := m.resAuthor[k]; !ok {
		return ErrNotFound
	}
	delete(m.resAuthor, k)
	return nil
}

func (m *MemoryStore) AddResourceTopic(_ context.Context, l domain.ResourceTopic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, okR := m.resources[l.ResourceID]
	_, okT := m.topics[l.TopicID]
	if !okR || !okT {
		return ErrMissingReference
	}
	return addPair(m.resTopic, pair{l.ResourceID, l.TopicID})
}

func (m *MemoryStore) ListResourceTopics(context.Context) ([]domain.ResourceTopic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ResourceTopic, 0, len(m.resTopic))
	for _, k := range sortedPairs(m.resTopic) {
		res = append(res, domain.ResourceTopic{ResourceID: k.a, TopicID: k.b})
	}
	return res, nil
}

func (m *MemoryStore) RemoveResourceTopic(_ context.Context, resourceID, topicID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removePair(m.resTopic, pair{resourceID, topicID})
}

func (m *MemoryStore) AddResourceTag(_ context.Context, l domain.ResourceTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, okR := m.resources[l.ResourceID]
	_, okT := m.tags[l.TagID]
	if !okR || !okT {
		return ErrMissingReference
	}
	return addPair(m.resTag, pair{l.ResourceID, l.TagID})
}

func (m *MemoryStore) ListResourceTags(context.Context) ([]domain.ResourceTag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ResourceTag, 0, len(m.resTag))
	for _, k := range sortedPairs(m.resTag) {
		res = append(res, domain.ResourceTag{ResourceID: k.a, TagID: k.b})
	}
	return res, nil
}

func (m *MemoryStore) RemoveResourceTag(_ context.Context, resourceID, tagID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removePair(m.resTag, pair{resourceID, tagID})
}

func addPair(set map[pair]struct{}, k pair) error {
	if _, exists := set[k]; exists {
		return ErrDuplicate
	}
	set[k] = struct{}{}
	return nil
}

func removePair(set map[pair]struct{}, k pair) error {
	if _, ok := set[k]; !ok {
		return ErrNotFound
	}
	delete(set, k)
	return nil
}

func sortedPairs(set map[pair]struct{}) []pair {
	out := make([]pair, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

// users

func (m *MemoryStore) emailTaken(email string, except int64) bool {
	for id, u := range m.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email, 0) {
		return domain.User{}, ErrDuplicate
	}
	u.ID = m.next("usuario")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.TrimSpace(email)
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id int64, p domain.UserPatch) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	p.Apply(&u)
	if m.emailTaken(u.Email, id) {
		return domain.User{}, ErrDuplicate
	}
	m.users[id] = u
	return u, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for k := range m.favorites {
		if k.a == id {
			delete(m.favorites, k)
		}
	}
	return nil
}

// favorites

func (m *MemoryStore) AddFavorite(_ context.Context, userID, resourceID int64, at time.Time) (domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, okU := m.users[userID]
	_, okR := m.resources[resourceID]
	if !okU || !okR {
		return domain.Favorite{}, ErrMissingReference
	}
	k := pair{userID, resourceID}
	if _, exists := m.favorites[k]; exists {
		return domain.Favorite{}, ErrDuplicate
	}
	m.favorites[k] = at.UTC()
	return domain.Favorite{UserID: userID, ResourceID: resourceID, AddedAt: at.UTC()}, nil
}

func (m *MemoryStore) RemoveFavorite(_ context.Context, userID, resourceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{userID, resourceID}
	if _, ok := m.favorites[k]; !ok {
		return ErrNotFound
	}
	delete(m.favorites, k)
	return nil
}

func (m *MemoryStore) IsFavorite(_ context.Context, userID, resourceID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.favorites[pair{userID, resourceID}]
	return ok, nil
}
