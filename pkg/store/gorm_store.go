package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
)

const migrateLockID int64 = 51620417

type GormStoreOptions struct {
	TextSearchConfig string
}

type GormStoreOption func(*GormStoreOptions)

// WithTextSearchConfig sets the PostgreSQL text search configuration used
// for ranking and full text matching.
func WithTextSearchConfig(name string) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.TextSearchConfig = name
	}
}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db         *gorm.DB
	textConfig string
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	textConfig := strings.TrimSpace(opts.TextSearchConfig)
	if textConfig == "" {
		textConfig = search.DefaultTextConfig
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, migrate); err != nil {
		return nil, err
	}
	return &GormStore{db: db, textConfig: textConfig}, nil
}

func migrate(tx *gorm.DB) error {
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS unaccent").Error; err != nil {
		return fmt.Errorf("create unaccent extension: %w", err)
	}
	if err := tx.AutoMigrate(
		&FileModel{},
		&ResourceModel{},
		&AuthorModel{},
		&TopicModel{},
		&TagModel{},
		&ResourceAuthorModel{},
		&ResourceTopicModel{},
		&ResourceTagModel{},
		&UserModel{},
		&FavoriteModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	var b strings.Builder
	b.WriteString("DO $$\nBEGIN\n")
	for _, fk := range foreignKeys {
		fmt.Fprintf(&b, `
	IF NOT EXISTS (
		SELECT 1 FROM information_schema.table_constraints
		WHERE table_schema = current_schema()
		AND table_name = '%[1]s'
		AND constraint_name = '%[2]s'
	) THEN
		ALTER TABLE %[1]s
		ADD CONSTRAINT %[2]s
		FOREIGN KEY (%[3]s) REFERENCES %[4]s(%[5]s) ON DELETE %[6]s;
	END IF;
`, fk.table, fk.name, fk.column, fk.refTable, fk.refColumn, fk.onDelete)
	}
	b.WriteString("END $$;")
	if err := tx.Exec(b.String()).Error; err != nil {
		return fmt.Errorf("ensure foreign keys: %w", err)
	}
	return nil
}

type foreignKey struct {
	table, name, column, refTable, refColumn, onDelete string
}

var foreignKeys = []foreignKey{
	{"recurso", "recurso_idarchivo_fkey", "idarchivo", "archivo", "idarchivo", "SET NULL"},
	{"tema", "tema_idtemapadre_fkey", "idtemapadre", "tema", "idtema", "SET NULL"},
	{"recurso_autor", "recurso_autor_idrecurso_fkey", "idrecurso", "recurso", "idrecurso", "CASCADE"},
	{"recurso_autor", "recurso_autor_idautor_fkey", "idautor", "autor", "idautor", "CASCADE"},
	{"recurso_tema", "recurso_tema_idrecurso_fkey", "idrecurso", "recurso", "idrecurso", "CASCADE"},
	{"recurso_tema", "recurso_tema_idtema_fkey", "idtema", "tema", "idtema", "CASCADE"},
	{"recurso_etiqueta", "recurso_etiqueta_idrecurso_fkey", "idrecurso", "recurso", "idrecurso", "CASCADE"},
	{"recurso_etiqueta", "recurso_etiqueta_idetiqueta_fkey", "idetiqueta", "etiqueta", "idetiqueta", "CASCADE"},
	{"favorito", "favorito_idusuario_fkey", "idusuario", "usuario", "idusuario", "CASCADE"},
	{"favorito", "favorito_idrecurso_fkey", "idrecurso", "recurso", "idrecurso", "CASCADE"},
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// first loads one row into dest, reporting absence as found=false.
func first(tx *gorm.DB, dest any, conds ...any) (bool, error) {
	if err := tx.First(dest, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// deleteOne deletes rows matching the condition, returning ErrNotFound when
// nothing was removed.
func deleteOne(tx *gorm.DB, model any, query string, args ...any) error {
	res := tx.Where(query, args...).Delete(model)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// files

// CreateFile stores file metadata and returns it with its assigned ID.
func (s *GormStore) CreateFile(ctx context.Context, f domain.File) (domain.File, error) {
	model := fileToModel(f)
	if model.UploadedAt.IsZero() {
		model.UploadedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.File{}, translateError(err)
	}
	return fileFromModel(model), nil
}

// GetFile returns file metadata by ID.
func (s *GormStore) GetFile(ctx context.Context, id int64) (domain.File, bool, error) {
	var model FileModel
	ok, err := first(s.db.WithContext(ctx), &model, "idarchivo = ?", id)
	if err != nil || !ok {
		return domain.File{}, ok, err
	}
	return fileFromModel(model), true, nil
}

// DeleteFile removes a file row; resources pointing at it are unlinked by
// the foreign key.
func (s *GormStore) DeleteFile(ctx context.Context, id int64) error {
	return deleteOne(s.db.WithContext(ctx), &FileModel{}, "idarchivo = ?", id)
}

// resources

// CreateResource inserts a resource.
func (s *GormStore) CreateResource(ctx context.Context, r domain.Resource) (domain.Resource, error) {
	model := resourceToModel(r)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Resource{}, translateError(err)
	}
	return s.withFile(ctx, resourceFromModel(model))
}

// GetResource returns a resource with its file metadata.
func (s *GormStore) GetResource(ctx context.Context, id int64) (domain.Resource, bool, error) {
	var model ResourceModel
	ok, err := first(s.db.WithContext(ctx), &model, "idrecurso = ?", id)
	if err != nil || !ok {
		return domain.Resource{}, ok, err
	}
	res, err := s.withFile(ctx, resourceFromModel(model))
	return res, err == nil, err
}

func (s *GormStore) withFile(ctx context.Context, r domain.Resource) (domain.Resource, error) {
	if r.FileID == nil {
		return r, nil
	}
	f, ok, err := s.GetFile(ctx, *r.FileID)
	if err != nil {
		return domain.Resource{}, err
	}
	if ok {
		r.File = &f
	}
	return r, nil
}

// ListResources returns every resource, newest first.
func (s *GormStore) ListResources(ctx context.Context) ([]domain.Resource, error) {
	var models []ResourceModel
	if err := s.db.WithContext(ctx).Order("creadofecha DESC").Order("idrecurso DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Resource, 0, len(models))
	for _, m := range models {
		res = append(res, resourceFromModel(m))
	}
	return res, nil
}

// UpdateResource applies the set fields of p under a row lock.
func (s *GormStore) UpdateResource(ctx context.Context, id int64, p domain.ResourcePatch) (domain.Resource, error) {
	var out domain.Resource
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ResourceModel
		ok, err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &model, "idrecurso = ?", id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		current := resourceFromModel(model)
		p.Apply(&current)
		updated := resourceToModel(current)
		if err := tx.Save(&updated).Error; err != nil {
			return translateError(err)
		}
		out = resourceFromModel(updated)
		return nil
	})
	if err != nil {
		return domain.Resource{}, err
	}
	return s.withFile(ctx, out)
}

// DeleteResource removes a resource, its links and its file row.
func (s *GormStore) DeleteResource(ctx context.Context, id int64) (domain.Resource, error) {
	var out domain.Resource
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ResourceModel
		ok, err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &model, "idrecurso = ?", id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		out = resourceFromModel(model)
		if out.FileID != nil {
			var file FileModel
			found, err := first(tx, &file, "idarchivo = ?", *out.FileID)
			if err != nil {
				return err
			}
			if found {
				f := fileFromModel(file)
				out.File = &f
			}
		}
		if err := deleteOne(tx, &ResourceModel{}, "idrecurso = ?", id); err != nil {
			return err
		}
		if out.FileID != nil {
			if err := tx.Where("idarchivo = ?", *out.FileID).Delete(&FileModel{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Resource{}, err
	}
	return out, nil
}

// authors

func (s *GormStore) CreateAuthor(ctx context.Context, a domain.Author) (domain.Author, error) {
	model := authorToModel(a)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Author{}, translateError(err)
	}
	return authorFromModel(model), nil
}

func (s *GormStore) GetAuthor(ctx context.Context, id int64) (domain.Author, bool, error) {
	var model AuthorModel
	ok, err := first(s.db.WithContext(ctx), &model, "idautor = ?", id)
	if err != nil || !ok {
		return domain.Author{}, ok, err
	}
	return authorFromModel(model), true, nil
}

func (s *GormStore) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	var models []AuthorModel
	if err := s.db.WithContext(ctx).Order("idautor ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Author, 0, len(models))
	for _, m := range models {
		res = append(res, authorFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateAuthor(ctx context.Context, id int64, p domain.AuthorPatch) (domain.Author, error) {
	var out domain.Author
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model AuthorModel
		ok, err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &model, "idautor = ?", id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		out = authorFromModel(model)
		p.Apply(&out)
		updated := authorToModel(out)
		return translateError(tx.Save(&updated).Error)
	})
	return out, err
}

func (s *GormStore) DeleteAuthor(ctx context.Context, id int64) error {
	return deleteOne(s.db.WithContext(ctx), &AuthorModel{}, "idautor = ?", id)
}

// topics

func (s *GormStore) CreateTopic(ctx context.Context, t domain.Topic) (domain.Topic, error) {
	model := topicToModel(t)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Topic{}, translateError(err)
	}
	return topicFromModel(model), nil
}

func (s *GormStore) GetTopic(ctx context.Context, id int64) (domain.Topic, bool, error) {
	var model TopicModel
	ok, err := first(s.db.WithContext(ctx), &model, "idtema = ?", id)
	if err != nil || !ok {
		return domain.Topic{}, ok, err
	}
	return topicFromModel(model), true, nil
}

func (s *GormStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	var models []TopicModel
	if err := s.db.WithContext(ctx).Order("idtema ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Topic, 0, len(models))
	for _, m := range models {
		res = append(res, topicFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateTopic(ctx context.Context, id int64, p domain.TopicPatch) (domain.Topic, error) {
	var out domain.Topic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model TopicModel
		ok, err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &model, "idtema = ?", id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		out = topicFromModel(model)
		p.Apply(&out)
		updated := topicToModel(out)
		return translateError(tx.Save(&updated).Error)
	})
	return out, err
}

func (s *GormStore) DeleteTopic(ctx context.Context, id int64) error {
	return deleteOne(s.db.WithContext(ctx), &TopicModel{}, "idtema = ?", id)
}

// tags

func (s *GormStore) CreateTag(ctx context.Context, t domain.Tag) (domain.Tag, error) {
	model := TagModel{Name: t.Name}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Tag{}, translateError(err)
	}
	return domain.Tag{ID: model.ID, Name: model.Name}, nil
}

func (s *GormStore) GetTag(ctx context.Context, id int64) (domain.Tag, bool, error) {
	var model TagModel
	ok, err := first(s.db.WithContext(ctx), &model, "idetiqueta = ?", id)
	if err != nil || !ok {
		return domain.Tag{}, ok, err
	}
	return domain.Tag{ID: model.ID, Name: model.Name}, true, nil
}

func (s *GormStore) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var models []TagModel
	if err := s.db.WithContext(ctx).Order("nombreetiqueta ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Tag{ID: m.ID, Name: m.Name})
	}
	return res, nil
}

func (s *GormStore) UpdateTag(ctx context.Context, id int64, p domain.TagPatch) (domain.Tag, error) {
	var out domain.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model TagModel
		ok, err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &model, "idetiqueta = ?", id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		out = domain.Tag{ID: model.ID, Name: model.Name}
		p.Apply(&out)
		return translateError(tx.Model(&TagModel{}).
			Where("idetiqueta = ?", id).
			Update("nombreetiqueta", out.Name).Error)
	})
	return out, err
}

func (s *GormStore) DeleteTag(ctx context.Context, id int64) error {
	return deleteOne(s.db.WithContext(ctx), &TagModel{}, "idetiqueta = ?", id)
}

// links

func (s *GormStore) AddResourceAuthor(ctx context.Context, l domain.ResourceAuthor) error {
	model := ResourceAuthorModel{ResourceID: l.ResourceID, AuthorID: l.AuthorID, Order: l.Order}
	return translateError(s.db.WithContext(ctx).Create(&model).Error)
}

func (s *GormStore) ListResourceAuthors(ctx context.Context) ([]domain.ResourceAuthor, error) {
	var models []ResourceAuthorModel
	if err := s.db.WithContext(ctx).Order("idrecurso ASC").Order("orden ASC NULLS LAST").Order("idautor ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResourceAuthor, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ResourceAuthor{ResourceID: m.ResourceID, AuthorID: m.AuthorID, Order: m.Order})
	}
	return res, nil
}

func (s *GormStore) RemoveResourceAuthor(ctx context.Context, resourceID, authorID int64) error {
	return deleteOne(s.db.WithContext(ctx), &ResourceAuthorModel{}, "idrecurso = ? AND idautor = ?", resourceID, authorID)
}

func (s *GormStore) AddResourceTopic(ctx context.Context, l domain.ResourceTopic) error {
	model := ResourceTopicModel{ResourceID: l.ResourceID, TopicID: l.TopicID}
	return translateError(s.db.WithContext(ctx).Create(&model).Error)
}

func (s *GormStore) ListResourceTopics(ctx context.Context) ([]domain.ResourceTopic, error) {
	var models []ResourceTopicModel
	if err := s.db.WithContext(ctx).Order("idrecurso ASC").Order("idtema ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResourceTopic, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ResourceTopic{ResourceID: m.ResourceID, TopicID: m.TopicID})
	}
	return res, nil
}

func (s *GormStore) RemoveResourceTopic(ctx context.Context, resourceID, topicID int64) error {
	return deleteOne(s.db.WithContext(ctx), &ResourceTopicModel{}, "idrecurso = ? AND idtema = ?", resourceID, topicID)
}

func (s *GormStore) AddResourceTag(ctx context.Context, l domain.ResourceTag) error {
	model := ResourceTagModel{ResourceID: l.ResourceID, TagID: l.TagID}
	return translateError(s.db.WithContext(ctx).Create(&model).Error)
}

func (s *GormStore) ListResourceTags(ctx context.Context) ([]domain.ResourceTag, error) {
	var models []ResourceTagModel
	if err := s.db.WithContext(ctx).Order("idrecurso ASC").Order("idetiqueta ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResourceTag, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ResourceTag{ResourceID: m.ResourceID, TagID: m.TagID})
	}
	return res, nil
}

func (s *GormStore) RemoveResourceTag(ctx context.Context, resourceID, tagID int64) error {
	return deleteOne(s.db.WithContext(ctx), &ResourceTagModel{}, "idrecurso = ? AND idetiqueta = ?", resourceID, tagID)
}

// users

// CreateUser registers a user. A taken email yields ErrDuplicate.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	model := userToModel(u)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.User{}, translateError(err)
	}
	return userFromModel(model), nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id int64) (domain.User, bool, error) {
	var model UserModel
	ok, err := first(s.db.WithContext(ctx), &model, "idusuario = ?", id)
	if err != nil || !ok {
		return domain.User{}, ok, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email, ignoring case.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	ok, err := first(s.db.WithContext(ctx), &model, "lower(email) = lower(?)", strings.TrimSpace(email))
	if err != nil || !ok {
		return domain.User{}, ok, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by ID.
func (s *GormStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.WithContext(ctx).Order("idusuario ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, id int64, p domain.UserPatch) (domain.User, error) {
	var out domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserModel
		ok, err := first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &model, "idusuario = ?", id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		out = userFromModel(model)
		p.Apply(&out)
		updated := userToModel(out)
		return translateError(tx.Save(&updated).Error)
	})
	return out, err
}

func (s *GormStore) DeleteUser(ctx context.Context, id int64) error {
	return deleteOne(s.db.WithContext(ctx), &UserModel{}, "idusuario = ?", id)
}

// favorites

// AddFavorite marks a resource as favorite. A repeated pair yields
// ErrDuplicate and a missing user or resource ErrMissingReference.
func (s *GormStore) AddFavorite(ctx context.Context, userID, resourceID int64, at time.Time) (domain.Favorite, error) {
	model := FavoriteModel{UserID: userID, ResourceID: resourceID, AddedAt: at.UTC()}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Favorite{}, translateError(err)
	}
	return domain.Favorite{UserID: model.UserID, ResourceID: model.ResourceID, AddedAt: model.AddedAt}, nil
}

func (s *GormStore) RemoveFavorite(ctx context.Context, userID, resourceID int64) error {
	return deleteOne(s.db.WithContext(ctx), &FavoriteModel{}, "idusuario = ? AND idrecurso = ?", userID, resourceID)
}

func (s *GormStore) IsFavorite(ctx context.Context, userID, resourceID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&FavoriteModel{}).
		Where("idusuario = ? AND idrecurso = ?", userID, resourceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func fileToModel(f domain.File) FileModel {
	return FileModel{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		Path:         f.Path,
		ContentType:  f.ContentType,
		Size:         f.Size,
		UploadedAt:   f.UploadedAt,
	}
}

func fileFromModel(m FileModel) domain.File {
	return domain.File{
		ID:           m.ID,
		OriginalName: m.OriginalName,
		Path:         m.Path,
		ContentType:  m.ContentType,
		Size:         m.Size,
		UploadedAt:   m.UploadedAt,
	}
}

func resourceToModel(r domain.Resource) ResourceModel {
	return ResourceModel{
		ID:          r.ID,
		Title:       r.Title,
		Type:        r.Type,
		Description: r.Description,
		Content:     r.Content,
		PublishedOn: dateToModel(r.PublishedOn),
		Language:    r.Language,
		Location:    r.Location,
		CreatedAt:   r.CreatedAt,
		Verified:    r.Verified,
		FileID:      r.FileID,
	}
}

func resourceFromModel(m ResourceModel) domain.Resource {
	return domain.Resource{
		ID:          m.ID,
		Title:       m.Title,
		Type:        m.Type,
		Description: m.Description,
		Content:     m.Content,
		PublishedOn: dateFromModel(m.PublishedOn),
		Language:    m.Language,
		Location:    m.Location,
		CreatedAt:   m.CreatedAt,
		Verified:    m.Verified,
		FileID:      m.FileID,
	}
}

func dateToModel(d *domain.Date) *datatypes.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	v := datatypes.Date(d.Time)
	return &v
}

func dateFromModel(d *datatypes.Date) *domain.Date {
	if d == nil {
		return nil
	}
	v := domain.NewDate(time.Time(*d))
	return &v
}

func authorToModel(a domain.Author) AuthorModel {
	return AuthorModel{ID: a.ID, Name: a.Name, ProfileURL: a.ProfileURL, ORCID: a.ORCID}
}

func authorFromModel(m AuthorModel) domain.Author {
	return domain.Author{ID: m.ID, Name: m.Name, ProfileURL: m.ProfileURL, ORCID: m.ORCID}
}

func topicToModel(t domain.Topic) TopicModel {
	return TopicModel{ID: t.ID, Name: t.Name, ParentID: t.ParentID}
}

func topicFromModel(m TopicModel) domain.Topic {
	return domain.Topic{ID: m.ID, Name: m.Name, ParentID: m.ParentID}
}

func userToModel(u domain.User) UserModel {
	var password *string
	if u.PasswordHash != "" {
		hash := u.PasswordHash
		password = &hash
	}
	return UserModel{
		ID:          u.ID,
		Name:        u.Name,
		Phone:       u.Phone,
		Email:       u.Email,
		Password:    password,
		Provider:    u.Provider,
		ProviderID:  u.ProviderID,
		StudentCode: u.StudentCode,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	u := domain.User{
		ID:          m.ID,
		Name:        m.Name,
		Phone:       m.Phone,
		Email:       m.Email,
		Provider:    m.Provider,
		ProviderID:  m.ProviderID,
		StudentCode: m.StudentCode,
		Role:        domain.UserRole(m.Role),
		CreatedAt:   m.CreatedAt,
	}
	if m.Password != nil {
		u.PasswordHash = *m.Password
	}
	return u
}
