package app

import (
	"context"
	"errors"
	"time"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
	"mayorsearch/pkg/session"
	"mayorsearch/pkg/storage"
	"mayorsearch/pkg/store"
)

const (
	defaultMaxUploadBytes = 50 << 20
	defaultPresignExpiry  = 15 * time.Minute
)

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ResetSender delivers a password reset token to the user.
type ResetSender interface {
	SendReset(ctx context.Context, user domain.User, token string) error
}

// Config holds the collaborators of the catalog application. Store, Objects
// and Sessions are required.
type Config struct {
	Store          store.Store
	Objects        storage.ObjectStore
	Sessions       *session.Manager
	Extractor      TextExtractor
	ResetSender    ResetSender
	MaxUploadBytes int64
	PresignExpiry  time.Duration
	Now            func() time.Time
}

// App implements the catalog use cases on top of the store, the object
// store and the session manager.
type App struct {
	store          store.Store
	objects        storage.ObjectStore
	sessions       *session.Manager
	extractor      TextExtractor
	resetSender    ResetSender
	maxUploadBytes int64
	presignExpiry  time.Duration
	now            func() time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager required")
	}
	a := &App{
		store:          cfg.Store,
		objects:        cfg.Objects,
		sessions:       cfg.Sessions,
		extractor:      cfg.Extractor,
		resetSender:    cfg.ResetSender,
		maxUploadBytes: cfg.MaxUploadBytes,
		presignExpiry:  cfg.PresignExpiry,
		now:            cfg.Now,
	}
	if a.maxUploadBytes <= 0 {
		a.maxUploadBytes = defaultMaxUploadBytes
	}
	if a.presignExpiry <= 0 {
		a.presignExpiry = defaultPresignExpiry
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.resetSender == nil {
		a.resetSender = LogResetSender{}
	}
	return a, nil
}

// MaxUploadBytes is the largest accepted upload.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUploadBytes
}

// Ping checks the database.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Search runs a parsed search query.
func (a *App) Search(ctx context.Context, q search.Query) (domain.SearchPage, error) {
	page, err := a.store.SearchResources(ctx, q.Plan())
	if err != nil {
		return domain.SearchPage{}, storeError("search resources", err, nil, nil)
	}
	if page.Results == nil {
		page.Results = []domain.SearchHit{}
	}
	return page, nil
}

// Now returns the application clock, used to resolve relative search dates.
func (a *App) Now() time.Time {
	return a.now()
}
