package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mayorsearch/internal/util"
	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/patch"
	"mayorsearch/pkg/pdftext"
	"mayorsearch/pkg/search"
	"mayorsearch/pkg/storage"
	"mayorsearch/pkg/store"
)

const (
	pdfContentType = "application/pdf"
	storagePrefix  = "recursos"

	maxTitleLen    = 200
	maxTypeLen     = 50
	maxLanguageLen = 50
	maxLocationLen = 200
)

// Upload is a file received alongside a resource form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ResourceInput carries the fields of a new resource.
type ResourceInput struct {
	Title       string
	Type        string
	Description *string
	PublishedOn *domain.Date
	Language    *string
	Location    *string
	Verified    bool
}

// Download is a time-limited link to a resource's file.
type Download struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expira"`
}

type storedUpload struct {
	file domain.File
	text *string
}

// CreateResource stores the PDF, extracts its text and inserts the file and
// resource rows. The stored object is removed again if the rows cannot be
// written.
func (a *App) CreateResource(ctx context.Context, in ResourceInput, file *Upload) (domain.Resource, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.TrimSpace(in.Type)
	if err := validateResourceFields(in.Title, in.Type, in.Language, in.Location); err != nil {
		return domain.Resource{}, err
	}
	if file == nil {
		return domain.Resource{}, errFileRequired
	}
	stored, err := a.storeUpload(ctx, *file)
	if err != nil {
		return domain.Resource{}, err
	}
	fileID := stored.file.ID
	created, err := a.store.CreateResource(ctx, domain.Resource{
		Title:       in.Title,
		Type:        in.Type,
		Description: in.Description,
		Content:     stored.text,
		PublishedOn: in.PublishedOn,
		Language:    in.Language,
		Location:    in.Location,
		Verified:    in.Verified,
		CreatedAt:   a.now().UTC(),
		FileID:      &fileID,
	})
	if err != nil {
		a.discardFile(ctx, stored.file)
		return domain.Resource{}, storeError("create resource", err, nil, nil)
	}
	return created, nil
}

// GetResource returns the resource with its file metadata.
func (a *App) GetResource(ctx context.Context, id int64) (domain.Resource, error) {
	res, ok, err := a.store.GetResource(ctx, id)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	if !ok {
		return domain.Resource{}, errResourceNotFound
	}
	return res, nil
}

func (a *App) ListResources(ctx context.Context) ([]domain.Resource, error) {
	list, err := a.store.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return list, nil
}

// UpdateResource applies the fields present in p. A non-nil file replaces
// the current one; the previous object and file row are dropped only after
// the resource points at the new file.
func (a *App) UpdateResource(ctx context.Context, id int64, p domain.ResourcePatch, file *Upload) (domain.Resource, error) {
	current, ok, err := a.store.GetResource(ctx, id)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	if !ok {
		return domain.Resource{}, errResourceNotFound
	}
	if err := validateResourcePatch(&p); err != nil {
		return domain.Resource{}, err
	}

	var stored *storedUpload
	if file != nil {
		s, err := a.storeUpload(ctx, *file)
		if err != nil {
			return domain.Resource{}, err
		}
		stored = &s
		p.FileID = patch.Of(&s.file.ID)
		p.Content = patch.Of(s.text)
	}

	updated, err := a.store.UpdateResource(ctx, id, p)
	if err != nil {
		if stored != nil {
			a.discardFile(ctx, stored.file)
		}
		return domain.Resource{}, storeError("update resource", err, errResourceNotFound, nil)
	}
	if stored != nil && current.File != nil {
		a.discardFile(ctx, *current.File)
	}
	return updated, nil
}

// DeleteResource removes the resource, its links and its stored file.
func (a *App) DeleteResource(ctx context.Context, id int64) error {
	deleted, err := a.store.DeleteResource(ctx, id)
	if err != nil {
		return storeError("delete resource", err, errResourceNotFound, nil)
	}
	if deleted.File != nil {
		a.deleteObject(ctx, deleted.File.Path)
	}
	return nil
}

// ResourceDownload returns a pre-signed URL for the resource's file.
func (a *App) ResourceDownload(ctx context.Context, id int64) (Download, error) {
	res, err := a.GetResource(ctx, id)
	if err != nil {
		return Download{}, err
	}
	if res.File == nil || strings.TrimSpace(res.File.Path) == "" {
		return Download{}, errFileNotFound
	}
	url, err := a.objects.PresignGet(ctx, res.File.Path, res.File.OriginalName, a.presignExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Download{}, errFileNotFound
		}
		return Download{}, fmt.Errorf("presign download: %w", err)
	}
	return Download{
		URL:       url,
		Filename:  res.File.OriginalName,
		ExpiresAt: a.now().UTC().Add(a.presignExpiry),
	}, nil
}

// storeUpload validates the upload, then writes the object and extracts
// its text concurrently. Extraction failures only lose the text.
func (a *App) storeUpload(ctx context.Context, up Upload) (storedUpload, error) {
	if up.Body == nil {
		return storedUpload{}, errFileRequired
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, a.maxUploadBytes+1))
	if err != nil {
		return storedUpload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > a.maxUploadBytes {
		return storedUpload{}, errFileTooLarge
	}
	if len(data) == 0 {
		return storedUpload{}, errFileRequired
	}
	if !declaredPDF(up.Filename, up.ContentType) || !pdftext.IsPDF(data) {
		return storedUpload{}, errNotPDF
	}

	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "." || name == string(filepath.Separator) {
		name = "documento.pdf"
	}
	key := storageKey(name)

	var text *string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.objects.Put(gctx, key, bytes.NewReader(data), int64(len(data)), pdfContentType); err != nil {
			return fmt.Errorf("store object: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		text = a.extractText(gctx, data)
		return nil
	})
	if err := g.Wait(); err != nil {
		return storedUpload{}, err
	}

	f, err := a.store.CreateFile(ctx, domain.File{
		OriginalName: name,
		Path:         key,
		ContentType:  pdfContentType,
		Size:         int64(len(data)),
		UploadedAt:   a.now().UTC(),
	})
	if err != nil {
		a.deleteObject(ctx, key)
		return storedUpload{}, fmt.Errorf("create file: %w", err)
	}
	return storedUpload{file: f, text: text}, nil
}

func (a *App) extractText(ctx context.Context, data []byte) *string {
	if a.extractor == nil {
		return nil
	}
	text, err := a.extractor.Extract(ctx, data)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("pdf text extraction failed", "err", err)
		return nil
	}
	return &text
}

// discardFile drops a file row and its object. Cleanup outlives request
// cancellation.
func (a *App) discardFile(ctx context.Context, f domain.File) {
	ctx = context.WithoutCancel(ctx)
	if err := a.store.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		util.LoggerFromContext(ctx).Error("delete file row failed", "idarchivo", f.ID, "err", err)
	}
	a.deleteObject(ctx, f.Path)
}

func (a *App) deleteObject(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	if err := a.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		util.LoggerFromContext(ctx).Error("delete object failed", "key", key, "err", err)
	}
}

func declaredPDF(filename, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == pdfContentType {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func storageKey(filename string) string {
	name := sanitizeFilename(filename)
	if name == "" {
		name = "documento.pdf"
	}
	return path.Join(storagePrefix, uuid.NewString(), name)
}

// sanitizeFilename folds case and accents, then keeps ASCII letters, digits,
// '.' and '-'; any other run of characters becomes one underscore.
func sanitizeFilename(name string) string {
	name = search.Fold(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_.")
}

func validateResourceFields(title, typ string, language, location *string) error {
	if title == "" {
		return invalid("RESOURCE_INVALID_TITLE", "El título es obligatorio")
	}
	if typ == "" {
		return invalid("RESOURCE_INVALID_TYPE", "El tipo de recurso es obligatorio")
	}
	if err := checkLen("RESOURCE_INVALID_TITLE", "titulo", title, maxTitleLen); err != nil {
		return err
	}
	if err := checkLen("RESOURCE_INVALID_TYPE", "tiporecurso", typ, maxTypeLen); err != nil {
		return err
	}
	if language != nil {
		if err := checkLen("RESOURCE_INVALID_LANGUAGE", "idioma", *language, maxLanguageLen); err != nil {
			return err
		}
	}
	if location != nil {
		if err := checkLen("RESOURCE_INVALID_LOCATION", "ubicacion", *location, maxLocationLen); err != nil {
			return err
		}
	}
	return nil
}

// validateResourcePatch trims and checks the fields present in p; absent
// required fields keep their stored value and pass.
func validateResourcePatch(p *domain.ResourcePatch) error {
	title, typ := "-", "-"
	if p.Title.Set {
		p.Title.Value = strings.TrimSpace(p.Title.Value)
		title = p.Title.Value
	}
	if p.Type.Set {
		p.Type.Value = strings.TrimSpace(p.Type.Value)
		typ = p.Type.Value
	}
	var language, location *string
	if v, ok := p.Language.Get(); ok {
		language = v
	}
	if v, ok := p.Location.Get(); ok {
		location = v
	}
	return validateResourceFields(title, typ, language, location)
}

func checkLen(code, field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return invalid(code, "El campo %s admite como máximo %d caracteres", field, max)
	}
	return nil
}
