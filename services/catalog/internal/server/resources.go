package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/patch"
	"mayorsearch/services/catalog/internal/app"
)

const multipartMemory = 32 << 20

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	if !s.parseResourceForm(w, r) {
		return
	}
	f := resourceForm{values: r.PostForm}
	in := app.ResourceInput{
		Title:       f.text("titulo"),
		Type:        f.text("tiporecurso"),
		Description: f.nullable("descripcion"),
		Language:    f.nullable("idioma"),
		Location:    f.nullable("ubicacion"),
	}
	var err error
	if in.PublishedOn, err = f.date("fechapublicacion"); err != nil {
		writeAppError(w, r, err)
		return
	}
	if in.Verified, err = f.boolean("verificado"); err != nil {
		writeAppError(w, r, err)
		return
	}
	upload, closeFile, err := formUpload(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	defer closeFile()
	res, err := s.app.CreateResource(r.Context(), in, upload)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.ListResources(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := s.app.GetResource(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleUpdateResource accepts either a JSON patch or a multipart form
// carrying only the fields to change plus an optional replacement file.
func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if isJSON(r) {
		var p domain.ResourcePatch
		if !decodeJSON(w, r, &p) {
			return
		}
		s.updateResource(w, r, id, p, nil)
		return
	}
	if !s.parseResourceForm(w, r) {
		return
	}
	p, err := resourceForm{values: r.PostForm}.resourcePatch()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	upload, closeFile, err := formUpload(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	defer closeFile()
	s.updateResource(w, r, id, p, upload)
}

func (s *Server) updateResource(w http.ResponseWriter, r *http.Request, id int64, p domain.ResourcePatch, upload *app.Upload) {
	res, err := s.app.UpdateResource(r.Context(), id, p, upload)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteResource(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recurso eliminado correctamente")
}

func (s *Server) handleResourceFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dl, err := s.app.ResourceDownload(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dl)
}

// parseResourceForm bounds the body by the upload limit and parses it as
// multipart, falling back to a url-encoded form.
func (s *Server) parseResourceForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.app.MaxUploadBytes()+formOverhead)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "RESOURCE_FILE_TOO_LARGE", "El archivo excede el tamaño permitido")
		return false
	}
	writeError(w, http.StatusBadRequest, "RESOURCE_INVALID_FORM", "Formulario inválido")
	return false
}

// formUpload returns the "file" part, or nil when none was sent.
func formUpload(r *http.Request) (*app.Upload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, &app.Error{Kind: app.ErrValidation, Code: "RESOURCE_INVALID_FORM", Message: "Archivo inválido"}
	}
	return &app.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

type resourceForm struct {
	values map[string][]string
}

func (f resourceForm) lookup(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return strings.TrimSpace(v[0]), true
}

func (f resourceForm) text(key string) string {
	v, _ := f.lookup(key)
	return v
}

// nullable maps an absent or blank field to nil.
func (f resourceForm) nullable(key string) *string {
	v, ok := f.lookup(key)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (f resourceForm) date(key string) (*domain.Date, error) {
	v, ok := f.lookup(key)
	if !ok || v == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return nil, &app.Error{Kind: app.ErrValidation, Code: "RESOURCE_INVALID_DATE", Message: "fechapublicacion debe tener formato AAAA-MM-DD"}
	}
	return &d, nil
}

func (f resourceForm) boolean(key string) (bool, error) {
	v, ok := f.lookup(key)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, &app.Error{Kind: app.ErrValidation, Code: "RESOURCE_INVALID_VERIFIED", Message: "verificado debe ser true o false"}
	}
	return b, nil
}

// resourcePatch builds a partial update from the fields present in the form. A
// present but blank optional field clears the column.
func (f resourceForm) resourcePatch() (domain.ResourcePatch, error) {
	var p domain.ResourcePatch
	if v, ok := f.lookup("titulo"); ok {
		p.Title = patch.Of(v)
	}
	if v, ok := f.lookup("tiporecurso"); ok {
		p.Type = patch.Of(v)
	}
	for key, field := range map[string]*patch.Field[*string]{
		"descripcion": &p.Description,
		"idioma":      &p.Language,
		"ubicacion":   &p.Location,
	} {
		if _, ok := f.lookup(key); ok {
			*field = patch.Of(f.nullable(key))
		}
	}
	if _, ok := f.lookup("fechapublicacion"); ok {
		d, err := f.date("fechapublicacion")
		if err != nil {
			return p, err
		}
		p.PublishedOn = patch.Of(d)
	}
	if _, ok := f.lookup("verificado"); ok {
		b, err := f.boolean("verificado")
		if err != nil {
			return p, err
		}
		p.Verified = patch.Of(b)
	}
	return p, nil
}
