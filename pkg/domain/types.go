package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleNormal  UserRole = "normal"
	RoleTeacher UserRole = "docente"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role belongs to the fixed role set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleNormal, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes a role string; empty input maps to RoleNormal.
func ParseRole(raw string) (UserRole, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return RoleNormal, true
	}
	role := UserRole(raw)
	return role, role.Valid()
}

// File is the metadata of an uploaded document.
type File struct {
	ID           int64     `json:"idarchivo"`
	OriginalName string    `json:"nombreoriginal"`
	Path         string    `json:"rutaarchivo"`
	ContentType  string    `json:"tipoarchivo"`
	Size         int64     `json:"tamano"`
	UploadedAt   time.Time `json:"fechasubida"`
}

// Resource is a cataloged academic document.
type Resource struct {
	ID          int64     `json:"idrecurso"`
	Title       string    `json:"titulo"`
	Type        string    `json:"tiporecurso"`
	Description *string   `json:"descripcion"`
	Content     *string   `json:"contenidotexto"`
	PublishedOn *Date     `json:"fechapublicacion"`
	Language    *string   `json:"idioma"`
	Location    *string   `json:"ubicacion"`
	Verified    bool      `json:"verificado"`
	CreatedAt   time.Time `json:"creadofecha"`
	FileID      *int64    `json:"idarchivo"`
	File        *File     `json:"archivo,omitempty"`
}

// ResourceSummary is a resource annotated with the comma-joined names of
// its authors, topics and tags.
type ResourceSummary struct {
	Resource
	Authors string `json:"autores"`
	Topics  string `json:"temas"`
	Tags    string `json:"etiquetas"`
}

type SearchHit struct {
	ResourceSummary
	Rank float64 `json:"rank"`
}

// SearchPage is one page of search results plus the unpaged match count.
type SearchPage struct {
	Total   int64       `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Results []SearchHit `json:"resultados"`
}

type Author struct {
	ID         int64   `json:"idautor"`
	Name       string  `json:"nombreautor"`
	ProfileURL *string `json:"profileurl"`
	ORCID      *string `json:"orcid"`
}

type Topic struct {
	ID       int64  `json:"idtema"`
	Name     string `json:"nombretema"`
	ParentID *int64 `json:"idtemapadre"`
}

type Tag struct {
	ID   int64  `json:"idetiqueta"`
	Name string `json:"nombreetiqueta"`
}

type ResourceAuthor struct {
	ResourceID int64 `json:"idrecurso"`
	AuthorID   int64 `json:"idautor"`
	Order      *int  `json:"orden"`
}

type ResourceTopic struct {
	ResourceID int64 `json:"idrecurso"`
	TopicID    int64 `json:"idtema"`
}

type ResourceTag struct {
	ResourceID int64 `json:"idrecurso"`
	TagID      int64 `json:"idetiqueta"`
}

type User struct {
	ID           int64     `json:"idusuario"`
	Name         string    `json:"nombreusuario"`
	Phone        *string   `json:"telefono"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Provider     *string   `json:"proveedor,omitempty"`
	ProviderID   *string   `json:"idproveedor,omitempty"`
	StudentCode  *string   `json:"codigoestudiantil,omitempty"`
	Role         UserRole  `json:"rol"`
	CreatedAt    time.Time `json:"fechacreacion"`
}

type Favorite struct {
	UserID     int64     `json:"idusuario"`
	ResourceID int64     `json:"idrecurso"`
	AddedAt    time.Time `json:"agregadofecha"`
}

// FavoriteResource is a favorite joined with its resource summary.
type FavoriteResource struct {
	ResourceSummary
	AddedAt time.Time `json:"agregadofecha"`
}
