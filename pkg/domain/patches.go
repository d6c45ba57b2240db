package domain

import "mayorsearch/pkg/patch"

// ResourcePatch lists the resource fields a partial update may touch.
type ResourcePatch struct {
	Title       patch.Field[string]  `json:"titulo"`
	Type        patch.Field[string]  `json:"tiporecurso"`
	Description patch.Field[*string] `json:"descripcion"`
	PublishedOn patch.Field[*Date]   `json:"fechapublicacion"`
	Language    patch.Field[*string] `json:"idioma"`
	Location    patch.Field[*string] `json:"ubicacion"`
	Verified    patch.Field[bool]    `json:"verificado"`

	// Set by the upload pipeline when the file is replaced.
	Content patch.Field[*string] `json:"-"`
	FileID  patch.Field[*int64]  `json:"-"`
}

// Apply copies every set field into r.
func (p ResourcePatch) Apply(r *Resource) {
	p.Title.Apply(&r.Title)
	p.Type.Apply(&r.Type)
	p.Description.Apply(&r.Description)
	p.PublishedOn.Apply(&r.PublishedOn)
	p.Language.Apply(&r.Language)
	p.Location.Apply(&r.Location)
	p.Verified.Apply(&r.Verified)
	p.Content.Apply(&r.Content)
	p.FileID.Apply(&r.FileID)
}

type AuthorPatch struct {
	Name       patch.Field[string]  `json:"nombreautor"`
	ProfileURL patch.Field[*string] `json:"profileurl"`
	ORCID      patch.Field[*string] `json:"orcid"`
}

func (p AuthorPatch) Apply(a *Author) {
	p.Name.Apply(&a.Name)
	p.ProfileURL.Apply(&a.ProfileURL)
	p.ORCID.Apply(&a.ORCID)
}

type TopicPatch struct {
	Name     patch.Field[string] `json:"nombretema"`
	ParentID patch.Field[*int64] `json:"idtemapadre"`
}

func (p TopicPatch) Apply(t *Topic) {
	p.Name.Apply(&t.Name)
	p.ParentID.Apply(&t.ParentID)
}

type TagPatch struct {
	Name patch.Field[string] `json:"nombreetiqueta"`
}

func (p TagPatch) Apply(t *Tag) {
	p.Name.Apply(&t.Name)
}

type UserPatch struct {
	Name  patch.Field[string]   `json:"nombreusuario"`
	Phone patch.Field[*string]  `json:"telefono"`
	Email patch.Field[string]   `json:"email"`
	Role  patch.Field[UserRole] `json:"rol"`

	// Set by password reset only.
	PasswordHash patch.Field[string] `json:"-"`
}

func (p UserPatch) Apply(u *User) {
	p.Name.Apply(&u.Name)
	p.Phone.Apply(&u.Phone)
	p.Email.Apply(&u.Email)
	p.Role.Apply(&u.Role)
	p.PasswordHash.Apply(&u.PasswordHash)
}
