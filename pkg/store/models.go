package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Table and column names follow the
// catalog database schema.
type FileModel struct {
	ID           int64     `gorm:"column:idarchivo;primaryKey;autoIncrement"`
	OriginalName string    `gorm:"column:nombreoriginal;size:255"`
	Path         string    `gorm:"column:rutaarchivo;size:500;not null"`
	ContentType  string    `gorm:"column:tipoarchivo;size:100"`
	Size         int64     `gorm:"column:tamano"`
	UploadedAt   time.Time `gorm:"column:fechasubida;not null;default:now()"`
}

func (FileModel) TableName() string { return "archivo" }

type ResourceModel struct {
	ID          int64           `gorm:"column:idrecurso;primaryKey;autoIncrement"`
	Title       string          `gorm:"column:titulo;size:200;not null"`
	Type        string          `gorm:"column:tiporecurso;size:50;not null"`
	Description *string         `gorm:"column:descripcion;type:text"`
	Content     *string         `gorm:"column:contenidotexto;type:text"`
	PublishedOn *datatypes.Date `gorm:"column:fechapublicacion;index"`
	Language    *string         `gorm:"column:idioma;size:50"`
	Location    *string         `gorm:"column:ubicacion;size:200"`
	CreatedAt   time.Time       `gorm:"column:creadofecha;not null;default:now();index"`
	Verified    bool            `gorm:"column:verificado;not null;default:false"`
	FileID      *int64          `gorm:"column:idarchivo;index"`
}

func (ResourceModel) TableName() string { return "recurso" }

type AuthorModel struct {
	ID         int64   `gorm:"column:idautor;primaryKey;autoIncrement"`
	Name       string  `gorm:"column:nombreautor;size:150;not null"`
	ProfileURL *string `gorm:"column:profileurl;size:250"`
	ORCID      *string `gorm:"column:orcid;size:50"`
}

func (AuthorModel) TableName() string { return "autor" }

type TopicModel struct {
	ID       int64  `gorm:"column:idtema;primaryKey;autoIncrement"`
	Name     string `gorm:"column:nombretema;size:100;not null"`
	ParentID *int64 `gorm:"column:idtemapadre;index"`
}

func (TopicModel) TableName() string { return "tema" }

type TagModel struct {
	ID   int64  `gorm:"column:idetiqueta;primaryKey;autoIncrement"`
	Name string `gorm:"column:nombreetiqueta;size:100;not null;uniqueIndex:etiqueta_nombreetiqueta_key"`
}

func (TagModel) TableName() string { return "etiqueta" }

type ResourceAuthorModel struct {
	ResourceID int64 `gorm:"column:idrecurso;primaryKey;autoIncrement:false"`
	AuthorID   int64 `gorm:"column:idautor;primaryKey;autoIncrement:false;index"`
	Order      *int  `gorm:"column:orden"`
}

func (ResourceAuthorModel) TableName() string { return "recurso_autor" }

type ResourceTopicModel struct {
	ResourceID int64 `gorm:"column:idrecurso;primaryKey;autoIncrement:false"`
	TopicID    int64 `gorm:"column:idtema;primaryKey;autoIncrement:false;index"`
}

func (ResourceTopicModel) TableName() string { return "recurso_tema" }

type ResourceTagModel struct {
	ResourceID int64 `gorm:"column:idrecurso;primaryKey;autoIncrement:false"`
	TagID      int64 `gorm:"column:idetiqueta;primaryKey;autoIncrement:false;index"`
}

func (ResourceTagModel) TableName() string { return "recurso_etiqueta" }

type UserModel struct {
	ID          int64     `gorm:"column:idusuario;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:nombreusuario;size:100;not null"`
	Phone       *string   `gorm:"column:telefono;size:20"`
	Email       string    `gorm:"column:email;size:150;uniqueIndex:usuario_email_key"`
	Password    *string   `gorm:"column:password;size:200"`
	Provider    *string   `gorm:"column:proveedor;size:50"`
	ProviderID  *string   `gorm:"column:idproveedor;size:100"`
	StudentCode *string   `gorm:"column:codigoestudiantil;size:50"`
	Role        string    `gorm:"column:rol;size:50;not null;default:'normal';check:usuario_rol_check,rol IN ('normal','docente','admin')"`
	CreatedAt   time.Time `gorm:"column:fechacreacion;not null;default:now()"`
}

func (UserModel) TableName() string { return "usuario" }

type FavoriteModel struct {
	UserID     int64     `gorm:"column:idusuario;primaryKey;autoIncrement:false"`
	ResourceID int64     `gorm:"column:idrecurso;primaryKey;autoIncrement:false;index"`
	AddedAt    time.Time `gorm:"column:agregadofecha;not null;default:now()"`
}

func (FavoriteModel) TableName() string { return "favorito" }
