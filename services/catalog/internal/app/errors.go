package app

import (
	"errors"
	"fmt"

	"mayorsearch/pkg/store"
)

// Error kinds. Every error returned by App either wraps one of these or is
// an unexpected infrastructure failure.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsupportedFile    = errors.New("unsupported file")
	ErrFileTooLarge       = errors.New("file too large")
)

// Error is a client-facing failure with a stable code and a message meant
// for end users.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func invalid(code, format string, args ...any) *Error {
	return newError(ErrValidation, code, fmt.Sprintf(format, args...))
}

var (
	errResourceNotFound = newError(ErrNotFound, "RESOURCE_NOT_FOUND", "Recurso no encontrado")
	errAuthorNotFound   = newError(ErrNotFound, "AUTHOR_NOT_FOUND", "Autor no encontrado")
	errTopicNotFound    = newError(ErrNotFound, "TOPIC_NOT_FOUND", "Tema no encontrado")
	errTagNotFound      = newError(ErrNotFound, "TAG_NOT_FOUND", "Etiqueta no encontrada")
	errUserNotFound     = newError(ErrNotFound, "USER_NOT_FOUND", "Usuario no encontrado")
	errFileNotFound     = newError(ErrNotFound, "FILE_NOT_FOUND", "El recurso no tiene archivo asociado")
	errLinkNotFound     = newError(ErrNotFound, "LINK_NOT_FOUND", "Vínculo no encontrado")
	errFavoriteNotFound = newError(ErrNotFound, "FAVORITE_NOT_FOUND", "No tienes este recurso en favoritos")

	errLinkExists     = newError(ErrConflict, "LINK_CONFLICT", "Ya existe esta relación")
	errTagExists      = newError(ErrConflict, "TAG_CONFLICT", "Ya existe una etiqueta con ese nombre")
	errEmailExists    = newError(ErrConflict, "USER_EMAIL_CONFLICT", "El correo ya está registrado")
	errFavoriteExists = newError(ErrConflict, "FAVORITE_CONFLICT", "Este recurso ya está en tus favoritos")

	errNotPDF         = newError(ErrUnsupportedFile, "RESOURCE_UNSUPPORTED_FILE", "Solo PDFs permitidos por ahora.")
	errFileRequired   = newError(ErrValidation, "RESOURCE_FILE_REQUIRED", "El archivo es obligatorio")
	errFileTooLarge   = newError(ErrFileTooLarge, "RESOURCE_FILE_TOO_LARGE", "El archivo supera el tamaño máximo permitido")
	errWrongPassword  = newError(ErrInvalidCredentials, "AUTH_INVALID_CREDENTIALS", "Contraseña incorrecta")
	errInvalidToken   = newError(ErrUnauthorized, "AUTH_INVALID_TOKEN", "Token inválido o expirado")
	errTokenUser      = newError(ErrUnauthorized, "AUTH_INVALID_TOKEN", "Usuario no existe")
	errResetTokenUsed = newError(ErrValidation, "AUTH_INVALID_RESET_TOKEN", "Token inválido o expirado")
)

// storeError maps store sentinels onto client errors. notFound is used both
// for absent rows and for missing foreign references; conflict for
// duplicates. Other errors pass through wrapped with op.
func storeError(op string, err error, notFound, conflict *Error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrMissingReference):
		if notFound != nil {
			return notFound
		}
	case errors.Is(err, store.ErrDuplicate):
		if conflict != nil {
			return conflict
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
