package server

import (
	"context"
	"net/http"
)

func createHandler[T any](create func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if !decodeJSON(w, r, &in) {
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func listHandler[T any](list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := list(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if out == nil {
			out = []T{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getHandler[T any](get func(context.Context, int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		out, err := get(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// updateHandler decodes a partial update; fields missing from the body
// are left untouched.
func updateHandler[P, T any](update func(context.Context, int64, P) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var p P
		if !decodeJSON(w, r, &p) {
			return
		}
		out, err := update(r.Context(), id, p)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteHandler(del func(context.Context, int64) error, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := del(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, msg)
	}
}

// unlinkHandler removes a resource link addressed by query parameters,
// e.g. DELETE /recurso_tema?idrecurso=1&idtema=2.
func unlinkHandler(target string, unlink func(context.Context, int64, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := queryID(w, r, "idrecurso")
		if !ok {
			return
		}
		targetID, ok := queryID(w, r, target)
		if !ok {
			return
		}
		if err := unlink(r.Context(), resourceID, targetID); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "Relación eliminada correctamente")
	}
}
