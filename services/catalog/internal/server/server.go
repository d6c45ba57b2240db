package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"mayorsearch/internal/util"
	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/search"
	"mayorsearch/services/catalog/internal/app"
)

const (
	welcomeMessage = "Bienvenido al repositorio académico Mayorsearch"
	maxJSONBytes   = 1 << 20
	// multipart framing and text fields on top of the file itself
	formOverhead = 1 << 20
)

// Limiter decides whether a caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	LoginLimiter   Limiter
	CORSOrigins    []string
	TrustedProxies *util.TrustedProxies
}

// Server exposes the catalog HTTP API.
type Server struct {
	app          *app.App
	loginLimiter Limiter
	corsOrigins  []string
	trusted      *util.TrustedProxies
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	s := &Server{
		app:          cfg.App,
		loginLimiter: cfg.LoginLimiter,
		corsOrigins:  cfg.CORSOrigins,
		trusted:      cfg.TrustedProxies,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	cors := util.WithCORS(s.corsOrigins)
	return util.WithRequestID(util.WithRequestLog(s.trusted, util.WithSecurityHeaders(s.trusted, cors(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleWelcome)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// resources
	s.mux.HandleFunc("POST /recursos", s.handleCreateResource)
	s.mux.HandleFunc("GET /recursos", s.handleListResources)
	s.mux.HandleFunc("GET /recursos/buscar", s.handleSearch)
	s.mux.HandleFunc("GET /recursos/recursos/buscar", s.handleSearch)
	s.mux.HandleFunc("GET /recursos/{id}", s.handleGetResource)
	s.mux.HandleFunc("PUT /recursos/{id}", s.handleUpdateResource)
	s.mux.HandleFunc("DELETE /recursos/{id}", s.handleDeleteResource)
	s.mux.HandleFunc("GET /recursos/{id}/archivo", s.handleResourceFile)

	// catalog
	s.mux.HandleFunc("POST /autores", createHandler(s.app.CreateAuthor))
	s.mux.HandleFunc("GET /autores", listHandler(s.app.ListAuthors))
	s.mux.HandleFunc("GET /autores/{id}", getHandler(s.app.GetAuthor))
	s.mux.HandleFunc("PUT /autores/{id}", updateHandler(s.app.UpdateAuthor))
	s.mux.HandleFunc("DELETE /autores/{id}", deleteHandler(s.app.DeleteAuthor, "Autor eliminado correctamente"))
	s.mux.HandleFunc("GET /autores/{id}/recursos", getHandler(s.app.AuthorResources))

	s.mux.HandleFunc("POST /temas", createHandler(s.app.CreateTopic))
	s.mux.HandleFunc("GET /temas", listHandler(s.app.ListTopics))
	s.mux.HandleFunc("GET /temas/{id}", getHandler(s.app.GetTopic))
	s.mux.HandleFunc("PUT /temas/{id}", updateHandler(s.app.UpdateTopic))
	s.mux.HandleFunc("DELETE /temas/{id}", deleteHandler(s.app.DeleteTopic, "Tema eliminado correctamente"))

	s.mux.HandleFunc("POST /etiquetas", createHandler(s.app.CreateTag))
	s.mux.HandleFunc("GET /etiquetas", listHandler(s.app.ListTags))
	s.mux.HandleFunc("GET /etiquetas/{id}", getHandler(s.app.GetTag))
	s.mux.HandleFunc("PUT /etiquetas/{id}", updateHandler(s.app.UpdateTag))
	s.mux.HandleFunc("DELETE /etiquetas/{id}", deleteHandler(s.app.DeleteTag, "Etiqueta eliminada correctamente"))

	s.mux.HandleFunc("POST /recurso_autor", createHandler(s.app.LinkAuthor))
	s.mux.HandleFunc("GET /recurso_autor", listHandler(s.app.ListAuthorLinks))
	s.mux.HandleFunc("DELETE /recurso_autor", unlinkHandler("idautor", s.app.UnlinkAuthor))
	s.mux.HandleFunc("POST /recurso_tema", createHandler(s.app.LinkTopic))
	s.mux.HandleFunc("GET /recurso_tema", listHandler(s.app.ListTopicLinks))
	s.mux.HandleFunc("DELETE /recurso_tema", unlinkHandler("idtema", s.app.UnlinkTopic))
	s.mux.HandleFunc("POST /recurso_etiqueta", createHandler(s.app.LinkTag))
	s.mux.HandleFunc("GET /recurso_etiqueta", listHandler(s.app.ListTagLinks))
	s.mux.HandleFunc("DELETE /recurso_etiqueta", unlinkHandler("idetiqueta", s.app.UnlinkTag))

	// users
	s.mux.HandleFunc("POST /usuarios", s.handleRegister)
	s.mux.HandleFunc("GET /usuarios", listHandler(s.app.ListUsers))
	s.mux.Handle("GET /usuarios/me", s.withUser(s.handleMe))
	s.mux.HandleFunc("PUT /usuarios/{id}", updateHandler(s.app.UpdateUser))
	s.mux.HandleFunc("DELETE /usuarios/{id}", deleteHandler(s.app.DeleteUser, "Usuario eliminado correctamente"))
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("POST /forgot-password", s.handleForgotPassword)
	s.mux.HandleFunc("POST /reset-password", s.handleResetPassword)

	// favorites
	s.mux.Handle("POST /favoritos", s.withUser(s.handleAddFavorite))
	s.mux.Handle("GET /favoritos", s.withUser(s.handleListFavorites))
	s.mux.Handle("DELETE /favoritos/{idrecurso}", s.withUser(s.handleRemoveFavorite))
	s.mux.Handle("GET /favoritos/check/{idrecurso}", s.withUser(s.handleCheckFavorite))
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": welcomeMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ping(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "SYSTEM_UNAVAILABLE", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := search.Parse(r.URL.Query(), s.app.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "SEARCH_INVALID_PARAM", err.Error())
		return
	}
	page, err := s.app.Search(r.Context(), q)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "No autenticado")
			return
		}
		user, err := s.app.Authenticate(r.Context(), token)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		next(w, r, user)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID_ID", fmt.Sprintf("Identificador inválido: %s", name))
		return 0, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(name)), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID_ID", fmt.Sprintf("Parámetro %s obligatorio", name))
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID_JSON", "Cuerpo JSON inválido")
		return false
	}
	return true
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// requestValues reads flat string fields from a JSON body, or from the
// query string and url-encoded form otherwise.
func requestValues(w http.ResponseWriter, r *http.Request, keys ...string) (map[string]string, bool) {
	out := make(map[string]string, len(keys))
	if isJSON(r) {
		var body map[string]any
		if !decodeJSON(w, r, &body) {
			return nil, false
		}
		for _, k := range keys {
			if v, ok := body[k].(string); ok {
				out[k] = v
			}
		}
		return out, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID_FORM", "Formulario inválido")
		return nil, false
	}
	for _, k := range keys {
		out[k] = r.Form.Get(k)
	}
	return out, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"mensaje": msg})
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

// writeAppError maps application errors to a status and stable code.
// Anything unrecognized is logged and reported as an internal error.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *app.Error
	if !errors.As(err, &appErr) {
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR", "Error interno")
		return
	}
	writeError(w, statusFor(appErr), appErr.Code, appErr.Message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, app.ErrUnauthorized), errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrUnsupportedFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
