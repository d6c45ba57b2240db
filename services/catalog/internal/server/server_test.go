package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mayorsearch/internal/ratelimit"
	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/session"
	"mayorsearch/pkg/storage"
	"mayorsearch/pkg/store"
	"mayorsearch/services/catalog/internal/app"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

type fixedText string

func (f fixedText) Extract(context.Context, []byte) (string, error) { return string(f), nil }

type resetOutbox struct {
	tokens []string
}

func (o *resetOutbox) SendReset(_ context.Context, _ domain.User, token string) error {
	o.tokens = append(o.tokens, token)
	return nil
}

type testServer struct {
	handler http.Handler
	objects *storage.MemoryStore
	outbox  *resetOutbox
}

func newTestServer(t *testing.T, limiter Limiter) testServer {
	t.Helper()
	sessions, err := session.NewManager("server-test-secret-0123456789", session.NewMemoryTokenRevoker(), session.Options{TTL: time.Hour})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	objects := storage.NewMemoryStore()
	outbox := &resetOutbox{}
	a, err := app.New(app.Config{
		Store:          store.NewMemoryStore(),
		Objects:        objects,
		Sessions:       sessions,
		Extractor:      fixedText("texto del documento"),
		ResetSender:    outbox,
		MaxUploadBytes: 1 << 20,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: a, LoginLimiter: limiter})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return testServer{handler: srv.Router(), objects: objects, outbox: outbox}
}

func (ts testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts testServer) sendJSON(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(t, req)
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	body := decode[errorResponse](t, rec)
	if body.Code != code {
		t.Fatalf("expected code %s, got %+v", code, body)
	}
	if body.RequestID == "" || body.RequestID != rec.Header().Get("X-Request-Id") {
		t.Fatalf("error body should echo the request id, got %+v", body)
	}
}

func (ts testServer) createResource(t *testing.T, fields map[string]string) domain.Resource {
	t.Helper()
	rec := ts.do(t, multipartRequest(t, http.MethodPost, "/recursos", fields, "documento.pdf", samplePDF))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create resource: %d %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Resource](t, rec)
}

func (ts testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := ts.sendJSON(t, http.MethodPost, "/usuarios", map[string]string{
		"nombreusuario": "Laura Ruiz",
		"email":         email,
		"password":      password,
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.sendJSON(t, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	return decode[app.LoginResult](t, rec).AccessToken
}

func TestWelcomeAndHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["mensaje"] != welcomeMessage {
		t.Fatalf("unexpected welcome: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["status"] != "ok" {
		t.Fatalf("unexpected health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestResourceLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	res := ts.createResource(t, map[string]string{
		"titulo":           "Teoría de Grafos",
		"tiporecurso":      "libro",
		"fechapublicacion": "2023-04-01",
		"idioma":           "es",
		"verificado":       "true",
	})
	if res.Title != "Teoría de Grafos" || !res.Verified || res.PublishedOn == nil || res.PublishedOn.String() != "2023-04-01" {
		t.Fatalf("unexpected resource %+v", res)
	}
	if res.Content == nil || *res.Content != "texto del documento" {
		t.Fatalf("expected extracted text, got %v", res.Content)
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/recursos/1", nil))
	if rec.Code != http.StatusOK || decode[domain.Resource](t, rec).File == nil {
		t.Fatalf("get resource: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, multipartRequest(t, http.MethodPut, "/recursos/1", map[string]string{"idioma": "", "tiporecurso": "tesis"}, "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("multipart update: %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[domain.Resource](t, rec)
	if updated.Type != "tesis" || updated.Language != nil || updated.Title != res.Title {
		t.Fatalf("unexpected multipart update %+v", updated)
	}

	rec = ts.sendJSON(t, http.MethodPut, "/recursos/1", map[string]any{"descripcion": "Notas de clase"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("json update: %d %s", rec.Code, rec.Body.String())
	}
	if d := decode[domain.Resource](t, rec).Description; d == nil || *d != "Notas de clase" {
		t.Fatalf("description not set: %v", d)
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/recursos/1/archivo", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: %d %s", rec.Code, rec.Body.String())
	}
	if dl := decode[app.Download](t, rec); dl.URL == "" || dl.Filename != "documento.pdf" {
		t.Fatalf("unexpected download %+v", dl)
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodDelete, "/recursos/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if ts.objects.Len() != 0 {
		t.Fatal("stored object should be removed")
	}
	expectError(t, ts.do(t, httptest.NewRequest(http.MethodGet, "/recursos/1", nil)), http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

func TestResourceUploadErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	fields := map[string]string{"titulo": "Tesis", "tiporecurso": "tesis"}

	rec := ts.do(t, multipartRequest(t, http.MethodPost, "/recursos", fields, "notas.txt", []byte("hola")))
	expectError(t, rec, http.StatusBadRequest, "RESOURCE_UNSUPPORTED_FILE")

	rec = ts.do(t, multipartRequest(t, http.MethodPost, "/recursos", fields, "", nil))
	expectError(t, rec, http.StatusBadRequest, "RESOURCE_FILE_REQUIRED")

	bad := map[string]string{"titulo": "Tesis", "tiporecurso": "tesis", "fechapublicacion": "01/04/2023"}
	rec = ts.do(t, multipartRequest(t, http.MethodPost, "/recursos", bad, "t.pdf", samplePDF))
	expectError(t, rec, http.StatusBadRequest, "RESOURCE_INVALID_DATE")

	big := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 3<<20)...)
	rec = ts.do(t, multipartRequest(t, http.MethodPost, "/recursos", fields, "grande.pdf", big))
	expectError(t, rec, http.StatusRequestEntityTooLarge, "RESOURCE_FILE_TOO_LARGE")

	expectError(t, ts.do(t, httptest.NewRequest(http.MethodGet, "/recursos/abc", nil)), http.StatusBadRequest, "REQUEST_INVALID_ID")
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createResource(t, map[string]string{"titulo": "Hoja de Vida", "tiporecurso": "documento"})
	ts.createResource(t, map[string]string{"titulo": "Redes Neuronales", "tiporecurso": "articulo"})

	for _, path := range []string{"/recursos/buscar", "/recursos/recursos/buscar"} {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, path+"?q=hojadevida", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", path, rec.Code, rec.Body.String())
		}
		page := decode[domain.SearchPage](t, rec)
		if page.Total != 1 || len(page.Results) != 1 || page.Results[0].Title != "Hoja de Vida" {
			t.Fatalf("%s: unexpected page %+v", path, page)
		}
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/recursos/buscar?limit=0", nil))
	expectError(t, rec, http.StatusBadRequest, "SEARCH_INVALID_PARAM")
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createResource(t, map[string]string{"titulo": "Cálculo", "tiporecurso": "libro"})

	rec := ts.sendJSON(t, http.MethodPost, "/autores", map[string]any{"nombreautor": "Ana Gómez"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create author: %d %s", rec.Code, rec.Body.String())
	}
	author := decode[domain.Author](t, rec)

	rec = ts.sendJSON(t, http.MethodPut, "/autores/1", map[string]any{"orcid": "0000-0001"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("update author: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Author](t, rec); got.Name != "Ana Gómez" || got.ORCID == nil {
		t.Fatalf("unexpected author %+v", got)
	}

	rec = ts.sendJSON(t, http.MethodPost, "/recurso_autor", map[string]any{"idrecurso": 1, "idautor": author.ID, "orden": 1}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("link author: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.sendJSON(t, http.MethodPost, "/recurso_autor", map[string]any{"idrecurso": 1, "idautor": author.ID}, ""), http.StatusConflict, "LINK_CONFLICT")

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/autores/1/recursos", nil))
	if list := decode[[]domain.ResourceSummary](t, rec); len(list) != 1 {
		t.Fatalf("author resources: %s", rec.Body.String())
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodDelete, "/recurso_autor?idrecurso=1&idautor=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unlink: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.do(t, httptest.NewRequest(http.MethodDelete, "/recurso_autor?idrecurso=1&idautor=1", nil)), http.StatusNotFound, "LINK_NOT_FOUND")
	expectError(t, ts.do(t, httptest.NewRequest(http.MethodDelete, "/recurso_autor?idrecurso=1", nil)), http.StatusBadRequest, "REQUEST_INVALID_ID")

	rec = ts.sendJSON(t, http.MethodPost, "/etiquetas", map[string]any{"nombreetiqueta": "tesis"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tag: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.sendJSON(t, http.MethodPost, "/etiquetas", map[string]any{"nombreetiqueta": "tesis"}, ""), http.StatusConflict, "TAG_CONFLICT")

	expectError(t, ts.sendJSON(t, http.MethodPost, "/temas", map[string]any{"nombretema": "Huérfano", "idtemapadre": 99}, ""), http.StatusNotFound, "TOPIC_PARENT_NOT_FOUND")

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/temas", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list should be an array: %s", rec.Body.String())
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodDelete, "/autores/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete author: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.do(t, httptest.NewRequest(http.MethodGet, "/autores/1", nil)), http.StatusNotFound, "AUTHOR_NOT_FOUND")
	expectError(t, ts.sendJSON(t, http.MethodPost, "/autores", nil, ""), http.StatusBadRequest, "REQUEST_INVALID_JSON")
}

func TestLoginFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "laura@example.com", "clave-segura-1")

	rec := ts.sendJSON(t, http.MethodGet, "/usuarios/me", nil, token)
	if rec.Code != http.StatusOK || decode[domain.User](t, rec).Email != "laura@example.com" {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("password hash must never be serialized")
	}

	form := url.Values{"email": {"laura@example.com"}, "password": {"clave-segura-1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := ts.do(t, req); rec.Code != http.StatusOK {
		t.Fatalf("form login: %d %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/login?email=laura@example.com&password=clave-segura-1", nil)); rec.Code != http.StatusOK {
		t.Fatalf("query login: %d %s", rec.Code, rec.Body.String())
	}

	expectError(t, ts.sendJSON(t, http.MethodPost, "/login", map[string]string{"email": "nadie@example.com", "password": "x"}, ""), http.StatusNotFound, "USER_NOT_FOUND")
	expectError(t, ts.sendJSON(t, http.MethodPost, "/login", map[string]string{"email": "laura@example.com", "password": "mala-clave"}, ""), http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS")

	if rec := ts.sendJSON(t, http.MethodPost, "/logout", nil, token); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.sendJSON(t, http.MethodGet, "/usuarios/me", nil, token), http.StatusUnauthorized, "AUTH_INVALID_TOKEN")
	expectError(t, ts.sendJSON(t, http.MethodGet, "/usuarios/me", nil, ""), http.StatusUnauthorized, "AUTH_INVALID_TOKEN")
}

func TestPasswordResetEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.login(t, "laura@example.com", "clave-segura-1")

	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/forgot-password?email=nadie@example.com", nil))
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["mensaje"] != resetRequestedMessage {
		t.Fatalf("forgot unknown: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.sendJSON(t, http.MethodPost, "/forgot-password", map[string]string{"email": "laura@example.com"}, "")
	if rec.Code != http.StatusOK || len(ts.outbox.tokens) != 1 {
		t.Fatalf("forgot: %d %s (%d tokens)", rec.Code, rec.Body.String(), len(ts.outbox.tokens))
	}

	q := url.Values{"token": {ts.outbox.tokens[0]}, "nueva_contrasena": {"nueva-clave-123"}}
	rec = ts.do(t, httptest.NewRequest(http.MethodPost, "/reset-password?"+q.Encode(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.do(t, httptest.NewRequest(http.MethodPost, "/reset-password?"+q.Encode(), nil)), http.StatusBadRequest, "AUTH_INVALID_RESET_TOKEN")

	rec = ts.sendJSON(t, http.MethodPost, "/login", map[string]string{"email": "laura@example.com", "password": "nueva-clave-123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d %s", rec.Code, rec.Body.String())
	}
}

func TestFavoritesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createResource(t, map[string]string{"titulo": "Grafos", "tiporecurso": "libro"})
	token := ts.login(t, "laura@example.com", "clave-segura-1")

	expectError(t, ts.sendJSON(t, http.MethodGet, "/favoritos", nil, ""), http.StatusUnauthorized, "AUTH_INVALID_TOKEN")

	rec := ts.sendJSON(t, http.MethodPost, "/favoritos", map[string]int64{"idrecurso": 1}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add favorite: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.sendJSON(t, http.MethodPost, "/favoritos", map[string]int64{"idrecurso": 1}, token), http.StatusConflict, "FAVORITE_CONFLICT")
	expectError(t, ts.sendJSON(t, http.MethodPost, "/favoritos", map[string]int64{"idrecurso": 42}, token), http.StatusNotFound, "RESOURCE_NOT_FOUND")

	rec = ts.sendJSON(t, http.MethodGet, "/favoritos/check/1", nil, token)
	if !decode[map[string]bool](t, rec)["favorito"] {
		t.Fatalf("check favorite: %s", rec.Body.String())
	}
	rec = ts.sendJSON(t, http.MethodGet, "/favoritos", nil, token)
	if list := decode[[]domain.FavoriteResource](t, rec); len(list) != 1 || list[0].Title != "Grafos" {
		t.Fatalf("list favorites: %s", rec.Body.String())
	}

	if rec := ts.sendJSON(t, http.MethodDelete, "/favoritos/1", nil, token); rec.Code != http.StatusOK {
		t.Fatalf("remove favorite: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, ts.sendJSON(t, http.MethodDelete, "/favoritos/1", nil, token), http.StatusNotFound, "FAVORITE_NOT_FOUND")
}

func TestLoginRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewFixedWindowLimiter(client, ratelimit.DefaultPrefix, 1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	ts := newTestServer(t, limiter)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	body := `{"email":"nadie@example.com","password":"clave-segura-1"}`
	resp1, err := http.Post(srv.URL+"/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("first login request failed: %v", err)
	}
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusNotFound {
		t.Fatalf("first request expected 404, got %d", resp1.StatusCode)
	}

	resp2, err := http.Post(srv.URL+"/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("second login request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", resp2.StatusCode)
	}
}
