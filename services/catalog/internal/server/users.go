package server

import (
	"net/http"

	"mayorsearch/internal/util"
	"mayorsearch/pkg/domain"
	"mayorsearch/services/catalog/internal/app"
)

const resetRequestedMessage = "Si el correo existe, se enviará un enlace para restablecer la contraseña."

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in app.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := s.app.Register(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, user)
}

// handleLogin accepts credentials as JSON, form fields or query parameters.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.loginLimiter != nil && !s.loginLimiter.Allow(r.Context(), "login:"+util.ClientIP(r, s.trusted)) {
		writeError(w, http.StatusTooManyRequests, "AUTH_RATE_LIMITED", "Demasiados intentos, intente más tarde")
		return
	}
	values, ok := requestValues(w, r, "email", "password")
	if !ok {
		return
	}
	res, err := s.app.Login(r.Context(), values["email"], values["password"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "No autenticado")
		return
	}
	if err := s.app.Logout(r.Context(), token); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Sesión cerrada")
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	values, ok := requestValues(w, r, "email")
	if !ok {
		return
	}
	if err := s.app.ForgotPassword(r.Context(), values["email"]); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, resetRequestedMessage)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	values, ok := requestValues(w, r, "token", "nueva_contrasena")
	if !ok {
		return
	}
	if err := s.app.ResetPassword(r.Context(), values["token"], values["nueva_contrasena"]); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Contraseña actualizada correctamente")
}

type favoriteRequest struct {
	ResourceID int64 `json:"idrecurso"`
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req favoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ResourceID <= 0 {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID_ID", "idrecurso es obligatorio")
		return
	}
	fav, err := s.app.AddFavorite(r.Context(), user, req.ResourceID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request, user domain.User) {
	list, err := s.app.ListFavorites(r.Context(), user)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "idrecurso")
	if !ok {
		return
	}
	if err := s.app.RemoveFavorite(r.Context(), user, id); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recurso eliminado de favoritos")
}

func (s *Server) handleCheckFavorite(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "idrecurso")
	if !ok {
		return
	}
	fav, err := s.app.IsFavorite(r.Context(), user, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorito": fav})
}
