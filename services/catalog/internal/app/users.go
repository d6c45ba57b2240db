package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"mayorsearch/internal/util"
	"mayorsearch/pkg/auth"
	"mayorsearch/pkg/domain"
	"mayorsearch/pkg/patch"
	"mayorsearch/pkg/session"
)

const (
	maxUserNameLen    = 100
	maxPhoneLen       = 20
	maxEmailLen       = 150
	maxProviderLen    = 50
	maxProviderIDLen  = 100
	maxStudentCodeLen = 50
)

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Name        string  `json:"nombreusuario"`
	Phone       *string `json:"telefono"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Provider    *string `json:"proveedor"`
	ProviderID  *string `json:"idproveedor"`
	StudentCode *string `json:"codigoestudiantil"`
	Role        string  `json:"rol"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	UserID      int64           `json:"idusuario"`
	Role        domain.UserRole `json:"rol"`
	Message     string          `json:"mensaje"`
}

// Register creates an account with a bcrypt-hashed password. The role
// defaults to normal.
func (a *App) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	if err := validateUserName(in.Name); err != nil {
		return domain.User{}, err
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return domain.User{}, errInvalidRole
	}
	for _, f := range []struct {
		code, field string
		value       *string
		max         int
	}{
		{"USER_INVALID_PHONE", "telefono", in.Phone, maxPhoneLen},
		{"USER_INVALID_PROVIDER", "proveedor", in.Provider, maxProviderLen},
		{"USER_INVALID_PROVIDER", "idproveedor", in.ProviderID, maxProviderIDLen},
		{"USER_INVALID_STUDENT_CODE", "codigoestudiantil", in.StudentCode, maxStudentCodeLen},
	} {
		if f.value != nil {
			if err := checkLen(f.code, f.field, *f.value, f.max); err != nil {
				return domain.User{}, err
			}
		}
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, invalid("USER_WEAK_PASSWORD", "La contraseña debe tener entre 8 y 72 caracteres")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	created, err := a.store.CreateUser(ctx, domain.User{
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        email,
		PasswordHash: hash,
		Provider:     in.Provider,
		ProviderID:   in.ProviderID,
		StudentCode:  in.StudentCode,
		Role:         role,
		CreatedAt:    a.now().UTC(),
	})
	if err != nil {
		return domain.User{}, storeError("create user", err, nil, errEmailExists)
	}
	return created, nil
}

func (a *App) ListUsers(ctx context.Context) ([]domain.User, error) {
	list, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// UpdateUser applies the fields present in p after validating them.
func (a *App) UpdateUser(ctx context.Context, id int64, p domain.UserPatch) (domain.User, error) {
	p.PasswordHash = patch.Field[string]{}
	if p.Name.Set {
		p.Name.Value = strings.TrimSpace(p.Name.Value)
		if err := validateUserName(p.Name.Value); err != nil {
			return domain.User{}, err
		}
	}
	if phone, ok := p.Phone.Get(); ok && phone != nil {
		if err := checkLen("USER_INVALID_PHONE", "telefono", *phone, maxPhoneLen); err != nil {
			return domain.User{}, err
		}
	}
	if p.Email.Set {
		email, err := normalizeEmail(p.Email.Value)
		if err != nil {
			return domain.User{}, err
		}
		p.Email.Value = email
	}
	if p.Role.Set {
		role, ok := domain.ParseRole(string(p.Role.Value))
		if !ok {
			return domain.User{}, errInvalidRole
		}
		p.Role.Value = role
	}
	updated, err := a.store.UpdateUser(ctx, id, p)
	if err != nil {
		return domain.User{}, storeError("update user", err, errUserNotFound, errEmailExists)
	}
	return updated, nil
}

// DeleteUser removes the account and invalidates its outstanding tokens.
func (a *App) DeleteUser(ctx context.Context, id int64) error {
	if err := a.store.DeleteUser(ctx, id); err != nil {
		return storeError("delete user", err, errUserNotFound, nil)
	}
	if err := a.sessions.RevokeUser(ctx, id); err != nil {
		util.LoggerFromContext(ctx).Error("revoke user tokens failed", "idusuario", id, "err", err)
	}
	return nil
}

// Login checks the credentials and issues an access token. An unknown
// email is reported as not found, a wrong password as invalid credentials.
func (a *App) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, invalid("AUTH_INVALID_REQUEST", "Correo y contraseña son obligatorios")
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return LoginResult{}, errUserNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return LoginResult{}, errWrongPassword
	}
	token, _, err := a.sessions.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(a.sessions.TTL() / time.Second),
		UserID:      user.ID,
		Role:        user.Role,
		Message:     "Bienvenido " + user.Name,
	}, nil
}

// Logout revokes the presented token.
func (a *App) Logout(ctx context.Context, token string) error {
	if err := a.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user.
func (a *App) Authenticate(ctx context.Context, token string) (domain.User, error) {
	claims, err := a.sessions.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrRevokedToken) {
			return domain.User{}, errInvalidToken
		}
		return domain.User{}, fmt.Errorf("verify token: %w", err)
	}
	user, ok, err := a.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, errTokenUser
	}
	return user, nil
}

// ForgotPassword sends a reset token when the email belongs to an account.
// The outcome is the same either way so callers cannot probe for accounts.
func (a *App) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("AUTH_INVALID_REQUEST", "El correo es obligatorio")
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return nil
	}
	token, _, err := a.sessions.IssueReset(user)
	if err != nil {
		return err
	}
	if err := a.resetSender.SendReset(ctx, user, token); err != nil {
		util.LoggerFromContext(ctx).Error("send reset token failed", "idusuario", user.ID, "err", err)
	}
	return nil
}

// ResetPassword sets a new password from a reset token. The token is
// single use and every session of the user is revoked.
func (a *App) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := a.sessions.VerifyReset(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrRevokedToken) {
			return errResetTokenUsed
		}
		return fmt.Errorf("verify reset token: %w", err)
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return invalid("USER_WEAK_PASSWORD", "La contraseña debe tener entre 8 y 72 caracteres")
	}
	user, ok, err := a.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !ok || !strings.EqualFold(user.Email, claims.Subject) {
		return errUserNotFound
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := a.store.UpdateUser(ctx, user.ID, domain.UserPatch{PasswordHash: patch.Of(hash)}); err != nil {
		return storeError("update password", err, errUserNotFound, nil)
	}
	if err := a.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoke reset token: %w", err)
	}
	if err := a.sessions.RevokeUser(ctx, user.ID); err != nil {
		util.LoggerFromContext(ctx).Error("revoke user tokens failed", "idusuario", user.ID, "err", err)
	}
	return nil
}

// LogResetSender writes the reset link to the debug log. It stands in for
// mail delivery.
type LogResetSender struct{}

func (LogResetSender) SendReset(ctx context.Context, user domain.User, token string) error {
	util.LoggerFromContext(ctx).Debug("password reset token issued",
		"idusuario", user.ID,
		"reset_path", "/reset-password?token="+token,
	)
	return nil
}

var errInvalidRole = invalid("USER_INVALID_ROLE", "Rol inválido: debe ser normal, docente o admin")

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalid("USER_INVALID_EMAIL", "Correo electrónico inválido")
	}
	if err := checkLen("USER_INVALID_EMAIL", "email", email, maxEmailLen); err != nil {
		return "", err
	}
	return email, nil
}

func validateUserName(name string) error {
	if name == "" {
		return invalid("USER_INVALID_NAME", "El nombre de usuario es obligatorio")
	}
	return checkLen("USER_INVALID_NAME", "nombreusuario", name, maxUserNameLen)
}
