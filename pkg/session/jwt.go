// Package session issues and verifies HS256 access tokens.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"mayorsearch/pkg/domain"
)

const (
	defaultIssuer = "mayorsearch"
	defaultTTL    = 24 * time.Hour
	defaultLeeway = 30 * time.Second
	minSecretLen  = 16

	// ResetTTL bounds the lifetime of password reset tokens.
	ResetTTL     = 15 * time.Minute
	purposeReset = "password_reset"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token revoked")
)

// Claims carries the user ID under the idusuario claim plus the registered
// claims (sub holds the email).
type Claims struct {
	UserID  int64  `json:"idusuario"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Options configures token lifetime and claim validation.
type Options struct {
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
}

// Manager signs and verifies tokens with a shared secret.
type Manager struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	leeway  time.Duration
	revoker TokenRevoker
	now     func() time.Time
}

// NewManager builds a token manager. revoker may be nil, in which case
// logout has no effect on outstanding tokens.
func NewManager(secret string, revoker TokenRevoker, opts Options) (*Manager, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLen)
	}
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	return &Manager{
		secret:  []byte(secret),
		issuer:  opts.Issuer,
		ttl:     opts.TTL,
		leeway:  opts.Leeway,
		revoker: revoker,
		now:     time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs an access token for the user.
func (m *Manager) Issue(u domain.User) (string, Claims, error) {
	return m.sign(u, "", m.ttl)
}

// IssueReset signs a short-lived token that only VerifyReset accepts.
func (m *Manager) IssueReset(u domain.User) (string, Claims, error) {
	return m.sign(u, purposeReset, ResetTTL)
}

func (m *Manager) sign(u domain.User, purpose string, ttl time.Duration) (string, Claims, error) {
	now := m.now().UTC()
	claims := Claims{
		UserID:  u.ID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        randomHexID(12),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses an access token and checks signature, expiry, issuer and
// revocation.
func (m *Manager) Verify(ctx context.Context, token string) (Claims, error) {
	return m.verify(ctx, token, "")
}

// VerifyReset accepts only password reset tokens.
func (m *Manager) VerifyReset(ctx context.Context, token string) (Claims, error) {
	return m.verify(ctx, token, purposeReset)
}

func (m *Manager) verify(ctx context.Context, token, purpose string) (Claims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Purpose != purpose {
		return Claims{}, ErrInvalidToken
	}
	if m.revoker == nil {
		return claims, nil
	}
	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrRevokedToken
	}
	if userRevoker, ok := m.revoker.(UserTokenRevoker); ok {
		cutoff, err := userRevoker.RevokedAfter(ctx, claims.UserID)
		if err != nil {
			return Claims{}, fmt.Errorf("check user revocation: %w", err)
		}
		if !cutoff.IsZero() && claims.IssuedAt.Time.Before(cutoff) {
			return Claims{}, ErrRevokedToken
		}
	}
	return claims, nil
}

// Revoke invalidates the token until it would have expired. Tokens that no
// longer parse are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if m.revoker == nil {
		return nil
	}
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time.Sub(m.now()))
}

// RevokeUser invalidates every token issued to the user before the current
// second. iat has second precision, so tokens minted later in the same second
// stay valid.
func (m *Manager) RevokeUser(ctx context.Context, userID int64) error {
	userRevoker, ok := m.revoker.(UserTokenRevoker)
	if !ok {
		return nil
	}
	cutoff := m.now().UTC().Truncate(time.Second)
	return userRevoker.RevokeUser(ctx, userID, cutoff, max(m.ttl, ResetTTL)+m.leeway)
}

func (m *Manager) parse(token string) (Claims, error) {
	claims := Claims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 || strings.TrimSpace(claims.ID) == "" || claims.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func randomHexID(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
