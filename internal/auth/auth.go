// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"iot-ingest-backend/internal/apperr"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrSignFailed   = errors.New("sign token failed")
	ErrHashFailed   = errors.New("hash password failed")
)

type Principal struct {
	UserID string
	Email  string
}

// Authenticator verifies an access token.
type Authenticator interface {
	Authenticate(token string) (Principal, error)
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type JWT struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWT(cfg Config) *JWT {
	accessTTL, refreshTTL := cfg.AccessTTL, cfg.RefreshTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &JWT{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (j *JWT) sign(p Principal, secret []byte, ttl time.Duration) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(secret)
}

func (j *JWT) Issue(p Principal) (Tokens, error) {
	const fn = "Auth:Issue"
	access, err := j.sign(p, j.accessSecret, j.accessTTL)
	if err != nil {
		return Tokens{}, fmt.Errorf("%s:%w:%w", fn, ErrSignFailed, err)
	}
	refresh, err := j.sign(p, j.refreshSecret, j.refreshTTL)
	if err != nil {
		return Tokens{}, fmt.Errorf("%s:%w:%w", fn, ErrSignFailed, err)
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (j *JWT) verify(fn, token string, secret []byte) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%s:%w:%w:%w", fn, apperr.New(apperr.ErrUnauthorized, "invalid or expired token"), ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Principal{}, fmt.Errorf("%s:%w:%w", fn, apperr.New(apperr.ErrUnauthorized, "invalid or expired token"), ErrInvalidToken)
	}
	return Principal{UserID: c.Subject, Email: c.Email}, nil
}

// Authenticate verifies an access token.
func (j *JWT) Authenticate(token string) (Principal, error) {
	return j.verify("Auth:Authenticate", token, j.accessSecret)
}

func (j *JWT) VerifyRefresh(token string) (Principal, error) {
	return j.verify("Auth:VerifyRefresh", token, j.refreshSecret)
}

type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("Auth:Hash:%w:%w", ErrHashFailed, err)
	}
	return string(hash), nil
}

func (h *Hasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
