// Package users manages accounts and their credentials.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/auth"
	"iot-ingest-backend/internal/db"
)

const MinPasswordLength = 6

var (
	ErrCreateFailed = errors.New("create user failed")
	ErrUpdateFailed = errors.New("update user failed")
	ErrDeleteFailed = errors.New("delete user failed")
)

type store interface {
	CreateUser(ctx context.Context, u db.User) (db.User, error)
	GetUser(ctx context.Context, id string) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	ListUsers(ctx context.Context) ([]db.User, error)
	UpdateUser(ctx context.Context, id, name, email string) (db.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type tokenIssuer interface {
	Issue(p auth.Principal) (auth.Tokens, error)
	VerifyRefresh(token string) (auth.Principal, error)
}

type Config struct {
	Store  store
	Hasher hasher
	Tokens tokenIssuer
}

type Service struct {
	store  store
	hasher hasher
	tokens tokenIssuer
}

func New(cfg Config) *Service {
	return &Service{store: cfg.Store, hasher: cfg.Hasher, tokens: cfg.Tokens}
}

type CreateInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth *time.Time
}

func invalid(fn, msg string) error {
	return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrInvalidArgument, msg))
}

func normalizeEmail(fn, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid(fn, "email is invalid")
	}
	return email, nil
}

// Create registers an account and signs it in.
func (s *Service) Create(ctx context.Context, in CreateInput) (db.User, auth.Tokens, error) {
	const fn = "Users:Create"
	email, err := normalizeEmail(fn, in.Email)
	if err != nil {
		return db.User{}, auth.Tokens{}, err
	}
	if len(in.Password) < MinPasswordLength {
		return db.User{}, auth.Tokens{}, invalid(fn, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return db.User{}, auth.Tokens{}, fmt.Errorf("%s:%w:%w", fn, ErrCreateFailed, err)
	}
	u, err := s.store.CreateUser(ctx, db.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		DateOfBirth:  in.DateOfBirth,
	})
	if err != nil {
		return db.User{}, auth.Tokens{}, fmt.Errorf("%s:%w:%w", fn, ErrCreateFailed, err)
	}
	tokens, err := s.tokens.Issue(auth.Principal{UserID: u.ID, Email: u.Email})
	if err != nil {
		return db.User{}, auth.Tokens{}, fmt.Errorf("%s:%w", fn, err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, tokens, nil
}

func unauthorized(fn string) error {
	return fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrUnauthorized, "invalid email or password"))
}

func (s *Service) Login(ctx context.Context, email, password string) (db.User, auth.Tokens, error) {
	const fn = "Users:Login"
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return db.User{}, auth.Tokens{}, unauthorized(fn)
	}
	if err != nil {
		return db.User{}, auth.Tokens{}, fmt.Errorf("%s:%w", fn, err)
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		return db.User{}, auth.Tokens{}, unauthorized(fn)
	}
	tokens, err := s.tokens.Issue(auth.Principal{UserID: u.ID, Email: u.Email})
	if err != nil {
		return db.User{}, auth.Tokens{}, fmt.Errorf("%s:%w", fn, err)
	}
	return u, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The account must still exist.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	const fn = "Users:Refresh"
	p, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("%s:%w", fn, err)
	}
	u, err := s.store.GetUser(ctx, p.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return auth.Tokens{}, fmt.Errorf("%s:%w", fn, apperr.New(apperr.ErrUnauthorized, "invalid or expired token"))
	}
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("%s:%w", fn, err)
	}
	tokens, err := s.tokens.Issue(auth.Principal{UserID: u.ID, Email: u.Email})
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("%s:%w", fn, err)
	}
	return tokens, nil
}

func (s *Service) Get(ctx context.Context, id string) (db.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return db.User{}, fmt.Errorf("Users:Get:%w", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]db.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Users:List:%w", err)
	}
	return users, nil
}

// Update changes name and email. Empty values keep the stored ones.
func (s *Service) Update(ctx context.Context, id, name, email string) (db.User, error) {
	const fn = "Users:Update"
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return db.User{}, fmt.Errorf("%s:%w", fn, err)
	}
	if strings.TrimSpace(name) == "" {
		name = current.Name
	}
	if strings.TrimSpace(email) == "" {
		email = current.Email
	} else if email, err = normalizeEmail(fn, email); err != nil {
		return db.User{}, err
	}
	u, err := s.store.UpdateUser(ctx, id, strings.TrimSpace(name), email)
	if err != nil {
		return db.User{}, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	const fn = "Users:Delete"
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	slog.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}
