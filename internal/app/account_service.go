package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cogscreen-service/internal/domain"
	"cogscreen-service/internal/security"
)

// TokenIssuer signs API tokens for authenticated users.
type TokenIssuer interface {
	Issue(u domain.User) (string, error)
}

// AccountService handles signup and login.
type AccountService struct {
	users  UserRepository
	tokens TokenIssuer
	now    func() time.Time
}

func NewAccountService(users UserRepository, tokens TokenIssuer) *AccountService {
	return &AccountService{users: users, tokens: tokens, now: time.Now}
}

// Signup registers a new account. Role defaults to patient.
func (s *AccountService) Signup(ctx context.Context, email, fullName string, role domain.Role, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, &domain.ValidationError{Field: "email", Reason: "must be an address"}
	}
	if password == "" {
		return domain.User{}, &domain.ValidationError{Field: "password", Reason: "required"}
	}
	if role == "" {
		role = domain.RolePatient
	}
	if !role.Valid() {
		return domain.User{}, &domain.ValidationError{Field: "role", Reason: "must be patient or doctor"}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FullName:     strings.TrimSpace(fullName),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login verifies credentials and returns the user with a signed token.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", err
	}
	if !security.CheckPassword(u.PasswordHash, password) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// Doctors lists accounts patients can book with.
func (s *AccountService) Doctors(ctx context.Context) ([]domain.User, error) {
	return s.users.ListByRole(ctx, domain.RoleDoctor)
}
