package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalid wraps sign-up validation failures.
var ErrInvalid = errors.New("invalid user")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=user
type Repository interface {
	CreateUser(ctx context.Context, u *User, passwordHash []byte) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, []byte, error)
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

type SignUpParams struct {
	Email    string `validate:"required"`
	Name     string `validate:"required,min=2,max=100"`
	Password string `validate:"required,min=6"`
}

func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*User, error) {
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if !ValidEmail(params.Email) {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Email: params.Email,
		Name:  params.Name,
	}
	if err := s.repo.CreateUser(ctx, u, hash); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, hash, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}

		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}
