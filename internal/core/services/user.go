package services

import (
	"context"
	"errors"
	"fmt"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/pkg/logging"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

type SignupRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	ProfilePic string `json:"profilePic" validate:"required"`
}

// PublicUser is a User without its password hash.
type PublicUser struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewPublicUser(u domain.User) PublicUser {
	return PublicUser{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
	}
}

type UserService struct {
	log  *slog.Logger
	repo domain.UserRepository
	tx   contracts.Transactor
	cost int
}

func NewUserService(log *slog.Logger, repo domain.UserRepository, tx contracts.Transactor) *UserService {
	return &UserService{
		log:  log,
		repo: repo,
		tx:   tx,
		cost: bcrypt.DefaultCost,
	}
}

func (s *UserService) Signup(ctx context.Context, in SignupRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Signup")
	defer span.End()
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := domain.NewUser(in.FullName, in.Email, string(hash))
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetUserByEmail(txCtx, user.Email); err == nil {
			return domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return s.repo.CreateUser(txCtx, user)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signup failed")
		s.log.WarnContext(ctx, "user - signup - create user failed", logging.Err(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", user.ID))
	s.log.InfoContext(ctx, "user - signup - success", logging.User(user.ID))
	return user, nil
}

// Login never tells an unknown email apart from a wrong password.
func (s *UserService) Login(ctx context.Context, in LoginRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Login")
	defer span.End()
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	user, err := s.repo.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "user - login - get user failed", logging.Err(err))
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	s.log.InfoContext(ctx, "user - login - success", logging.User(user.ID))
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile", trace.WithAttributes(
		attribute.String("user_id", userID),
	))
	defer span.End()
	in.ProfilePic = strings.TrimSpace(in.ProfilePic)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	user, err := s.repo.UpdateProfilePic(ctx, userID, in.ProfilePic)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "user - update profile - failed", logging.User(userID), logging.Err(err))
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	return s.repo.GetUserByID(ctx, userID)
}

// Contacts lists every other user for the sidebar.
func (s *UserService) Contacts(ctx context.Context, userID string) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Contacts", trace.WithAttributes(
		attribute.String("user_id", userID),
	))
	defer span.End()
	users, err := s.repo.FindUsersExcept(ctx, userID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "user - contacts - find users failed", logging.User(userID), logging.Err(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("user_count", len(users)))
	return users, nil
}
