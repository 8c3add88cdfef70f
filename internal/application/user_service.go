package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/example/reminder-bot/internal/persistence"
)

// UserService orchestrates validation and persistence for user accounts.
type UserService struct {
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users persistence.UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies including a base logger.
func NewUserServiceWithLogger(users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// RegisterParams captures the details collected during registration.
type RegisterParams struct {
	Phone     string
	FirstName string
	LastName  string
	Timezone  string
	Language  string
}

// Register validates input and persists a new account for a phone number.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}

	normalized := normalizeRegisterParams(params)
	vErr := validateRegisterParams(normalized)
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	now := s.now()
	user := persistence.User{
		ID:        s.idGenerator(),
		FirstName: normalized.FirstName,
		LastName:  normalized.LastName,
		Phone:     normalized.Phone,
		Timezone:  normalized.Timezone,
		Language:  normalized.Language,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		serviceLogger(ctx, s.logger, "user", "register", "phone", normalized.Phone).
			Error("failed to register user", "error", err, "kind", ErrorKind(err))
		return persistence.User{}, err
	}

	serviceLogger(ctx, s.logger, "user", "register").Info("user registered", "user_id", user.ID)
	return user, nil
}

// GetByPhone looks up the account behind a phone number.
func (s *UserService) GetByPhone(ctx context.Context, phone string) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}

	user, err := s.users.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrNotFound
		}
		return persistence.User{}, err
	}
	return user, nil
}

// UpdateProfileParams carries profile fields a user may change later.
type UpdateProfileParams struct {
	UserID    string
	FirstName string
	LastName  string
	Timezone  string
	Language  string
}

// UpdateProfile rewrites an account's mutable fields.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, fmt.Errorf("UserService is nil")
	}

	existing, err := s.users.GetUser(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrNotFound
		}
		return persistence.User{}, err
	}

	normalized := normalizeRegisterParams(RegisterParams{
		Phone:     existing.Phone,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Timezone:  params.Timezone,
		Language:  params.Language,
	})
	vErr := validateRegisterParams(normalized)
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	updated := existing
	updated.FirstName = normalized.FirstName
	updated.LastName = normalized.LastName
	updated.Timezone = normalized.Timezone
	updated.Language = normalized.Language
	updated.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrNotFound
		}
		return persistence.User{}, err
	}

	return updated, nil
}

func normalizeRegisterParams(params RegisterParams) RegisterParams {
	timezone := strings.TrimSpace(params.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	lang := strings.TrimSpace(params.Language)
	if lang == "" {
		lang = "en"
	}
	return RegisterParams{
		Phone:     strings.TrimSpace(params.Phone),
		FirstName: strings.TrimSpace(params.FirstName),
		LastName:  strings.TrimSpace(params.LastName),
		Timezone:  timezone,
		Language:  lang,
	}
}

func validateRegisterParams(params RegisterParams) *ValidationError {
	vErr := &ValidationError{}

	if params.Phone == "" {
		vErr.add("phone", "phone is required")
	}
	if params.FirstName == "" {
		vErr.add("first_name", "first name is required")
	}
	if _, err := time.LoadLocation(params.Timezone); err != nil {
		vErr.add("timezone", "timezone is not a valid IANA zone")
	}
	if _, err := language.Parse(params.Language); err != nil {
		vErr.add("language", "language is not a valid BCP 47 tag")
	}

	return vErr
}
