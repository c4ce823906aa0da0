package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/recipeapp/recipe-api/internal/auth"
	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/model"
	"github.com/recipeapp/recipe-api/internal/repository"
	"github.com/recipeapp/recipe-api/internal/token"
	"github.com/recipeapp/recipe-api/internal/validation"
)

// unusablePassword marks accounts created without a password. It never
// parses as a PHC hash, so password checks always fail.
const unusablePassword = "!"

const (
	msgEmailTaken       = "user with this email already exists."
	msgInvalidLogin     = "Unable to authenticate with provided credentials."
	minPasswordLength   = 8
	passwordLengthCheck = "min=8"
)

// UserService handles accounts, credentials and tokens.
type UserService struct {
	users   UserStore
	tokens  TokenStore
	metrics metrics.Recorder
	logger  *slog.Logger
	params  auth.Params
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, tokens TokenStore, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:   users,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger,
		params:  auth.DefaultParams,
	}
}

// WithPasswordParams overrides the Argon2id cost parameters for new hashes.
func (s *UserService) WithPasswordParams(p auth.Params) *UserService {
	s.params = p
	return s
}

// UserFields are the optional attributes accepted by CreateUser.
type UserFields struct {
	Name        string
	IsStaff     bool
	IsSuperuser bool
	// Inactive creates the account disabled.
	Inactive bool
}

// CreateUser stores a new user with a normalized email and hashed password.
// An empty email fails with ErrEmailRequired. An empty password leaves the
// account without a usable password.
func (s *UserService) CreateUser(ctx context.Context, email, password string, fields UserFields) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, errors.Join(ErrEmailRequired, validation.Field("email", "This field is required."))
	}

	hash := unusablePassword
	if password != "" {
		var err error
		hash, err = auth.HashPasswordWithParams(password, s.params)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Name:         strings.TrimSpace(fields.Name),
		PasswordHash: hash,
		IsActive:     !fields.Inactive,
		IsStaff:      fields.IsStaff,
		IsSuperuser:  fields.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, validation.Field("email", msgEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncUserCreated()
	s.logger.Info("user_created",
		slog.String("user_id", user.ID),
		slog.Bool("is_staff", user.IsStaff),
		slog.Bool("is_superuser", user.IsSuperuser),
	)

	return user, nil
}

// CreateSuperuser stores a new user that is always staff and superuser.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string, fields UserFields) (*model.User, error) {
	fields.IsStaff = true
	fields.IsSuperuser = true
	fields.Inactive = false
	return s.CreateUser(ctx, email, password, fields)
}

// CheckPassword reports whether plaintext is the user's password.
func (s *UserService) CheckPassword(user *model.User, plaintext string) bool {
	if user == nil || user.PasswordHash == unusablePassword {
		return false
	}
	return auth.CheckPassword(plaintext, user.PasswordHash)
}

// RegisterInput is the public signup payload.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=255"`
}

// Register validates a signup payload and creates an active, non-staff user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if errs := validation.Struct(in); len(errs) > 0 {
		return nil, errs
	}

	return s.CreateUser(ctx, in.Email, in.Password, UserFields{Name: in.Name})
}

// TokenInput is the login payload.
type TokenInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// IssueToken checks credentials and returns a new access token.
func (s *UserService) IssueToken(ctx context.Context, in TokenInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)

	if errs := validation.Struct(in); len(errs) > 0 {
		return "", errs
	}

	user, err := s.users.GetUserByEmail(ctx, model.NormalizeEmail(in.Email))
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return "", fmt.Errorf("look up user: %w", err)
	}

	if user == nil || !user.IsActive || !s.CheckPassword(user, in.Password) {
		s.metrics.IncAuthFailed()
		return "", errors.Join(ErrInvalidCredentials, validation.Field(validation.NonFieldErrors, msgInvalidLogin))
	}

	plaintext, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncTokenIssued()
	s.logger.Info("token_issued", slog.String("user_id", user.ID))

	return plaintext, nil
}

// Authenticate resolves an access token to an active user.
func (s *UserService) Authenticate(ctx context.Context, plaintext string) (*model.User, error) {
	if plaintext == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := s.tokens.Resolve(ctx, plaintext)
	if err != nil {
		if errors.Is(err, token.ErrTokenNotFound) {
			s.metrics.IncAuthFailed()
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncAuthFailed()
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive {
		s.metrics.IncAuthFailed()
		return nil, ErrUnauthenticated
	}

	return user, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// UpdateProfileInput is the /me update payload. Nil fields are left unchanged.
type UpdateProfileInput struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// UpdateProfile changes the caller's email, name or password. With full set,
// every field is required. A password change revokes all of the user's tokens.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput, full bool) (*model.User, error) {
	trimPtr(in.Email)
	trimPtr(in.Name)

	errs := validation.Errors{}
	if full {
		for field, present := range map[string]bool{
			"email":    in.Email != nil,
			"name":     in.Name != nil,
			"password": in.Password != nil,
		} {
			if !present {
				errs.Add(field, "This field is required.")
			}
		}
	}
	if in.Email != nil {
		checkText(errs, "email", *in.Email, true, maxNameLength)
		if *in.Email != "" {
			errs.Merge(validation.Var("email", *in.Email, "email"))
		}
	}
	if in.Name != nil {
		checkText(errs, "name", *in.Name, true, maxNameLength)
	}
	if in.Password != nil && len(*in.Password) < minPasswordLength {
		errs.Merge(validation.Var("password", *in.Password, passwordLengthCheck))
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}

	if in.Email != nil {
		user.Email = model.NormalizeEmail(*in.Email)
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	passwordChanged := false
	if in.Password != nil {
		hash, err := auth.HashPasswordWithParams(*in.Password, s.params)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		passwordChanged = true
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, validation.Field("email", msgEmailTaken)
		}
		return nil, notFound(err)
	}

	if passwordChanged {
		revoked, err := s.tokens.RevokeUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("revoke tokens: %w", err)
		}
		s.logger.Info("password_changed",
			slog.String("user_id", user.ID),
			slog.Int("tokens_revoked", revoked),
		)
	}

	return user, nil
}
