package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/pkg/database"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailAndVerificationCode(ctx context.Context, email, code string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type registrationCodes interface {
	Issue(ctx context.Context, email string) (string, error)
	Consume(email, code string) error
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	// AccountCodeTTL bounds codes stored on an account by ResendVerification.
	AccountCodeTTL time.Duration
}

// AuthService implements registration, login and email verification.
type AuthService struct {
	users     authUserRepository
	codes     registrationCodes
	hasher    passwordHasher
	sessions  *SessionIssuer
	notifier  verificationNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, codes registrationCodes, hasher passwordHasher, sessions *SessionIssuer, notifier verificationNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccountCodeTTL <= 0 {
		config.AccountCodeTTL = DefaultCodeTTL
	}
	return &AuthService{
		users:     users,
		codes:     codes,
		hasher:    hasher,
		sessions:  sessions,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// SendCode issues a registration code for an email that has no account yet.
func (s *AuthService) SendCode(ctx context.Context, req models.SendCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return appErrors.Internal(err, "failed to check email")
	}
	if exists {
		s.metrics.RecordAuthEvent("send_code", appErrors.ErrEmailAlreadyRegistered)
		return appErrors.ErrEmailAlreadyRegistered
	}

	_, err = s.codes.Issue(ctx, req.Email)
	s.metrics.RecordAuthEvent("send_code", err)
	return err
}

// Register creates a verified account once the registration code checks out.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	res, err := s.register(ctx, req)
	s.metrics.RecordAuthEvent("register", err)
	return res, err
}

func (s *AuthService) register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check username")
	}
	if taken {
		return nil, appErrors.ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check email")
	}
	if taken {
		return nil, appErrors.ErrEmailTaken
	}

	if err := s.codes.Consume(req.Email, req.VerificationCode); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		Role:          req.Role,
		Phone:         req.Phone,
		Organization:  req.Organization,
		Address:       req.Address,
		EmailVerified: true,
		Enabled:       true,
		Banned:        false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, uniqueAccountError(err, "failed to create account")
	}

	return s.sessions.Respond(user)
}

// Login authenticates by username and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	res, err := s.login(ctx, req)
	s.metrics.RecordAuthEvent("login", err)
	if err != nil {
		s.logger.Info("login rejected", zap.String("username", req.Username), zap.Error(err))
	}
	return res, err
}

func (s *AuthService) login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUsernameNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, appErrors.ErrPasswordMismatch
	}
	if user.Banned {
		return nil, appErrors.ErrAccountBanned
	}
	if !user.Enabled {
		return nil, appErrors.ErrAccountDisabled
	}

	return s.sessions.Respond(user)
}

// VerifyEmail confirms the code stored on an existing account.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	err := s.verifyEmail(ctx, email, code)
	s.metrics.RecordAuthEvent("verify_email", err)
	return err
}

func (s *AuthService) verifyEmail(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return appErrors.ErrInvalidCode
	}

	user, err := s.users.FindByEmailAndVerificationCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrInvalidCode
		}
		return appErrors.Internal(err, "failed to fetch user")
	}

	if user.VerificationCodeExpiry == nil || s.now().After(*user.VerificationCodeExpiry) {
		return appErrors.ErrCodeExpired
	}

	user.EmailVerified = true
	user.VerificationCode = nil
	user.VerificationCodeExpiry = nil
	if err := s.users.Update(ctx, user); err != nil {
		return appErrors.Internal(err, "failed to verify email")
	}
	return nil
}

// ResendVerification stores a fresh code on an unverified account and emails it.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrEmailNotFound
		}
		return appErrors.Internal(err, "failed to fetch user")
	}
	if user.EmailVerified {
		return appErrors.ErrAlreadyVerified
	}

	code, err := randomCode()
	if err != nil {
		return appErrors.Internal(err, "failed to generate verification code")
	}
	expiry := s.now().Add(s.config.AccountCodeTTL)
	user.VerificationCode = &code
	user.VerificationCodeExpiry = &expiry
	if err := s.users.Update(ctx, user); err != nil {
		return appErrors.Internal(err, "failed to store verification code")
	}

	if s.notifier != nil {
		if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.Username, code); err != nil {
			s.logger.Warn("failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	return user, nil
}

// ValidateToken resolves a bearer token into claims.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	return s.sessions.Validate(token)
}

// uniqueAccountError maps a unique constraint race on users to the matching
// conflict error.
func uniqueAccountError(err error, message string) error {
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case "users_username_key":
			return appErrors.ErrUsernameTaken
		case "users_email_key":
			return appErrors.ErrEmailTaken
		}
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	}
	return appErrors.Internal(err, message)
}
