package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
)

// Search paging and field limits.
const (
	DefaultSearchPage     = 1
	DefaultSearchSize     = 10
	MaxSearchSize         = 100
	maxUsernameFilter     = 50
	maxEmailFilter        = 100
	maxOrganizationFilter = 100
)

// DefaultAdminPassword is assigned to accounts created by an administrator.
const DefaultAdminPassword = "123456"

type accountRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// AccountDirectory is the administrator's view of accounts.
type AccountDirectory struct {
	repo      accountRepository
	hasher    passwordHasher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountDirectory constructs the directory.
func NewAccountDirectory(repo accountRepository, hasher passwordHasher, validate *validator.Validate, logger *zap.Logger) *AccountDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountDirectory{repo: repo, hasher: hasher, validator: validate, logger: logger}
}

// Search lists accounts matching filter. Text filters are trimmed and match
// case-insensitive substrings. A filter that fails validation yields an empty
// page rather than an error.
func (d *AccountDirectory) Search(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	filter = normaliseUserFilter(filter)
	if err := validateUserFilter(filter); err != nil {
		d.logger.Warn("rejected user search", zap.Error(err))
		return []models.User{}, models.NewPagination(filter.Page, filter.Size, 0), nil
	}

	users, total, err := d.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to search users")
	}
	return users, models.NewPagination(filter.Page, filter.Size, total), nil
}

func normaliseUserFilter(filter models.UserFilter) models.UserFilter {
	filter.Username = strings.TrimSpace(filter.Username)
	filter.Email = strings.TrimSpace(filter.Email)
	filter.Organization = strings.TrimSpace(filter.Organization)
	filter.Page, filter.Size = normalisePage(filter.Page, filter.Size)
	return filter
}

func validateUserFilter(filter models.UserFilter) error {
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"username", filter.Username, maxUsernameFilter},
		{"email", filter.Email, maxEmailFilter},
		{"organization", filter.Organization, maxOrganizationFilter},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return appErrors.Clone(appErrors.ErrValidation, l.field+" filter is too long")
		}
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if len(filter.Malformed) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "malformed "+strings.Join(filter.Malformed, ", "))
	}
	return nil
}

// Get returns an account by id.
func (d *AccountDirectory) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := d.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	return user, nil
}

// FindByUsername returns an account by username.
func (d *AccountDirectory) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := d.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	return user, nil
}

// FindByEmail returns an account by email.
func (d *AccountDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	return user, nil
}

// Update applies the non-nil fields of req. Uniqueness is only rechecked for
// a username or email that actually changes.
func (d *AccountDirectory) Update(ctx context.Context, id string, req models.UserUpdateRequest) (*models.User, error) {
	if err := d.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		if *req.Username != user.Username {
			if err := d.ensureUsernameFree(ctx, *req.Username); err != nil {
				return nil, err
			}
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		if *req.Email != user.Email {
			if err := d.ensureEmailFree(ctx, *req.Email); err != nil {
				return nil, err
			}
		}
		user.Email = *req.Email
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Organization != nil {
		user.Organization = *req.Organization
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Enabled != nil {
		user.Enabled = *req.Enabled
	}
	if req.Banned != nil {
		user.Banned = *req.Banned
	}

	if err := d.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Ban blocks the account from logging in.
func (d *AccountDirectory) Ban(ctx context.Context, id string) error {
	return d.setBanned(ctx, id, true)
}

// Unban lifts a ban.
func (d *AccountDirectory) Unban(ctx context.Context, id string) error {
	return d.setBanned(ctx, id, false)
}

func (d *AccountDirectory) setBanned(ctx context.Context, id string, banned bool) error {
	user, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	user.Banned = banned
	return d.save(ctx, user)
}

// Create adds an account with the given role, the default password and a
// verified email.
func (d *AccountDirectory) Create(ctx context.Context, req models.UserUpdateRequest, role models.UserRole) (*models.User, error) {
	if err := d.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if req.Username == nil || req.Email == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username and email are required")
	}
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	if err := d.ensureUsernameFree(ctx, *req.Username); err != nil {
		return nil, err
	}
	if err := d.ensureEmailFree(ctx, *req.Email); err != nil {
		return nil, err
	}

	hash, err := d.hasher.Hash(DefaultAdminPassword)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Username:      *req.Username,
		Email:         *req.Email,
		PasswordHash:  hash,
		Role:          role,
		Phone:         deref(req.Phone),
		Organization:  deref(req.Organization),
		Address:       deref(req.Address),
		EmailVerified: true,
		Enabled:       true,
		Banned:        false,
	}
	if err := d.repo.Create(ctx, user); err != nil {
		return nil, uniqueAccountError(err, "failed to create user")
	}
	d.logger.Info("account created by admin", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Delete removes an account.
func (d *AccountDirectory) Delete(ctx context.Context, id string) error {
	if err := d.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrAccountNotFound
		}
		return appErrors.Internal(err, "failed to delete user")
	}
	return nil
}

// ExistsByUsername reports whether the username is taken.
func (d *AccountDirectory) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	exists, err := d.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, appErrors.Internal(err, "failed to check username")
	}
	return exists, nil
}

// ExistsByEmail reports whether the email is registered.
func (d *AccountDirectory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exists, err := d.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, appErrors.Internal(err, "failed to check email")
	}
	return exists, nil
}

func (d *AccountDirectory) ensureUsernameFree(ctx context.Context, username string) error {
	taken, err := d.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return appErrors.ErrUsernameTaken
	}
	return nil
}

func (d *AccountDirectory) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := d.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return appErrors.ErrEmailTaken
	}
	return nil
}

func (d *AccountDirectory) save(ctx context.Context, user *models.User) error {
	if err := d.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrAccountNotFound
		}
		return uniqueAccountError(err, "failed to update user")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
