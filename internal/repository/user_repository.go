package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/pkg/database"
)

const userColumns = `id, username, email, password_hash, role, avatar, phone, organization, address, email_verified, verification_code, verification_code_expiry, enabled, banned, created_at, updated_at`

// UserRepository provides database access for accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "find user by id", `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "find user by username", `SELECT `+userColumns+` FROM users WHERE username = $1 LIMIT 1`, username)
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "find user by email", `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
}

// FindByEmailAndVerificationCode returns the user holding the given account
// verification code.
func (r *UserRepository) FindByEmailAndVerificationCode(ctx context.Context, email, code string) (*models.User, error) {
	return r.findOne(ctx, "find user by verification code", `SELECT `+userColumns+` FROM users WHERE email = $1 AND verification_code = $2 LIMIT 1`, email, code)
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if missing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// ExistsByUsername reports whether the username is taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// ExistsByEmail reports whether the email is registered.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// List returns users matching the filter with the total count. Page and Size
// must already be normalised.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Username != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(username) LIKE $%d", len(args)+1))
		args = append(args, containsPattern(filter.Username))
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(email) LIKE $%d", len(args)+1))
		args = append(args, containsPattern(filter.Email))
	}
	if filter.Organization != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(organization) LIKE $%d", len(args)+1))
		args = append(args, containsPattern(filter.Organization))
	}
	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.EmailVerified != nil {
		conditions = append(conditions, fmt.Sprintf("email_verified = $%d", len(args)+1))
		args = append(args, *filter.EmailVerified)
	}
	if filter.Enabled != nil {
		conditions = append(conditions, fmt.Sprintf("enabled = $%d", len(args)+1))
		args = append(args, *filter.Enabled)
	}
	if filter.Banned != nil {
		conditions = append(conditions, fmt.Sprintf("banned = $%d", len(args)+1))
		args = append(args, *filter.Banned)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	offset := (filter.Page - 1) * filter.Size
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", userColumns, baseQuery, filter.Size, offset)

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (` + userColumns + `) VALUES (:id, :username, :email, :password_hash, :role, :avatar, :phone, :organization, :address, :email_verified, :verification_code, :verification_code_expiry, :enabled, :banned, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of a user. Role is immutable.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET username = :username, email = :email, password_hash = :password_hash, avatar = :avatar, phone = :phone, organization = :organization, address = :address, email_verified = :email_verified, verification_code = :verification_code, verification_code_expiry = :verification_code_expiry, enabled = :enabled, banned = :banned, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	return execByID(res, err, "update user")
}

// Delete removes a user. Returns sql.ErrNoRows when nothing was deleted.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return execByID(res, err, "delete user")
}

// missing reports whether a lookup matched nothing. Ids that are not valid
// UUIDs can never match a row.
func missing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || database.InvalidText(err)
}

// execByID runs a single-row write keyed by id. A malformed id affects nothing.
func execByID(res sql.Result, err error, op string) error {
	if err != nil {
		if database.InvalidText(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(res, op)
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching value as a
// literal substring.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
}
