package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/voralis/authkit/user"
)

const pqUniqueViolation = "23505"

const userColumns = `id, name, email, email_verified, mobile, mobile_verified,
	avatar_url, biography, google_id, linkedin_id, linkedin_vanity_name,
	two_factor_enabled, two_factor_secret, two_factor_recovery_code,
	onboarding_completed, created_at, updated_at`

// Users implements [user.Repository] on PostgreSQL.
type Users struct {
	db *sql.DB
}

// NewUsers builds the repository.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u                                         user.User
		name, email, mobile, avatarURL, biography sql.NullString
		googleID, linkedinID, vanityName          sql.NullString
		twoFactorSecret, twoFactorRecoveryCode    sql.NullString
	)
	err := row.Scan(
		&u.ID, &name, &email, &u.EmailVerified, &mobile, &u.MobileVerified,
		&avatarURL, &biography, &googleID, &linkedinID, &vanityName,
		&u.TwoFactorEnabled, &twoFactorSecret, &twoFactorRecoveryCode,
		&u.OnboardingCompleted, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	u.Name = name.String
	u.Email = email.String
	u.Mobile = mobile.String
	u.AvatarURL = avatarURL.String
	u.Biography = biography.String
	u.GoogleID = googleID.String
	u.LinkedinID = linkedinID.String
	u.LinkedinVanityName = vanityName.String
	u.TwoFactorSecret = twoFactorSecret.String
	u.TwoFactorRecoveryCode = twoFactorRecoveryCode.String
	return &u, nil
}

// nullable maps "" to NULL so the unique indexes ignore absent values.
func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// GetByID implements [user.Repository].
func (r *Users) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByIdentifier implements [user.Repository]. The identifier matches
// either the email or the mobile column.
func (r *Users) GetByIdentifier(ctx context.Context, identifier string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR mobile = $1`, identifier)
	return scanUser(row)
}

// GetByFederatedID implements [user.Repository].
func (r *Users) GetByFederatedID(ctx context.Context, provider user.Provider, federatedID string) (*user.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, federatedID)
	return scanUser(row)
}

func providerColumn(p user.Provider) (string, error) {
	switch p {
	case user.ProviderGoogle:
		return "google_id", nil
	case user.ProviderLinkedin:
		return "linkedin_id", nil
	}
	return "", fmt.Errorf("unknown provider %q", p)
}

// Create implements [user.Repository].
func (r *Users) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, email_verified, mobile, mobile_verified,
			avatar_url, biography, google_id, linkedin_id, linkedin_vanity_name,
			two_factor_enabled, two_factor_secret, two_factor_recovery_code,
			onboarding_completed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		u.ID, nullable(u.Name), nullable(u.Email), u.EmailVerified,
		nullable(u.Mobile), u.MobileVerified, nullable(u.AvatarURL),
		nullable(u.Biography), nullable(u.GoogleID), nullable(u.LinkedinID),
		nullable(u.LinkedinVanityName), u.TwoFactorEnabled,
		nullable(u.TwoFactorSecret), nullable(u.TwoFactorRecoveryCode),
		u.OnboardingCompleted,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: %v", user.ErrConflict, err)
		}
		return err
	}
	return nil
}

// Update implements [user.Repository]. Only the diff's set fields are
// written; an empty diff reads the current row back without an UPDATE.
func (r *Users) Update(ctx context.Context, id string, diff *user.Diff) (*user.User, error) {
	if diff.Empty() {
		return r.GetByID(ctx, id)
	}

	set, args := diffAssignments(diff)
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE users SET %s, updated_at = now() WHERE id = $%d RETURNING `+userColumns,
		strings.Join(set, ", "), len(args))
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, fmt.Errorf("%w: %v", user.ErrConflict, err)
		}
		return nil, err
	}
	return u, nil
}

// UpdateLocked implements [user.Repository]. The row is read under FOR
// UPDATE and the diff fn returns is applied inside the same transaction, so
// concurrent callers serialize on the row.
func (r *Users) UpdateLocked(ctx context.Context, id string, fn func(*user.User) (*user.Diff, error)) (*user.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, sql.ErrNoRows
	}

	diff, err := fn(u)
	if err != nil {
		return nil, err
	}

	if !diff.Empty() {
		set, args := diffAssignments(diff)
		args = append(args, id)
		query := fmt.Sprintf(
			`UPDATE users SET %s, updated_at = now() WHERE id = $%d RETURNING `+userColumns,
			strings.Join(set, ", "), len(args))
		if u, err = scanUser(tx.QueryRowContext(ctx, query, args...)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// diffAssignments renders the diff's set fields as "column = $n" pairs.
func diffAssignments(diff *user.Diff) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if diff.Name != nil {
		add("name", nullable(*diff.Name))
	}
	if diff.Email != nil {
		add("email", nullable(*diff.Email))
	}
	if diff.EmailVerified != nil {
		add("email_verified", *diff.EmailVerified)
	}
	if diff.Mobile != nil {
		add("mobile", nullable(*diff.Mobile))
	}
	if diff.MobileVerified != nil {
		add("mobile_verified", *diff.MobileVerified)
	}
	if diff.AvatarURL != nil {
		add("avatar_url", nullable(*diff.AvatarURL))
	}
	if diff.Biography != nil {
		add("biography", nullable(*diff.Biography))
	}
	if diff.GoogleID != nil {
		add("google_id", nullable(*diff.GoogleID))
	}
	if diff.LinkedinID != nil {
		add("linkedin_id", nullable(*diff.LinkedinID))
	}
	if diff.LinkedinVanityName != nil {
		add("linkedin_vanity_name", nullable(*diff.LinkedinVanityName))
	}
	if diff.TwoFactorEnabled != nil {
		add("two_factor_enabled", *diff.TwoFactorEnabled)
	}
	if diff.TwoFactorSecret != nil {
		add("two_factor_secret", nullable(*diff.TwoFactorSecret))
	}
	if diff.TwoFactorRecoveryCode != nil {
		add("two_factor_recovery_code", nullable(*diff.TwoFactorRecoveryCode))
	}
	if diff.OnboardingCompleted != nil {
		add("onboarding_completed", *diff.OnboardingCompleted)
	}
	return set, args
}
