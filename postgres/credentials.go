package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/voralis/authkit/user"
)

// Credentials implements [user.CredentialRepository] on PostgreSQL.
type Credentials struct {
	db *sql.DB
}

// NewCredentials builds the repository.
func NewCredentials(db *sql.DB) *Credentials {
	return &Credentials{db: db}
}

// ListByUser implements [user.CredentialRepository].
func (r *Credentials) ListByUser(ctx context.Context, userID string) ([]user.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, credential_id, public_key, sign_count, transports, created_at
		FROM webauthn_credentials
		WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []user.Credential
	for rows.Next() {
		var (
			c          user.Credential
			transports sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.CredentialID, &c.PublicKey,
			&c.SignCount, &transports, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Transports = transports.String
		credentials = append(credentials, c)
	}
	return credentials, rows.Err()
}

// Add implements [user.CredentialRepository].
func (r *Credentials) Add(ctx context.Context, c *user.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webauthn_credentials (id, user_id, credential_id, public_key, sign_count, transports)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.CredentialID, c.PublicKey, c.SignCount, nullable(c.Transports))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: %v", user.ErrConflict, err)
		}
		return err
	}
	return nil
}

// Remove implements [user.CredentialRepository]. Scoped to the owner so one
// user can never remove another's credential.
func (r *Credentials) Remove(ctx context.Context, userID, credentialID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM webauthn_credentials
		WHERE user_id = $1 AND credential_id = $2`, userID, credentialID)
	return err
}
