package postgres

import (
	"context"
	"database/sql"
)

// Schema creates the tables this package reads and writes. Intended for
// tests and fresh deployments; production schema changes go through real
// migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id                        UUID PRIMARY KEY,
    name                      TEXT,
    email                     TEXT UNIQUE,
    email_verified            BOOLEAN NOT NULL DEFAULT FALSE,
    mobile                    TEXT UNIQUE,
    mobile_verified           BOOLEAN NOT NULL DEFAULT FALSE,
    avatar_url                TEXT,
    biography                 TEXT,
    google_id                 TEXT UNIQUE,
    linkedin_id               TEXT UNIQUE,
    linkedin_vanity_name      TEXT,
    two_factor_enabled        BOOLEAN NOT NULL DEFAULT FALSE,
    two_factor_secret         TEXT,
    two_factor_recovery_code  TEXT,
    onboarding_completed      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS webauthn_credentials (
    id             UUID PRIMARY KEY,
    user_id        UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    credential_id  TEXT NOT NULL UNIQUE,
    public_key     BYTEA NOT NULL,
    sign_count     BIGINT NOT NULL DEFAULT 0,
    transports     TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS webauthn_credentials_user_id_idx
    ON webauthn_credentials (user_id);
`

// Migrate applies [Schema].
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
