package user

import (
	"context"
	"errors"
	"time"
)

// Provider identifies the source of a federated identity assertion.
type Provider string

const (
	// ProviderGoogle is the Google OAuth provider.
	ProviderGoogle Provider = "google"
	// ProviderLinkedin is the LinkedIn OAuth provider.
	ProviderLinkedin Provider = "linkedin"
)

// ErrConflict is returned by Create when a unique identifier (email, mobile,
// or federated id) is already taken, including losing a concurrent creation
// race.
var ErrConflict = errors.New("user identifier conflict")

// User is an account record. Nullable columns are represented as empty
// strings; TwoFactorSecret and TwoFactorRecoveryCode hold ciphertext only.
type User struct {
	ID                 string
	Name               string
	Email              string
	EmailVerified      bool
	Mobile             string
	MobileVerified     bool
	AvatarURL          string
	Biography          string
	GoogleID           string
	LinkedinID         string
	LinkedinVanityName string

	TwoFactorEnabled      bool
	TwoFactorSecret       string
	TwoFactorRecoveryCode string

	OnboardingCompleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identifier returns the user's primary identifier: email when set,
// otherwise mobile. Every user has at least one of the two.
func (u *User) Identifier() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Mobile
}

// ContactVerified reports whether the user's primary contact channel has
// been verified. Two-factor setup and verification are gated on this.
func (u *User) ContactVerified() bool {
	if u.Email != "" && u.EmailVerified {
		return true
	}
	return u.Mobile != "" && u.MobileVerified
}

// FederatedID returns the user's id for the given provider, or "".
func (u *User) FederatedID(p Provider) string {
	switch p {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderLinkedin:
		return u.LinkedinID
	}
	return ""
}

// Diff is a minimal field-level update. Nil fields are untouched; the
// repository writes only what is present, which keeps repeated
// reconciliations idempotent (an empty diff issues no write at all).
type Diff struct {
	Name               *string
	Email              *string
	EmailVerified      *bool
	Mobile             *string
	MobileVerified     *bool
	AvatarURL          *string
	Biography          *string
	GoogleID           *string
	LinkedinID         *string
	LinkedinVanityName *string

	TwoFactorEnabled      *bool
	TwoFactorSecret       *string
	TwoFactorRecoveryCode *string

	OnboardingCompleted *bool
}

// Empty reports whether the diff carries no changes.
func (d *Diff) Empty() bool {
	return d == nil || *d == Diff{}
}

// Apply copies the diff's set fields onto u.
func (d *Diff) Apply(u *User) {
	if d == nil {
		return
	}
	if d.Name != nil {
		u.Name = *d.Name
	}
	if d.Email != nil {
		u.Email = *d.Email
	}
	if d.EmailVerified != nil {
		u.EmailVerified = *d.EmailVerified
	}
	if d.Mobile != nil {
		u.Mobile = *d.Mobile
	}
	if d.MobileVerified != nil {
		u.MobileVerified = *d.MobileVerified
	}
	if d.AvatarURL != nil {
		u.AvatarURL = *d.AvatarURL
	}
	if d.Biography != nil {
		u.Biography = *d.Biography
	}
	if d.GoogleID != nil {
		u.GoogleID = *d.GoogleID
	}
	if d.LinkedinID != nil {
		u.LinkedinID = *d.LinkedinID
	}
	if d.LinkedinVanityName != nil {
		u.LinkedinVanityName = *d.LinkedinVanityName
	}
	if d.TwoFactorEnabled != nil {
		u.TwoFactorEnabled = *d.TwoFactorEnabled
	}
	if d.TwoFactorSecret != nil {
		u.TwoFactorSecret = *d.TwoFactorSecret
	}
	if d.TwoFactorRecoveryCode != nil {
		u.TwoFactorRecoveryCode = *d.TwoFactorRecoveryCode
	}
	if d.OnboardingCompleted != nil {
		u.OnboardingCompleted = *d.OnboardingCompleted
	}
}

// String and Bool lift values into diff fields.
func String(v string) *string { return &v }

// Bool lifts a bool into a diff field.
func Bool(v bool) *bool { return &v }

// Repository is the relational store contract. Lookups return (nil, nil)
// when no row matches; absence is a normal negative result, not an error.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByIdentifier matches email or mobile.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByFederatedID(ctx context.Context, provider Provider, federatedID string) (*User, error)

	// Create inserts a new user. Returns ErrConflict when a unique
	// identifier is already taken.
	Create(ctx context.Context, u *User) error

	// Update applies a minimal diff and returns the updated record.
	Update(ctx context.Context, id string, diff *Diff) (*User, error)

	// UpdateLocked runs fn against the user row under an exclusive
	// row-level lock and applies the returned diff inside the same
	// transaction. fn returning an error aborts without writing. This is
	// the only stronger-than-last-write-wins primitive the engine needs;
	// it backs the one-time recovery-code reset.
	UpdateLocked(ctx context.Context, id string, fn func(*User) (*Diff, error)) (*User, error)
}

// Credential is one WebAuthn credential bound to a user. The engine treats
// these as an opaque keyed list; ceremony logic lives elsewhere.
type Credential struct {
	ID           string
	UserID       string
	CredentialID string
	PublicKey    []byte
	SignCount    int64
	Transports   string
	CreatedAt    time.Time
}

// CredentialRepository stores per-user WebAuthn credentials.
type CredentialRepository interface {
	ListByUser(ctx context.Context, userID string) ([]Credential, error)
	Add(ctx context.Context, c *Credential) error
	Remove(ctx context.Context, userID, credentialID string) error
}
