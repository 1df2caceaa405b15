package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voralis/authkit/user"
)

var (
	// ErrAlreadyLinked is returned when an assertion's federated id belongs
	// to a different user than the one currently signed in. Silently merging
	// two accounts is never acceptable.
	ErrAlreadyLinked = errors.New("identity already linked to another account")
	// ErrCreationConflict is returned when user creation loses a race on a
	// unique identifier. Retryable from the caller's perspective.
	ErrCreationConflict = errors.New("user creation conflict")
	// ErrNoIdentifier is returned for assertions carrying neither a usable
	// email nor mobile for a brand-new account.
	ErrNoIdentifier = errors.New("assertion carries no usable identifier")
)

// Assertion is a verified external identity: either an OAuth profile or an
// OTP-verified contact channel. Verification status reflects the asserting
// party's claim, not local state.
type Assertion struct {
	Provider    user.Provider // empty for OTP-verified contacts
	FederatedID string

	Email          string
	EmailVerified  bool
	Mobile         string
	MobileVerified bool

	Name               string
	AvatarURL          string
	LinkedinVanityName string
}

func (a *Assertion) federated() bool {
	return a.Provider != "" && a.FederatedID != ""
}

// Resolver finds or creates the single local user a verified assertion
// belongs to.
type Resolver struct {
	users  user.Repository
	logger zerolog.Logger

	// newRecoveryCode supplies the encrypted recovery code seeded into
	// every new account.
	newRecoveryCode func() (string, error)
}

// NewResolver builds a Resolver. newRecoveryCode generates the ciphertext
// persisted as a fresh account's recovery code.
func NewResolver(users user.Repository, newRecoveryCode func() (string, error), logger zerolog.Logger) *Resolver {
	return &Resolver{
		users:           users,
		logger:          logger,
		newRecoveryCode: newRecoveryCode,
	}
}

// Resolve maps an assertion to exactly one user. current is the user of an
// already-active session, if any (the linking case). The second return is
// true when a new account was created.
func (r *Resolver) Resolve(ctx context.Context, a Assertion, current *user.User) (*user.User, bool, error) {
	if a.federated() {
		existing, err := r.users.GetByFederatedID(ctx, a.Provider, a.FederatedID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			if current != nil && current.ID != existing.ID {
				return nil, false, fmt.Errorf("%w: provider %s", ErrAlreadyLinked, a.Provider)
			}
			return r.merge(ctx, existing, a)
		}
	}

	matched, err := r.matchVerifiedContact(ctx, a)
	if err != nil {
		return nil, false, err
	}
	if matched != nil {
		if err := r.checkLinkable(matched, a); err != nil {
			return nil, false, err
		}
		return r.merge(ctx, matched, a)
	}

	if current != nil {
		if err := r.checkLinkable(current, a); err != nil {
			return nil, false, err
		}
		return r.merge(ctx, current, a)
	}

	created, err := r.create(ctx, a)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *Resolver) matchVerifiedContact(ctx context.Context, a Assertion) (*user.User, error) {
	if a.Email != "" && a.EmailVerified {
		if u, err := r.users.GetByIdentifier(ctx, a.Email); err != nil || u != nil {
			return u, err
		}
	}
	if a.Mobile != "" && a.MobileVerified {
		if u, err := r.users.GetByIdentifier(ctx, a.Mobile); err != nil || u != nil {
			return u, err
		}
	}
	return nil, nil
}

// checkLinkable guards against attaching a federated id to a user that
// already carries a different id for the same provider.
func (r *Resolver) checkLinkable(u *user.User, a Assertion) error {
	if !a.federated() {
		return nil
	}
	if linked := u.FederatedID(a.Provider); linked != "" && linked != a.FederatedID {
		return fmt.Errorf("%w: provider %s", ErrAlreadyLinked, a.Provider)
	}
	return nil
}

// merge computes the minimal merge-if-empty diff and writes it only when
// non-empty, so re-running reconciliation with identical inputs is a no-op.
func (r *Resolver) merge(ctx context.Context, existing *user.User, a Assertion) (*user.User, bool, error) {
	diff := mergeDiff(existing, a)
	if diff.Empty() {
		return existing, false, nil
	}

	updated, err := r.users.Update(ctx, existing.ID, diff)
	if err != nil {
		return nil, false, err
	}
	r.logger.Debug().Str("user_id", existing.ID).Msg("reconciled identity attributes")
	return updated, false, nil
}

func mergeDiff(existing *user.User, a Assertion) *user.Diff {
	diff := &user.Diff{}

	// The federation id is the one field always asserted, even over a
	// populated value.
	switch a.Provider {
	case user.ProviderGoogle:
		if a.FederatedID != "" && existing.GoogleID != a.FederatedID {
			diff.GoogleID = user.String(a.FederatedID)
		}
	case user.ProviderLinkedin:
		if a.FederatedID != "" && existing.LinkedinID != a.FederatedID {
			diff.LinkedinID = user.String(a.FederatedID)
		}
	}

	if existing.Name == "" && a.Name != "" {
		diff.Name = user.String(a.Name)
	}
	if existing.AvatarURL == "" && a.AvatarURL != "" {
		diff.AvatarURL = user.String(a.AvatarURL)
	}
	if existing.LinkedinVanityName == "" && a.LinkedinVanityName != "" {
		diff.LinkedinVanityName = user.String(a.LinkedinVanityName)
	}

	if existing.Email == "" && a.Email != "" {
		diff.Email = user.String(a.Email)
		if a.EmailVerified {
			diff.EmailVerified = user.Bool(true)
		}
	} else if existing.Email != "" && existing.Email == a.Email && a.EmailVerified && !existing.EmailVerified {
		// Same address freshly proven: upgrade the flag, never the value.
		diff.EmailVerified = user.Bool(true)
	}

	if existing.Mobile == "" && a.Mobile != "" {
		diff.Mobile = user.String(a.Mobile)
		if a.MobileVerified {
			diff.MobileVerified = user.Bool(true)
		}
	} else if existing.Mobile != "" && existing.Mobile == a.Mobile && a.MobileVerified && !existing.MobileVerified {
		diff.MobileVerified = user.Bool(true)
	}

	return diff
}

func (r *Resolver) create(ctx context.Context, a Assertion) (*user.User, error) {
	if a.Email == "" && a.Mobile == "" {
		return nil, ErrNoIdentifier
	}

	recoveryCode, err := r.newRecoveryCode()
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:                    uuid.NewString(),
		Name:                  a.Name,
		Email:                 a.Email,
		EmailVerified:         a.Email != "" && a.EmailVerified,
		Mobile:                a.Mobile,
		MobileVerified:        a.Mobile != "" && a.MobileVerified,
		AvatarURL:             a.AvatarURL,
		LinkedinVanityName:    a.LinkedinVanityName,
		TwoFactorRecoveryCode: recoveryCode,
	}

	switch a.Provider {
	case user.ProviderGoogle:
		u.GoogleID = a.FederatedID
	case user.ProviderLinkedin:
		u.LinkedinID = a.FederatedID
	}

	if err := r.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrCreationConflict, err)
		}
		return nil, err
	}
	r.logger.Info().Str("user_id", u.ID).Msg("created user from verified identity")
	return u, nil
}
