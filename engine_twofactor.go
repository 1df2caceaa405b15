package authkit

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/voralis/authkit/internal"
	"github.com/voralis/authkit/user"
)

func requireActor(a *Actor) error {
	if a == nil || a.Session == nil || a.User == nil {
		return ErrSessionRequired
	}
	return nil
}

// ProvisionTwoFactor mints a fresh TOTP key and its enrollment URI for the
// actor. Nothing is persisted; the key only becomes the account's secret
// once ConfirmTwoFactorSetup proves the authenticator produces valid codes.
// Requires a verified contact channel.
func (e *Engine) ProvisionTwoFactor(ctx context.Context, actor *Actor) (*TwoFactorProvision, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.User.ContactVerified() {
		return nil, ErrContactUnverified
	}

	key, err := e.totp.GenerateKey()
	if err != nil {
		return nil, err
	}

	return &TwoFactorProvision{
		Key: base64.StdEncoding.EncodeToString(key),
		URI: e.totp.ProvisionURI(key, actor.User.Identifier()),
	}, nil
}

// ConfirmTwoFactorSetup completes enrollment: it verifies a live code
// against the provisioned key, persists the key encrypted, enables
// two-factor on the account, and marks the current session verified.
func (e *Engine) ConfirmTwoFactorSetup(ctx context.Context, actor *Actor, encodedKey, code string) (*user.User, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.User.ContactVerified() {
		return nil, ErrContactUnverified
	}

	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil || len(key) != totpKeyBytes {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidKey, totpKeyBytes)
	}

	ok, err := e.totp.Verify(key, code, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	encrypted, err := e.cipher.Encrypt(key)
	if err != nil {
		return nil, err
	}

	updated, err := e.users.Update(ctx, actor.User.ID, &user.Diff{
		TwoFactorEnabled: user.Bool(true),
		TwoFactorSecret:  user.String(encrypted),
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.sessions.SetTwoFactorVerified(ctx, actor.Session.ID, true); err != nil {
		return nil, err
	}

	e.logger.Info().Str("user_id", updated.ID).Msg("two-factor enabled")
	return updated, nil
}

// VerifyTwoFactor checks a TOTP code for the actor and marks the session
// two-factor verified. Rate limited per user id, so a distributed guesser
// cannot spread attempts over many IPs.
func (e *Engine) VerifyTwoFactor(ctx context.Context, actor *Actor, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.User.ContactVerified() {
		return ErrContactUnverified
	}
	if !actor.User.TwoFactorEnabled || actor.User.TwoFactorSecret == "" {
		return ErrTwoFactorNotEnabled
	}
	if actor.TwoFactorVerified() {
		return ErrTwoFactorAlreadyVerified
	}

	if err := e.consume(ctx, e.limits.twoFactor, "id:"+actor.User.ID); err != nil {
		return err
	}

	key, err := e.cipher.Decrypt(actor.User.TwoFactorSecret)
	if err != nil {
		return err
	}

	ok, err := e.totp.Verify(key, code, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	if _, err := e.sessions.SetTwoFactorVerified(ctx, actor.Session.ID, true); err != nil {
		return err
	}
	return nil
}

// ResetTwoFactorWithRecoveryCode disables two-factor using the account's
// single-use recovery code and returns the replacement code. The compare and
// rotate run under a row-level lock, so of two concurrent resets with the
// same code exactly one succeeds; the loser sees the rotated code and fails.
// The current session drops back to unverified.
func (e *Engine) ResetTwoFactorWithRecoveryCode(ctx context.Context, actor *Actor, recoveryCode string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if err := requireActor(actor); err != nil {
		return "", err
	}

	var newCode string
	_, err := e.users.UpdateLocked(ctx, actor.User.ID, func(u *user.User) (*user.Diff, error) {
		if u.TwoFactorRecoveryCode == "" {
			return nil, ErrInvalidRecoveryCode
		}
		stored, err := e.cipher.DecryptString(u.TwoFactorRecoveryCode)
		if err != nil {
			return nil, err
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(recoveryCode)) != 1 {
			return nil, ErrInvalidRecoveryCode
		}

		newCode, err = internal.NewRecoveryCode()
		if err != nil {
			return nil, err
		}
		encrypted, err := e.cipher.EncryptString(newCode)
		if err != nil {
			return nil, err
		}

		return &user.Diff{
			TwoFactorEnabled:      user.Bool(false),
			TwoFactorSecret:       user.String(""),
			TwoFactorRecoveryCode: user.String(encrypted),
		}, nil
	})
	if err != nil {
		return "", err
	}

	if _, err := e.sessions.SetTwoFactorVerified(ctx, actor.Session.ID, false); err != nil {
		return "", err
	}

	e.logger.Info().Str("user_id", actor.User.ID).Msg("two-factor reset via recovery code")
	return newCode, nil
}
