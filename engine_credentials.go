package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/voralis/authkit/user"
)

// ErrCredentialsUnavailable is returned when no credential repository was
// configured on the engine.
var ErrCredentialsUnavailable = errors.New("credential repository not configured")

func (e *Engine) credentialRepo() (user.CredentialRepository, error) {
	if e.credentials == nil {
		return nil, ErrCredentialsUnavailable
	}
	return e.credentials, nil
}

// ListWebAuthnCredentials lists the actor's registered WebAuthn credentials.
func (e *Engine) ListWebAuthnCredentials(ctx context.Context, actor *Actor) ([]user.Credential, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	repo, err := e.credentialRepo()
	if err != nil {
		return nil, err
	}
	return repo.ListByUser(ctx, actor.User.ID)
}

// AddWebAuthnCredential stores a credential produced by a completed
// registration ceremony. The ceremony itself happens outside the engine.
func (e *Engine) AddWebAuthnCredential(ctx context.Context, actor *Actor, credentialID string, publicKey []byte, transports string) (*user.Credential, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if credentialID == "" || len(publicKey) == 0 {
		return nil, fmt.Errorf("%w: credential id and public key are required", ErrValidation)
	}
	repo, err := e.credentialRepo()
	if err != nil {
		return nil, err
	}

	c := &user.Credential{
		ID:           uuid.NewString(),
		UserID:       actor.User.ID,
		CredentialID: credentialID,
		PublicKey:    publicKey,
		Transports:   transports,
	}
	if err := repo.Add(ctx, c); err != nil {
		return nil, err
	}
	e.logger.Info().Str("user_id", actor.User.ID).Msg("webauthn credential added")
	return c, nil
}

// RemoveWebAuthnCredential deletes one of the actor's credentials. Accounts
// with two-factor enabled must hold a two-factor verified session, so a
// hijacked first-factor session cannot strip authenticators.
func (e *Engine) RemoveWebAuthnCredential(ctx context.Context, actor *Actor, credentialID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.User.TwoFactorEnabled && !actor.TwoFactorVerified() {
		return ErrTwoFactorRequired
	}
	repo, err := e.credentialRepo()
	if err != nil {
		return err
	}
	return repo.Remove(ctx, actor.User.ID, credentialID)
}
