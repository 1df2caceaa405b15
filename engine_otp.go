package authkit

import (
	"context"
	"fmt"

	"github.com/voralis/authkit/notify"
)

// RequestOTP issues a one-time code for the identifier and dispatches it
// over the matching channel. Any previously live code for the identifier is
// invalidated first. Rate limited per caller IP.
func (e *Engine) RequestOTP(ctx context.Context, identifier string) (*CodeIssued, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	normalized, kind := classifyIdentifier(identifier)
	if kind == identifierInvalid {
		return nil, fmt.Errorf("%w: identifier must be an email address or E.164 mobile number", ErrValidation)
	}

	if err := e.consume(ctx, e.limits.otpRequest, limitSubject(ctx)); err != nil {
		return nil, err
	}

	code, err := e.codes.Request(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if err := e.dispatcher.Dispatch(ctx, kind.channel(), notify.Message{
		Recipient: normalized,
		Code:      code.Code,
		ExpiresIn: e.config.Verification.TTL,
	}); err != nil {
		// An undeliverable code is unusable; drop it rather than leave the
		// identifier holding a code nobody received.
		e.codes.Invalidate(ctx, normalized)
		return nil, err
	}

	e.logger.Info().Str("identifier", normalized).Msg("one-time code issued")
	return &CodeIssued{Identifier: normalized, ExpiresAt: code.ExpiresAt}, nil
}

// VerifyOTP redeems a one-time code and signs the caller in. A matching code
// proves ownership of the contact channel; the engine then finds or creates
// the account it belongs to and issues a fresh session. current carries the
// already-signed-in actor for the account-linking case, or nil.
func (e *Engine) VerifyOTP(ctx context.Context, identifier, code string, current *Actor) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	normalized, kind := classifyIdentifier(identifier)
	if kind == identifierInvalid {
		return nil, fmt.Errorf("%w: identifier must be an email address or E.164 mobile number", ErrValidation)
	}
	if err := e.checkCodeShape(code); err != nil {
		return nil, err
	}

	if err := e.consume(ctx, e.limits.otpLogin, limitSubject(ctx)); err != nil {
		return nil, err
	}

	consumed, err := e.codes.Validate(ctx, normalized, code)
	if err != nil {
		return nil, err
	}
	if consumed == nil {
		return nil, ErrInvalidCode
	}

	resolved, created, err := e.resolve(ctx, assertionFromContact(normalized, kind), actorUser(current))
	if err != nil {
		return nil, err
	}

	sess, token, err := e.issueSession(ctx, resolved.ID)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("user_id", resolved.ID).Bool("new_user", created).Msg("otp sign-in completed")
	return &AuthResult{
		User:    resolved,
		Session: sess,
		Token:   token,
		NewUser: created,
		Method:  SignInOTP,
	}, nil
}
