package authkit

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/voralis/authkit/notify"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type identifierKind int

const (
	identifierInvalid identifierKind = iota
	identifierEmail
	identifierMobile
)

func (k identifierKind) channel() notify.Channel {
	if k == identifierMobile {
		return notify.ChannelSMS
	}
	return notify.ChannelEmail
}

// classifyIdentifier normalizes a submitted identifier and decides which
// channel it names. Emails are lowercased; mobiles must already be E.164.
func classifyIdentifier(raw string) (string, identifierKind) {
	id := strings.TrimSpace(raw)
	if err := validate.Var(id, "required,max=255"); err != nil {
		return "", identifierInvalid
	}
	if err := validate.Var(id, "email"); err == nil {
		return strings.ToLower(id), identifierEmail
	}
	if err := validate.Var(id, "e164"); err == nil {
		return id, identifierMobile
	}
	return "", identifierInvalid
}

// checkCodeShape rejects codes of the wrong length or alphabet before any
// store lookup, so malformed submissions never burn an attempt.
func (e *Engine) checkCodeShape(code string) error {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != e.config.Verification.Digits || !isNumeric(trimmed) {
		return fmt.Errorf("%w: code must be %d digits", ErrValidation, e.config.Verification.Digits)
	}
	return nil
}
