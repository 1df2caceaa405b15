package authkit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/voralis/authkit/user"
)

func TestRequestOTPDeliversCode(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	issued, err := te.engine.RequestOTP(ctx, "Ada@Example.COM")
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if issued.Identifier != "ada@example.com" {
		t.Fatalf("identifier not normalized: %q", issued.Identifier)
	}

	msg := te.capture.last(t)
	if msg.Recipient != "ada@example.com" {
		t.Fatalf("wrong recipient %q", msg.Recipient)
	}
	if len(msg.Code) != 6 {
		t.Fatalf("code %q is not six digits", msg.Code)
	}
}

func TestRequestOTPRejectsMalformedIdentifier(t *testing.T) {
	te := newTestEngine(t)

	for _, identifier := range []string{"", "not-an-identifier", "12345"} {
		if _, err := te.engine.RequestOTP(context.Background(), identifier); !errors.Is(err, ErrValidation) {
			t.Fatalf("identifier %q: got %v, want ErrValidation", identifier, err)
		}
	}
}

func TestVerifyOTPCreatesUserAndSession(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	if _, err := te.engine.RequestOTP(ctx, "ada@example.com"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := te.capture.last(t).Code

	result, err := te.engine.VerifyOTP(ctx, "ada@example.com", code, nil)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	if !result.NewUser {
		t.Fatal("expected a new account")
	}
	if result.User.Email != "ada@example.com" || !result.User.EmailVerified {
		t.Fatalf("email not recorded as verified: %+v", result.User)
	}
	if result.User.TwoFactorRecoveryCode == "" {
		t.Fatal("new account missing recovery code")
	}
	if result.Session.TwoFactorVerified {
		t.Fatal("fresh session must start two-factor unverified")
	}
	if result.Method != SignInOTP {
		t.Fatalf("method = %q", result.Method)
	}

	actor, err := te.engine.ResolveCurrentSession(ctx, result.Token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if actor == nil || actor.User.ID != result.User.ID {
		t.Fatalf("token does not resolve to the signed-in user: %+v", actor)
	}
}

func TestVerifyOTPSignsInExistingUser(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	te.users.put(&user.User{ID: uuid.NewString(), Email: "ada@example.com", EmailVerified: true})

	if _, err := te.engine.RequestOTP(ctx, "ada@example.com"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	result, err := te.engine.VerifyOTP(ctx, "ada@example.com", te.capture.last(t).Code, nil)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if result.NewUser {
		t.Fatal("existing account reported as new")
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	if _, err := te.engine.RequestOTP(ctx, "ada@example.com"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := te.capture.last(t).Code

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := te.engine.VerifyOTP(ctx, "ada@example.com", wrong, nil); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}

	// The stored code survives a mismatch.
	if _, err := te.engine.VerifyOTP(ctx, "ada@example.com", code, nil); err != nil {
		t.Fatalf("correct code after mismatch: %v", err)
	}
}

func TestVerifyOTPRejectsMalformedCode(t *testing.T) {
	te := newTestEngine(t)

	for _, code := range []string{"", "12345", "1234567", "12345a"} {
		if _, err := te.engine.VerifyOTP(context.Background(), "ada@example.com", code, nil); !errors.Is(err, ErrValidation) {
			t.Fatalf("code %q: got %v, want ErrValidation", code, err)
		}
	}
}

func TestRequestOTPRateLimited(t *testing.T) {
	te := newTestEngine(t)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	for i := 0; i < 5; i++ {
		identifier := fmt.Sprintf("user%d@example.com", i)
		if _, err := te.engine.RequestOTP(ctx, identifier); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	_, err := te.engine.RequestOTP(ctx, "user6@example.com")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	var rle *RateLimitError
	if !errors.As(err, &rle) || rle.RetryAfter <= 0 {
		t.Fatalf("missing retry-after hint: %v", err)
	}

	// A different caller IP has its own bucket.
	other := WithClientIP(context.Background(), "203.0.113.8")
	if _, err := te.engine.RequestOTP(other, "fresh@example.com"); err != nil {
		t.Fatalf("unrelated ip limited: %v", err)
	}
}

func TestVerifyOTPMobileIdentifier(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	if _, err := te.engine.RequestOTP(ctx, "+15550100123"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	result, err := te.engine.VerifyOTP(ctx, "+15550100123", te.capture.last(t).Code, nil)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if result.User.Mobile != "+15550100123" || !result.User.MobileVerified {
		t.Fatalf("mobile not recorded as verified: %+v", result.User)
	}
}
