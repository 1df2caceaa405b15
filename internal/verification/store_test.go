package verification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, Config{Digits: 6, TTL: 10 * time.Minute, MaxAttempts: 5}, zerolog.Nop())

	return store, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestRequestIssuesSixDigitCode(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	code, err := store.Request(context.Background(), "user@test.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if len(code.Code) != 6 {
		t.Fatalf("expected zero-padded 6-digit code, got %q", code.Code)
	}
	for _, r := range code.Code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code.Code)
		}
	}
	if code.Identifier != "user@test.com" {
		t.Fatalf("unexpected identifier %q", code.Identifier)
	}
}

func TestRequestInvalidatesPriorCode(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	first, err := store.Request(ctx, "user@test.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	second, err := store.Request(ctx, "user@test.com")
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	if first.Code != second.Code {
		if got, _ := store.Validate(ctx, "user@test.com", first.Code); got != nil {
			t.Fatal("old code must not validate after a new request")
		}
	}
	if got, _ := store.Validate(ctx, "user@test.com", second.Code); got == nil {
		t.Fatal("freshly requested code should validate")
	}
}

func TestValidateIsSingleUse(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	code, err := store.Request(ctx, "user@test.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	got, err := store.Validate(ctx, "user@test.com", code.Code)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got == nil || got.Code != code.Code {
		t.Fatal("first validation should succeed")
	}

	got, err = store.Validate(ctx, "user@test.com", code.Code)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got != nil {
		t.Fatal("second validation with the same code must fail")
	}
}

func TestValidateMismatchKeepsCode(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	code, err := store.Request(ctx, "user@test.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}

	if got, _ := store.Validate(ctx, "user@test.com", wrong); got != nil {
		t.Fatal("mismatched code must not validate")
	}
	if got, _ := store.Validate(ctx, "user@test.com", code.Code); got == nil {
		t.Fatal("a single bad guess must not delete the stored code")
	}
}

func TestValidateAttemptBudget(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	code, err := store.Request(ctx, "user@test.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}

	for i := 0; i < store.config.MaxAttempts; i++ {
		if got, _ := store.Validate(ctx, "user@test.com", wrong); got != nil {
			t.Fatalf("guess %d must not validate", i)
		}
	}
	if got, _ := store.Validate(ctx, "user@test.com", code.Code); got != nil {
		t.Fatal("code must be deleted once the attempt budget is exhausted")
	}
}

func TestValidateExpiredCode(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	base := time.Now()
	store.now = func() time.Time { return base }

	code, err := store.Request(ctx, "user@test.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	store.now = func() time.Time { return base.Add(10*time.Minute + time.Second) }
	if got, _ := store.Validate(ctx, "user@test.com", code.Code); got != nil {
		t.Fatal("code must never validate past its expiry timestamp")
	}
}

func TestValidateUnknownIdentifier(t *testing.T) {
	store, done := newTestStore(t)
	defer done()

	got, err := store.Validate(context.Background(), "nobody@test.com", "123456")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got != nil {
		t.Fatal("unknown identifier should report no code")
	}
}
