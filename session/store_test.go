package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voralis/authkit/internal"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, Config{
		Expiry:        30 * 24 * time.Hour,
		RefreshWindow: 15 * 24 * time.Hour,
	}, zerolog.Nop())

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestCreateDerivesIDFromToken(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()

	token, err := internal.NewSessionToken()
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	sess, err := store.Create(context.Background(), token, "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if sess.ID == token {
		t.Fatal("session id must not be the raw token")
	}
	if sess.ID != internal.HashToken(token) {
		t.Fatal("session id must be the one-way hash of the token")
	}
	if sess.TwoFactorVerified {
		t.Fatal("sessions start with two-factor unverified")
	}
	if mr.Exists("session:" + token) {
		t.Fatal("raw token must never appear as a cache key")
	}
	if !mr.Exists("session:" + sess.ID) {
		t.Fatal("expected session record under hashed key")
	}
}

func TestValidateTokenUnknown(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	sess, err := store.ValidateToken(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if sess != nil {
		t.Fatal("unknown token must resolve to nil")
	}
}

func TestValidateTokenExpiredDeletes(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()

	base := time.Now()
	store.now = func() time.Time { return base }

	token, _ := internal.NewSessionToken()
	sess, err := store.Create(context.Background(), token, "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	store.now = func() time.Time { return base.Add(31 * 24 * time.Hour) }

	got, err := store.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got != nil {
		t.Fatal("expired session must resolve to nil")
	}
	if mr.Exists("session:" + sess.ID) {
		t.Fatal("expired session must be deleted on validation")
	}
}

func TestValidateTokenSlidingRenewal(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	base := time.Now()
	store.now = func() time.Time { return base }

	token, _ := internal.NewSessionToken()
	created, err := store.Create(context.Background(), token, "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Outside the refresh window: no renewal.
	store.now = func() time.Time { return base.Add(24 * time.Hour) }
	got, err := store.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got == nil {
		t.Fatal("live session should validate")
	}
	if got.ExpiresAt.Unix() != created.ExpiresAt.Unix() {
		t.Fatal("expiry must not move outside the refresh window")
	}

	// Inside the window (16 days in, 14 left): renewed to a full expiry.
	inside := base.Add(16 * 24 * time.Hour)
	store.now = func() time.Time { return inside }
	got, err = store.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got == nil {
		t.Fatal("live session should validate")
	}
	want := inside.Add(30 * 24 * time.Hour)
	if got.ExpiresAt.Unix() != want.Unix() {
		t.Fatalf("expected renewed expiry %v, got %v", want, got.ExpiresAt)
	}

	// Renewal is persisted.
	reread, err := store.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if reread.ExpiresAt.Unix() != want.Unix() {
		t.Fatal("renewed expiry must be persisted")
	}
}

func TestSetTwoFactorVerified(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	token, _ := internal.NewSessionToken()
	created, err := store.Create(ctx, token, "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := store.SetTwoFactorVerified(ctx, created.ID, true)
	if err != nil {
		t.Fatalf("set two-factor failed: %v", err)
	}
	if updated == nil || !updated.TwoFactorVerified {
		t.Fatal("expected two-factor flag set")
	}
	if updated.ExpiresAt.Unix() != created.ExpiresAt.Unix() {
		t.Fatal("two-factor update must preserve the original expiry")
	}

	got, err := store.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !got.TwoFactorVerified {
		t.Fatal("two-factor flag must persist")
	}

	if sess, err := store.SetTwoFactorVerified(ctx, "missing", true); err != nil || sess != nil {
		t.Fatalf("missing session should yield nil, got %v err %v", sess, err)
	}
}

func TestInvalidateSession(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	token, _ := internal.NewSessionToken()
	sess, err := store.Create(ctx, token, "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	store.Invalidate(ctx, sess.ID)
	if mr.Exists("session:" + sess.ID) {
		t.Fatal("invalidated session must be removed")
	}
	if got, _ := store.ValidateToken(ctx, token); got != nil {
		t.Fatal("invalidated session must not validate")
	}

	// Idempotent.
	store.Invalidate(ctx, sess.ID)
}
