package authkit

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/voralis/authkit/internal"
	"github.com/voralis/authkit/user"
)

func TestResolveCurrentSession(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	u := &user.User{ID: uuid.NewString(), Email: "ada@example.com", EmailVerified: true}
	te.users.put(u)

	sess, token, err := te.engine.issueSession(ctx, u.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	actor, err := te.engine.ResolveCurrentSession(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if actor == nil || actor.User.ID != u.ID || actor.Session.ID != sess.ID {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestResolveCurrentSessionUnknownToken(t *testing.T) {
	te := newTestEngine(t)

	actor, err := te.engine.ResolveCurrentSession(context.Background(), "never-issued")
	if err != nil || actor != nil {
		t.Fatalf("got actor=%v err=%v, want nil/nil", actor, err)
	}

	actor, err = te.engine.ResolveCurrentSession(context.Background(), "")
	if err != nil || actor != nil {
		t.Fatalf("empty token: got actor=%v err=%v, want nil/nil", actor, err)
	}
}

func TestResolveCurrentSessionOrphanedUser(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	// Session exists, but its user row does not.
	_, token, err := te.engine.issueSession(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	actor, err := te.engine.ResolveCurrentSession(ctx, token)
	if err != nil || actor != nil {
		t.Fatalf("got actor=%v err=%v, want nil/nil", actor, err)
	}

	// The orphaned session is gone afterwards.
	if te.redis.Exists("session:" + internal.HashToken(token)) {
		t.Fatal("orphaned session left behind")
	}
}

func TestLogout(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	actor := te.signIn(t, &user.User{ID: uuid.NewString(), Email: "ada@example.com", EmailVerified: true})

	if err := te.engine.Logout(ctx, actor); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sess, err := te.engine.sessions.Get(ctx, actor.Session.ID); err != nil || sess != nil {
		t.Fatalf("session survived logout: %+v (%v)", sess, err)
	}

	// Idempotent, including for anonymous callers.
	if err := te.engine.Logout(ctx, actor); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := te.engine.Logout(ctx, nil); err != nil {
		t.Fatalf("nil actor logout: %v", err)
	}
}
