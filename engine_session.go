package authkit

import (
	"context"
)

// ResolveCurrentSession resolves a raw session token to its actor. Unknown
// and expired tokens return nil without error; a live session whose user no
// longer exists is invalidated and treated the same. Sessions inside the
// refresh window are renewed as a side effect.
func (e *Engine) ResolveCurrentSession(ctx context.Context, rawToken string) (*Actor, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if rawToken == "" {
		return nil, nil
	}

	sess, err := e.sessions.ValidateToken(ctx, rawToken)
	if err != nil || sess == nil {
		return nil, err
	}

	u, err := e.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// Orphaned session: the user row is gone, so the session must not
		// keep granting access.
		e.sessions.Invalidate(ctx, sess.ID)
		return nil, nil
	}

	return &Actor{Session: sess, User: u}, nil
}

// Logout invalidates the actor's session. Idempotent; a nil actor is a no-op.
func (e *Engine) Logout(ctx context.Context, actor *Actor) error {
	if err := e.ready(); err != nil {
		return err
	}
	if actor == nil || actor.Session == nil {
		return nil
	}
	e.sessions.Invalidate(ctx, actor.Session.ID)
	return nil
}
