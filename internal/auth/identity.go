// Package auth adapts an external identity provider behind the narrow
// surface the rest of the service depends on. Nothing here inspects
// provider-specific objects; swap the implementation and the callers do not
// change.
package auth

import (
	"context"
	"time"
)

// User is the authenticated principal.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Identity is the only view of the identity provider the service uses.
type Identity interface {
	// CurrentUser resolves the user behind a session token.
	CurrentUser(ctx context.Context, sessionToken string) (User, error)
	// MintSignInLink produces a one-time sign-in URL for email.
	MintSignInLink(ctx context.Context, email string) (string, error)
	// SignInWithLink exchanges a link token for a session token.
	SignInWithLink(ctx context.Context, linkToken string) (string, User, error)
	// SignOut invalidates the session token where the provider supports it.
	SignOut(ctx context.Context, sessionToken string) error
}

// ResolveUser runs the authoritative user lookup with an explicit deadline:
// a single cancellable attempt, first of lookup-result and timeout wins. It
// replaces any probe-and-poll arrangement.
func ResolveUser(ctx context.Context, id Identity, sessionToken string, timeout time.Duration) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		user User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		u, err := id.CurrentUser(ctx, sessionToken)
		done <- result{u, err}
	}()

	select {
	case r := <-done:
		return r.user, r.err
	case <-ctx.Done():
		return User{}, ctx.Err()
	}
}
