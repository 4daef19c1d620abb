package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pledgeboard/internal/domain"
)

const (
	purposeSignIn  = "signin"
	purposeSession = "session"
)

type claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// JWTIdentity implements Identity with HS256-signed tokens: a short-lived
// link token embedded in the sign-in URL and a longer-lived session token
// returned on exchange.
type JWTIdentity struct {
	secret     []byte
	linkURL    string // base URL the sign-in link points at
	linkTTL    time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

func NewJWTIdentity(secret, linkURL string, linkTTL, sessionTTL time.Duration) *JWTIdentity {
	return &JWTIdentity{
		secret:     []byte(secret),
		linkURL:    linkURL,
		linkTTL:    linkTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (j *JWTIdentity) MintSignInLink(_ context.Context, email string) (string, error) {
	token, err := j.sign(email, "", purposeSignIn, j.linkTTL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(j.linkURL)
	if err != nil {
		return "", fmt.Errorf("parse link url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (j *JWTIdentity) SignInWithLink(_ context.Context, linkToken string) (string, User, error) {
	c, err := j.parse(linkToken)
	if err != nil || c.Purpose != purposeSignIn {
		return "", User{}, domain.ErrLinkExpired
	}
	user := userFromClaims(c)
	session, err := j.sign(c.Email, c.Name, purposeSession, j.sessionTTL)
	if err != nil {
		return "", User{}, err
	}
	return session, user, nil
}

func (j *JWTIdentity) CurrentUser(_ context.Context, sessionToken string) (User, error) {
	c, err := j.parse(sessionToken)
	if err != nil || c.Purpose != purposeSession {
		return User{}, domain.ErrNotAuthenticated
	}
	return userFromClaims(c), nil
}

// SignOut is a no-op for stateless tokens; the client discards its copy.
func (j *JWTIdentity) SignOut(context.Context, string) error { return nil }

func (j *JWTIdentity) sign(email, name, purpose string, ttl time.Duration) (string, error) {
	now := j.now()
	c := claims{
		Email:   email,
		Name:    name,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
}

func (j *JWTIdentity) parse(token string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrNotAuthenticated
	}
	return c, nil
}

func userFromClaims(c *claims) User {
	name := c.Name
	if name == "" {
		// Fall back to the mailbox part of the address, as the dashboard
		// header does.
		name = strings.SplitN(c.Email, "@", 2)[0]
	}
	return User{ID: c.Email, Email: c.Email, DisplayName: name}
}
