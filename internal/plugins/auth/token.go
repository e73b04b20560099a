package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL applies when no lifetime is configured or passed.
const DefaultAccessTokenTTL = 30 * time.Minute

// TokenCodec issues and verifies signed bearer tokens whose subject is the
// user's email.
type TokenCodec interface {
	// Issue signs {sub, iat, exp}. A non-positive ttl means the codec default.
	Issue(subject string, ttl time.Duration) (string, error)

	// Verify checks signature and expiry and returns the subject.
	// Fails with ErrTokenExpired or ErrTokenInvalid.
	Verify(token string) (string, error)
}

// jwtCodec implements TokenCodec with HMAC-signed JWTs.
type jwtCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec creates an HMAC JWT codec. algorithm must be HS256, HS384
// or HS512.
func NewTokenCodec(secret, algorithm string, defaultTTL time.Duration) (TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}

	if defaultTTL <= 0 {
		defaultTTL = DefaultAccessTokenTTL
	}

	return &jwtCodec{
		secret:     []byte(secret),
		method:     method,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token for subject that expires after ttl.
func (c *jwtCodec) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses token, checking the signature before any claim is read.
func (c *jwtCodec) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		// Signature is verified before claims, so an expired error here
		// always belongs to an authentic token.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
