package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"pmapi/internal/access"
)

// CallerLocalKey is the locals key holding the access.Caller of a request.
const CallerLocalKey = "caller"

// roleAdmin is the roles claim value granting the administrator capability.
const roleAdmin = "admin"

// Claims are the JWT claims understood by the API. Subject is the caller id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Authenticator verifies HS256 bearer tokens and turns them into callers.
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
	log    zerolog.Logger
}

// NewAuthenticator builds an Authenticator. An empty issuer disables the iss check.
func NewAuthenticator(secret, issuer string, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
		log:    log.With().Str("component", "jwt_auth").Logger(),
	}
}

// Handler resolves the caller of every request. Requests without an
// Authorization header continue as anonymous; a header that does not carry
// a valid bearer token is rejected with 401.
func (a *Authenticator) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			c.Locals(CallerLocalKey, access.Anonymous())
			return c.Next()
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "expected Authorization: Bearer <token>")
		}

		caller, err := a.Parse(strings.TrimSpace(token))
		if err != nil {
			a.log.Debug().
				Str("request_id", RequestIDFrom(c)).
				Str("error_message", err.Error()).
				Msg("token rejected")
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CallerLocalKey, caller)
		return c.Next()
	}
}

// Parse validates token and returns the caller it identifies.
func (a *Authenticator) Parse(token string) (access.Caller, error) {
	if len(a.secret) == 0 {
		return access.Caller{}, errors.New("token verification is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return access.Caller{}, err
	}
	if claims.Subject == "" {
		return access.Caller{}, errors.New("token has no subject")
	}

	caller := access.Caller{ID: claims.Subject}
	for _, role := range claims.Roles {
		if role == roleAdmin {
			caller.Capabilities = append(caller.Capabilities, access.CapabilityAdmin)
		}
	}
	return caller, nil
}

// Issue signs a token for subject. It backs local tooling and tests.
func (a *Authenticator) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// CallerFrom returns the caller resolved by Authenticator.Handler, or the
// anonymous caller when none was stored.
func CallerFrom(c *fiber.Ctx) access.Caller {
	caller, _ := c.Locals(CallerLocalKey).(access.Caller)
	return caller
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CallerFrom(c).IsAnonymous() {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin rejects anonymous callers with 401 and callers without the
// administrator capability with 403.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := CallerFrom(c)
		if caller.IsAnonymous() {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		if !caller.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "administrator capability required")
		}
		return c.Next()
	}
}
