package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"taskman-api/domain"
)

// Identity is the verified subject of a request.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// Auth issues and verifies HS256 bearer tokens signed with a process-wide
// secret. The secret is read once at startup and never rotated at runtime.
//
// Tokens are minted without an expiry claim, matching the session model of
// the deployed system; verification still honours exp and nbf when a token
// carries them, so adding expiry later is a config change rather than a
// format break.
type Auth struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuth creates an Auth instance around the given signing secret.
func NewAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: empty signing secret")
	}
	return &Auth{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
	}
}

// IssueToken signs a token embedding the user's id, username and role.
func (a *Auth) IssueToken(u domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      u.ID.String(),
		"username": u.Username,
		"role":     u.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// IdentityFromToken verifies a bearer token and returns the identity encoded
// in its claims.
func (a *Auth) IdentityFromToken(token string) (Identity, error) {
	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}

	// exp and nbf are optional but must hold when present.
	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, false) {
		return Identity{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Identity{}, errors.New("token not valid yet")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, errors.New("missing sub")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return Identity{}, errors.New("missing role")
	}
	username, _ := claims["username"].(string)

	return Identity{UserID: userID, Username: username, Role: role}, nil
}
