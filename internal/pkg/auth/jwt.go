// internal/pkg/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qmart/storefront/internal/config"
)

const (
	// audience is the aud every storefront token must carry
	audience      = "qmart-storefront"
	subjectPrefix = "user:"
)

var errBadSubject = errors.New("token subject does not name a user")

// Principal is the caller a verified token speaks for
type Principal struct {
	UserID uint
	Admin  bool
}

// Claims is the token payload. The user travels in sub as "user:<id>".
// Tokens are issued by the identity service; this service only mints them for local development.
type Claims struct {
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager verifies HS256 bearer tokens
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewJWTManager creates a manager keyed with JWT_SECRET
func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.JWT.Secret),
		ttl:    cfg.JWT.AccessTokenExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// GenerateAccessToken mints a token for userID
func (j *JWTManager) GenerateAccessToken(userID uint, admin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectPrefix + strconv.FormatUint(uint64(userID), 10),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// ValidateAccessToken checks signature, audience and expiry, then resolves the caller
func (j *JWTManager) ValidateAccessToken(tokenString string) (*Principal, error) {
	var claims Claims
	if _, err := j.parser.ParseWithClaims(tokenString, &claims, j.key); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	userID, err := userIDFromSubject(claims.Subject)
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: userID, Admin: claims.Admin}, nil
}

func (j *JWTManager) key(*jwt.Token) (any, error) {
	return j.secret, nil
}

func userIDFromSubject(sub string) (uint, error) {
	raw, ok := strings.CutPrefix(sub, subjectPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", errBadSubject, sub)
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", errBadSubject, sub)
	}
	return uint(id), nil
}

// ExtractTokenFromHeader returns the token of a "Bearer <token>" Authorization header
func ExtractTokenFromHeader(authHeader string) string {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
