package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "snapgram-api"
	TokenAudience = "snapgram-client"
	TokenTTL      = 7 * 24 * time.Hour
	RefreshTTL    = 30 * 24 * time.Hour
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	UserID    uint
	Username  string
	JTI       string
	Type      string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 access token for the user.
func IssueToken(secret string, userID uint, username string, now time.Time) (string, TokenClaims, error) {
	return signToken(secret, userID, username, TokenTypeAccess, TokenTTL, now)
}

// IssueRefreshToken signs a long-lived token that can only be exchanged at
// the refresh endpoint.
func IssueRefreshToken(secret string, userID uint, username string, now time.Time) (string, TokenClaims, error) {
	return signToken(secret, userID, username, TokenTypeRefresh, RefreshTTL, now)
}

func signToken(secret string, userID uint, username, typ string, ttl time.Duration, now time.Time) (string, TokenClaims, error) {
	jti := fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      jti,
		"typ":      typ,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", TokenClaims{}, err
	}
	return signed, TokenClaims{UserID: userID, Username: username, JTI: jti, Type: typ, ExpiresAt: exp}, nil
}

// ParseToken verifies signature, issuer, audience and expiry. Tokens without
// a typ claim are access tokens.
func ParseToken(secret, tokenString string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return TokenClaims{}, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, errors.New("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return TokenClaims{}, errors.New("invalid token structure - missing subject")
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return TokenClaims{}, errors.New("invalid user ID in token")
	}

	out := TokenClaims{UserID: uint(id)}
	out.Username, _ = claims["username"].(string)
	out.JTI, _ = claims["jti"].(string)
	out.Type, _ = claims["typ"].(string)
	if out.Type == "" {
		out.Type = TokenTypeAccess
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
