// internal/auth/auth.go

package auth

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long an operator token stays valid.
const TokenTTL = 12 * time.Hour

const issuer = "rng-engine"

// JWTSecret holds the signing key (set by Init).
var JWTSecret []byte

// Init caches the JWT secret read from config.
func Init(secret string) {
	JWTSecret = []byte(secret)
}

// Claims defines the JWT payload for operators.
type Claims struct {
	OperatorID string `json:"operator_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	jwt.StandardClaims
}

// GenerateJWT creates a signed token valid for TokenTTL.
func GenerateJWT(operatorID, username, role string) (string, error) {
	if len(JWTSecret) == 0 {
		return "", errors.New("auth: signing key not set")
	}
	now := time.Now()
	claims := Claims{
		OperatorID: operatorID,
		Username:   username,
		Role:       role,
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   operatorID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TokenTTL).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ParseAndVerify validates the token string and returns its claims.
func ParseAndVerify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// HS256 only
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.VerifyIssuer(issuer, true) {
		return nil, errors.New("invalid token issuer")
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
