package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signing key comes from the environment with a development fallback, so the
// server still boots in a local setup without a .env file.
var jwtSecretKey = func() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-secret-change-me")
}()

// GenerateToken creates a JWT for a user. The role is baked into the claims
// so the middleware does not have to hit the database on every request just
// to learn it; the account status is still checked per request.
func GenerateToken(userID int64, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour * 72).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecretKey)
}

// ValidateToken parses and validates a token string and returns the user ID
// and role it carries.
func ValidateToken(tokenString string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecretKey, nil
	})
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", errors.New("invalid subject claim")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return 0, "", errors.New("invalid role claim")
	}

	return int64(userIDFloat), role, nil
}
