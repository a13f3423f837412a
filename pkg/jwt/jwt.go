package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSinExpiracion el token no trae claim exp.
var ErrSinExpiracion = errors.New("jwt: token sin expiración")

// Generate genera un token HS256 con subject, issuer y expiración.
// La API externa emite sus propios tokens; esto se usa para simularla.
func Generate(secret, subject, issuer string, exp time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Expiration lee el claim exp sin verificar la firma (el token lo emite y valida la API externa;
// acá solo interesa saber hasta cuándo reutilizarlo).
func Expiration(tokenString string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("jwt: token inválido: %w", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("jwt: claim exp inválido: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrSinExpiracion
	}
	return exp.Time, nil
}
