// Package jwt emite y valida los tokens HS256 que identifican al actor de un envío.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// leeway tolerancia de reloj entre emisor y API.
const leeway = 10 * time.Second

var errEmptySecret = errors.New("jwt: secret vacío")

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// El middleware RBAC decide con Role sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"` // "admin" | "vendedor" | "sistema"
}

// Actor es quien dispara un envío; UserID también es la clave de su canal de notificaciones.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}

// Generate genera un token JWT firmado que incluye userID, companyID y role.
func Generate(secret, userID, companyID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", errEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseActor valida firma, expiración y (si issuer no es vacío) el emisor.
func ParseActor(secret, tokenString, issuer string) (Actor, error) {
	if secret == "" {
		return Actor{}, errEmptySecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Actor{}, fmt.Errorf("jwt: %w", err)
	}
	if claims.UserID == "" || claims.CompanyID == "" {
		return Actor{}, errors.New("jwt: faltan user_id o company_id")
	}
	return Actor{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}

// Parse valida el token sin verificar el emisor y devuelve userID, companyID y role.
func Parse(secret, tokenString string) (userID, companyID, role string, err error) {
	a, err := ParseActor(secret, tokenString, "")
	if err != nil {
		return "", "", "", err
	}
	return a.UserID, a.CompanyID, a.Role, nil
}
