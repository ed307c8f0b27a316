// Package auth verifies owner bearer tokens issued by the identity provider.
package auth

import (
	"fmt"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the ledger reads. The subject is the owner id.
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// OwnerID returns the owner a valid access token belongs to.
func (v *Verifier) OwnerID(tokenString string) (string, error) {
	token, err := v.parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != "" && claims.Type != "access" {
		return "", &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	if claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "Token sem titular"}
	}
	return claims.Subject, nil
}
