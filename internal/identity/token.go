package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// assertionClaims is the JWT shape the substrate gateway issues after it has
// verified the caller's certificate. The token is transport glue: the claims
// carry the already-verified identity assertion, nothing is re-verified here
// beyond the token signature.
type assertionClaims struct {
	MSPID string `json:"mspid"`
	Role  string `json:"role"`
	DN    string `json:"dn"`
	jwt.RegisteredClaims
}

// TokenValidator turns bearer tokens into caller identities.
type TokenValidator struct {
	signingKey []byte
}

// NewTokenValidator builds a validator for HMAC-signed assertion tokens.
func NewTokenValidator(signingKey string) *TokenValidator {
	return &TokenValidator{signingKey: []byte(signingKey)}
}

// Validate parses and verifies the token and returns the caller identity.
func (v *TokenValidator) Validate(tokenString string) (Identity, error) {
	claims := &assertionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("parse assertion token: %w", err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("assertion token invalid")
	}
	if claims.MSPID == "" {
		return Identity{}, fmt.Errorf("assertion token missing mspid claim")
	}
	return New(claims.MSPID, claims.Role, claims.DN), nil
}

// IssueToken signs an assertion token for the given raw credential fields.
// Used by tests and the development token generator.
func IssueToken(signingKey, mspID, roleAttr, dn string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, assertionClaims{
		MSPID: mspID,
		Role:  roleAttr,
		DN:    dn,
	})
	return token.SignedString([]byte(signingKey))
}
