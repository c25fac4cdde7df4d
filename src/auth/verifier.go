// Package auth verifies the bearer credentials issued by the platform's
// REST auth layer. Tokens are HS256 JWTs signed with the shared secret.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Reason strings surfaced as close reasons on failed connects. They match
// the wording the REST layer uses for the same failures.
var (
	ErrTokenExpired   = errors.New("Token expired")
	ErrTokenInvalid   = errors.New("Invalid token")
	ErrInvalidPayload = errors.New("Invalid token payload")
)

// Claims are the session-token claims the realtime service cares about.
type Claims struct {
	Subject string // user id
	Phone   string
}

// Verifier validates session tokens. It is stateless and safe for
// concurrent use.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks signature and expiry and extracts the subject. The returned
// error, when non-nil, is one of the package sentinels wrapped with detail.
func (v *Verifier) Verify(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidPayload
	}
	phone, _ := claims["phone"].(string)

	return &Claims{Subject: sub, Phone: phone}, nil
}
