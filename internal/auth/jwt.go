package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleDriver = "driver"
	RoleUser   = "user"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the websocket client and which side of the ride it is on.
type Claims struct {
	ClientID string `json:"clientId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed tokens presented during the websocket
// handshake.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token, rejecting any non-HMAC signing
// method and any role outside driver/user.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ClientID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleDriver && claims.Role != RoleUser {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromRequest accepts the token either as a bearer header or as the
// "token" query parameter, which browser websocket clients must use.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}
