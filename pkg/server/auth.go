package server

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ember-mud/embermud/pkg/account"
)

// Claims holds the JWT claims for an authenticated web client.
type Claims struct {
	AccountName string `json:"account_name"`
	jwt.RegisteredClaims
}

// AuthService issues and validates JWT tokens for the web transport. A
// token lets a WebSocket client skip the login screen and enter the
// session pre-authenticated.
type AuthService struct {
	accounts account.Store
	jwtKey   []byte
	expiry   time.Duration
}

// NewAuthService creates an auth service. If jwtSecret is empty, a
// random 32-byte key is generated (tokens then do not survive a
// restart, which is fine for session state that doesn't either).
func NewAuthService(accounts account.Store, jwtSecret string, expirySeconds int) *AuthService {
	var key []byte
	if jwtSecret != "" {
		key = []byte(jwtSecret)
	} else {
		key = make([]byte, 32)
		rand.Read(key)
	}
	expiry := 24 * time.Hour
	if expirySeconds > 0 {
		expiry = time.Duration(expirySeconds) * time.Second
	}
	return &AuthService{accounts: accounts, jwtKey: key, expiry: expiry}
}

// Login authenticates against the credential store and returns a signed
// token.
func (a *AuthService) Login(name, password string) (string, error) {
	acct, err := a.accounts.Authenticate(name, password)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		AccountName: acct.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			Issuer:    "embermud",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtKey)
}

// ValidateToken parses and validates a token string.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
