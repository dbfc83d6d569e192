package authkit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// statelessIssuer is the issuer claim on stateless session tokens.
const statelessIssuer = "authkit"

// signStatelessSession encodes a session as an HS256-signed token. Used by
// the stateless strategy, where nothing is persisted and the expiry lives
// in the claims.
func signStatelessSession(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iss": statelessIssuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// verifyStatelessSession checks the signature and expiry of a stateless
// session token and reconstructs the session record from its claims.
// Expired tokens return ErrExpired, anything else malformed ErrNotFound,
// mirroring the database strategy's negative results.
func verifyStatelessSession(tokenString, secret string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if token != nil && token.Claims != nil {
			if exp, expErr := token.Claims.GetExpirationTime(); expErr == nil && exp != nil && exp.Before(time.Now()) {
				return nil, ErrExpired
			}
		}
		return nil, ErrNotFound
	}
	if !token.Valid {
		return nil, ErrNotFound
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNotFound
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrNotFound
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrNotFound
	}

	sess := &Session{
		ID:        tokenString,
		UserID:    sub,
		ExpiresAt: exp.Time,
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		sess.CreatedAt = iat.Time
	}
	return sess, nil
}
