// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/luxfi/ids"
)

const bearerPrefix = "Bearer "

var (
	errMissingSecret = errors.New("token secret is required")
	errBadSubject    = errors.New("token subject is not an address")
)

type callerKey struct{}

// Authenticator verifies HS256 bearer tokens whose subject is the caller
// address.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	if secret == "" {
		return nil, errMissingSecret
	}
	return &Authenticator{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// IssueToken signs a token for subject that expires after ttl. A zero ttl
// issues a token without expiry.
func (a *Authenticator) IssueToken(subject ids.ShortID, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:  subject.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify returns the caller named by token.
func (a *Authenticator) Verify(token string) (ids.ShortID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ids.ShortEmpty, err
	}
	if !parsed.Valid {
		return ids.ShortEmpty, jwt.ErrTokenSignatureInvalid
	}
	caller, err := ids.ShortFromString(claims.Subject)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", errBadSubject, err)
	}
	return caller, nil
}

// Middleware attaches the verified caller to the request context. Requests
// without a token pass through anonymously; a bad token is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}
		caller, err := a.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// WithCaller returns ctx carrying caller.
func WithCaller(ctx context.Context, caller ids.ShortID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (ids.ShortID, bool) {
	caller, ok := ctx.Value(callerKey{}).(ids.ShortID)
	return caller, ok
}
