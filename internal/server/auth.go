/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiry is how long generated API tokens stay valid.
const DefaultTokenExpiry = 30 * 24 * time.Hour

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing token")

// Claims identifies the API client a token was issued to.
type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates HS256 API tokens.
type Authenticator struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator for secret.
// A zero expiry uses DefaultTokenExpiry.
func NewAuthenticator(secret string, expiry time.Duration) *Authenticator {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &Authenticator{
		secret: []byte(strings.TrimSpace(secret)),
		expiry: expiry,
		now:    time.Now,
	}
}

// GenerateToken signs a token for client.
func (a *Authenticator) GenerateToken(client string) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.expiry)
	claims := Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client,
			Issuer:    "netsentinel",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken parses a token and checks its signature and expiry.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// tokenFromRequest reads a bearer token from the Authorization header,
// falling back to the token query parameter for WebSocket clients.
func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && token != "" {
			return token, nil
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// authMiddleware rejects requests without a valid token.
// It is a no-op when the server has no authenticator.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := tokenFromRequest(r)
		if err != nil {
			s.writeError(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			s.logger.Warn("Rejected API request", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
			s.writeError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		s.logger.Debug("Authenticated API request", "client", claims.Client, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
