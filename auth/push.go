// Copyright 2025 The Go A2A Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package auth signs and verifies push notification payloads.
//
// A [Signer] holds an ES256 key pair. Each token it issues is bound to the
// webhook URL through the audience claim and to the exact payload through a
// SHA-256 hash claim, so a token cannot be replayed against another receiver
// or another body. A [Verifier] checks such tokens against a JSON Web Key Set,
// either given directly or fetched from the agent's well-known key set URL.
package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// BodyHashClaim is the private claim carrying the hex SHA-256 of the payload.
const BodyHashClaim = "request_body_sha256"

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 5 * time.Minute

// ErrInvalidToken is returned when a token does not verify.
var ErrInvalidToken = errors.New("invalid push notification token")

// BodyHash returns the value of [BodyHashClaim] for body.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Signer issues push notification tokens.
type Signer struct {
	issuer  string
	ttl     time.Duration
	private jwk.Key
	public  jwk.Set
}

// SignerOption configures a [Signer].
type SignerOption func(*Signer)

// WithIssuer sets the iss claim.
func WithIssuer(iss string) SignerOption {
	return func(s *Signer) {
		s.issuer = iss
	}
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) SignerOption {
	return func(s *Signer) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewSigner creates a [Signer] with a fresh P-256 key.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return NewSignerFromKey(raw, uuid.NewString(), opts...)
}

// NewSignerFromKey creates a [Signer] from an existing key. kid identifies the
// key in the published set.
func NewSignerFromKey(raw *ecdsa.PrivateKey, kid string, opts ...SignerOption) (*Signer, error) {
	if raw == nil {
		return nil, errors.New("signing key is required")
	}
	private, err := importKey(raw, kid)
	if err != nil {
		return nil, err
	}
	public, err := importKey(raw.Public(), kid)
	if err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(public); err != nil {
		return nil, fmt.Errorf("build key set: %w", err)
	}

	s := &Signer{ttl: DefaultTokenTTL, private: private, public: set}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func importKey(raw any, kid string) (jwk.Key, error) {
	key, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, fmt.Errorf("set key id: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("set key algorithm: %w", err)
	}
	return key, nil
}

// Sign issues a token for delivering body to audience.
func (s *Signer) Sign(_ context.Context, body []byte, audience string) (string, error) {
	now := time.Now()
	b := jwt.NewBuilder().
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		JwtID(uuid.NewString()).
		Audience([]string{audience}).
		Claim(BodyHashClaim, BodyHash(body))
	if s.issuer != "" {
		b = b.Issuer(s.issuer)
	}
	tok, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), s.private))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// JWKS returns the public key set.
func (s *Signer) JWKS() jwk.Set {
	return s.public
}

// JWKSHandler serves the public key set.
func (s *Signer) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		b, err := json.Marshal(s.public)
		if err != nil {
			http.Error(w, "failed to encode key set", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.Write(b)
	})
}

// Verifier checks push notification tokens.
type Verifier struct {
	audience string
	skew     time.Duration
	logger   *slog.Logger

	// static key set, or nil when keys are fetched from url
	static jwk.Set

	url       string
	client    *http.Client
	cacheTTL  time.Duration
	mu        sync.Mutex
	cached    jwk.Set
	fetchedAt time.Time
}

// VerifierOption configures a [Verifier].
type VerifierOption func(*Verifier)

// WithAudience requires tokens to name aud, usually the receiver's own URL.
func WithAudience(aud string) VerifierOption {
	return func(v *Verifier) {
		v.audience = aud
	}
}

// WithAcceptableSkew tolerates clock differences up to d.
func WithAcceptableSkew(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.skew = d
	}
}

// WithCacheTTL sets how long a fetched key set is trusted.
func WithCacheTTL(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.cacheTTL = d
		}
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a [Verifier] using a fixed key set.
func NewVerifier(set jwk.Set, opts ...VerifierOption) *Verifier {
	v := newVerifier(opts)
	v.static = set
	return v
}

// NewRemoteVerifier creates a [Verifier] fetching keys from url. A token
// whose key is unknown forces a refetch.
func NewRemoteVerifier(url string, client *http.Client, opts ...VerifierOption) *Verifier {
	v := newVerifier(opts)
	v.url = url
	v.client = client
	if v.client == nil {
		v.client = &http.Client{Timeout: 10 * time.Second}
	}
	return v
}

func newVerifier(opts []VerifierOption) *Verifier {
	v := &Verifier{
		skew:     30 * time.Second,
		cacheTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Verify checks that token was issued for body by a key of the set.
func (v *Verifier) Verify(ctx context.Context, token string, body []byte) error {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrInvalidToken)
	}

	set, err := v.keySet(ctx, false)
	if err != nil {
		return err
	}
	err = v.parse(token, body, set)
	if err != nil && v.static == nil {
		// The agent may have rotated its key since the last fetch.
		if set, ferr := v.keySet(ctx, true); ferr == nil {
			err = v.parse(token, body, set)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func (v *Verifier) parse(token string, body []byte, set jwk.Set) error {
	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithClaimValue(BodyHashClaim, BodyHash(body)),
		jwt.WithRequiredClaim(jwt.IssuedAtKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	_, err := jwt.Parse([]byte(token), opts...)
	return err
}

func (v *Verifier) keySet(ctx context.Context, refresh bool) (jwk.Set, error) {
	if v.static != nil {
		return v.static, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if !refresh && v.cached != nil && time.Since(v.fetchedAt) < v.cacheTTL {
		return v.cached, nil
	}
	set, err := jwk.Fetch(ctx, v.url, jwk.WithHTTPClient(v.client))
	if err != nil {
		if v.cached != nil {
			v.logger.WarnContext(ctx, "refresh push key set", slog.String("url", v.url), slog.Any("error", err))
			return v.cached, nil
		}
		return nil, fmt.Errorf("fetch key set from %s: %w", v.url, err)
	}
	v.cached, v.fetchedAt = set, time.Now()
	return set, nil
}
