package auth

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"go.uber.org/zap"
)

// Verifier authenticates a bearer token and returns the identity it proves
type Verifier interface {
	Verify(ctx context.Context, token string) (*UserContext, error)
}

// IdentityProvider resolves the owner of the token carried by ctx
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// NewVerifier picks signature verification when a signing key or JWKS URL is
// configured and falls back to confirming each token with the backend.
func NewVerifier(cfg *config.AuthConfig, identity IdentityProvider, logger *zap.Logger) Verifier {
	if cfg.SigningKey != "" || cfg.JWKSURL != "" {
		return NewJWTValidator(cfg)
	}
	logger.Info("no token signing key configured, confirming tokens with the backend")
	return NewBackendVerifier(identity, cfg.IdentityCacheDuration(), logger)
}

// JWTValidator checks token signatures with a shared HMAC key or the backend's JWKS
type JWTValidator struct {
	config     *config.AuthConfig
	httpClient *http.Client

	mu         sync.RWMutex
	publicKeys map[string]*rsa.PublicKey
	lastUpdate time.Time
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		publicKeys: make(map[string]*rsa.PublicKey),
	}
}

// Verify validates the signature, expiry, issuer and audience of a token
func (v *JWTValidator) Verify(ctx context.Context, tokenString string) (*UserContext, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(clockSkewTolerance)}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if v.config.SigningKey != "" {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(v.config.SigningKey), nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid in header")
		}
		return v.publicKey(ctx, kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return userFromClaims(claims, tokenString), nil
}

func (v *JWTValidator) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, exists := v.publicKeys[kid]
	fresh := time.Since(v.lastUpdate) < 24*time.Hour
	v.mu.RUnlock()
	if exists && fresh {
		return key, nil
	}

	if err := v.refreshPublicKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, exists = v.publicKeys[kid]
	if !exists {
		return nil, fmt.Errorf("public key not found for kid: %s", kid)
	}
	return key, nil
}

func (v *JWTValidator) refreshPublicKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build JWKS request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
			Kty string `json:"kty"`
			Use string `json:"use"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || (key.Use != "" && key.Use != "sig") {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			continue
		}
		e := 0
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}
		keys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}
	}

	v.mu.Lock()
	v.publicKeys = keys
	v.lastUpdate = time.Now()
	v.mu.Unlock()
	return nil
}

// BackendVerifier confirms each token by asking the backend who owns it.
// Roles come from the backend's user record, never from the token.
type BackendVerifier struct {
	identity IdentityProvider
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	cache map[[sha256.Size]byte]cachedIdentity
}

type cachedIdentity struct {
	user    UserContext
	expires time.Time
}

// NewBackendVerifier creates a verifier backed by the current-user endpoint
func NewBackendVerifier(identity IdentityProvider, ttl time.Duration, logger *zap.Logger) *BackendVerifier {
	return &BackendVerifier{
		identity: identity,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		cache:    make(map[[sha256.Size]byte]cachedIdentity),
	}
}

// Verify rejects malformed or expired tokens locally and confirms the rest with the backend
func (v *BackendVerifier) Verify(ctx context.Context, tokenString string) (*UserContext, error) {
	now := v.now()
	decoded, err := ParseClaims(tokenString, now)
	if err != nil {
		return nil, err
	}

	key := sha256.Sum256([]byte(tokenString))
	if user, ok := v.cached(key, now); ok {
		return user, nil
	}

	profile, err := v.identity.CurrentUser(WithToken(ctx, tokenString))
	if err != nil {
		var sc interface{ StatusCode() int }
		if errors.As(err, &sc) && (sc.StatusCode() == http.StatusUnauthorized || sc.StatusCode() == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: rejected by backend", ErrInvalidToken)
		}
		v.logger.Warn("failed to confirm token with backend", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	if !profile.IsActive {
		return nil, fmt.Errorf("%w: user is deactivated", ErrInvalidToken)
	}

	user := &UserContext{
		UserID:      profile.ID,
		DisplayName: profile.FullName(),
		Email:       profile.Email,
		Roles:       []domain.UserRole{},
		AccessToken: tokenString,
	}
	if profile.Role != "" {
		user.Roles = append(user.Roles, profile.Role)
	}
	if user.DisplayName == "" {
		user.DisplayName = decoded.DisplayName
	}

	if v.ttl > 0 {
		v.mu.Lock()
		v.cache[key] = cachedIdentity{user: *user, expires: now.Add(v.ttl)}
		v.mu.Unlock()
	}
	return user, nil
}

func (v *BackendVerifier) cached(key [sha256.Size]byte, now time.Time) (*UserContext, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.cache[key]
	if !ok {
		return nil, false
	}
	if now.After(entry.expires) {
		delete(v.cache, key)
		return nil, false
	}
	user := entry.user
	user.Roles = append([]domain.UserRole(nil), entry.user.Roles...)
	return &user, true
}
