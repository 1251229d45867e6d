package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJWTValidator_SigningKey(t *testing.T) {
	v := auth.NewJWTValidator(&config.AuthConfig{SigningKey: "test-secret", Issuer: "salesflow"})
	ctx := context.Background()

	userID := uuid.New()
	good := signToken(t, jwt.MapClaims{"sub": userID.String(), "role": "Admin", "iss": "salesflow"})
	user, err := v.Verify(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, userID, user.UserID)
	assert.Equal(t, []domain.UserRole{domain.RoleAdmin}, user.Roles)

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "Admin", "iss": "salesflow"}).SignedString([]byte("nope"))
	require.NoError(t, err)

	tests := map[string]string{
		"unsigned":     unsignedToken(t, jwt.MapClaims{"role": "Admin", "iss": "salesflow"}),
		"wrong key":    otherKey,
		"wrong issuer": signToken(t, jwt.MapClaims{"role": "Admin", "iss": "elsewhere"}),
		"not a jwt":    "abc.def",
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(ctx, token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}

	expired := signToken(t, jwt.MapClaims{"iss": "salesflow", "exp": time.Now().Add(-time.Hour).Unix()})
	_, err = v.Verify(ctx, expired)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestJWTValidator_JWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[{"kid":"k1","kty":"RSA","use":"sig","n":"` +
			base64.RawURLEncoding.EncodeToString(key.N.Bytes()) + `","e":"` +
			base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()) + `"}]}`))
	}))
	t.Cleanup(srv.Close)

	v := auth.NewJWTValidator(&config.AuthConfig{JWKSURL: srv.URL, Audience: "salesflow-web"})

	sign := func(kid string, claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = kid
		s, err := token.SignedString(key)
		require.NoError(t, err)
		return s
	}

	user, err := v.Verify(context.Background(), sign("k1", jwt.MapClaims{"email": "ana@example.com", "aud": "salesflow-web", "role": "2"}))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.IsPrivileged())

	_, err = v.Verify(context.Background(), sign("k1", jwt.MapClaims{"aud": "salesflow-web", "role": "Admin"}))
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())

	_, err = v.Verify(context.Background(), sign("k1", jwt.MapClaims{"aud": "other-app"}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(context.Background(), sign("unknown", jwt.MapClaims{"aud": "salesflow-web"}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(context.Background(), signToken(t, jwt.MapClaims{"aud": "salesflow-web"}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

type statusError int

func (e statusError) Error() string   { return http.StatusText(int(e)) }
func (e statusError) StatusCode() int { return int(e) }

type identityFunc func(ctx context.Context) (*domain.User, error)

func (f identityFunc) CurrentUser(ctx context.Context) (*domain.User, error) { return f(ctx) }

func TestBackendVerifier(t *testing.T) {
	ctx := context.Background()
	claimsAdmin := unsignedToken(t, jwt.MapClaims{"role": "Admin", "sub": "attacker@x"})

	t.Run("roles come from the confirmed user", func(t *testing.T) {
		calls := 0
		userID := uuid.New()
		v := auth.NewBackendVerifier(identityFunc(func(ctx context.Context) (*domain.User, error) {
			calls++
			assert.Equal(t, claimsAdmin, auth.TokenFromContext(ctx))
			return &domain.User{ID: userID, FirstName: "Sam", LastName: "Reyes", Email: "sam@example.com", Role: domain.RoleSalesRep, IsActive: true}, nil
		}), time.Minute, zap.NewNop())

		for i := 0; i < 2; i++ {
			user, err := v.Verify(ctx, claimsAdmin)
			require.NoError(t, err)
			assert.Equal(t, userID, user.UserID)
			assert.Equal(t, "Sam Reyes", user.DisplayName)
			assert.Equal(t, []domain.UserRole{domain.RoleSalesRep}, user.Roles)
			assert.Equal(t, claimsAdmin, user.AccessToken)
		}
		assert.Equal(t, 1, calls)
	})

	tests := []struct {
		name    string
		user    *domain.User
		err     error
		wantErr error
	}{
		{"backend rejects", nil, statusError(http.StatusUnauthorized), auth.ErrInvalidToken},
		{"backend forbids", nil, statusError(http.StatusForbidden), auth.ErrInvalidToken},
		{"backend failing", nil, statusError(http.StatusBadGateway), auth.ErrIdentityUnavailable},
		{"backend unreachable", nil, errors.New("connection refused"), auth.ErrIdentityUnavailable},
		{"deactivated user", &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}, nil, auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := auth.NewBackendVerifier(identityFunc(func(context.Context) (*domain.User, error) {
				return tt.user, tt.err
			}), time.Minute, zap.NewNop())
			_, err := v.Verify(ctx, claimsAdmin)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("expired tokens never reach the backend", func(t *testing.T) {
		v := auth.NewBackendVerifier(identityFunc(func(context.Context) (*domain.User, error) {
			t.Fatal("backend called for an expired token")
			return nil, nil
		}), time.Minute, zap.NewNop())
		_, err := v.Verify(ctx, signToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}))
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})
}

func TestAuthenticate_IdentityUnavailable(t *testing.T) {
	v := auth.NewBackendVerifier(identityFunc(func(context.Context) (*domain.User, error) {
		return nil, errors.New("dial tcp: connection refused")
	}), 0, zap.NewNop())
	handler := auth.NewMiddleware(v, zap.NewNop()).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without a confirmed identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": uuid.NewString()}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
