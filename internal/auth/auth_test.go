package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
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

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}

func TestParseClaims_DotNetClaimNames(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier": userID.String(),
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress":   "ana@example.com",
		"http://schemas.microsoft.com/ws/2008/06/identity/claims/role":         []string{"SalesManager", "SalesRep"},
		"given_name":  "Ana",
		"family_name": "Silva",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	user, err := auth.ParseClaims(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, userID, user.UserID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana Silva", user.DisplayName)
	assert.Equal(t, []domain.UserRole{domain.RoleSalesManager, domain.RoleSalesRep}, user.Roles)
	assert.True(t, user.IsPrivileged())
	assert.Equal(t, token, user.AccessToken)
}

func TestParseClaims_Expired(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err := auth.ParseClaims(token, time.Now())
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestParseClaims_Garbage(t *testing.T) {
	_, err := auth.ParseClaims("not-a-jwt", time.Now())
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseClaims_FallsBackToEmailDerivedID(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"email": "rep@example.com", "role": "4"})
	user, err := auth.ParseClaims(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceOID, []byte("rep@example.com")), user.UserID)
	assert.Equal(t, []domain.UserRole{domain.RoleSalesRep}, user.Roles)
	assert.False(t, user.IsPrivileged())
}

func TestAuthenticate(t *testing.T) {
	mw := auth.NewMiddleware(auth.NewJWTValidator(&config.AuthConfig{SigningKey: "test-secret"}), zap.NewNop())
	var seen *auth.UserContext
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		assert.NotEmpty(t, auth.TokenFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"malformed token", "Bearer abc.def", http.StatusUnauthorized},
		{"unsigned token", "Bearer " + unsignedToken(t, jwt.MapClaims{"sub": uuid.NewString(), "role": "Admin"}), http.StatusUnauthorized},
		{"valid token", "Bearer " + signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "role": "Admin"}), http.StatusNoContent},
		{"lowercase scheme", "bearer " + signToken(t, jwt.MapClaims{"sub": uuid.NewString()}), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rr.Body.String(), auth.UnauthorizedMessage)
			}
		})
	}
	require.NotNil(t, seen)
}

func TestRequirePrivileged(t *testing.T) {
	mw := auth.NewMiddleware(auth.NewJWTValidator(&config.AuthConfig{SigningKey: "test-secret"}), zap.NewNop())
	handler := mw.RequirePrivileged(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rep := &auth.UserContext{UserID: uuid.New(), Roles: []domain.UserRole{domain.RoleSalesRep}}
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(auth.WithUserContext(context.Background(), rep))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin := &auth.UserContext{UserID: uuid.New(), Roles: []domain.UserRole{domain.RoleAdmin}}
	req = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(auth.WithUserContext(context.Background(), admin))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTokenStores(t *testing.T) {
	ctx := context.Background()
	stores := map[string]auth.TokenStore{
		"memory": auth.NewMemoryTokenStore(),
		"file":   auth.NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "token")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx)
			assert.ErrorIs(t, err, auth.ErrNoToken)

			require.NoError(t, store.Set(ctx, "tok-123"))
			got, err := store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-123", got)

			require.NoError(t, store.Clear(ctx))
			_, err = store.Get(ctx)
			assert.ErrorIs(t, err, auth.ErrNoToken)

			require.NoError(t, store.Clear(ctx))
		})
	}
}
