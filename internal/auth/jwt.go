package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/salesflow/salesflow-api/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	// ErrIdentityUnavailable means the token could not be checked, not that it is bad
	ErrIdentityUnavailable = errors.New("identity could not be confirmed")
)

// Claim names used by the ASP.NET Identity backend in addition to the short forms
const (
	claimRoleURI       = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	claimNameIDURI     = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimEmailURI      = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	claimNameURI       = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	claimGivenNameURI  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"
	claimSurnameURI    = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname"
	clockSkewTolerance = 30 * time.Second
)

// ParseClaims decodes the identity carried by a backend-issued token without checking
// its signature. Only the CLI reads its own stored token this way; request
// authentication goes through a Verifier.
func ParseClaims(tokenString string, now time.Time) (*UserContext, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if now.After(exp.Time.Add(clockSkewTolerance)) {
			return nil, ErrExpiredToken
		}
	}

	return userFromClaims(claims, tokenString), nil
}

func userFromClaims(claims jwt.MapClaims, tokenString string) *UserContext {
	userCtx := &UserContext{
		DisplayName: extractString(claims, "name", "unique_name", claimNameURI),
		Email:       extractString(claims, "email", claimEmailURI, "upn"),
		Roles:       ExtractRoles(claims),
		AccessToken: tokenString,
	}
	if userCtx.DisplayName == "" {
		first := extractString(claims, "given_name", claimGivenNameURI)
		last := extractString(claims, "family_name", claimSurnameURI)
		userCtx.DisplayName = joinName(first, last)
	}

	if id := extractString(claims, "sub", "nameid", "uid", claimNameIDURI); id != "" {
		if uid, err := uuid.Parse(id); err == nil {
			userCtx.UserID = uid
		}
	}
	if userCtx.UserID == uuid.Nil && userCtx.Email != "" {
		userCtx.UserID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(userCtx.Email))
	}

	return userCtx
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val, ok := claims[key]; ok {
			if str, ok := val.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}

// ExtractRoles extracts roles from JWT claims, normalizing labels and numbers
func ExtractRoles(claims jwt.MapClaims) []domain.UserRole {
	roles := []domain.UserRole{}
	seen := map[domain.UserRole]bool{}
	add := func(raw string) {
		role := domain.ParseUserRole(raw)
		if role == "" || seen[role] {
			return
		}
		seen[role] = true
		roles = append(roles, role)
	}

	for _, key := range []string{"roles", "role", claimRoleURI} {
		switch v := claims[key].(type) {
		case []interface{}:
			for _, r := range v {
				if str, ok := r.(string); ok {
					add(str)
				}
			}
		case []string:
			for _, str := range v {
				add(str)
			}
		case string:
			add(v)
		}
	}
	return roles
}
