package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
	"github.com/shinker1002/seb40-main-019/pkg/httputil"
)

func staticValidator(claims *Claims, err error) TokenValidator {
	return func(token string) (*Claims, error) {
		if token != "good-token" && err == nil {
			return nil, errors.New("unknown token")
		}
		return claims, err
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuth_InjectsPrincipal(t *testing.T) {
	var gotID int64
	var gotRole string
	h := Auth(staticValidator(&Claims{UserID: 7, Role: "ROLE_USER"}, nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), gotID)
	assert.Equal(t, "ROLE_USER", gotRole)
}

func TestAuth_Rejections(t *testing.T) {
	expired := apperrors.New("TOKEN_EXPIRED", "token has expired", http.StatusUnauthorized, apperrors.ErrUnauthorized)

	tests := []struct {
		name      string
		header    string
		validator TokenValidator
		code      string
	}{
		{"missing header", "", staticValidator(nil, nil), "AUTHENTICATION_REQUIRED"},
		{"wrong scheme", "Basic abc", staticValidator(nil, nil), "AUTHENTICATION_REQUIRED"},
		{"empty token", "Bearer ", staticValidator(nil, nil), "AUTHENTICATION_REQUIRED"},
		{"unknown token", "Bearer other", staticValidator(nil, nil), "TOKEN_INVALID"},
		{"coded error", "Bearer good-token", staticValidator(nil, expired), "TOKEN_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := Auth(tt.validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("ROLE_ADMIN", "ROLE_ADMIN_TEST")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), 1, "ROLE_ADMIN_TEST"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), 2, "ROLE_USER"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("abc.def")
	assert.False(t, ok)
}
