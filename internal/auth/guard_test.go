package auth_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abitickets/internal/auth"
	"abitickets/internal/logger"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "administration.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newGuard(t *testing.T) *auth.Guard {
	t.Helper()
	path := writeCredentials(t, `[
		{"username": "frida", "recht": "Admin"},
		{"username": "kasse", "recht": "Purchase"},
		{"username": "tuer", "recht": "Scanner"}
	]`)
	guard, err := auth.NewGuard(path, logger.NewNop())
	require.NoError(t, err)
	return guard
}

func TestAuthorize(t *testing.T) {
	guard := newGuard(t)

	principal, err := guard.Authorize(auth.EncodeCredential("frida", auth.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "frida", principal.Username)
	assert.Equal(t, auth.RoleAdmin, principal.Recht)

	_, err = guard.Authorize("")
	assert.ErrorIs(t, err, auth.ErrNoCredential)

	_, err = guard.Authorize("not-base64!!!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	// Valid encoding, unknown principal.
	_, err = guard.Authorize(auth.EncodeCredential("eve", auth.RoleAdmin))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	// Known user, wrong role claim.
	_, err = guard.Authorize(auth.EncodeCredential("tuer", auth.RoleAdmin))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	// base64 without the separator.
	_, err = guard.Authorize(base64.StdEncoding.EncodeToString([]byte("frida")))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
}

func protectedHandler(guard *auth.Guard, roles ...auth.Role) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := auth.PrincipalFrom(r.Context())
		w.Write([]byte(principal.Username))
	})
	return guard.RequireRole(roles...)(inner)
}

func TestRequireRole(t *testing.T) {
	guard := newGuard(t)
	handler := protectedHandler(guard, auth.RolePurchase)

	cases := []struct {
		name       string
		credential string
		want       int
	}{
		{"missing credential", "", http.StatusUnauthorized},
		{"invalid credential", "garbage", http.StatusForbidden},
		{"matching role", auth.EncodeCredential("kasse", auth.RolePurchase), http.StatusOK},
		{"admin always allowed", auth.EncodeCredential("frida", auth.RoleAdmin), http.StatusOK},
		{"wrong role", auth.EncodeCredential("tuer", auth.RoleScanner), http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
			if tc.credential != "" {
				req.Header.Set("Authorization", tc.credential)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCredentialSources(t *testing.T) {
	guard := newGuard(t)
	handler := protectedHandler(guard, auth.RoleScanner)
	credential := auth.EncodeCredential("tuer", auth.RoleScanner)

	// Bearer prefix.
	req := httptest.NewRequest(http.MethodGet, "/inlet", nil)
	req.Header.Set("Authorization", "Bearer "+credential)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tuer", rec.Body.String())

	// Query parameter fallback.
	req = httptest.NewRequest(http.MethodGet, "/inlet?token="+credential, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReload(t *testing.T) {
	path := writeCredentials(t, `[{"username": "frida", "recht": "Admin"}]`)
	guard, err := auth.NewGuard(path, logger.NewNop())
	require.NoError(t, err)

	_, err = guard.Authorize(auth.EncodeCredential("neu", auth.RoleScanner))
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	require.NoError(t, os.WriteFile(path, []byte(`[
		{"username": "frida", "recht": "Admin"},
		{"username": "neu", "recht": "Scanner"}
	]`), 0600))
	require.NoError(t, guard.Reload())

	_, err = guard.Authorize(auth.EncodeCredential("neu", auth.RoleScanner))
	assert.NoError(t, err)
}

func TestNewGuardMissingFile(t *testing.T) {
	_, err := auth.NewGuard(filepath.Join(t.TempDir(), "missing.json"), logger.NewNop())
	assert.Error(t, err)
}
