package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dossier/internal/auth"

	"github.com/stretchr/testify/require"
)

func TestNewBasicAuthEngineRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := auth.NewBasicAuthEngine("", "secret")
	require.Error(t, err)

	_, err = auth.NewBasicAuthEngine("admin", "")
	require.Error(t, err)
}

func TestBasicAuthEngine(t *testing.T) {
	t.Parallel()

	e, err := auth.NewBasicAuthEngine("admin", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantUser bool
	}{
		{name: "valid", setup: func(r *http.Request) { r.SetBasicAuth("admin", "s3cret") }, wantUser: true},
		{name: "wrong password", setup: func(r *http.Request) { r.SetBasicAuth("admin", "nope") }},
		{name: "wrong user", setup: func(r *http.Request) { r.SetBasicAuth("root", "s3cret") }},
		{name: "no header", setup: func(r *http.Request) {}},
		{name: "bearer token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }},
		{name: "garbage", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.com/api/uploads", nil)
			tc.setup(req)

			user, err := e.AuthenticateRequest(t.Context(), req)
			require.NoError(t, err)
			if tc.wantUser {
				require.NotNil(t, user)
				require.Equal(t, "admin", user.Name)
			} else {
				require.Nil(t, user)
			}
		})
	}
}
