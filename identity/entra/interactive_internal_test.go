package entra

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestLoopbackRedirectURI(t *testing.T) {
	bound := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 49152}

	tests := []struct {
		configured string
		want       string
	}{
		{"http://127.0.0.1:0/callback", "http://127.0.0.1:49152/callback"},
		{"http://localhost/", "http://localhost:49152/"},
		{"http://localhost:53682/", "http://localhost:53682/"},
	}
	for _, tt := range tests {
		t.Run(tt.configured, func(t *testing.T) {
			u, err := url.Parse(tt.configured)
			require.NoError(t, err)
			require.Equal(t, tt.want, loopbackRedirectURI(u, bound))
		})
	}
}

func TestGrantedScopes(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, grantedScopes("a  b", []string{"x"}))
	require.Equal(t, []string{"x"}, grantedScopes("", []string{"x"}))
	require.Equal(t, []string{"x"}, grantedScopes(nil, []string{"x"}))
}

func TestCallbackMiddleware(t *testing.T) {
	var order []string
	handler := chainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		panic("boom")
	}, recoverMiddleware, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "first")
			next(w, r)
		}
	}, securityHeadersMiddleware)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

	require.Equal(t, []string{"first", "handler"}, order)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

// TestCallbackHandler_IgnoresStrayRequests tests that only authorization responses end the sign-in
func TestCallbackHandler_IgnoresStrayRequests(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := (&Provider{}).callbackHandler(context.Background(), "/callback", results)

	for _, target := range []string{"/callback", "/callback?code=abc", "/callback?foo=bar"} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	require.Empty(t, results)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&error_description=declined", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, results, 1)
	outcome := <-results
	require.True(t, errors.Is(outcome.err, apperrors.ErrAuthorizationDenied))
}
