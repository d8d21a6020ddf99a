//go:build integration

package integration

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersOnResponses(t *testing.T) {
	t.Parallel()
	server := newTestServer(t, serverOptions{})

	resp := login(t, server.URL, uniqueEmail("headers"), "Str0ng!Pass")
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuthRateLimitReturns429(t *testing.T) {
	t.Parallel()
	server := newTestServer(t, serverOptions{authRPM: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusUnauthorized, login(t, server.URL, "x@example.com", "nope").StatusCode)
	}
	resp := login(t, server.URL, "x@example.com", "nope")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHealthPingsDatabase(t *testing.T) {
	t.Parallel()
	server := newTestServer(t, serverOptions{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestMeRejectsMissingToken(t *testing.T) {
	t.Parallel()
	server := newTestServer(t, serverOptions{})

	status, _ := whoAmI(t, server.URL, "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestDocsServed(t *testing.T) {
	t.Parallel()
	server := newTestServer(t, serverOptions{})

	resp, err := http.Get(server.URL + "/openapi.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
}
