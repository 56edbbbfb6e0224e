/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Seednode/imposter/game"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, prefix string) (http.Handler, *harness) {
	t.Helper()

	h := newHarness(t)
	h.g.cfg.prefix = prefix

	return newRouter(h.g.cfg, h.g, make(chan error, 16)), h
}

func get(t *testing.T, handler http.Handler, path string) *http.Response {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec.Result()
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

func TestStaticRoutes(t *testing.T) {
	router, _ := testRouter(t, "/games")

	tests := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/games/healthz", http.StatusOK, "text/plain; charset=utf-8", "Ok"},
		{"/games/version", http.StatusOK, "text/plain; charset=utf-8", "imposter v" + releaseVersion},
		{"/games/robots.txt", http.StatusOK, "text/plain; charset=utf-8", "User-agent: GPTBot\nDisallow: /"},
		{"/games/favicon.svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"/games/", http.StatusOK, "text/html; charset=utf-8", `data-prefix="/games"`},
		{"/games/imposter", http.StatusOK, "text/html; charset=utf-8", "/games/assets/imposter/app.js"},
		{"/games/assets/imposter/app.js", http.StatusOK, "text/javascript; charset=utf-8", "create-room"},
		{"/games/assets/imposter/app.css", http.StatusOK, "text/css; charset=utf-8", ".players"},
		{"/games/assets/imposter/missing.js", http.StatusNotFound, "", ""},
		{"/games/assets/../go.mod", http.StatusNotFound, "", ""},
		{"/healthz", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := get(t, router, tt.path)
			assert.Equal(t, tt.status, res.StatusCode)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, res.Header.Get("Content-Type"))
			}
			if tt.contains != "" {
				assert.Contains(t, body(t, res), tt.contains)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	router, _ := testRouter(t, "")

	res := get(t, router, "/imposter")
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, res.Header.Get("Content-Security-Policy"), "connect-src 'self'")
	assert.Empty(t, res.Header.Get("Strict-Transport-Security"))

	res = get(t, router, "/healthz")
	assert.Equal(t, "default-src 'self'", res.Header.Get("Content-Security-Policy"))
}

func TestQRCode(t *testing.T) {
	router, h := testRouter(t, "")

	res := get(t, router, "/qr/ABC")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = get(t, router, "/qr/ZZZZZZ")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	h.room(game.ModeCategory, 1)

	res = get(t, router, "/qr/"+strings.ToLower(h.code))
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix([]byte(body(t, res)), []byte("\x89PNG")))
}

func TestJoinURL(t *testing.T) {
	cfg := &Config{prefix: "/party"}

	r := httptest.NewRequest(http.MethodGet, "http://example.com/party/qr/ABCDEF", nil)
	assert.Equal(t, "http://example.com/party/imposter?room=ABCDEF", joinURL(cfg, r, "ABCDEF"))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://example.com/party/imposter?room=ABCDEF", joinURL(cfg, r, "ABCDEF"))
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1:5555", realIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9:5555", realIP(r))

	r.Header.Set("CF-Connecting-IP", "2001:db8::1")
	assert.Equal(t, "[2001:db8::1]:5555", realIP(r))
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}

func TestLoadContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	catalog := "categories:\n  - name: Weather\n    items: [Rain]\nquestions:\n  - a: Up?\n    b: Down?\n"
	require.NoError(t, afero.WriteFile(fs, "content.yaml", []byte(catalog), 0o644))

	provider, err := loadContent(&Config{content: "content.yaml"}, fs)
	require.NoError(t, err)

	c, err := provider.Generate(game.ModeCategory)
	require.NoError(t, err)
	assert.Equal(t, game.Content{Category: "Weather", Item: "Rain"}, c)

	_, err = loadContent(&Config{content: "missing.yaml"}, fs)
	assert.Error(t, err)

	provider, err = loadContent(&Config{}, fs)
	require.NoError(t, err)
	_, err = provider.Generate(game.ModeQuestion)
	assert.NoError(t, err)
}
