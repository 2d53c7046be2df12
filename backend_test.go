package session_test

import (
	"os"
	"path/filepath"
	"testing"

	session "github.com/edudesk/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	backend := session.NewFileBackend(path)

	assert.NoError(t, backend.Set("token", "tok-123"))
	assert.NoError(t, backend.Set("user", `{"id":"a","role":"student"}`))

	v, err := backend.Get("token")
	assert.NoError(t, err)
	assert.Equal(t, "tok-123", v)

	// a fresh instance reads the same file
	reopened := session.NewFileBackend(path)
	v, err = reopened.Get("user")
	assert.NoError(t, err)
	assert.Equal(t, `{"id":"a","role":"student"}`, v)

	assert.NoError(t, backend.Remove("token"))
	v, err = backend.Get("token")
	assert.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestFileBackendMissingFile(t *testing.T) {
	backend := session.NewFileBackend(filepath.Join(t.TempDir(), "nope", "session.json"))

	v, err := backend.Get("token")
	assert.NoError(t, err)
	assert.Equal(t, "", v)

	// remove of a missing key on a missing file is a no-op
	assert.NoError(t, backend.Remove("token"))
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	backend := session.NewFileBackend(path)

	_, err := backend.Get("token")
	assert.Error(t, err)

	// writes recover from corruption instead of getting stuck
	assert.NoError(t, backend.Set("token", "fresh"))
	v, err := backend.Get("token")
	assert.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestCookieBackendRoundTrip(t *testing.T) {
	backend, err := session.NewCookieBackend(nil, "https://api.school.test")
	require.NoError(t, err)

	assert.NoError(t, backend.Set("token", "tok-123"))
	v, err := backend.Get("token")
	assert.NoError(t, err)
	assert.Equal(t, "tok-123", v)

	// JSON survives cookie value escaping
	userJSON := `{"id":"a","email":"kid@school.test","role":"student"}`
	assert.NoError(t, backend.Set("user", userJSON))
	v, err = backend.Get("user")
	assert.NoError(t, err)
	assert.Equal(t, userJSON, v)
}

func TestCookieBackendRemove(t *testing.T) {
	backend, err := session.NewCookieBackend(nil, "https://api.school.test")
	require.NoError(t, err)

	backend.Set("token", "tok-123")
	assert.NoError(t, backend.Remove("token"))

	v, err := backend.Get("token")
	assert.NoError(t, err)
	assert.Equal(t, "", v)

	// removing again stays quiet
	assert.NoError(t, backend.Remove("token"))
}

func TestCookieBackendRejectsRelativeURL(t *testing.T) {
	_, err := session.NewCookieBackend(nil, "/just/a/path")
	assert.Error(t, err)
}

func TestMemoryBackend(t *testing.T) {
	backend := session.NewMemoryBackend()

	assert.NoError(t, backend.Set("k", "v"))
	v, err := backend.Get("k")
	assert.NoError(t, err)
	assert.Equal(t, "v", v)

	assert.NoError(t, backend.Remove("k"))
	v, err = backend.Get("k")
	assert.NoError(t, err)
	assert.Equal(t, "", v)
}
