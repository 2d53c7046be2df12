package session_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	session "github.com/edudesk/go-session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SESSION_BASE_URL", "https://api.school.test")
	t.Setenv("SESSION_COOKIE_TTL", "24h")

	cfg, err := session.LoadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://api.school.test", cfg.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.CookieTTL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfigRequiresBaseURL(t *testing.T) {
	// t.Setenv registers the restore; the value itself must be absent
	t.Setenv("SESSION_BASE_URL", "placeholder")
	os.Unsetenv("SESSION_BASE_URL")

	_, err := session.LoadConfig(context.Background())
	assert.Error(t, err)
}

func TestSetupWiresDefaultStack(t *testing.T) {
	cfg := &session.Config{
		BaseURL:     "https://api.school.test",
		CookieTTL:   session.DefaultCookieTTL,
		StoragePath: filepath.Join(t.TempDir(), "session.json"),
		HTTPTimeout: 5 * time.Second,
	}

	m, err := session.Setup(cfg, nil)
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.User)
}

func TestSetupRejectsBadBaseURL(t *testing.T) {
	_, err := session.Setup(&session.Config{BaseURL: "::not-a-url"}, nil)
	assert.Error(t, err)
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := session.NewZerologAdapter(zerolog.New(&buf))

	logger.Info("restored session for %s", "kid@school.test")
	logger.Warn("store read failed for %q", "token")

	out := buf.String()
	assert.Contains(t, out, "restored session for kid@school.test")
	assert.Contains(t, out, `store read failed for \"token\"`)
}
