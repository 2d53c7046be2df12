package session

import (
	"context"
	"fmt"
	"io"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Backend is one physical storage target for persisted session values.
// Implementations treat a missing key as ("", nil); errors are reserved
// for actual backend failures.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// APIClient is the REST backend boundary. The server is the authority on
// credentials and tokens; this client never validates tokens locally.
type APIClient interface {
	Login(ctx context.Context, creds Credentials) (*AuthResponse, error)
	Register(ctx context.Context, reg Registration) (*AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, accessToken string) (*User, error)
	UpdateProfile(ctx context.Context, accessToken string, fields map[string]string) (*User, error)
	ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error
	UploadAvatar(ctx context.Context, accessToken, filename string, file io.Reader) (*User, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
