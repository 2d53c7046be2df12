package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Client is the HTTP implementation of APIClient for the dashboard's
// auth endpoints.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger Logger
}

var _ APIClient = &Client{}

// NewClient builds a client for the backend base URL. Pass an
// http.Client sharing a CookieBackend's jar so requests carry the same
// cookies the store persists.
func NewClient(baseURL string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid backend base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, goerrors.New("backend base URL must be absolute", goerrors.CategoryBadInput)
	}

	return &Client{
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: defLogger{},
	}, nil
}

// WithHTTPClient replaces the underlying http.Client
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.http = client
	}
	return c
}

// WithLogger replaces the client logger
func (c *Client) WithLogger(logger Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	out := &AuthResponse{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	out := &AuthResponse{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", reg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

func (c *Client) Profile(ctx context.Context, accessToken string) (*User, error) {
	out := &User{}
	if err := c.do(ctx, http.MethodGet, "/auth/profile", accessToken, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken string, fields map[string]string) (*User, error) {
	out := &User{}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", accessToken, fields, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	payload := map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}
	return c.do(ctx, http.MethodPost, "/auth/change-password", accessToken, payload, nil)
}

func (c *Client) UploadAvatar(ctx context.Context, accessToken, filename string, file io.Reader) (*User, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("avatar", filename)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build avatar upload")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to read avatar file")
	}
	if err := form.Close(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to finalize avatar upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/auth/avatar"), &buf)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	setBearer(req, accessToken)

	out := &User{}
	if err := c.send(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setBearer(req, accessToken)

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err, "backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFrom(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to decode backend response")
	}
	return nil
}

// apiError is the backend's error envelope
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (c *Client) errorFrom(resp *http.Response) error {
	var payload apiError
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Debug("backend error response was not JSON: %v", err)
	}
	msg := payload.text()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return authError(msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "request rejected by backend"
		}
		return goerrors.New(msg, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	default:
		if msg == "" {
			msg = "backend request failed"
		}
		return goerrors.New(msg, goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{
				"status": resp.StatusCode,
			})
	}
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func setBearer(req *http.Request, accessToken string) {
	if !isAbsent(accessToken) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// BearerTransport decorates an http.RoundTripper for the generic domain
// REST client: it attaches the current access token to every request and
// reports 401 responses so the session gets invalidated. Session cleanup
// itself stays the Manager's job.
type BearerTransport struct {
	// Source supplies the current access token; absent tokens are not
	// attached
	Source func() string
	// OnUnauthorized fires when any request answers 401
	OnUnauthorized func()
	// Base is the wrapped transport; nil means http.DefaultTransport
	Base http.RoundTripper
}

// NewBearerTransport wires a transport to the manager's session
func NewBearerTransport(manager *Manager) *BearerTransport {
	return &BearerTransport{
		Source: func() string {
			return manager.Snapshot().Tokens.AccessToken
		},
		OnUnauthorized: manager.HandleUnauthorized,
	}
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.Source != nil {
		setBearer(clone, t.Source())
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(clone)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}
	return resp, nil
}
