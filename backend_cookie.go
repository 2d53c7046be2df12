package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCookieTTL matches the 7 day expiry of the dashboard's auth
// cookies.
const DefaultCookieTTL = 7 * 24 * time.Hour

// CookieBackend stores session values as cookies scoped to the API
// origin. Sharing the jar with the HTTP client means outbound requests
// carry the same cookies the store reads.
type CookieBackend struct {
	jar    http.CookieJar
	origin *url.URL
	ttl    time.Duration
	now    func() time.Time
}

var _ Backend = &CookieBackend{}

// NewCookieBackend builds a cookie backend for the given API base URL. A
// nil jar gets a fresh in-memory cookiejar.
func NewCookieBackend(jar http.CookieJar, baseURL string) (*CookieBackend, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid base URL for cookie backend")
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, goerrors.New("cookie backend requires an absolute base URL", goerrors.CategoryBadInput)
	}

	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create cookie jar")
		}
	}

	return &CookieBackend{
		jar:    jar,
		origin: origin,
		ttl:    DefaultCookieTTL,
		now:    time.Now,
	}, nil
}

// WithTTL overrides the cookie expiry
func (c *CookieBackend) WithTTL(ttl time.Duration) *CookieBackend {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// Jar exposes the underlying jar so an http.Client can share it
func (c *CookieBackend) Jar() http.CookieJar {
	return c.jar
}

func (c *CookieBackend) Get(key string) (string, error) {
	for _, cookie := range c.jar.Cookies(c.origin) {
		if cookie.Name != key {
			continue
		}
		// values are escaped on write; JSON payloads are not valid
		// cookie octets otherwise
		if v, err := url.QueryUnescape(cookie.Value); err == nil {
			return v, nil
		}
		return cookie.Value, nil
	}
	return "", nil
}

func (c *CookieBackend) Set(key, value string) error {
	c.jar.SetCookies(c.origin, []*http.Cookie{{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		Expires:  c.now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.origin.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	}})
	return nil
}

func (c *CookieBackend) Remove(key string) error {
	c.jar.SetCookies(c.origin, []*http.Cookie{{
		Name:    key,
		Value:   "",
		Path:    "/",
		Expires: c.now().Add(-time.Hour * (24 * 365)),
		MaxAge:  -1,
	}})
	return nil
}
