package store

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"campaigner/internal/logging"

	"golang.org/x/net/publicsuffix"
)

// CookieJar is a public-suffix aware cookie jar whose cookies for one
// service origin survive process restarts. It is what makes the session
// cookie issued at onboarding available to later CLI runs.
type CookieJar struct {
	inner  *cookiejar.Jar
	store  *LocalStore
	origin *url.URL
}

// NewCookieJar creates a jar for baseURL and loads the cookies stored for it.
func (s *LocalStore) NewCookieJar(baseURL string) (*CookieJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	origin := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	jar := &CookieJar{inner: inner, store: s, origin: origin}
	cookies, err := s.loadCookies(originKey(origin))
	if err != nil {
		return nil, err
	}
	if len(cookies) > 0 {
		inner.SetCookies(origin, cookies)
		logging.StoreDebug("Restored %d cookies for %s", len(cookies), originKey(origin))
	}
	return jar, nil
}

// SetCookies implements http.CookieJar. Cookies set by the service origin
// are also written to the store; deletions and expiries remove them.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	if u.Scheme != j.origin.Scheme || u.Host != j.origin.Host {
		return
	}
	for _, c := range cookies {
		if err := j.store.persistCookie(originKey(j.origin), c); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to persist cookie %s: %v", c.Name, err)
		}
	}
}

// Cookies implements http.CookieJar.
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func originKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

func (s *LocalStore) persistCookie(origin string, c *http.Cookie) error {
	path := c.Path
	if path == "" {
		path = "/"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(s.now()))
	if expired || c.Value == "" {
		_, err := s.db.Exec("DELETE FROM cookies WHERE origin = ? AND name = ? AND path = ?", origin, c.Name, path)
		return err
	}

	var expires string
	switch {
	case c.MaxAge > 0:
		expires = s.now().Add(time.Duration(c.MaxAge) * time.Second).UTC().Format(time.RFC3339Nano)
	case !c.Expires.IsZero():
		expires = c.Expires.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.db.Exec(
		`INSERT INTO cookies (origin, name, path, value, domain, expires, secure, http_only)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(origin, name, path) DO UPDATE SET
			value = excluded.value, domain = excluded.domain, expires = excluded.expires,
			secure = excluded.secure, http_only = excluded.http_only`,
		origin, c.Name, path, c.Value, c.Domain, expires, c.Secure, c.HttpOnly,
	)
	return err
}

func (s *LocalStore) loadCookies(origin string) ([]*http.Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT name, path, value, domain, expires, secure, http_only FROM cookies WHERE origin = ?",
		origin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}
	defer rows.Close()

	now := s.now()
	var out []*http.Cookie
	for rows.Next() {
		var name, path, value, domain, expires string
		var secure, httpOnly bool
		if err := rows.Scan(&name, &path, &value, &domain, &expires, &secure, &httpOnly); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		c := &http.Cookie{Name: name, Path: path, Value: value, Domain: domain, Secure: secure, HttpOnly: httpOnly}
		if exp := parseTimestamp(expires); !exp.IsZero() {
			if !exp.After(now) {
				continue
			}
			c.Expires = exp
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
