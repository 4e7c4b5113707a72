package apiclient

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// CookieStore is the cookie jar shared by every Client of one application.
// Unlike cookiejar.Jar it can be emptied, which logout and 401 handling need.
type CookieStore struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func NewCookieStore() *CookieStore {
	return &CookieStore{jar: newJar()}
}

func newJar() *cookiejar.Jar {
	// cookiejar.New always returns a nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

func (s *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	jar.SetCookies(u, cookies)
}

func (s *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	return jar.Cookies(u)
}

// Clear drops every stored cookie.
func (s *CookieStore) Clear() {
	s.mu.Lock()
	s.jar = newJar()
	s.mu.Unlock()
}
