// Package httpclient provides the HTTP client used for Continuum's external
// collaborators (relay bridge, direct agent channel).
package httpclient

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpetree331/continuum/errors"
)

// Client wraps http.Client with URL validation.
//
// Unlike a general-purpose scraper, Continuum's backends are operator
// configured and frequently run on localhost, so private addresses are
// allowed; scheme and redirect validation still apply.
type Client struct {
	*http.Client
	allowedSchemes []string
	maxRedirects   int
}

// Options customizes client validation behavior
type Options struct {
	AllowedSchemes []string // Default: ["http", "https"]
	MaxRedirects   *int     // Default: 10
}

// New creates an HTTP client with default validation
func New(timeout time.Duration) *Client {
	return NewWithOptions(timeout, Options{})
}

// NewWithOptions creates an HTTP client with custom validation options
func NewWithOptions(timeout time.Duration, opts Options) *Client {
	maxRedirects := 10
	if opts.MaxRedirects != nil {
		maxRedirects = *opts.MaxRedirects
	}

	allowedSchemes := []string{"http", "https"}
	if opts.AllowedSchemes != nil {
		allowedSchemes = opts.AllowedSchemes
	}

	client := &Client{
		Client: &http.Client{
			Timeout: timeout,
		},
		allowedSchemes: allowedSchemes,
		maxRedirects:   maxRedirects,
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= client.maxRedirects {
			return errors.Newf("stopped after %d redirects", client.maxRedirects)
		}
		if err := client.ValidateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	return client
}

// ValidateURL validates a URL before a request is made against it
func (c *Client) ValidateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, allowedScheme := range c.allowedSchemes {
		if scheme == allowedScheme {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}

	// Credential injection or URL confusion: http://evil.com@localhost/
	if u.User != nil {
		return errors.New("URL contains embedded credentials")
	}

	if u.Hostname() == "" {
		return errors.New("URL has no host")
	}

	return nil
}

// Do validates the request URL and then performs the request
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.ValidateURL(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked")
	}
	return c.Client.Do(req)
}
