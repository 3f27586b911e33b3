// Package portal is the authenticated HTTP client for the learning portal.
// It keeps the session cookies from the ADFS form login and returns raw page
// bodies; interpretation is left to the parser.
package portal

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/coursewatch/pkg/types"
)

// Portal page paths, relative to Config.BaseURL.
const (
	PathCourseTab      = "/webapps/portal/execute/tabs/tabAction"
	PathModulePage     = "/webapps/blackboard/execute/modulepage/view"
	PathListContent    = "/webapps/blackboard/content/listContent.jsp"
	PathUploadAssign   = "/webapps/assignment/uploadAssignment"
	PathAnnouncements  = "/webapps/blackboard/execute/announcement"
	PathCalendarEvents = "/webapps/calendar/calendarData/selectedCalendarEvents"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/79.0.3945.88 Safari/537.36"

// Config describes the portal endpoints and credentials.
type Config struct {
	BaseURL     string
	AuthURL     string
	ClientID    string
	RedirectURI string
	// Domain is prefixed to the username as DOMAIN\user.
	Domain   string
	Username string
	Password string
	Timeout  time.Duration
}

// HTTPError carries status and body for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 300))
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Client is a logged-in portal session.
type Client struct {
	cfg  Config
	base *url.URL
	HTTP *http.Client
}

// New creates a client with an empty cookie jar. Call Login before fetching
// pages that need a session.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("portal: invalid base url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("portal: cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		base: base,
		HTTP: &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Login posts the credentials to the ADFS authorize endpoint and follows the
// redirects back to the portal. It fails with types.ErrAuthentication when
// the final URL is not on the portal host.
func (c *Client) Login(ctx context.Context) error {
	u, err := url.Parse(c.cfg.AuthURL)
	if err != nil {
		return fmt.Errorf("portal: invalid auth url %q: %w", c.cfg.AuthURL, err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("client-request-id", uuid.NewString())
	u.RawQuery = q.Encode()

	user := c.cfg.Username
	if c.cfg.Domain != "" {
		user = c.cfg.Domain + `\` + user
	}
	form := url.Values{
		"UserName":   {user},
		"Password":   {c.cfg.Password},
		"Kmsi":       {"true"},
		"AuthMethod": {"FormsAuthentication"},
	}

	resp, _, err := c.do(ctx, http.MethodPost, u.String(), form)
	if err != nil {
		return fmt.Errorf("portal login: %w", err)
	}
	if !c.onPortal(resp.Request.URL) {
		return fmt.Errorf("%w: landed on %s", types.ErrAuthentication, resp.Request.URL.Host)
	}
	return nil
}

// Get fetches path with the query params and returns the decoded body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	_, body, err := c.do(ctx, http.MethodGet, c.resolve(path, params), nil)
	return body, err
}

// Post submits form to path with the query params.
func (c *Client) Post(ctx context.Context, path string, params, form url.Values) ([]byte, error) {
	_, body, err := c.do(ctx, http.MethodPost, c.resolve(path, params), form)
	return body, err
}

func (c *Client) resolve(path string, params url.Values) string {
	u := *c.base
	u.Path = u.Path + path
	u.RawQuery = params.Encode()
	return u.String()
}

func (c *Client) onPortal(u *url.URL) bool {
	if u == nil {
		return false
	}
	return hostPort(u) == hostPort(c.base)
}

// hostPort returns host:port with the scheme's default port filled in, so
// that bb.example.edu and bb.example.edu:443 compare equal.
func hostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return strings.ToLower(u.Hostname()) + ":" + port
}

func (c *Client) do(ctx context.Context, method, target string, form url.Values) (*http.Response, []byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("reading %s: %w", target, err)
	}
	data, err := decode(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return resp, nil, fmt.Errorf("decoding %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, data, &HTTPError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: data}
	}
	return resp, data, nil
}

// decode undoes the Content-Encoding the portal applied. Setting
// Accept-Encoding by hand disables net/http's transparent gzip handling.
func decode(encoding string, raw []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, nil
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
