package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	// maxBodyBytes is an upper bound of the release JSON
	maxBodyBytes = 1 << 20

	acceptHeader = "application/vnd.github+json"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrNoTag            = errors.New("release has no tag")
)

// Client asks a GitHub compatible API for the latest published release.
type Client struct {
	requestURL *url.URL
	client     *http.Client
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient returns a client of the releases/latest endpoint at latestURL.
func NewClient(latestURL string, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(latestURL)
	if err != nil {
		return nil, err
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, errors.New("please define the release url with a scheme and a host, e.g. `https://api.github.com/repos/w3c/epubcheck/releases/latest`")
	}

	c := &Client{
		requestURL: parsedURL,
		client:     http.DefaultClient,
		userAgent:  "epubcheckctl/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type latestRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Latest returns the version of the latest release without the leading "v".
// The caller is expected to bound the call with a context deadline.
func (c *Client) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a bit so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var latest latestRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&latest); err != nil {
		return "", fmt.Errorf("decoding json response failed: %w", err)
	}

	version := StripPrefix(latest.TagName)
	if version == "" {
		return "", ErrNoTag
	}
	slog.DebugContext(ctx, "latest release fetched", "tag", latest.TagName, "url", latest.HTMLURL)
	return version, nil
}

// StripPrefix removes the leading "v" of a release tag.
func StripPrefix(tag string) string {
	tag = strings.TrimSpace(tag)
	if len(tag) > 1 && (tag[0] == 'v' || tag[0] == 'V') {
		return tag[1:]
	}
	if tag == "v" || tag == "V" {
		return ""
	}
	return tag
}
