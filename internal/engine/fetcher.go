package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/zalando/go-keyring"

	"github.com/tartampluch/go-vcf/internal/config"
)

// CardFetcher retrieves a remote vCard file. It is mocked in tests.
type CardFetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher implements CardFetcher over net/http.
type HTTPFetcher struct {
	Client *http.Client
	// MaxBytes caps the downloaded body. Zero means config.MaxHTTPResponseSize.
	MaxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher with the configured timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		MaxBytes: config.MaxHTTPResponseSize,
	}
}

// Fetch downloads the vCard file at targetURL, with basic auth when a user or
// password is given. Query strings stay out of log lines since CardDAV
// servers often carry tokens there. Reading more than MaxBytes fails
// rather than truncating a card.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, SafeURL(u)),
	)
	log.Debug(config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.AcceptVCard)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		log.Warn(config.MsgFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %s", config.ErrFetchStatus, resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	if resp.ContentLength > limit {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %d", config.ErrFetchTooLarge, resp.ContentLength)
	}

	log.Info(config.MsgFetchBody, slog.Int64(config.LogKeySizeBytes, resp.ContentLength))

	return &cappedBody{body: resp.Body, remaining: limit}, nil
}

// SafeURL renders u without userinfo, query or fragment.
func SafeURL(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}

// cappedBody reads at most remaining bytes and fails on the first byte past it.
type cappedBody struct {
	body      io.ReadCloser
	remaining int64
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errors.New(config.ErrFetchTooLarge)
	}
	// Ask for one byte more than allowed so an oversized body is detected.
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.body.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n + int(c.remaining), errors.New(config.ErrFetchTooLarge)
	}
	return n, err
}

func (c *cappedBody) Close() error {
	return c.body.Close()
}

// Password returns the secret stored in the OS keyring for user.
// A missing entry is not an error for callers: they fall back to no auth.
func Password(user string) string {
	if user == "" {
		return ""
	}
	p, err := keyring.Get(config.KeyringService, user)
	if err != nil {
		slog.Debug(config.MsgPassFail,
			config.LogKeyComponent, config.CompFetcher,
			config.LogKeyUser, user,
			config.LogKeyError, err)
		return ""
	}
	return p
}

// StorePassword saves the secret for user in the OS keyring.
func StorePassword(user, pass string) error {
	if err := keyring.Set(config.KeyringService, user, pass); err != nil {
		return fmt.Errorf("%s: %w", config.ErrKeyring, err)
	}
	return nil
}
