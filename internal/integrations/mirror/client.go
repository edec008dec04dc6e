package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTimeout = 5 * time.Second

	formField    = "documentCode"
	maxBodyBytes = 4 << 20
)

var (
	// ErrUnavailable covers every way a single mirror can fail to answer.
	ErrUnavailable = errors.New("mirror unavailable")
	// ErrUnusable: the mirror answered but the page carries no tracking number.
	ErrUnusable = errors.New("mirror record unusable")
)

// Client talks to one tracking mirror.
type Client struct {
	url   string
	httpc *http.Client
}

func New(mirrorURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url: mirrorURL,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) URL() string { return c.url }

// Fetch posts documentCode=trackingNumber and returns the raw page.
func (c *Client) Fetch(ctx context.Context, trackingNumber string) (string, error) {
	form := url.Values{}
	form.Set(formField, trackingNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrapf(ErrUnavailable, "new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrUnavailable, "do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", errors.Wrap(ErrUnavailable, fmt.Sprintf("mirror http %d", resp.StatusCode))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrapf(ErrUnavailable, "read body: %v", err)
	}
	return string(b), nil
}
