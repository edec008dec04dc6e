package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/TrackMirror/internal/integrations/translator"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL    = "https://api-free.deepl.com/v2/translate"
	DefaultTargetLang = "PL"
	DefaultTimeout    = 5 * time.Second
)

type Client struct {
	baseURL    string
	authKey    string
	targetLang string
	httpc      *http.Client
}

func New(baseURL, authKey, targetLang string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if targetLang == "" {
		targetLang = DefaultTargetLang
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		authKey:    authKey,
		targetLang: targetLang,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type translateResp struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	if c.authKey == "" {
		return "", translator.ErrNotConfigured
	}

	form := url.Values{}
	form.Set("auth_key", c.authKey)
	form.Set("text", text)
	form.Set("target_lang", c.targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("deepl http %d", resp.StatusCode)
	}

	var r translateResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", errors.Wrap(err, "decode")
	}
	if len(r.Translations) == 0 || r.Translations[0].Text == "" {
		return "", errors.New("deepl: empty translations")
	}
	return r.Translations[0].Text, nil
}
