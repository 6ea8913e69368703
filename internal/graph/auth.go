package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const defaultAuthority = "https://login.microsoftonline.com"

// tokenSource yields a bearer token for Graph requests.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// cachedToken is the on-disk token cache shape. The cache is read once at
// startup and rewritten after each successful refresh.
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (t cachedToken) valid() bool {
	return t.AccessToken != "" && time.Now().Add(time.Minute).Before(t.ExpiresAt)
}

// clientCredentials implements the OAuth2 client-credentials flow against the
// Microsoft identity platform, with a file-backed token cache.
type clientCredentials struct {
	clientID     string
	clientSecret string
	tenantID     string
	authority    string
	cacheFile    string
	http         *http.Client
	logger       *log.Logger

	current cachedToken
}

func newClientCredentials(clientID, clientSecret, tenantID, cacheFile string, httpClient *http.Client, logger *log.Logger) *clientCredentials {
	cc := &clientCredentials{
		clientID:     clientID,
		clientSecret: clientSecret,
		tenantID:     tenantID,
		authority:    defaultAuthority,
		cacheFile:    cacheFile,
		http:         httpClient,
		logger:       logger,
	}
	cc.loadCache()
	return cc
}

func (cc *clientCredentials) loadCache() {
	data, err := os.ReadFile(cc.cacheFile)
	if err != nil {
		return
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		cc.logger.Warn("could not parse token cache", "file", cc.cacheFile, "err", err)
		return
	}
	cc.current = tok
}

func (cc *clientCredentials) saveCache() {
	data, err := json.Marshal(cc.current)
	if err != nil {
		return
	}
	if err := os.WriteFile(cc.cacheFile, data, 0o600); err != nil {
		cc.logger.Warn("could not save token cache", "file", cc.cacheFile, "err", err)
	}
}

func (cc *clientCredentials) Token(ctx context.Context) (string, error) {
	if cc.current.valid() {
		return cc.current.AccessToken, nil
	}

	form := url.Values{
		"client_id":     {cc.clientID},
		"client_secret": {cc.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
		"grant_type":    {"client_credentials"},
	}

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", cc.authority, cc.tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := cc.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	cc.current = cachedToken{
		AccessToken: payload.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}
	cc.saveCache()

	return cc.current.AccessToken, nil
}

// staticToken is a fixed token source, used by tests.
type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }
