package sumup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/importer"
)

// ClientConfig represents the configuration for the POS API client.
type ClientConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	TokenStore   *TokenStore
	Timeout      time.Duration // Default: 30 seconds
}

// Client is a POS settlement API client. It authenticates with an
// access/refresh token pair: an expired access token is exchanged for a new
// pair exactly once per run, and the refreshed pair is persisted.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	store        *TokenStore
	token        *Token
}

// NewClient creates a new POS API client, loading the token pair from the
// configured store.
func NewClient(config ClientConfig) (*Client, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	token, err := config.TokenStore.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load token pair: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      config.APIURL,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		store:        config.TokenStore,
		token:        token,
	}, nil
}

// ListSettlements fetches all settlement batches settled after since and
// filters them to successful ones. On an authorization failure it refreshes
// the token pair and retries the fetch exactly once; a second failure is
// fatal for the run.
func (c *Client) ListSettlements(since time.Time) ([]Settlement, error) {
	items, unauthorized, err := c.fetchSettlements(since)
	if err != nil {
		return nil, err
	}

	if unauthorized {
		if err := c.refreshTokenPair(); err != nil {
			return nil, &importer.AuthenticationError{Source: string(db.SourceSumUp), Err: err}
		}

		items, unauthorized, err = c.fetchSettlements(since)
		if err != nil {
			return nil, err
		}
		if unauthorized {
			return nil, &importer.AuthenticationError{
				Source: string(db.SourceSumUp),
				Err:    errors.New("access token rejected after refresh"),
			}
		}
	}

	var successful []Settlement
	for _, item := range items {
		if item.Status == StatusSuccessful {
			successful = append(successful, item)
		}
	}

	return successful, nil
}

// fetchSettlements performs one list request. The unauthorized flag is
// reported separately so the caller owns the refresh-and-retry decision.
func (c *Client) fetchSettlements(since time.Time) ([]Settlement, bool, error) {
	endpoint := fmt.Sprintf("%s/v0.1/me/settlements", c.baseURL)

	queryParams := url.Values{}
	queryParams.Set("order", "ascending")
	if !since.IsZero() {
		queryParams.Set("oldest_time", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s?%s", endpoint, queryParams.Encode()), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token.AccessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, &importer.TransientFetchError{Source: string(db.SourceSumUp), Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("settlement API error: %w", c.parseError(resp))
	}

	var list settlementList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}

	return list.Items, false, nil
}

// refreshTokenPair exchanges the refresh token for a new token pair and
// persists it.
func (c *Client) refreshTokenPair() error {
	tokenURL := fmt.Sprintf("%s/token", c.baseURL)

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("refresh_token", c.token.RefreshToken)

	req, err := http.NewRequest("POST", tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed: %w", c.parseError(resp))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}

	newToken := &Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Unix() + tokenResp.ExpiresIn,
	}

	if err := c.store.Save(newToken); err != nil {
		return fmt.Errorf("failed to save refreshed token: %w", err)
	}

	c.token = newToken
	return nil
}

// parseError parses an error response from the POS service.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status %d: failed to read error response", resp.StatusCode)
	}

	var errResp apiError
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if errResp.ErrorDescription != "" {
		return fmt.Errorf("%s - %s", errResp.Error, errResp.ErrorDescription)
	}
	return errors.New(errResp.Error)
}
