package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/importer"
)

// ClientConfig represents the configuration for the gateway API client.
type ClientConfig struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration // Default: 30 seconds
}

// Client is a card-gateway API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new gateway API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: config.APIURL,
		apiKey:  config.APIKey,
	}
}

// ListEvents fetches all balance events created after since, following the
// gateway's cursor pagination. The since cursor is owned by the caller.
func (c *Client) ListEvents(since time.Time) ([]Event, error) {
	var allEvents []Event
	startingAfter := ""
	limit := 100

	for {
		page, err := c.listPage(since, limit, startingAfter)
		if err != nil {
			return nil, err
		}

		allEvents = append(allEvents, page.Data...)

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}

	return allEvents, nil
}

// listPage fetches one page of balance events.
func (c *Client) listPage(since time.Time, limit int, startingAfter string) (*eventList, error) {
	endpoint := fmt.Sprintf("%s/v1/balance_transactions", c.baseURL)

	queryParams := url.Values{}
	queryParams.Set("limit", fmt.Sprintf("%d", limit))
	if !since.IsZero() {
		queryParams.Set("created[gt]", fmt.Sprintf("%d", since.Unix()))
	}
	if startingAfter != "" {
		queryParams.Set("starting_after", startingAfter)
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s?%s", endpoint, queryParams.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &importer.TransientFetchError{Source: string(db.SourceStripe), Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &importer.AuthenticationError{Source: string(db.SourceStripe), Err: c.parseError(resp)}
	default:
		return nil, fmt.Errorf("gateway API error: %w", c.parseError(resp))
	}

	var page eventList
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &page, nil
}

// parseError parses an error response from the gateway.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status %d: failed to read error response", resp.StatusCode)
	}

	var errResp apiError
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	return errors.New(errResp.Error.Message)
}
