// Package digitraffic provides HTTP clients for the Fintraffic Digitraffic
// traffic-message and weathercam APIs.
package digitraffic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
)

const messagesPath = "/api/traffic-message/v1/messages"

// maxErrorBody bounds how much of an error response is kept in a FetchError.
const maxErrorBody = 512

// FetchError is a transport or HTTP failure from the traffic-message
// endpoint. StatusCode is 0 for transport errors.
type FetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("digitraffic API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("digitraffic request: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches active traffic messages. Stateless; retries are the
// coordinator's responsibility via the next poll cycle.
type Client struct {
	baseURL    string
	user       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a traffic-message API client. The http.Client is shared
// across services to pool connections.
func NewClient(baseURL, user string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		user:       user,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchActiveMessages requests currently active traffic messages, optionally
// filtered server-side by situation type. Always asks for zero inactive hours
// and no area geometry to keep the payload small.
func (c *Client) FetchActiveMessages(ctx context.Context, situationTypes []string) ([]domain.TrafficMessage, error) {
	params := url.Values{
		"inactiveHours":       {"0"},
		"includeAreaGeometry": {"false"},
	}
	for _, st := range situationTypes {
		params.Add("situationType", st)
	}

	fullURL := c.baseURL + messagesPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Digitraffic-User", c.user)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("read response: %w", err)}
	}

	messages, err := domain.ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched active messages",
		"count", len(messages),
		"situation_types", situationTypes,
	)
	return messages, nil
}
