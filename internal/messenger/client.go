package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domerrors "github.com/horizonjapan/crewbot/internal/errors"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/metrics"
)

const sendEndpoint = "/me/messages"
const profileEndpoint = "/me/messenger_profile"

// Client is a Graph API client for the Messenger Send API and
// messenger profile provisioning. Safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	policy      RetryPolicy
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	BaseURL        string
	AccessToken    string
	AttemptTimeout time.Duration // Per-attempt HTTP timeout
	Policy         RetryPolicy
	Logger         *logger.Logger
	Metrics        *metrics.Metrics // Optional
}

// NewClient creates a new Graph API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		policy:      cfg.Policy,
		logger:      cfg.Logger.WithModule("messenger"),
		metrics:     cfg.Metrics,
	}
}

// Send delivers a message to the given PSID via the Send API.
// Failed attempts are retried per the client's RetryPolicy with linear
// backoff; after exhaustion the last error is returned wrapped in
// ErrSendExhausted. Respects ctx cancellation between attempts.
func (c *Client) Send(ctx context.Context, recipientID string, msg *Message) error {
	body := SendRequest{
		Recipient:     User{ID: recipientID},
		Message:       msg,
		MessagingType: "RESPONSE",
	}

	log := c.logger.WithSender(recipientID)

	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.RecordSendRetry()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.policy.Backoff(attempt)):
			}
		}

		start := time.Now()
		var resp SendResponse
		err := c.post(ctx, sendEndpoint, body, &resp)
		elapsed := time.Since(start).Seconds()

		if err == nil {
			if c.metrics != nil {
				c.metrics.RecordSend("success", elapsed)
			}
			log.WithField("message_id", resp.MessageID).Debug("Message sent")
			return nil
		}

		lastErr = err
		if c.metrics != nil {
			c.metrics.RecordSend("error", elapsed)
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("Send attempt failed")

		if !shouldRetry(err) {
			break
		}
	}

	if c.metrics != nil {
		c.metrics.RecordSend("exhausted", 0)
	}
	return fmt.Errorf("%w: %w", domerrors.ErrSendExhausted, lastErr)
}

// SetProfile writes messenger profile settings (get started button,
// greeting, persistent menu).
func (c *Client) SetProfile(ctx context.Context, settings ProfileSettings) error {
	return c.post(ctx, profileEndpoint, settings, nil)
}

// GetProfile reads the currently configured messenger profile fields.
func (c *Client) GetProfile(ctx context.Context, fields string) (*ProfileData, error) {
	endpoint := profileEndpoint + "?fields=" + url.QueryEscape(fields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(endpoint), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domerrors.NewGraphError(profileEndpoint, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domerrors.NewGraphError(profileEndpoint, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domerrors.NewGraphError(profileEndpoint, resp.StatusCode,
			fmt.Errorf("unexpected response: %s", truncate(raw, 512)))
	}

	var data ProfileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &data, nil
}

// post issues a JSON POST against the Graph API and decodes the response
// into out when non-nil.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domerrors.NewGraphError(endpoint, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domerrors.NewGraphError(endpoint, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domerrors.NewGraphError(endpoint, resp.StatusCode,
			fmt.Errorf("unexpected response: %s", truncate(raw, 512)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// endpointURL appends the access token to an endpoint path. The endpoint
// may already carry query parameters.
func (c *Client) endpointURL(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return c.baseURL + endpoint + sep + "access_token=" + url.QueryEscape(c.accessToken)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
