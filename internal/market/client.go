package market

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

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"entrade/internal/logging"
	"entrade/internal/order"
	"entrade/internal/session"
	"entrade/internal/version"
)

const (
	ordersPath     = "/orders"
	completedPath  = "/orders/completed"
	minEndTimePath = "/orders/min-end-time"
)

// Options parameterise the marketplace client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the marketplace REST API. Authenticated calls carry the
// session's bearer token.
type Client struct {
	opts    Options
	sess    *session.Session
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a marketplace client bound to a session.
func NewClient(opts Options, sess *session.Session, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		opts:    opts,
		sess:    sess,
		logger:  logging.Component(logger, "market_client"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// SubmitOrder posts a composed order. The response body matters only on
// failure, where the server's text is surfaced verbatim.
func (c *Client) SubmitOrder(ctx context.Context, payload order.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal order payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body), true)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, drainBody(resp.Body))
	}

	c.logger.Info().Str("order_type", string(payload.OrderType)).
		Str("amount_kwh", payload.AmountKwh.String()).
		Str("start", payload.StartTime).
		Str("end", payload.EndTime).
		Msg("order submitted")
	return nil
}

// ListOrders fetches every order belonging to the session's user.
func (c *Client) ListOrders(ctx context.Context) ([]order.Record, error) {
	return c.fetchRecords(ctx, c.baseURL+ordersPath)
}

// ListCompletedOrders fetches the settled history.
func (c *Client) ListCompletedOrders(ctx context.Context) ([]order.Record, error) {
	return c.fetchRecords(ctx, c.baseURL+completedPath)
}

// CancelOrder requests deletion of an order. Client code gates this to
// ACTIVE records, but the server is the final arbiter.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("%s%s/%d", c.baseURL, ordersPath, id), nil, true)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, drainBody(resp.Body))
	}

	c.logger.Info().Int64("order_id", id).Msg("order cancelled")
	return nil
}

// MinEndTime asks the server for the earliest permissible end time given
// a start time and amount. The client never computes this locally.
func (c *Client) MinEndTime(ctx context.Context, startTime time.Time, amountKwh decimal.Decimal) (time.Time, error) {
	query := url.Values{}
	query.Set("startTime", startTime.Format(order.SecondLayout))
	query.Set("amountKwh", amountKwh.String())

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+minEndTimePath+"?"+query.Encode(), nil, false)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("marketplace unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload := drainBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return time.Time{}, parseAPIError(resp.StatusCode, payload)
	}

	var result struct {
		MinEndTime string `json:"minEndTime"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return time.Time{}, fmt.Errorf("decode min-end-time response: %w", err)
	}
	if result.MinEndTime == "" {
		return time.Time{}, fmt.Errorf("min-end-time response missing minEndTime")
	}

	ts, err := order.ParseInstant(result.MinEndTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse minEndTime: %w", err)
	}
	return ts, nil
}

func (c *Client) fetchRecords(ctx context.Context, endpoint string) ([]order.Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketplace unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload := drainBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, payload)
	}

	var records []order.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode order records: %w", err)
	}
	return records, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader, authenticated bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}
	if authenticated {
		if c.sess == nil {
			return nil, session.ErrNoToken
		}
		req.Header.Set("Authorization", c.sess.AuthorizationHeader())
	}
	return req, nil
}

func drainBody(r io.Reader) []byte {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return payload
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// parseAPIError prefers a structured message, then raw body text, so the
// server's wording reaches the user unchanged.
func parseAPIError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("marketplace error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("marketplace error (%d): %s", status, apiErr.Error)
		}
	}
	if len(bytes.TrimSpace(payload)) > 0 {
		return fmt.Errorf("marketplace error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("marketplace error (%d)", status)
}

var (
	_ OrderService       = (*Client)(nil)
	_ MinEndTimeResolver = (*Client)(nil)
)
