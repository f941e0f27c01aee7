// Package backend is the typed HTTP client for the application backend. It
// attaches the resolved identity to every request and translates transport
// failures into non-throwing results: callers receive nil or false, never an
// error, and render their own user-facing messaging.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/arendahub/miniapp-client/internal/httputil"
	"github.com/arendahub/miniapp-client/internal/metrics"
)

// ChatIDHeader carries the subject identity in lieu of cookie sessions.
const ChatIDHeader = "X-Chat-ID"

const (
	defaultTimeout = 15 * time.Second

	maxJSONBody = 1 << 20  // profile/status/error bodies
	maxPDFBody  = 20 << 20 // contract PDF
)

// errNoIdentity marks operations short-circuited before any network I/O.
var errNoIdentity = errors.New("no chat id resolved")

// Config configures the backend client.
type Config struct {
	BaseURL string
	ChatID  int64
	Timeout time.Duration
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Client is the API client. All operations are safe to call with a missing
// identity: they return their documented failure value without touching the
// network.
type Client struct {
	baseURL    string
	chatID     int64
	httpClient *http.Client
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// New creates a backend client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		chatID:  cfg.ChatID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// ChatID returns the identity the client was built with, 0 when absent.
func (c *Client) ChatID() int64 {
	return c.chatID
}

// do builds and executes one request with the JSON content type and the
// identity header attached.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	if c.chatID <= 0 {
		return nil, errNoIdentity
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ChatIDHeader, strconv.FormatInt(c.chatID, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// FetchProfile returns the applicant record, or nil on missing identity,
// transport failure, non-2xx status, or an unparsable body.
func (c *Client) FetchProfile(ctx context.Context) *Profile {
	resp, err := c.do(ctx, http.MethodGet, "/api/user", nil)
	if err != nil {
		c.fail("fetch_profile", err)
		return nil
	}
	defer resp.Body.Close()

	if !success(resp) {
		c.failStatus("fetch_profile", resp.StatusCode)
		return nil
	}

	body, err := httputil.ReadAllStrict(resp.Body, maxJSONBody)
	if err != nil {
		c.fail("fetch_profile", err)
		return nil
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		c.fail("fetch_profile", err)
		return nil
	}

	c.metrics.RecordAPICall("fetch_profile", true)
	return &profile
}

// SetState asserts the workflow state on the server. The boolean reports
// HTTP success only; callers treat the call as idempotent.
func (c *Client) SetState(ctx context.Context, state string) bool {
	resp, err := c.do(ctx, http.MethodPost, "/api/user/state", map[string]string{"state": state})
	if err != nil {
		c.fail("set_state", err)
		return false
	}
	defer drain(resp)

	ok := success(resp)
	if !ok {
		c.failStatus("set_state", resp.StatusCode)
		return false
	}
	c.metrics.RecordAPICall("set_state", true)
	return true
}

// SubmitApplication submits the intake form. On rejection the server's
// "error" field is surfaced as the result message, with a generic fallback
// when the body is unparsable.
func (c *Client) SubmitApplication(ctx context.Context, passportNumber, snils string) SubmitResult {
	payload := map[string]string{
		"passport_number": passportNumber,
		"snils":           snils,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/application", payload)
	if err != nil {
		c.fail("submit_application", err)
		if errors.Is(err, errNoIdentity) {
			return SubmitResult{Success: false, Message: "Chat ID not found"}
		}
		return SubmitResult{Success: false, Message: "Network error"}
	}
	defer resp.Body.Close()

	if !success(resp) {
		c.failStatus("submit_application", resp.StatusCode)
		message := "Failed to submit application"
		if body, _, err := httputil.ReadAllWithLimit(resp.Body, maxJSONBody); err == nil {
			if serverMsg := gjson.GetBytes(body, "error").String(); serverMsg != "" {
				message = serverMsg
			}
		}
		return SubmitResult{Success: false, Message: message}
	}

	_, _, _ = httputil.ReadAllWithLimit(resp.Body, maxJSONBody)
	c.metrics.RecordAPICall("submit_application", true)
	return SubmitResult{Success: true}
}

// FetchStatus returns the review status slice, or nil on any failure.
func (c *Client) FetchStatus(ctx context.Context) *Status {
	resp, err := c.do(ctx, http.MethodGet, "/api/user/status", nil)
	if err != nil {
		c.fail("fetch_status", err)
		return nil
	}
	defer resp.Body.Close()

	if !success(resp) {
		c.failStatus("fetch_status", resp.StatusCode)
		return nil
	}

	body, err := httputil.ReadAllStrict(resp.Body, maxJSONBody)
	if err != nil {
		c.fail("fetch_status", err)
		return nil
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		c.fail("fetch_status", err)
		return nil
	}

	c.metrics.RecordAPICall("fetch_status", true)
	return &status
}

// ConfirmContract records the explicit contract confirmation.
func (c *Client) ConfirmContract(ctx context.Context) bool {
	resp, err := c.do(ctx, http.MethodPost, "/api/contract/confirm", nil)
	if err != nil {
		c.fail("confirm_contract", err)
		return false
	}
	defer drain(resp)

	if !success(resp) {
		c.failStatus("confirm_contract", resp.StatusCode)
		return false
	}
	c.metrics.RecordAPICall("confirm_contract", true)
	return true
}

// FetchContractPDF fetches the contract document as bytes. Identity travels
// in the header, never in the URL, so the document link carries no
// credentials.
func (c *Client) FetchContractPDF(ctx context.Context) ([]byte, bool) {
	resp, err := c.do(ctx, http.MethodGet, "/api/contract/pdf", nil)
	if err != nil {
		c.fail("fetch_contract_pdf", err)
		return nil, false
	}
	defer resp.Body.Close()

	if !success(resp) {
		c.failStatus("fetch_contract_pdf", resp.StatusCode)
		return nil, false
	}

	data, err := httputil.ReadAllStrict(resp.Body, maxPDFBody)
	if err != nil {
		c.fail("fetch_contract_pdf", err)
		return nil, false
	}

	c.metrics.RecordAPICall("fetch_contract_pdf", true)
	return data, true
}

// postLog delivers one telemetry event. Failures are reported to the caller
// (the recorder) only so it can count them; they are never surfaced further.
func (c *Client) postLog(ctx context.Context, entry logEntry) bool {
	resp, err := c.do(ctx, http.MethodPost, "/api/log", entry)
	if err != nil {
		if !errors.Is(err, errNoIdentity) {
			c.log.Debug().Err(err).Msg("backend: telemetry delivery failed")
		}
		return false
	}
	defer drain(resp)
	return success(resp)
}

func (c *Client) fail(operation string, err error) {
	c.metrics.RecordAPICall(operation, false)
	if errors.Is(err, errNoIdentity) {
		c.log.Debug().Str("operation", operation).Msg("backend: skipped, no identity")
		return
	}
	c.log.Warn().Err(err).Str("operation", operation).Msg("backend: request failed")
}

func (c *Client) failStatus(operation string, status int) {
	c.metrics.RecordAPICall(operation, false)
	c.log.Warn().Int("status", status).Str("operation", operation).Msg("backend: unexpected status")
}

func success(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONBody))
	resp.Body.Close()
}
