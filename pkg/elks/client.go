// Package elks is a client for the 46elks REST API. It covers account
// details, phone number management, sending SMS and reading SMS history.
// Voice calls are not supported.
package elks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultAPIURL     = "https://api.46elks.com/a1"
	DefaultBatchLimit = 2000

	meResourcePath      = "/Me"
	numbersResourcePath = "/Numbers"
	smsResourcePath     = "/SMS"

	defaultBodyLimit = 16 * 1024
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the connection settings for a Client.
type Config struct {
	// APIURL defaults to DefaultAPIURL.
	APIURL string
	// BatchLimit caps the recipients per send request. Defaults to
	// DefaultBatchLimit.
	BatchLimit int
	Username   string
	Password   string
	// Timeout applies to the default HTTP client only. Zero means no timeout.
	Timeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used to talk to the API.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBodyLimit adjusts how many bytes of an error response body are kept.
func WithBodyLimit(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBodyBytes = limit
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Client issues requests against the 46elks API. A Client is safe for
// concurrent use if its HTTPClient is.
type Client struct {
	cfg          Config
	logger       zerolog.Logger
	tracer       trace.Tracer
	maxBodyBytes int64

	httpOnce   sync.Once
	httpClient HTTPClient
}

// New constructs a Client. Username and password are required.
func New(cfg Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("elks: username is required")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("elks: password is required")
	}
	if cfg.BatchLimit < 0 {
		return nil, fmt.Errorf("elks: batch limit must not be negative, got %d", cfg.BatchLimit)
	}
	if cfg.BatchLimit == 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &Client{
		cfg:          cfg,
		logger:       logger,
		tracer:       defaultTracer(),
		maxBodyBytes: defaultBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// transport returns the shared HTTP client, building the default one on
// first use.
func (c *Client) transport() HTTPClient {
	c.httpOnce.Do(func() {
		if c.httpClient == nil {
			c.httpClient = &http.Client{Timeout: c.cfg.Timeout}
		}
	})
	return c.httpClient
}

// QueryAccountDetails returns the account details including the balance.
func (c *Client) QueryAccountDetails(ctx context.Context) (*AccountDetails, error) {
	var account AccountDetails
	if err := c.get(ctx, meResourcePath, meResourcePath, nil, &account); err != nil {
		return nil, &Error{Msg: "could not query account details", Err: err}
	}
	c.logger.Debug().Str("account_id", account.ID).Msg("queried account details")
	return &account, nil
}

// QueryPhoneNumbers lists the allocated phone numbers.
func (c *Client) QueryPhoneNumbers(ctx context.Context) ([]PhoneNumberDetails, error) {
	var list phoneNumberList
	if err := c.get(ctx, numbersResourcePath, numbersResourcePath, nil, &list); err != nil {
		return nil, &Error{Msg: "could not query phone numbers", Err: err}
	}
	if list.Numbers == nil {
		list.Numbers = []PhoneNumberDetails{}
	}
	c.logger.Debug().Int("count", len(list.Numbers)).Msg("queried phone numbers")
	return list.Numbers, nil
}

// QueryPhoneNumber returns the details of a single number. It returns
// (nil, nil) when the API reports the number as not found.
func (c *Client) QueryPhoneNumber(ctx context.Context, id string) (*PhoneNumberDetails, error) {
	if err := requireText("id", id); err != nil {
		return nil, &Error{Msg: "could not query phone number details", Err: err}
	}
	var number PhoneNumberDetails
	if err := c.get(ctx, numberRoute, numberPath(id), nil, &number); err != nil {
		if IsNotFound(err) {
			c.logger.Debug().Str("id", id).Msg("phone number not found")
			return nil, nil
		}
		return nil, &Error{Msg: "could not query phone number details", Err: err}
	}
	c.logger.Debug().Str("id", id).Msg("queried phone number")
	return &number, nil
}

// AllocatePhoneNumber allocates a new number in country, a two-letter
// lower-case code. smsURL is optional and is called with from, to and message
// when the number receives an SMS. A number is not needed to send with an
// alphanumeric sender.
func (c *Client) AllocatePhoneNumber(ctx context.Context, country, smsURL string) (*PhoneNumberDetails, error) {
	if err := requireText("country", country); err != nil {
		return nil, &Error{Msg: "could not allocate phone number", Err: err}
	}
	form := url.Values{}
	form.Set("country", country)
	setIfText(form, "sms_url", smsURL)

	var number PhoneNumberDetails
	if err := c.post(ctx, numbersResourcePath, numbersResourcePath, form, &number); err != nil {
		return nil, &Error{Msg: "could not allocate phone number", Err: err}
	}
	c.logger.Debug().
		Str("id", number.ID).
		Str("number", number.Number).
		Msg("allocated phone number")
	return &number, nil
}

// UpdatePhoneNumber sets the SMS callback URL of a number. The API does not
// allow unsetting the URL once set; an empty smsURL leaves it unchanged.
func (c *Client) UpdatePhoneNumber(ctx context.Context, id, smsURL string) (*PhoneNumberDetails, error) {
	if err := requireText("id", id); err != nil {
		return nil, &Error{Msg: "could not update phone number", Err: err}
	}
	form := url.Values{}
	setIfText(form, "sms_url", smsURL)

	var number PhoneNumberDetails
	if err := c.post(ctx, numberRoute, numberPath(id), form, &number); err != nil {
		return nil, &Error{Msg: "could not update phone number", Err: err}
	}
	c.logger.Debug().Str("id", id).Msg("updated phone number")
	return &number, nil
}

// DeallocatePhoneNumber releases a number. It cannot be restored afterwards.
func (c *Client) DeallocatePhoneNumber(ctx context.Context, id string) (*PhoneNumberDetails, error) {
	if err := requireText("id", id); err != nil {
		return nil, &Error{Msg: "could not deallocate phone number", Err: err}
	}
	form := url.Values{}
	form.Set("active", "no")

	var number PhoneNumberDetails
	if err := c.post(ctx, numberRoute, numberPath(id), form, &number); err != nil {
		return nil, &Error{Msg: "could not deallocate phone number", Err: err}
	}
	c.logger.Debug().Str("id", id).Msg("deallocated phone number")
	return &number, nil
}

// QuerySmsHistory returns the first page of the SMS history.
func (c *Client) QuerySmsHistory(ctx context.Context) (*SmsHistory, error) {
	var history SmsHistory
	if err := c.get(ctx, smsResourcePath, smsResourcePath, nil, &history); err != nil {
		return nil, &Error{Msg: "could not query message history", Err: err}
	}
	c.logger.Debug().Int("count", len(history.Responses)).Msg("queried sms history")
	return &history, nil
}

// QuerySmsHistoryFrom returns the page of history starting at start,
// normally the Next value of a previous page. A zero start is the same as
// QuerySmsHistory.
func (c *Client) QuerySmsHistoryFrom(ctx context.Context, start time.Time) (*SmsHistory, error) {
	if start.IsZero() {
		return c.QuerySmsHistory(ctx)
	}
	formatted, err := FormatTimestamp(start)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("could not format start date [%s]", start), Err: err}
	}
	query := url.Values{}
	query.Set("start", formatted)

	var history SmsHistory
	if err := c.get(ctx, smsResourcePath, smsResourcePath, query, &history); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("could not query message history with start [%s]", formatted), Err: err}
	}
	c.logger.Debug().
		Str("start", formatted).
		Int("count", len(history.Responses)).
		Msg("queried sms history")
	return &history, nil
}

const numberRoute = numbersResourcePath + "/{id}"

func numberPath(id string) string {
	return numbersResourcePath + "/" + url.PathEscape(id)
}

func setIfText(form url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		form.Set(key, value)
	}
}

func (c *Client) get(ctx context.Context, route, path string, query url.Values, out any) error {
	endpoint := c.cfg.APIURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, route, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, route, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, route, c.cfg.APIURL+path, form, out)
}

// do performs one request and decodes a 2xx JSON body into out. Non-2xx
// responses yield a *StatusError.
func (c *Client) do(ctx context.Context, method, route, endpoint string, form url.Values, out any) (err error) {
	ctx, span := c.startSpan(ctx, method, route, attribute.String("url.full", endpoint))
	status := 0
	defer func() { endSpan(span, status, err) }()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.transport().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, readErr := c.readBody(resp.Body)
		if readErr != nil {
			c.logger.Warn().Err(readErr).Int("status", resp.StatusCode).Msg("failed to read error body")
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", route, err)
	}
	return nil
}

func (c *Client) readBody(rc io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(rc, c.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}
