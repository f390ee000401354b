// Package client is the data layer of the Colegio dashboards: an HTTP client speaking the envelope API,
// the session (token service, auth store, route guard) and one module per feature.
package client

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

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
)

// DefaultErrorMessage is shown when a failed response carries no usable message.
const DefaultErrorMessage = "Ocurrió un error inesperado"

const (
	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = time.Minute
)

type (
	// RequestInterceptor may alter an outgoing request; an error aborts it.
	RequestInterceptor func(req *http.Request) error

	// ResponseInterceptor sees every response before its body is decoded; an error aborts the call.
	ResponseInterceptor func(resp *http.Response) error

	// Client talks to the REST API. Interceptors run in the order they were added.
	Client struct {
		baseURL      string
		httpClient   *http.Client
		logger       core.Logger
		cache        *queryCache
		cacheTTL     time.Duration
		interceptReq []RequestInterceptor
		interceptRes []ResponseInterceptor
	}

	Option func(*Client)

	// APIError is a failed API call. Fields holds the per-field messages of validation failures.
	APIError struct {
		StatusCode int
		Message    string
		Fields     map[string]string
	}

	envelope struct {
		Estado       bool            `json:"estado"`
		Message      string          `json:"message,omitempty"`
		Data         json.RawMessage `json:"data,omitempty"`
		DataIterable json.RawMessage `json:"dataIterable,omitempty"`
	}
)

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// ErrorMessage returns the message to show for err: the API message when there is one, else DefaultErrorMessage.
func ErrorMessage(err error) string {
	if apiErr, ok := errors.Cause(err).(*APIError); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return DefaultErrorMessage
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCacheTTL sets how long GET responses are cached; 0 disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     core.NopLogger{},
		cacheTTL:   defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = newQueryCache(c.cacheTTL)
	return c
}

// Use adds request interceptors.
func (c *Client) Use(interceptors ...RequestInterceptor) {
	c.interceptReq = append(c.interceptReq, interceptors...)
}

// OnResponse adds response interceptors.
func (c *Client) OnResponse(interceptors ...ResponseInterceptor) {
	c.interceptRes = append(c.interceptRes, interceptors...)
}

// Invalidate drops the cached responses of every path starting with one of prefixes.
func (c *Client) Invalidate(prefixes ...string) {
	for _, prefix := range prefixes {
		c.cache.invalidate(prefix)
	}
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.flush()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	key := path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	if env, ok := c.cache.get(key); ok {
		return env, nil
	}
	env, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	c.cache.set(key, env)
	return env, nil
}

// send performs a mutation and invalidates the cached responses under every prefix of invalidates.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}, invalidates ...string) (*envelope, error) {
	env, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	c.Invalidate(invalidates...)
	return env, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*envelope, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, intercept := range c.interceptReq {
		if err = intercept(req); err != nil {
			return nil, errors.Wrap(err, "intercepting request")
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(fmt.Sprintf("%s %s: %v", method, path, err), err)
		return nil, errors.Wrap(err, "sending request")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	for _, intercept := range c.interceptRes {
		if err = intercept(resp); err != nil {
			return nil, errors.Wrap(err, "intercepting response")
		}
	}

	env := new(envelope)
	if err = json.NewDecoder(resp.Body).Decode(env); err != nil && resp.StatusCode < http.StatusBadRequest {
		c.logger.Error(fmt.Sprintf("%s %s: decoding response: %v", method, path, err), err)
		return nil, errors.Wrap(err, "decoding response")
	}
	if err != nil || !env.Estado || resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp.StatusCode, env)
		c.logger.Warn(fmt.Sprintf("%s %s: %d %s", method, path, apiErr.StatusCode, apiErr.Message), apiErr)
		return nil, apiErr
	}
	return env, nil
}

func newAPIError(code int, env *envelope) *APIError {
	apiErr := &APIError{StatusCode: code, Message: env.Message}
	if apiErr.Message == "" {
		apiErr.Message = DefaultErrorMessage
	}
	if len(env.Data) > 0 {
		var fields map[string]string
		if err := json.Unmarshal(env.Data, &fields); err == nil && len(fields) > 0 {
			apiErr.Fields = fields
		}
	}
	return apiErr
}

// decodeData decodes the `data` of env into a T.
func decodeData[T any](env *envelope) (T, error) {
	var data T
	if len(env.Data) == 0 {
		return data, nil
	}
	err := json.Unmarshal(env.Data, &data)
	return data, errors.Wrap(err, "decoding data")
}

// decodeList decodes the `dataIterable` of env into a []T; it never returns a nil slice without an error.
func decodeList[T any](env *envelope) ([]T, error) {
	items := make([]T, 0)
	if len(env.DataIterable) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(env.DataIterable, &items); err != nil {
		return nil, errors.Wrap(err, "decoding dataIterable")
	}
	if items == nil {
		items = make([]T, 0)
	}
	return items, nil
}

func getData[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	env, err := c.get(ctx, path, query)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeData[T](env)
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	env, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return decodeList[T](env)
}

func sendData[T any](ctx context.Context, c *Client, method, path string, body interface{}, invalidates ...string) (T, error) {
	env, err := c.send(ctx, method, path, nil, body, invalidates...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeData[T](env)
}

// sendMessage performs a mutation answered with a bare message.
func sendMessage(ctx context.Context, c *Client, method, path string, query url.Values, body interface{}, invalidates ...string) (string, error) {
	env, err := c.send(ctx, method, path, query, body, invalidates...)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}
