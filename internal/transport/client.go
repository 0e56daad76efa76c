package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/sitescan/internal/model"
)

const (
	// DefaultTimeout bounds one scan request. Scans of slow targets take a while,
	// so this is much longer than a usual API call.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxBodySize is the largest response body the client reads.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// DefaultUserAgent identifies the client to the scan service.
	DefaultUserAgent = "sitescan"

	// checkProxyTimeout bounds the SOCKS5 greeting performed by CheckProxy.
	checkProxyTimeout = 2 * time.Second
)

// scanRequest is the wire body of a scan request.
type scanRequest struct {
	URL string `json:"url"`
}

// Client sends scan requests to the scan service.
// It is safe for concurrent use; it keeps no state between calls.
type Client struct {
	serviceURL   string
	timeout      time.Duration
	proxyAddress string
	headers      map[string]string
	userAgent    string
	maxBodySize  int64
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the request timeout of the underlying http.Client.
// Zero disables the client timeout; the caller's context still applies.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithProxy routes requests through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithHeaders adds headers to every request, such as an API token expected
// by a gateway in front of the scan service.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithMaxBodySize limits how many response bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the http.Client built by NewClient.
// Timeout, proxy and header options are ignored when this is used.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a client for the scan service at serviceURL.
//
// The URL and proxy address are validated, but nothing is dialed.
// Call CheckProxy to verify that a configured proxy is reachable.
func NewClient(serviceURL string, opts ...Option) (*Client, error) {
	if !isValidServiceURL(serviceURL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServiceURL, serviceURL)
	}

	c := &Client{
		serviceURL:  serviceURL,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.proxyAddress != "" && !isValidProxyAddress(c.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	if c.httpClient == nil {
		httpClient, err := c.newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.httpClient = httpClient
	}

	c.logger.Debug("scan service client configured",
		"service", c.serviceURL,
		"proxy", c.proxyAddress,
		"timeout", c.timeout,
		"headers", c.headers,
	)
	return c, nil
}

// isValidServiceURL checks that the URL is absolute and uses http or https.
func isValidServiceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	parts := strings.Split(address, ":")
	if len(parts) != 2 {
		return false
	}

	host := parts[0]
	port := parts[1]
	if host == "" || port == "" {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}
	return portNum >= 1
}

// newHTTPClient builds the http.Client, with a SOCKS5 dialer when a proxy is set.
func (c *Client) newHTTPClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second

	if c.proxyAddress != "" {
		// The scan service is usually unauthenticated on the proxy side.
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContextFunc(dialer)
	}

	var rt http.RoundTripper = transport
	if len(c.headers) > 0 {
		rt = &headerInjectingTransport{base: transport, headers: c.headers}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
	}, nil
}

// dialContextFunc adapts a proxy.Dialer to http.Transport.DialContext.
func dialContextFunc(dialer proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := dialer.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ServiceURL returns the scan service endpoint.
func (c *Client) ServiceURL() string {
	return c.serviceURL
}

// ProxyAddress returns the configured proxy address, or "" when none is used.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Timeout returns the configured request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Send issues one scan request for id and reports what was observed.
// It never returns a Go error: every failure is a RawOutcome.
func (c *Client) Send(ctx context.Context, id model.ScanIdentifier) RawOutcome {
	payload, err := json.Marshal(scanRequest{URL: id.String()})
	if err != nil {
		return NetworkError{Kind: model.TransportUnexpected, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL, bytes.NewReader(payload))
	if err != nil {
		return NetworkError{Kind: model.TransportUnexpected, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("sending scan request", "target", id.String(), "service", c.serviceURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classifyNetworkError(err)
		c.logger.Debug("scan request failed", "target", id.String(), "kind", kind.String(), "error", err)
		return NetworkError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp.Body)
	if err != nil {
		if !errors.Is(err, errBodyTooLarge) {
			kind := classifyNetworkError(err)
			c.logger.Debug("reading scan response failed", "target", id.String(), "kind", kind.String(), "error", err)
			return NetworkError{Kind: kind, Err: err}
		}
		c.logger.Warn("scan response exceeds size limit, body discarded",
			"target", id.String(), "limit", c.maxBodySize)
		body = nil
	}

	c.logger.Debug("scan response received", "target", id.String(), "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return HTTPOk{StatusCode: resp.StatusCode, Body: body}
	}
	if len(body) == 0 {
		body = nil
	}
	return HTTPError{StatusCode: resp.StatusCode, Body: body}
}

// errBodyTooLarge is returned by readBody when the limit is exceeded.
var errBodyTooLarge = errors.New("response body too large")

// readBody reads at most maxBodySize bytes.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// classifyNetworkError maps a failed round trip to a TransportKind.
// DNS failures and everything else that is not a timeout or refusal are Unexpected.
func classifyNetworkError(err error) model.TransportKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.TransportTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.TransportTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.TransportConnectionRefused
	}
	return model.TransportUnexpected
}

// SOCKS5 protocol constants.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// CheckProxy verifies that the configured proxy completes a SOCKS5 greeting
// without authentication. It does not send a CONNECT request.
func (c *Client) CheckProxy(ctx context.Context) ProxyStatus {
	if c.proxyAddress == "" {
		return ProxyStatusNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// version, one method, no authentication
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
