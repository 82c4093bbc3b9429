package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/sadopc/wiretap/internal/capture"
	"github.com/sadopc/wiretap/internal/protocol"
	"golang.org/x/net/proxy"
)

// Timeline mark names emitted during request execution.
const (
	MarkDNS       = "dns"
	MarkConnect   = "connect"
	MarkTLS       = "tls"
	MarkFirstByte = "first_byte"
	MarkTransfer  = "transfer"
)

// ProxyConfig holds proxy settings.
type ProxyConfig struct {
	URL     string // http://, https://, or socks5:// proxy URL
	NoProxy string // comma-separated list of hosts to bypass proxy
}

// Client executes HTTP requests for the pipeline.
type Client struct {
	httpClient *http.Client
	proxyConf  *ProxyConfig
	tlsConfig  *tls.Config
}

// New creates a new HTTP client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// SetTimeout sets the default client timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetProxy configures proxy settings for the client.
func (c *Client) SetProxy(proxyURL, noProxy string) {
	if proxyURL == "" {
		c.proxyConf = nil
		return
	}
	c.proxyConf = &ProxyConfig{URL: proxyURL, NoProxy: noProxy}
}

// SetTLSConfig sets the TLS configuration for mTLS and certificate management.
func (c *Client) SetTLSConfig(cfg *tls.Config) {
	c.tlsConfig = cfg
}

// Handler adapts the client to the pipeline handler shape so middleware can
// wrap it.
func (c *Client) Handler() protocol.Handler {
	return c.Execute
}

// Validate checks that a request is executable.
func (c *Client) Validate(req *protocol.Request) error {
	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if req.Method == "" {
		return fmt.Errorf("method is required")
	}
	_, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	return nil
}

// Execute performs one HTTP exchange. When the context carries a capture
// timeline, connection phases are recorded on it as named marks.
func (c *Client) Execute(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	// Build URL with query params
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	// Build body
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Set headers
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	applyAuth(httpReq, req.Auth)

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.httpClient.Timeout
	}

	transport, err := c.buildTransport(req.ProxyURL, u.Host)
	if err != nil {
		return nil, fmt.Errorf("configuring transport: %w", err)
	}

	client := &http.Client{
		Timeout:       timeout,
		CheckRedirect: c.httpClient.CheckRedirect,
		Transport:     transport,
	}

	// Record connection phases on the exchange timeline, if one is attached.
	if tl, ok := capture.TimelineFrom(ctx); ok {
		trace := &httptrace.ClientTrace{
			DNSDone: func(_ httptrace.DNSDoneInfo) {
				tl.Mark(MarkDNS)
			},
			ConnectDone: func(_, _ string, _ error) {
				tl.Mark(MarkConnect)
			},
			TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
				tl.Mark(MarkTLS)
			},
			GotFirstResponseByte: func() {
				tl.Mark(MarkFirstByte)
			},
		}
		httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if tl, ok := capture.TimelineFrom(ctx); ok {
		tl.Mark(MarkTransfer)
	}

	return &protocol.Response{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		Headers:     flattenHeader(resp.Header),
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(respBody)),
		Proto:       resp.Proto,
		TLS:         resp.TLS != nil,
	}, nil
}

// flattenHeader collapses multi-value headers into the single-value mapping
// the pipeline types use.
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func applyAuth(req *http.Request, auth *protocol.AuthConfig) {
	if auth == nil || auth.Type == "none" {
		return
	}
	switch auth.Type {
	case "basic":
		encoded := base64.StdEncoding.EncodeToString(
			[]byte(auth.Username + ":" + auth.Password),
		)
		req.Header.Set("Authorization", "Basic "+encoded)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "apikey":
		if auth.APIIn == "query" {
			q := req.URL.Query()
			q.Set(auth.APIKey, auth.APIValue)
			req.URL.RawQuery = q.Encode()
		} else {
			req.Header.Set(auth.APIKey, auth.APIValue)
		}
	}
}

// buildTransport creates an http.Transport configured with proxy and TLS
// settings. perRequestProxy overrides the client-level proxy if non-empty.
func (c *Client) buildTransport(perRequestProxy, host string) (http.RoundTripper, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if c.tlsConfig != nil {
		transport.TLSClientConfig = c.tlsConfig
	}

	proxyURL := perRequestProxy
	noProxy := ""
	if proxyURL == "" && c.proxyConf != nil {
		proxyURL = c.proxyConf.URL
		noProxy = c.proxyConf.NoProxy
	}

	if proxyURL == "" || bypassProxy(host, noProxy) {
		return transport, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	case "socks5":
		dialer, err := proxy.FromURL(parsed, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("building socks5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

// bypassProxy checks whether host appears in a comma-separated no-proxy list.
func bypassProxy(host, noProxy string) bool {
	if noProxy == "" {
		return false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	for _, entry := range strings.Split(noProxy, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
