// Package http builds the HTTP clients used to reach the storage service,
// including proxy support and automatic retry of transient failures.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/drivelink/drivelink/internal/config"
	"github.com/drivelink/drivelink/internal/constants"
	"github.com/drivelink/drivelink/internal/logging"
)

// ConfigureHTTPClient configures an HTTP client with proxy settings.
func ConfigureHTTPClient(cfg *config.Config) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}
	_ = http2.ConfigureTransport(transport)

	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "ntlm":
		if cfg.ProxyHost == "" {
			return nil, fmt.Errorf("proxy mode is ntlm but proxy host is not set")
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		// NTLM needs a negotiating round tripper wrapping the transport.
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: transport},
			Timeout:   constants.HTTPRequestTimeout,
		}, nil

	case "basic":
		if cfg.ProxyHost == "" {
			return nil, fmt.Errorf("proxy mode is basic but proxy host is not set")
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	return &nethttp.Client{
		Transport: transport,
		Timeout:   constants.HTTPRequestTimeout,
	}, nil
}

// NewRetryClient wraps the configured client with automatic retries for
// network failures and 5xx responses. 4xx responses are never retried here;
// 401 recovery belongs to the api package's refresh protocol.
func NewRetryClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	base, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = constants.RetryMax
	retryClient.RetryWaitMin = constants.RetryWaitMin
	retryClient.RetryWaitMax = constants.RetryWaitMax
	retryClient.Logger = &retryLogger{logger: logger}
	retryClient.CheckRetry = func(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		// Retry server-side failures and throttling only.
		if resp != nil && (resp.StatusCode >= 500 || resp.StatusCode == nethttp.StatusTooManyRequests) {
			return true, nil
		}
		return false, nil
	}

	return retryClient.StandardClient(), nil
}

// buildProxyURL constructs a proxy URL from config.
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, port),
	}

	// Only embed credentials when both user and password are present.
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyURL
}

// proxyFuncWithBypass returns a proxy function honoring the NoProxy list.
// With an empty list it behaves identically to nethttp.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}

// retryLogger adapts the structured logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Error().Msgf("retry: %s %v", msg, keysAndValues)
	}
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Warn().Msgf("retry: %s %v", msg, keysAndValues)
	}
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}
