// Package constants centralizes tuning values shared across Drivelink.
package constants

import "time"

// Application identity
const (
	// AppName is the product name used in logs and user-facing output.
	AppName = "Drivelink"

	// ConfigDir is the directory name under ~/.config holding config and credentials.
	ConfigDir = "drivelink"
)

// HTTP client configuration
const (
	// HTTPDialTimeout - TCP connect timeout
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keep-alive interval
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay pooled
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake deadline
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - wait for HTTP 100-continue
	HTTPExpectContinueTimeout = 5 * time.Second

	// HTTPRequestTimeout - overall deadline for plain API calls.
	// Upload/download streams set their own per-operation deadlines via context.
	HTTPRequestTimeout = 300 * time.Second
)

// Retry configuration for the transport layer
const (
	// RetryMax - maximum automatic retries for transient network/5xx failures
	RetryMax = 4

	// RetryWaitMin - initial backoff delay
	RetryWaitMin = 1 * time.Second

	// RetryWaitMax - backoff delay cap
	RetryWaitMax = 15 * time.Second
)

// Concurrency limits for file transfers
const (
	// DefaultMaxConcurrent - default concurrent uploads/downloads per batch
	DefaultMaxConcurrent = 5

	// MinMaxConcurrent / MaxMaxConcurrent - accepted --max-concurrent range
	MinMaxConcurrent = 1
	MaxMaxConcurrent = 20
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - per-subscriber channel buffer
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - hard cap on requested buffer sizes
	EventBusMaxBuffer = 4096
)
