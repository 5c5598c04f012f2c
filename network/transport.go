package network

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// TransportConfig tunes the plain-HTTP transport used for the PKI platform's
// discovery and keypair-fetch endpoints (REST, matching original_source's
// reqwest client). The signing/verification RPCs themselves run over gRPC;
// see pkiclient.go.
type TransportConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration
	MaxConnsPerHost       int
}

// DefaultTransportConfig returns default transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: DefaultHTTPTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxConnsPerHost:       0,
	}
}

// NewTransport creates an HTTP/2-capable transport for the discovery path.
func NewTransport(config TransportConfig) http.RoundTripper {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
		MaxConnsPerHost:       config.MaxConnsPerHost,
	}

	// Enables HTTP/2 negotiation via ALPN when talking TLS; ignored (falls
	// back to HTTP/1.1) if configuration fails.
	_ = http2.ConfigureTransport(transport)

	return transport
}

// NewHTTPClient creates an HTTP client with the configured transport.
func NewHTTPClient(config TransportConfig) *http.Client {
	return &http.Client{
		Transport: NewTransport(config),
		Timeout:   DefaultHTTPTimeout,
	}
}

// NewDefaultHTTPClient creates an HTTP client with default configuration.
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultTransportConfig())
}
