package fetch

import (
	"crypto/tls"
	"net/http"
	"time"
)

const (
	// DefaultTimeout covers the generic count query.
	DefaultTimeout = 5 * time.Minute
	// SlowTimeout covers providers that routinely take minutes to answer.
	SlowTimeout = 10 * time.Minute

	// Servers behind the platform reject requests without browser-looking
	// headers, so every query carries them.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0"
	origin    = "https://www.plataformadigitalnacional.org"
)

type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout            time.Duration
	insecureSkipVerify bool
}

func ClientWithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// ClientWithInsecureTLS disables certificate verification. Several state
// endpoints serve expired or self-signed certificates.
func ClientWithInsecureTLS() ClientOption {
	return func(c *clientConfig) {
		c.insecureSkipVerify = true
	}
}

// NewClient builds the HTTP client shared by all calls in a run. The
// connection pool is shared; per-call deadlines come from the timeout.
func NewClient(opts ...ClientOption) *http.Client {
	cfg := clientConfig{
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: transport,
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
}
