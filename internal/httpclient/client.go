package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/firefart/proxyclient/internal/helper"
	"github.com/firefart/proxyclient/internal/properties"
)

// Config describes the proxy route of a client. Empty strings are treated
// as absent values.
type Config struct {
	ProxyHost     string
	ProxyPort     string
	ProxyUser     string
	ProxyPassword string

	// Timeout is the overall request timeout, zero means no timeout
	Timeout time.Duration
	// Decompress transparently decodes br, gzip and deflate responses
	Decompress bool
}

// ConfigFromProperties reads the http.proxy* keys from src.
func ConfigFromProperties(src properties.Source) Config {
	get := func(key string) string {
		v, _ := src.Lookup(key)
		return v
	}
	return Config{
		ProxyHost:     get(properties.ProxyHost),
		ProxyPort:     get(properties.ProxyPort),
		ProxyUser:     get(properties.ProxyUser),
		ProxyPassword: get(properties.ProxyPassword),
	}
}

type Client struct {
	httpClient  *http.Client
	proxy       *url.URL
	proxyPort   int
	credentials *CredentialsProvider
	logger      *slog.Logger
}

// New builds a client from cfg. Without a proxy host the client connects
// directly and ignores the proxy environment variables. The only error
// returned is a proxy port that is not a number. No connections are made.
func New(logger *slog.Logger, cfg Config) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// clone so we never modify the default transport
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil

	c := &Client{
		credentials: NewCredentialsProvider(),
		logger:      logger,
	}

	if cfg.ProxyHost != "" {
		// ports are 32 bit values, larger numbers are parse errors
		p, err := strconv.ParseInt(cfg.ProxyPort, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy port %q: %w", helper.SanitizeString(cfg.ProxyPort), err)
		}
		port := int(p)

		var host string
		switch {
		case port >= 0:
			host = net.JoinHostPort(cfg.ProxyHost, strconv.Itoa(port))
		case strings.Contains(cfg.ProxyHost, ":"):
			// a negative port selects the scheme default, ipv6 still needs brackets
			host = "[" + cfg.ProxyHost + "]"
		default:
			host = cfg.ProxyHost
		}
		c.proxy = &url.URL{Scheme: "http", Host: host}
		c.proxyPort = port

		if cfg.ProxyUser != "" {
			// the scope host is the user name, not the proxy host. kept for
			// compatibility with existing uploader setups.
			scope := AuthScope{Host: cfg.ProxyUser, Port: port}
			creds := Credentials{Username: cfg.ProxyUser, Password: cfg.ProxyPassword}
			c.credentials.SetCredentials(scope, creds)
			logger.Debug("registered proxy credentials",
				slog.String("scope", helper.SanitizeString(scope.String())),
				slog.String("credentials", helper.SanitizeString(creds.String())))
		}

		tr.Proxy = c.proxyForRequest
		logger.Debug("configured proxy route", slog.String("proxy", helper.SanitizeString(c.proxy.String())))
	}

	var rt http.RoundTripper = tr
	if cfg.Decompress {
		rt = &decodingTransport{next: tr, logger: logger}
	}

	c.httpClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: rt,
	}
	return c, nil
}

// proxyForRequest returns the proxy url, with user info when a registered
// credential matches the proxy host and port.
func (c *Client) proxyForRequest(_ *http.Request) (*url.URL, error) {
	u := *c.proxy
	scope := AuthScope{Host: c.proxy.Hostname(), Port: c.proxyPort}
	if creds, ok := c.credentials.Credentials(scope); ok {
		u.User = url.UserPassword(creds.Username, creds.Password)
	}
	return &u, nil
}

// HTTPClient returns the underlying configured client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ProxyRoute returns a copy of the proxy url or nil if requests go direct.
func (c *Client) ProxyRoute() *url.URL {
	if c.proxy == nil {
		return nil
	}
	u := *c.proxy
	return &u
}

func (c *Client) CredentialsProvider() *CredentialsProvider {
	return c.credentials
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	c.logger.Debug("sending request", slog.String("url", helper.SanitizeString(req.URL.Redacted())))
	return c.httpClient.Do(req)
}
