// Package dayforce is a client for the Dayforce REST API v1.
//
// Requests are sent through a clients.HTTPClient for pacing and
// authentication, and every request, including each page of a paged
// response, is wrapped in the same clients.RetryPolicy.
//
// The service URI of a client namespace is resolved once, lazily, through
// the ClientMetadata endpoint.
package dayforce

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/clients"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
)

const apiVersion = "V1"

// Config configures a Client.
type Config struct {
	// BaseURL is the entry point, e.g. https://www.dayforcehcm.com/Api
	BaseURL string
	// Namespace is the client namespace, e.g. "acme"
	Namespace string
	// ServiceURI skips ClientMetadata discovery when set
	ServiceURI string
	// Email is sent as the From header when set
	Email string
	// Version is reported in the User-Agent header
	Version string
}

// Client talks to one Dayforce client namespace.
type Client struct {
	cfg    Config
	http   *clients.HTTPClient
	retry  *clients.RetryPolicy
	logger *zap.Logger
	now    func() time.Time

	serviceOnce sync.Once
	serviceURI  string
	serviceErr  error
}

// NewClient creates a client. retry may be nil for the default policy.
func NewClient(cfg Config, httpClient *clients.HTTPClient, retry *clients.RetryPolicy, logger *zap.Logger) *Client {
	if retry == nil {
		retry = clients.NewRetryPolicy(clients.DefaultRetryBudget)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		retry:  retry,
		logger: logger.With(zap.String("component", "dayforce_client")),
		now:    time.Now,
	}
}

// Response is the envelope every Dayforce endpoint returns.
type Response struct {
	Data   jsonpool.RawMessage `json:"Data"`
	Paging *Paging             `json:"Paging"`
	// Processing results carry server-side warnings and errors
	ProcessResults []ProcessResult `json:"ProcessResults"`
}

// Paging points at the next page of a result set.
type Paging struct {
	Next string `json:"Next"`
}

// ProcessResult is a server-side message attached to a response.
type ProcessResult struct {
	Code    string `json:"Code"`
	Level   string `json:"Level"`
	Message string `json:"Message"`
}

// NextURL returns the next page URL, or "" on the last page.
func (r *Response) NextURL() string {
	if r.Paging == nil {
		return ""
	}
	return r.Paging.Next
}

// Records decodes Data as a list of objects. Null items decode to nil maps.
func (r *Response) Records() ([]map[string]interface{}, error) {
	if isNull(r.Data) {
		return nil, nil
	}
	var out []map[string]interface{}
	if err := jsonpool.UnmarshalNumbers(r.Data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "response Data is not a list of records")
	}
	return out, nil
}

// Record decodes Data as a single object. It returns nil when Data is null.
func (r *Response) Record() (map[string]interface{}, error) {
	if isNull(r.Data) {
		return nil, nil
	}
	var out map[string]interface{}
	if err := jsonpool.UnmarshalNumbers(r.Data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "response Data is not a record")
	}
	return out, nil
}

func isNull(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed == "" || trimmed == "null"
}

// ServiceURI returns the namespace's service root, ending in the namespace.
func (c *Client) ServiceURI(ctx context.Context) (string, error) {
	c.serviceOnce.Do(func() {
		c.serviceURI, c.serviceErr = c.resolveServiceURI(ctx)
	})
	return c.serviceURI, c.serviceErr
}

type clientMetadata struct {
	ServiceURI string `json:"ServiceUri"`
}

func (c *Client) resolveServiceURI(ctx context.Context) (string, error) {
	if c.cfg.ServiceURI != "" {
		return withNamespace(c.cfg.ServiceURI, c.cfg.Namespace), nil
	}

	fallback := c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.Namespace)
	resp, err := c.fetch(clients.WithEndpoint(ctx, "ClientMetadata"), fallback+"/"+apiVersion+"/ClientMetadata")
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeAuthentication) || errors.IsType(err, errors.ErrorTypePermission) ||
			ctx.Err() != nil {
			return "", err
		}
		c.logger.Warn("client metadata lookup failed, using base URL", zap.Error(err))
		return fallback, nil
	}

	var meta clientMetadata
	if err := jsonpool.Unmarshal(resp, &meta); err != nil || meta.ServiceURI == "" {
		c.logger.Warn("client metadata has no service URI, using base URL")
		return fallback, nil
	}
	uri := withNamespace(meta.ServiceURI, c.cfg.Namespace)
	c.logger.Info("resolved service URI", zap.String("service_uri", uri))
	return uri, nil
}

// withNamespace makes sure uri ends with the namespace segment.
func withNamespace(uri, namespace string) string {
	uri = strings.TrimRight(uri, "/")
	if strings.HasSuffix(strings.ToLower(uri), "/"+strings.ToLower(namespace)) {
		return uri
	}
	return uri + "/" + url.PathEscape(namespace)
}

// ResourceURL builds the URL of resource with params.
func (c *Client) ResourceURL(ctx context.Context, resource string, params url.Values) (string, error) {
	root, err := c.ServiceURI(ctx)
	if err != nil {
		return "", err
	}
	u := root + "/" + apiVersion + "/" + strings.TrimLeft(resource, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u, nil
}

// Get fetches one response envelope.
func (c *Client) Get(ctx context.Context, resource string, params url.Values) (*Response, error) {
	u, err := c.ResourceURL(ctx, resource, params)
	if err != nil {
		return nil, err
	}
	return c.getURL(ctx, u)
}

func (c *Client) getURL(ctx context.Context, u string) (*Response, error) {
	body, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := jsonpool.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode Dayforce response").
			WithDetail("url", redact(u))
	}
	for _, pr := range resp.ProcessResults {
		if strings.EqualFold(pr.Level, "ERROR") || strings.EqualFold(pr.Level, "WARNING") {
			c.logger.Warn("Dayforce process result",
				zap.String("code", pr.Code),
				zap.String("level", pr.Level),
				zap.String("message", pr.Message))
		}
	}
	return &resp, nil
}

// fetch performs one retried GET and returns the body.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.retry.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.http.Get(ctx, u, c.headers())
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read Dayforce response").
			WithDetail("url", redact(u))
	}
	return body, nil
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "tap-dayforce/"+c.cfg.Version)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	if c.cfg.Email != "" {
		h.Set("From", c.cfg.Email)
	}
	h.Set("Date", c.now().UTC().Format(http.TimeFormat))
	return h
}

func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	return parsed.Redacted()
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}
