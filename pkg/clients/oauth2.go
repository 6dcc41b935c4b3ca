package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
)

// Authenticator decorates outgoing requests with credentials.
type Authenticator interface {
	Apply(req *http.Request) error
}

// BasicAuth sends HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Apply implements Authenticator
func (a BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(a.Username, a.Password)
	return nil
}

// TokenAuth sends a bearer token from an oauth2.TokenSource.
type TokenAuth struct {
	Source oauth2.TokenSource
}

// Apply implements Authenticator
func (a TokenAuth) Apply(req *http.Request) error {
	token, err := a.Source.Token()
	if err != nil {
		return tokenError(err)
	}
	token.SetAuthHeader(req)
	return nil
}

// tokenError classifies a token source failure. Rejected credentials are
// permanent; throttling, server and transport failures stay retryable.
func tokenError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		e := errors.FromStatus(retrieve.Response.StatusCode, "token endpoint returned "+retrieve.Response.Status)
		if errors.IsRetryable(e) {
			e.Cause = err
			return e
		}
		return errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to obtain access token").
			WithDetail("status_code", retrieve.Response.StatusCode)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return errors.Wrap(err, errors.ErrorTypeConnection, "token request failed")
	}
	return errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to obtain access token")
}

// PasswordGrantConfig configures a resource-owner password grant.
type PasswordGrantConfig struct {
	TokenURL string
	ClientID string
	Username string
	Password string
	// ExtraParams are sent with the form, e.g. a tenant identifier.
	ExtraParams map[string]string
}

// NewPasswordTokenSource returns a caching token source for the password grant.
// Tokens are refreshed by re-running the grant shortly before they expire.
func NewPasswordTokenSource(ctx context.Context, cfg PasswordGrantConfig, client *http.Client) oauth2.TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return oauth2.ReuseTokenSource(nil, &passwordGrantSource{ctx: ctx, cfg: cfg, client: client})
}

type passwordGrantSource struct {
	ctx    context.Context
	cfg    PasswordGrantConfig
	client *http.Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *passwordGrantSource) Token() (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("username", s.cfg.Username)
	form.Set("password", s.cfg.Password)
	for k, v := range s.cfg.ExtraParams {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.FromStatus(resp.StatusCode, fmt.Sprintf("token request returned %d: %s", resp.StatusCode, truncate(body, 256)))
	}

	var tr tokenResponse
	if err := jsonpool.Unmarshal(body, &tr); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "invalid token response")
	}
	if tr.AccessToken == "" {
		return nil, errors.New(errors.ErrorTypeAuthentication, "token response has no access_token")
	}

	token := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
	if tr.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
