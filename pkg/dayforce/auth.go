package dayforce

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/clients"
	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/metrics"
)

// NewFromConfig builds a client with the transport, authentication and retry
// policy described by the tap config and runtime settings.
func NewFromConfig(ctx context.Context, tc *config.TapConfig, settings *config.Settings, collector *metrics.Collector, logger *zap.Logger, version string) *Client {
	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = settings.RequestTimeout
	httpCfg.ResponseHeaderTimeout = settings.RequestTimeout
	httpCfg.RateLimit = settings.RateLimit

	var auth clients.Authenticator = clients.BasicAuth{Username: tc.Username, Password: tc.Password}
	if tc.AuthType == config.AuthTypeToken {
		// The token endpoint gets its own unauthenticated client.
		tokenHTTP := clients.NewHTTPClient(httpCfg, logger)
		source := clients.NewPasswordTokenSource(ctx, clients.PasswordGrantConfig{
			TokenURL: tc.TokenURL,
			ClientID: tc.TokenClientID,
			Username: tc.Username,
			Password: tc.Password,
			ExtraParams: map[string]string{
				"companyId": tc.ClientNamespace,
			},
		}, tokenHTTP.StandardClient())
		auth = clients.TokenAuth{Source: source}
	}

	httpClient := clients.NewHTTPClient(httpCfg, logger,
		clients.WithAuthenticator(auth),
		clients.WithObserver(collector))

	retry := clients.NewRetryPolicy(settings.RetryBudget)
	retry.Observer = collector

	return NewClient(Config{
		BaseURL:    tc.APIBaseURL,
		Namespace:  tc.ClientNamespace,
		ServiceURI: tc.ServiceURI,
		Email:      tc.Email,
		Version:    version,
	}, httpClient, retry, logger)
}
