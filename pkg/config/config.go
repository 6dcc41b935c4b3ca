package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

const (
	// DefaultAPIBaseURL is the Dayforce entry point used to resolve a client's service URI
	DefaultAPIBaseURL = "https://www.dayforcehcm.com/Api"
	// DefaultTokenURL is the Dayforce identity (DFID) token endpoint
	DefaultTokenURL = "https://dfid.dayforcehcm.com/connect/token"
	// DefaultPaySummaryReport is the report backing the pay_summary_report stream
	DefaultPaySummaryReport = "DataWarehousePaySummaries"

	// AuthTypeBasic sends username/password on every request
	AuthTypeBasic = "basic"
	// AuthTypeToken exchanges username/password for a bearer token
	AuthTypeToken = "token"

	// BookmarkLayout is the timestamp layout used for bookmarks and filters
	BookmarkLayout = "2006-01-02T15:04:05Z"
)

// TapConfig is the connector configuration file.
type TapConfig struct {
	// Username is the Dayforce web services user
	Username string `yaml:"username" json:"username"`
	// Password for Username
	Password string `yaml:"password" json:"password"`
	// ClientNamespace identifies the Dayforce client (e.g. "acme")
	ClientNamespace string `yaml:"client_namespace" json:"client_namespace"`
	// ClientName is the legacy spelling of ClientNamespace
	ClientName string `yaml:"client_name" json:"client_name"`
	// StartDate bounds the first sync of every stream
	StartDate string `yaml:"start_date" json:"start_date"`
	// Email is sent as the From header when set
	Email string `yaml:"email" json:"email"`

	// APIBaseURL overrides DefaultAPIBaseURL
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`
	// ServiceURI skips ClientMetadata discovery when set
	ServiceURI string `yaml:"service_uri" json:"service_uri"`
	// AuthType is AuthTypeBasic (default) or AuthTypeToken
	AuthType string `yaml:"auth_type" json:"auth_type"`
	// TokenURL overrides DefaultTokenURL for AuthTypeToken
	TokenURL string `yaml:"token_url" json:"token_url"`
	// TokenClientID is the DFID client id for AuthTypeToken
	TokenClientID string `yaml:"token_client_id" json:"token_client_id"`

	// Streams holds per-stream request parameter overrides
	Streams map[string]map[string]interface{} `yaml:"streams" json:"streams"`
	// Reports lists report XRefCodes replicated as report_<xrefcode> streams
	Reports []string `yaml:"reports" json:"reports"`
	// PaySummaryReport tunes the pay_summary_report stream
	PaySummaryReport PaySummaryReportConfig `yaml:"pay_summary_report" json:"pay_summary_report"`

	// StateURI persists state outside the protocol stream (file://, s3://, gs://)
	StateURI string `yaml:"state_uri" json:"state_uri"`
	// StateRegion is the AWS region of an s3:// StateURI
	StateRegion string `yaml:"state_region" json:"state_region"`
	// StateCredentialsFile is a service account key for a gs:// StateURI
	StateCredentialsFile string `yaml:"state_credentials_file" json:"state_credentials_file"`
}

// PaySummaryReportConfig tunes the pay_summary_report stream.
type PaySummaryReportConfig struct {
	XRefCode string `yaml:"xrefcode" json:"xrefcode"`
	// StartParameter and EndParameter name the report's date range parameters
	StartParameter string `yaml:"start_parameter" json:"start_parameter"`
	EndParameter   string `yaml:"end_parameter" json:"end_parameter"`
	PageSize       int    `yaml:"page_size" json:"page_size"`
	// RowWarning and RowLimit mirror the server-side per-request row ceiling
	RowWarning int `yaml:"row_warning" json:"row_warning"`
	RowLimit   int `yaml:"row_limit" json:"row_limit"`
}

// ApplyDefaults fills in optional settings.
func (c *TapConfig) ApplyDefaults() {
	if c.ClientNamespace == "" {
		c.ClientNamespace = c.ClientName
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.AuthType == "" {
		c.AuthType = AuthTypeBasic
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.TokenClientID == "" {
		c.TokenClientID = "Dayforce.HCMAnywhere.Client"
	}

	p := &c.PaySummaryReport
	if p.XRefCode == "" {
		p.XRefCode = DefaultPaySummaryReport
	}
	if p.StartParameter == "" {
		p.StartParameter = "@StartDate"
	}
	if p.EndParameter == "" {
		p.EndParameter = "@EndDate"
	}
	if p.PageSize <= 0 {
		p.PageSize = 5000
	}
	if p.RowLimit <= 0 {
		p.RowLimit = 20000
	}
	if p.RowWarning <= 0 {
		p.RowWarning = 18000
	}
}

// Validate checks required keys. It never touches the network.
func (c *TapConfig) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.ClientNamespace == "" && c.ClientName == "" {
		missing = append(missing, "client_namespace")
	}
	if c.StartDate == "" {
		missing = append(missing, "start_date")
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("config is missing required keys: %v", missing)).
			WithDetail("missing", missing)
	}

	if _, err := c.Start(); err != nil {
		return err
	}

	switch c.AuthType {
	case "", AuthTypeBasic, AuthTypeToken:
	default:
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unsupported auth_type %q", c.AuthType))
	}

	if c.PaySummaryReport.RowWarning > 0 && c.PaySummaryReport.RowLimit > 0 &&
		c.PaySummaryReport.RowWarning >= c.PaySummaryReport.RowLimit {
		return errors.New(errors.ErrorTypeConfig, "pay_summary_report.row_warning must be below row_limit")
	}

	return nil
}

// Start parses StartDate.
func (c *TapConfig) Start() (time.Time, error) {
	t, err := ParseTimestamp(c.StartDate)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid start_date").
			WithDetail("start_date", c.StartDate)
	}
	return t, nil
}

// StreamParams returns the parameter overrides for a stream as strings.
func (c *TapConfig) StreamParams(streamID string) map[string]string {
	raw := c.Streams[streamID]
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		params[k] = fmt.Sprint(v)
	}
	return params
}

// ParseTimestamp accepts RFC3339 timestamps and plain dates, returning UTC.
func ParseTimestamp(s string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatTimestamp renders t the way bookmarks and API filters expect it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(BookmarkLayout)
}
