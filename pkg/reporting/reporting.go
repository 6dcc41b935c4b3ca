// Package reporting forwards warnings and failures to an external error
// tracker. Components receive a Reporter; the zero choice is Nop.
package reporting

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
)

// Level is the severity of a report.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Reporter receives data anomalies and uncaught errors.
type Reporter interface {
	Message(level Level, msg string, extras map[string]interface{})
	Error(level Level, err error, extras map[string]interface{})
	Close() error
}

// Nop discards every report.
type Nop struct{}

func (Nop) Message(Level, string, map[string]interface{}) {}
func (Nop) Error(Level, error, map[string]interface{})    {}
func (Nop) Close() error                                  { return nil }

// Rollbar sends reports to Rollbar.
type Rollbar struct {
	client *rollbar.Client
}

// NewRollbar creates a Rollbar reporter for the given access token and environment.
func NewRollbar(token, environment, version string) *Rollbar {
	host, _ := os.Hostname()
	client := rollbar.New(token, environment, version, host, "")
	return &Rollbar{client: client}
}

func (r *Rollbar) Message(level Level, msg string, extras map[string]interface{}) {
	r.client.MessageWithExtras(string(level), msg, extras)
}

func (r *Rollbar) Error(level Level, err error, extras map[string]interface{}) {
	r.client.ErrorWithExtras(string(level), err, extras)
}

// Close waits for queued items to be sent.
func (r *Rollbar) Close() error {
	r.client.Wait()
	return r.client.Close()
}

// New returns a Rollbar reporter when token is set and Nop otherwise.
func New(token, environment, version string) Reporter {
	if token == "" {
		return Nop{}
	}
	logger.Info("error reporting enabled", zap.String("environment", environment))
	return NewRollbar(token, environment, version)
}
