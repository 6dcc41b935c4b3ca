// Package core defines the stream model shared by sources, the registry and
// the sync pipeline.
package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
	"github.com/ajitpratap0/tap-dayforce/pkg/metrics"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
	"github.com/ajitpratap0/tap-dayforce/pkg/reporting"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// StreamKind enumerates the stream variants a source can produce.
type StreamKind int

const (
	KindEmployees StreamKind = iota
	KindEmployeePunches
	KindEmployeeRawPunches
	KindPaySummaryReport
	KindReport
)

func (k StreamKind) String() string {
	switch k {
	case KindEmployees:
		return "employees"
	case KindEmployeePunches:
		return "employee_punches"
	case KindEmployeeRawPunches:
		return "employee_raw_punches"
	case KindPaySummaryReport:
		return "pay_summary_report"
	case KindReport:
		return "report"
	default:
		return fmt.Sprintf("StreamKind(%d)", int(k))
	}
}

// ReplicationMethod is how a stream is replicated
type ReplicationMethod string

const (
	ReplicationIncremental ReplicationMethod = protocol.ReplicationIncremental
	ReplicationFullTable   ReplicationMethod = protocol.ReplicationFullTable
)

// StreamDescriptor is the static definition of a stream.
type StreamDescriptor struct {
	Kind StreamKind
	ID   string
	// Resource is the API path the stream reads, relative to the service URI
	Resource          string
	KeyProperties     []string
	ReplicationKey    string
	ReplicationMethod ReplicationMethod
	// ValidParams lists the request parameters a config may override
	ValidParams []string
	// RequiredParams must be present after defaults are applied
	RequiredParams []string
	// WindowStep is the extraction window width; zero means one unwindowed pass
	WindowStep time.Duration
}

// Incremental reports whether the default replication is incremental.
func (d StreamDescriptor) Incremental() bool {
	return d.ReplicationMethod == ReplicationIncremental
}

// Windowed reports whether extraction is split into time windows.
func (d StreamDescriptor) Windowed() bool {
	return d.WindowStep > 0
}

// BookmarkProperties returns the replication key as a list, for SCHEMA messages.
func (d StreamDescriptor) BookmarkProperties() []string {
	if d.ReplicationKey == "" {
		return nil
	}
	return []string{d.ReplicationKey}
}

// ValidateParams rejects unknown parameters and reports missing required ones.
// Required parameters listed in satisfied are filled in elsewhere and pass.
func (d StreamDescriptor) ValidateParams(params map[string]string, satisfied ...string) error {
	valid := make(map[string]bool, len(d.ValidParams))
	for _, p := range d.ValidParams {
		valid[p] = true
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !valid[k] {
			return errors.Newf(errors.ErrorTypeConfig, "/%s endpoint does not support '%s' parameter.", d.ID, k)
		}
	}

	for _, required := range d.RequiredParams {
		if _, ok := params[required]; ok {
			continue
		}
		if contains(satisfied, required) {
			continue
		}
		return errors.Newf(errors.ErrorTypeConfig, "Parameter '%s' required but not supplied for /%s endpoint.", required, d.ID)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SyncPhase tracks where a stream sync is.
type SyncPhase int

const (
	PhaseIdle SyncPhase = iota
	PhaseFetching
	PhaseTransforming
	PhaseEmitting
	PhaseDone
	PhaseFailed
)

func (p SyncPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseTransforming:
		return "transforming"
	case PhaseEmitting:
		return "emitting"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("SyncPhase(%d)", int(p))
	}
}

// SyncRun carries what one stream sync needs from the pipeline.
type SyncRun struct {
	State  *protocol.State
	Writer *protocol.Writer
	// Entry is the stream's catalog entry, used for field selection and replication method
	Entry *protocol.CatalogEntry
	// Now is the wall-clock time that becomes the new bookmark
	Now time.Time
}

// Stream is one syncable stream.
type Stream interface {
	Descriptor() StreamDescriptor
	// Schema returns the stream's schema; dynamic streams may call the API.
	Schema(ctx context.Context) (*schema.Schema, error)
	Sync(ctx context.Context, run *SyncRun) error
}

// Source produces the streams of one system.
type Source interface {
	Name() string
	// Streams returns every stream the source can sync, in sync order.
	Streams(ctx context.Context) ([]Stream, error)
	Close() error
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

// Dependencies are the process-wide collaborators handed to a source.
type Dependencies struct {
	Logger   *zap.Logger
	Reporter reporting.Reporter
	Metrics  *metrics.Collector
	Settings *config.Settings
	Clock    Clock
	// Version is sent in the User-Agent header
	Version string
}

// WithDefaults fills nil collaborators with working defaults.
func (d Dependencies) WithDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = logger.Get()
	}
	if d.Reporter == nil {
		d.Reporter = reporting.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}
	if d.Settings == nil {
		d.Settings = config.DefaultSettings()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return d
}
