// Package dayforce implements the Dayforce source: the employees, punch and
// report streams, and the rules that shape their records.
package dayforce

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/registry"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

// SourceName is the registry name of the Dayforce source.
const SourceName = "dayforce"

func init() {
	ids := make([]string, 0, len(descriptors))
	for _, d := range StaticDescriptors() {
		ids = append(ids, d.ID)
	}
	_ = registry.RegisterSource(registry.SourceInfo{
		Name:        SourceName,
		Description: "Dayforce REST API v1: employees, punches and reports",
		Streams:     ids,
	}, func(cfg *config.TapConfig, deps core.Dependencies) (core.Source, error) {
		return New(context.Background(), cfg, deps)
	})
}

// Source builds the Dayforce streams of one configuration.
type Source struct {
	cfg       *config.TapConfig
	deps      core.Dependencies
	client    *api.Client
	startDate time.Time
	streams   []core.Stream
}

// New validates cfg and creates a source. No request is sent until a stream
// needs one.
func New(ctx context.Context, cfg *config.TapConfig, deps core.Dependencies) (*Source, error) {
	deps = deps.WithDefaults()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := api.NewFromConfig(ctx, cfg, deps.Settings, deps.Metrics, deps.Logger, deps.Version)
	return NewWithClient(cfg, client, deps)
}

// NewWithClient creates a source around an existing API client.
func NewWithClient(cfg *config.TapConfig, client *api.Client, deps core.Dependencies) (*Source, error) {
	deps = deps.WithDefaults()
	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}

	s := &Source{cfg: cfg, deps: deps, client: client, startDate: start}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns SourceName.
func (s *Source) Name() string {
	return SourceName
}

// Streams returns the static streams followed by one stream per configured report.
func (s *Source) Streams(ctx context.Context) ([]core.Stream, error) {
	return s.streams, nil
}

// Close releases the API client.
func (s *Source) Close() error {
	return s.client.Close()
}

func (s *Source) build() error {
	known := make(map[string]core.StreamDescriptor)
	for _, d := range StaticDescriptors() {
		known[d.ID] = d
	}
	for _, xRefCode := range s.cfg.Reports {
		if strings.TrimSpace(xRefCode) == "" {
			return errors.New(errors.ErrorTypeConfig, "reports contains an empty xrefcode")
		}
		d := ReportDescriptor(xRefCode)
		known[d.ID] = d
	}

	configured := make([]string, 0, len(s.cfg.Streams))
	for id := range s.cfg.Streams {
		configured = append(configured, id)
	}
	sort.Strings(configured)
	for _, id := range configured {
		if _, ok := known[id]; !ok {
			return errors.Newf(errors.ErrorTypeConfig, "streams configures unknown stream '%s'", id)
		}
	}

	for _, d := range StaticDescriptors() {
		st, err := s.newStream(d)
		if err != nil {
			return err
		}
		s.streams = append(s.streams, st)
	}
	for _, xRefCode := range s.cfg.Reports {
		st, err := s.newStream(ReportDescriptor(xRefCode))
		if err != nil {
			return err
		}
		s.streams = append(s.streams, st)
	}

	s.deps.Logger.Debug("dayforce streams built", zap.Int("streams", len(s.streams)))
	return nil
}

// newStream validates the stream's configured parameters and builds it.
// Required parameters are derived from state or start_date when not configured.
func (s *Source) newStream(d core.StreamDescriptor) (core.Stream, error) {
	params := s.cfg.StreamParams(d.ID)
	var derived []string
	if !s.startDate.IsZero() {
		derived = d.RequiredParams
	}
	if err := d.ValidateParams(params, derived...); err != nil {
		return nil, err
	}

	base := newStream(d, s.client, params, s.startDate, s.deps)
	switch d.Kind {
	case core.KindEmployees:
		return &employeesStream{stream: base, redactor: NewRedactor(DefaultRedactionRules())}, nil
	case core.KindEmployeePunches:
		return &punchesStream{stream: base, pages: s.client.EmployeePunches}, nil
	case core.KindEmployeeRawPunches:
		return &punchesStream{stream: base, pages: s.client.EmployeeRawPunches}, nil
	case core.KindPaySummaryReport:
		return &paySummaryStream{stream: base, report: s.cfg.PaySummaryReport}, nil
	case core.KindReport:
		return &reportStream{stream: base, xRefCode: strings.TrimPrefix(d.ID, "report_")}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "no stream for kind %s", d.Kind)
	}
}
