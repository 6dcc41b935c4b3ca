package dayforce

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/base"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// stream holds what every Dayforce stream shares.
type stream struct {
	*base.BaseStream
	client *api.Client
	// params are the configured request parameter overrides
	params    map[string]string
	startDate time.Time
}

func newStream(descriptor core.StreamDescriptor, client *api.Client, params map[string]string, startDate time.Time, deps core.Dependencies) stream {
	return stream{
		BaseStream: base.NewBaseStream(descriptor, deps),
		client:     client,
		params:     params,
		startDate:  startDate,
	}
}

// Schema returns the bundled schema.
func (s *stream) Schema(ctx context.Context) (*schema.Schema, error) {
	return LoadSchema(s.Descriptor().ID)
}

// syncSchema prefers the schema carried by the catalog entry.
func syncSchema(ctx context.Context, st core.Stream, run *core.SyncRun) (*schema.Schema, error) {
	if run.Entry != nil && run.Entry.Schema != nil {
		return run.Entry.Schema, nil
	}
	return st.Schema(ctx)
}

func (s *stream) transformer(run *core.SyncRun) *schema.Transformer {
	t := &schema.Transformer{}
	if run.Entry != nil {
		t.Selected = run.Entry.FieldSelected
	}
	return t
}

// replicationMethod returns the catalog's choice, defaulting to the descriptor.
func (s *stream) replicationMethod(run *core.SyncRun) core.ReplicationMethod {
	def := string(s.Descriptor().ReplicationMethod)
	if run.Entry == nil {
		return core.ReplicationMethod(def)
	}
	return core.ReplicationMethod(run.Entry.ReplicationMethod(def))
}

func (s *stream) incremental(run *core.SyncRun) bool {
	return s.replicationMethod(run) == core.ReplicationIncremental
}

// syncTimestamp is the run's timestamp. Incremental syncs also advance the
// bookmark to it; full-table syncs leave state alone.
func (s *stream) syncTimestamp(run *core.SyncRun) string {
	if s.incremental(run) {
		return s.advanceBookmark(run)
	}
	return config.FormatTimestamp(run.Now)
}

func (s *stream) bookmarks(run *core.SyncRun) *base.Bookmarks {
	return base.NewBookmarks(run.State, s.startDate, s.Descriptor().ReplicationKey)
}

// hasBookmark reports whether state already holds a bookmark for the stream.
func (s *stream) hasBookmark(run *core.SyncRun) bool {
	v, ok := run.State.Bookmark(s.Descriptor().ID, s.Descriptor().ReplicationKey)
	return ok && v != nil
}

// advanceBookmark writes the run's bookmark before anything is fetched. A run
// that later fails still resumes from here.
func (s *stream) advanceBookmark(run *core.SyncRun) string {
	s.bookmarks(run).Set(s.Descriptor().ID, run.Now)
	value := config.FormatTimestamp(run.Now)
	s.Logger().Info("bookmark advanced before fetch", zap.String("bookmark", value))
	return value
}

// configuredStart returns a configured time parameter, or the start date.
func (s *stream) configuredStart(param string) (time.Time, error) {
	raw, ok := s.params[param]
	if !ok || raw == "" {
		return s.startDate, nil
	}
	t, err := config.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid "+param).
			WithDetail("stream", s.Descriptor().ID)
	}
	return t, nil
}

// query merges the configured parameters with overrides.
func (s *stream) query(overrides map[string]string) url.Values {
	q := url.Values{}
	for k, v := range s.params {
		q.Set(k, v)
	}
	for k, v := range overrides {
		q.Set(k, v)
	}
	return q
}

// emit coerces record to sch and writes it. Coercion failures end the sync.
func (s *stream) emit(run *core.SyncRun, t *schema.Transformer, sch *schema.Schema, record map[string]interface{}) error {
	s.SetPhase(core.PhaseTransforming)
	out, err := t.Transform(record, sch)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to transform "+s.Descriptor().ID+" record")
	}
	return s.Emit(run.Writer, out)
}
