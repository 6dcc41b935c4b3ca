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
)

// punchesStream reads processed or raw punches in weekly transaction-time windows.
type punchesStream struct {
	stream
	pages func(params url.Values) *api.Pager
}

func (s *punchesStream) Sync(ctx context.Context, run *core.SyncRun) error {
	return s.Run(ctx, func(ctx context.Context) error {
		sch, err := syncSchema(ctx, s, run)
		if err != nil {
			return err
		}
		t := s.transformer(run)
		id := s.Descriptor().ID

		start, err := s.windowStart(run)
		if err != nil {
			return err
		}
		end := run.Now

		syncTimestamp := s.syncTimestamp(run)

		s.Logger().Info("extracting punches",
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Duration("window", s.Descriptor().WindowStep))

		return base.ForEachWindow(ctx, start, end, s.Descriptor().WindowStep, func(w base.Window) error {
			return s.Tracer().TraceWindow(ctx, w.Start, w.End, func(ctx context.Context) error {
				s.SetPhase(core.PhaseFetching)
				params := s.query(map[string]string{
					paramTransactionStart: config.FormatTimestamp(w.Start),
					paramTransactionEnd:   config.FormatTimestamp(w.End),
				})
				return s.pages(params).ForEach(ctx, func(page *api.Response) error {
					punches, err := page.Records()
					if err != nil {
						return err
					}
					for _, punch := range punches {
						record := prepareRecord(punch, syncTimestamp, id, s.Anomalies())
						if record == nil {
							continue
						}
						if err := s.emit(run, t, sch, record); err != nil {
							return err
						}
					}
					return nil
				})
			})
		})
	})
}

// windowStart is the stored bookmark for incremental syncs. Without one, and
// for full-table syncs, it is the configured transaction start or start_date.
func (s *punchesStream) windowStart(run *core.SyncRun) (time.Time, error) {
	if s.incremental(run) && s.hasBookmark(run) {
		return s.bookmarks(run).Get(s.Descriptor().ID)
	}
	return s.configuredStart(paramTransactionStart)
}
