package dayforce

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/base"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/reporting"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// reportKeyed renames report row keys to property names and adds the hash key.
// The hash is taken before any other enrichment so it only depends on the row.
func reportKeyed(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row)+1)
	for k, v := range row {
		out[schema.ReportFieldName(k)] = v
	}
	out[schema.HashKeyField] = schema.HashKey(out)
	return out
}

// paySummaryStream reads the pay summary report one day at a time.
type paySummaryStream struct {
	stream
	report config.PaySummaryReportConfig
}

func (s *paySummaryStream) Sync(ctx context.Context, run *core.SyncRun) error {
	return s.Run(ctx, func(ctx context.Context) error {
		sch, err := syncSchema(ctx, s, run)
		if err != nil {
			return err
		}
		t := s.transformer(run)

		start := s.startDate
		if s.incremental(run) {
			if start, err = s.bookmarks(run).Get(s.Descriptor().ID); err != nil {
				return err
			}
		}
		syncTimestamp := s.syncTimestamp(run)

		return base.ForEachWindow(ctx, start, run.Now, s.Descriptor().WindowStep, func(w base.Window) error {
			return s.Tracer().TraceWindow(ctx, w.Start, w.End, func(ctx context.Context) error {
				rows, err := s.fetchWindow(ctx, w)
				if err != nil {
					return err
				}
				if !s.checkRowCount(w, len(rows)) {
					return nil
				}
				for _, row := range rows {
					record := prepareRecord(row, "", s.Descriptor().ID, s.Anomalies())
					if record == nil {
						continue
					}
					record = reportKeyed(record)
					record[SyncTimestampField] = syncTimestamp
					if err := s.emit(run, t, sch, record); err != nil {
						return err
					}
				}
				return nil
			})
		})
	})
}

// fetchWindow collects every row of one window so the row ceiling can be
// checked before anything is emitted.
func (s *paySummaryStream) fetchWindow(ctx context.Context, w base.Window) ([]map[string]interface{}, error) {
	s.SetPhase(core.PhaseFetching)
	params := s.query(map[string]string{
		"pageSize": s.pageSize(),
		api.ReportParametersParam: api.ReportParameters(map[string]string{
			s.report.StartParameter: config.FormatTimestamp(w.Start),
			s.report.EndParameter:   config.FormatTimestamp(w.End),
		}),
	})

	var rows []map[string]interface{}
	err := s.client.Report(s.report.XRefCode, params).ForEach(ctx, func(page *api.Response) error {
		pageRows, err := api.ReportRows(page)
		if err != nil {
			return err
		}
		rows = append(rows, pageRows...)
		return nil
	})
	return rows, err
}

func (s *paySummaryStream) pageSize() string {
	if v, ok := s.params["pageSize"]; ok && v != "" {
		return v
	}
	return strconv.Itoa(s.report.PageSize)
}

// checkRowCount warns as a window approaches the server's row ceiling and
// drops windows that reach it. It reports whether rows should be emitted.
func (s *paySummaryStream) checkRowCount(w base.Window, n int) bool {
	extras := map[string]interface{}{
		"report":       s.report.XRefCode,
		"window_start": config.FormatTimestamp(w.Start),
		"window_end":   config.FormatTimestamp(w.End),
		"rows":         n,
	}

	switch {
	case n >= s.report.RowLimit:
		s.Anomalies().Error(base.ReasonRowLimit,
			fmt.Sprintf("Pay summary report returned %d rows, reaching the limit of %d rows per request. "+
				"Rows were skipped; shorten the extraction window.", n, s.report.RowLimit),
			nil, extras)
		return false
	case n >= s.report.RowWarning:
		msg := fmt.Sprintf("Pay summary report returned %d rows, approaching the limit of %d rows per request.",
			n, s.report.RowLimit)
		s.Logger().Warn(msg, zap.Any("details", extras))
		s.Deps().Reporter.Message(reporting.LevelWarning, msg, extras)
	}
	return true
}

// reportStream replicates a configured report in full on every run.
type reportStream struct {
	stream
	xRefCode string

	schemaOnce sync.Once
	schema     *schema.Schema
	schemaErr  error
}

// Schema is generated from the report's column metadata on first use.
func (s *reportStream) Schema(ctx context.Context) (*schema.Schema, error) {
	s.schemaOnce.Do(func() {
		columns, err := s.client.ReportMetadata(ctx, s.xRefCode)
		if err != nil {
			s.schemaErr = err
			return
		}
		s.schema, s.schemaErr = schema.FromReportColumns(columns)
	})
	return s.schema, s.schemaErr
}

func (s *reportStream) Sync(ctx context.Context, run *core.SyncRun) error {
	return s.Run(ctx, func(ctx context.Context) error {
		sch, err := syncSchema(ctx, s, run)
		if err != nil {
			return err
		}
		t := s.transformer(run)

		s.SetPhase(core.PhaseFetching)
		return s.client.Report(s.xRefCode, s.query(nil)).ForEach(ctx, func(page *api.Response) error {
			rows, err := api.ReportRows(page)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if prepareRecord(row, "", s.Descriptor().ID, s.Anomalies()) == nil {
					continue
				}
				if err := s.emit(run, t, sch, reportKeyed(row)); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
