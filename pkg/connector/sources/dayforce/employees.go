package dayforce

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/base"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// employeesStream lists changed employees and fetches each one in full.
type employeesStream struct {
	stream
	redactor *Redactor
}

func (s *employeesStream) Sync(ctx context.Context, run *core.SyncRun) error {
	return s.Run(ctx, func(ctx context.Context) error {
		sch, err := syncSchema(ctx, s, run)
		if err != nil {
			return err
		}
		t := s.transformer(run)
		id := s.Descriptor().ID

		filters := map[string]string{}
		if s.incremental(run) && s.hasBookmark(run) {
			current, err := s.bookmarks(run).Get(id)
			if err != nil {
				return err
			}
			filters[paramUpdatedStart] = config.FormatTimestamp(current)
			filters[paramUpdatedEnd] = config.FormatTimestamp(run.Now)
		}
		syncTimestamp := s.syncTimestamp(run)

		s.SetPhase(core.PhaseFetching)
		detailParams := s.query(nil)
		return s.client.Employees(s.query(filters)).ForEach(ctx, func(page *api.Response) error {
			roster, err := page.Records()
			if err != nil {
				return err
			}
			for _, item := range roster {
				if prepareRecord(item, "", id, s.Anomalies()) == nil {
					continue
				}
				if err := s.syncEmployee(ctx, run, t, sch, item, detailParams, syncTimestamp); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (s *employeesStream) syncEmployee(ctx context.Context, run *core.SyncRun, t *schema.Transformer, sch *schema.Schema,
	item map[string]interface{}, params url.Values, syncTimestamp string) error {
	xRefCode := fmt.Sprint(item["XRefCode"])

	s.SetPhase(core.PhaseFetching)
	detail, err := s.client.EmployeeDetail(ctx, xRefCode, params)
	if err != nil {
		return err
	}
	if len(detail) == 0 {
		s.Anomalies().Warn(base.ReasonEmptyRecord,
			"Dayforce returned an empty record for employee "+xRefCode+". Skipping it..",
			map[string]interface{}{"XRefCode": xRefCode})
		return nil
	}

	s.SetPhase(core.PhaseTransforming)
	if err := s.redactor.Apply(detail); err != nil {
		s.Anomalies().Warn(base.ReasonRedactionFailed,
			"Sensitive information redaction failed for employee "+xRefCode+". Skipping it..",
			map[string]interface{}{"XRefCode": xRefCode, "error": err.Error()})
		return nil
	}

	record := prepareRecord(detail, syncTimestamp, s.Descriptor().ID, s.Anomalies())
	return s.emit(run, t, sch, record)
}
