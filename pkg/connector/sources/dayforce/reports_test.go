package dayforce

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tap-dayforce/pkg/connector/base"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
	"github.com/ajitpratap0/tap-dayforce/pkg/reporting"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

func reportPage(rows ...map[string]interface{}) map[string]interface{} {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"Data":   map[string]interface{}{"Rows": rows},
		"Paging": map[string]string{"Next": ""},
	}
}

func payRow(employee string, amount float64) map[string]interface{} {
	return map[string]interface{}{
		"Employee.XRefCode": employee,
		"EarningCode":       "REG",
		"Amount":            amount,
	}
}

func TestReportKeyedRenamesAndHashes(t *testing.T) {
	row := reportKeyed(map[string]interface{}{"Employee.XRefCode": "E1", "Amount": 10})
	assert.Equal(t, "E1", row["Employee_XRefCode"])
	assert.NotContains(t, row, "Employee.XRefCode")
	assert.Equal(t, schema.HashKey(map[string]interface{}{"Employee_XRefCode": "E1", "Amount": 10}), row[schema.HashKeyField])

	again := reportKeyed(map[string]interface{}{"Amount": 10, "Employee.XRefCode": "E1"})
	assert.Equal(t, row[schema.HashKeyField], again[schema.HashKeyField])
}

func TestPaySummaryDailyWindows(t *testing.T) {
	cfg := testConfig()
	cfg.StartDate = "2024-01-20T00:00:00Z"
	h := newHarness(t, cfg)
	h.api.reply("Reports/DataWarehousePaySummaries", reportPage(payRow("E1", 812.5)))

	out := newRun(nil, nil)
	require.NoError(t, h.stream(t, "pay_summary_report").Sync(context.Background(), out.run))

	reqs := h.api.requestsTo("Reports/DataWarehousePaySummaries")
	require.Len(t, reqs, 2)
	assert.Equal(t, "@EndDate=2024-01-21T00:00:00Z,@StartDate=2024-01-20T00:00:00Z",
		reqs[0].URL.Query().Get(api.ReportParametersParam))
	assert.Equal(t, "@EndDate=2024-01-22T00:00:00Z,@StartDate=2024-01-21T00:00:00Z",
		reqs[1].URL.Query().Get(api.ReportParametersParam))
	assert.Equal(t, "5000", reqs[0].URL.Query().Get("pageSize"))

	records := out.records(t)
	require.Len(t, records, 2)
	rec := records[0]
	assert.Equal(t, "E1", rec["Employee_XRefCode"])
	assert.Equal(t, testNow, parseTime(t, rec[SyncTimestampField]))
	hash, ok := rec[schema.HashKeyField].(string)
	require.True(t, ok)
	assert.Len(t, hash, 32)
	// Identical rows from different days hash alike; SyncTimestampUtc is not part of the key.
	assert.Equal(t, hash, records[1][schema.HashKeyField])

	bookmark, _ := out.state.Bookmark("pay_summary_report", SyncTimestampField)
	assert.Equal(t, "2024-01-22T00:00:00Z", bookmark)
}

func TestPaySummaryFullTableStartsAtStartDate(t *testing.T) {
	cfg := testConfig()
	cfg.StartDate = "2024-01-20T00:00:00Z"
	h := newHarness(t, cfg)
	h.api.reply("Reports/DataWarehousePaySummaries", reportPage(payRow("E1", 812.5)))

	entry := &protocol.CatalogEntry{TapStreamID: "pay_summary_report", Stream: "pay_summary_report"}
	entry.Metadata.Set(nil, protocol.MetaReplicationMethod, protocol.ReplicationFullTable)

	state := protocol.NewState()
	state.SetBookmark("pay_summary_report", SyncTimestampField, "2024-01-21T00:00:00Z")
	out := newRun(state, entry)
	require.NoError(t, h.stream(t, "pay_summary_report").Sync(context.Background(), out.run))

	reqs := h.api.requestsTo("Reports/DataWarehousePaySummaries")
	require.Len(t, reqs, 2)
	assert.Equal(t, "@EndDate=2024-01-21T00:00:00Z,@StartDate=2024-01-20T00:00:00Z",
		reqs[0].URL.Query().Get(api.ReportParametersParam))

	records := out.records(t)
	require.Len(t, records, 2)
	assert.Equal(t, testNow, parseTime(t, records[0][SyncTimestampField]))

	bookmark, _ := state.Bookmark("pay_summary_report", SyncTimestampField)
	assert.Equal(t, "2024-01-21T00:00:00Z", bookmark)
}

func TestPaySummaryRowCeiling(t *testing.T) {
	tests := []struct {
		name        string
		rows        int
		wantRecords int
		wantLevel   reporting.Level
	}{
		{name: "below warning", rows: 2, wantRecords: 2},
		{name: "at warning", rows: 3, wantRecords: 3, wantLevel: reporting.LevelWarning},
		{name: "at limit", rows: 4, wantRecords: 0, wantLevel: reporting.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.StartDate = "2024-01-21T00:00:00Z"
			cfg.PaySummaryReport.RowWarning = 3
			cfg.PaySummaryReport.RowLimit = 4
			h := newHarness(t, cfg)

			rows := make([]map[string]interface{}, tt.rows)
			for i := range rows {
				rows[i] = payRow("E1", float64(i))
			}
			h.api.reply("Reports/DataWarehousePaySummaries", reportPage(rows...))

			out := newRun(nil, nil)
			st := h.stream(t, "pay_summary_report").(*paySummaryStream)
			require.NoError(t, st.Sync(context.Background(), out.run))
			assert.Len(t, out.records(t), tt.wantRecords)

			reports := h.reporter.Reports()
			if tt.wantLevel == "" {
				assert.Empty(t, reports)
				return
			}
			require.Len(t, reports, 1)
			assert.Equal(t, tt.wantLevel, reports[0].Level)
			assert.Equal(t, tt.rows, reports[0].Extras["rows"])
			if tt.wantLevel == reporting.LevelError {
				assert.Equal(t, int64(1), st.Anomalies().Count(base.ReasonRowLimit))
			}
		})
	}
}

func TestReportStreamSchemaFromMetadata(t *testing.T) {
	cfg := testConfig()
	cfg.Reports = []string{"HEADCOUNT"}
	h := newHarness(t, cfg)
	h.api.reply("ReportMetadata/HEADCOUNT", map[string]interface{}{
		"Data": []interface{}{map[string]interface{}{
			"ColumnMetadata": []interface{}{
				map[string]interface{}{"CodeName": "Employee.XRefCode", "DisplayName": "Employee", "DataType": "String"},
				map[string]interface{}{"CodeName": "Headcount", "DisplayName": "Headcount", "DataType": "Integer"},
			},
		}},
	})
	h.api.reply("Reports/HEADCOUNT", reportPage(
		map[string]interface{}{"Employee.XRefCode": "E1", "Headcount": "3"},
	))

	st := h.stream(t, "report_HEADCOUNT")
	sch, err := st.Schema(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Employee_XRefCode", "Headcount", schema.HashKeyField}, sch.PropertyNames())

	out := newRun(nil, nil)
	require.NoError(t, st.Sync(context.Background(), out.run))

	records := out.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "E1", records[0]["Employee_XRefCode"])
	assert.Equal(t, "3", fmt.Sprint(records[0]["Headcount"]))
	assert.NotEmpty(t, records[0][schema.HashKeyField])

	// Metadata is fetched once and full-table reports write no bookmark.
	assert.Len(t, h.api.requestsTo("ReportMetadata/HEADCOUNT"), 1)
	_, ok := out.state.Bookmark("report_HEADCOUNT", SyncTimestampField)
	assert.False(t, ok)
}

func TestReportStreamUsesCatalogSchema(t *testing.T) {
	cfg := testConfig()
	cfg.Reports = []string{"HEADCOUNT"}
	h := newHarness(t, cfg)
	h.api.reply("Reports/HEADCOUNT", reportPage(map[string]interface{}{"Headcount": 3}))

	entry := &protocol.CatalogEntry{TapStreamID: "report_HEADCOUNT", Stream: "report_HEADCOUNT", Schema: mustSchema(t)}

	out := newRun(nil, entry)
	require.NoError(t, h.stream(t, "report_HEADCOUNT").Sync(context.Background(), out.run))
	assert.Len(t, out.records(t), 1)
	assert.Empty(t, h.api.requestsTo("ReportMetadata/HEADCOUNT"))
}

func TestReportStreamMetadataMissing(t *testing.T) {
	cfg := testConfig()
	cfg.Reports = []string{"GONE"}
	h := newHarness(t, cfg)
	h.api.handle("ReportMetadata/GONE", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{"Data": []interface{}{}})
	})

	_, err := h.stream(t, "report_GONE").Schema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GONE")
}
