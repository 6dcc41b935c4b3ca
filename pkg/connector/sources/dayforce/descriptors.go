package dayforce

import (
	"time"

	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// SyncTimestampField is the replication key of incremental streams.
const SyncTimestampField = "SyncTimestampUtc"

// Punch filter parameters.
const (
	paramTransactionStart = "filterTransactionStartTimeUTC"
	paramTransactionEnd   = "filterTransactionEndTimeUTC"
	paramUpdatedStart     = "filterUpdatedStartDate"
	paramUpdatedEnd       = "filterUpdatedEndDate"
)

const (
	punchWindow  = 7 * 24 * time.Hour
	reportWindow = 24 * time.Hour
)

var descriptors = map[core.StreamKind]core.StreamDescriptor{
	core.KindEmployees: {
		Kind:              core.KindEmployees,
		ID:                "employees",
		Resource:          api.ResourceEmployees,
		KeyProperties:     []string{"XRefCode"},
		ReplicationKey:    SyncTimestampField,
		ReplicationMethod: core.ReplicationIncremental,
		ValidParams:       []string{"contextDate", "expand"},
	},
	core.KindEmployeePunches: {
		Kind:              core.KindEmployeePunches,
		ID:                "employee_punches",
		Resource:          api.ResourceEmployeePunches,
		KeyProperties:     []string{"PunchXRefCode"},
		ReplicationKey:    SyncTimestampField,
		ReplicationMethod: core.ReplicationIncremental,
		ValidParams: []string{
			paramTransactionStart,
			paramTransactionEnd,
			"employeeXRefCode",
			"locationXRefCode",
			"positionXRefCode",
			"departmentXRefCode",
			"jobXRefCode",
			"shiftStatus",
			"filterShiftTimeStart",
			"filterShiftTimeEnd",
			"businessDate",
			"pageSize",
		},
		RequiredParams: []string{paramTransactionStart},
		WindowStep:     punchWindow,
	},
	core.KindEmployeeRawPunches: {
		Kind:              core.KindEmployeeRawPunches,
		ID:                "employee_raw_punches",
		Resource:          api.ResourceEmployeeRawPunches,
		KeyProperties:     []string{"RawPunchXRefCode"},
		ReplicationKey:    SyncTimestampField,
		ReplicationMethod: core.ReplicationIncremental,
		ValidParams: []string{
			paramTransactionStart,
			paramTransactionEnd,
			"employeeXRefCode",
			"employeeBadge",
			"punchState",
			"punchTypes",
			"pageSize",
		},
		RequiredParams: []string{paramTransactionStart},
		WindowStep:     punchWindow,
	},
	core.KindPaySummaryReport: {
		Kind:              core.KindPaySummaryReport,
		ID:                "pay_summary_report",
		Resource:          api.ResourceReports,
		KeyProperties:     []string{schema.HashKeyField},
		ReplicationKey:    SyncTimestampField,
		ReplicationMethod: core.ReplicationIncremental,
		ValidParams:       []string{"pageSize"},
		WindowStep:        reportWindow,
	},
}

// Descriptor returns the static descriptor of a stream kind. KindReport has
// no static descriptor; use ReportDescriptor.
func Descriptor(kind core.StreamKind) (core.StreamDescriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// StaticDescriptors returns the static descriptors in sync order.
func StaticDescriptors() []core.StreamDescriptor {
	kinds := []core.StreamKind{
		core.KindEmployees,
		core.KindEmployeePunches,
		core.KindEmployeeRawPunches,
		core.KindPaySummaryReport,
	}
	out := make([]core.StreamDescriptor, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, descriptors[k])
	}
	return out
}

// ReportDescriptor describes the report_<xrefcode> stream of a configured report.
func ReportDescriptor(xRefCode string) core.StreamDescriptor {
	return core.StreamDescriptor{
		Kind:              core.KindReport,
		ID:                "report_" + xRefCode,
		Resource:          api.ResourceReports + "/" + xRefCode,
		KeyProperties:     []string{schema.HashKeyField},
		ReplicationMethod: core.ReplicationFullTable,
		ValidParams:       []string{"pageSize", api.ReportParametersParam},
	}
}
