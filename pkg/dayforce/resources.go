package dayforce

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/ajitpratap0/tap-dayforce/pkg/clients"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// API resources.
const (
	ResourceEmployees          = "Employees"
	ResourceEmployeePunches    = "EmployeePunches"
	ResourceEmployeeRawPunches = "EmployeeRawPunches"
	ResourceReports            = "Reports"
	ResourceReportMetadata     = "ReportMetadata"
)

// ReportParametersParam carries report parameters as a comma separated list of name=value pairs.
const ReportParametersParam = "reportParameters"

func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return clients.WithEndpoint(ctx, endpoint)
}

// Employees pages through the employee roster.
func (c *Client) Employees(params url.Values) *Pager {
	return c.Pages(ResourceEmployees, params)
}

// EmployeeDetail fetches one employee. It returns nil when Dayforce returns no data.
func (c *Client) EmployeeDetail(ctx context.Context, xRefCode string, params url.Values) (map[string]interface{}, error) {
	ctx = withEndpoint(ctx, ResourceEmployees+"/{xRefCode}")
	resp, err := c.Get(ctx, ResourceEmployees+"/"+url.PathEscape(xRefCode), params)
	if err != nil {
		return nil, err
	}
	return resp.Record()
}

// EmployeePunches pages through processed punches.
func (c *Client) EmployeePunches(params url.Values) *Pager {
	return c.Pages(ResourceEmployeePunches, params)
}

// EmployeeRawPunches pages through raw punches.
func (c *Client) EmployeeRawPunches(params url.Values) *Pager {
	return c.Pages(ResourceEmployeeRawPunches, params)
}

// Report pages through the rows of a report.
func (c *Client) Report(xRefCode string, params url.Values) *Pager {
	p := c.Pages(ResourceReports+"/"+url.PathEscape(xRefCode), params)
	p.endpoint = ResourceReports + "/{xRefCode}"
	return p
}

// ReportParameters encodes report parameters for ReportParametersParam, sorted by name.
func ReportParameters(values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+values[name])
	}
	return strings.Join(pairs, ",")
}

type reportData struct {
	Rows []map[string]interface{} `json:"Rows"`
}

// ReportRows decodes the rows of a report page.
func ReportRows(resp *Response) ([]map[string]interface{}, error) {
	if isNull(resp.Data) {
		return nil, nil
	}
	var data reportData
	if err := jsonpool.UnmarshalNumbers(resp.Data, &data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "report Data has no Rows")
	}
	return data.Rows, nil
}

type reportMetadata struct {
	ColumnMetadata []schema.ReportColumn `json:"ColumnMetadata"`
}

// ReportMetadata returns the column metadata of a report.
func (c *Client) ReportMetadata(ctx context.Context, xRefCode string) ([]schema.ReportColumn, error) {
	ctx = withEndpoint(ctx, ResourceReportMetadata+"/{xRefCode}")
	resp, err := c.Get(ctx, ResourceReportMetadata+"/"+url.PathEscape(xRefCode), nil)
	if err != nil {
		return nil, err
	}

	var items []reportMetadata
	if err := jsonpool.Unmarshal(resp.Data, &items); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid report metadata").
			WithDetail("report", xRefCode)
	}
	if len(items) == 0 {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "report %s has no metadata", xRefCode)
	}
	return items[0].ColumnMetadata, nil
}
