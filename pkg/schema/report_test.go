package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

func TestFromReportColumns(t *testing.T) {
	s, err := FromReportColumns([]ReportColumn{
		{CodeName: "Employee.XRefCode", DisplayName: "Employee Number", DataType: "String"},
		{CodeName: "PayRun.PayDate", DisplayName: "Pay Date", DataType: "Date"},
		{CodeName: "EarningAmount", DisplayName: "Amount", DataType: "Decimal"},
		{CodeName: "Hours", DisplayName: "Hours", DataType: "Integer"},
		{CodeName: "ShiftStart", DisplayName: "Shift Start", DataType: "Time"},
	})
	require.NoError(t, err)

	assert.False(t, s.AllowsAdditional())
	assert.Equal(t, []string{"EarningAmount", "Employee_XRefCode", "Hours", "PayRun_PayDate", "ShiftStart", HashKeyField}, s.PropertyNames())
	assert.Equal(t, TypeList{TypeNull, TypeString}, s.Properties["Employee_XRefCode"].Type)
	assert.True(t, s.Properties["PayRun_PayDate"].IsDateTime())
	assert.Equal(t, TypeList{TypeNull, TypeNumber}, s.Properties["EarningAmount"].Type)
	assert.Equal(t, TypeList{TypeNull, TypeInteger}, s.Properties["Hours"].Type)
	assert.False(t, s.Properties["ShiftStart"].IsDateTime())
}

func TestFromReportColumnsUnknownType(t *testing.T) {
	_, err := FromReportColumns([]ReportColumn{
		{CodeName: "Photo", DisplayName: "Photo", DataType: "Binary"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "Photo has data type Binary")
}
