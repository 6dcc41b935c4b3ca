package schema

import (
	"strings"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

// ReportColumn describes one column of a Dayforce report.
type ReportColumn struct {
	CodeName    string `json:"CodeName"`
	DisplayName string `json:"DisplayName"`
	DataType    string `json:"DataType"`
}

// reportTypes maps report column data types to property schemas.
var reportTypes = map[string]func() *Schema{
	"String":   func() *Schema { return NullableOf(TypeString) },
	"Integer":  func() *Schema { return NullableOf(TypeInteger) },
	"Decimal":  func() *Schema { return NullableOf(TypeNumber) },
	"Boolean":  func() *Schema { return NullableOf(TypeBoolean) },
	"Time":     func() *Schema { return NullableOf(TypeString) },
	"DateTime": func() *Schema { return &Schema{Type: TypeList{TypeNull, TypeString}, Format: FormatDateTime} },
	"Date":     func() *Schema { return &Schema{Type: TypeList{TypeNull, TypeString}, Format: FormatDateTime} },
}

// ReportFieldName converts a column code name into a property name.
func ReportFieldName(codeName string) string {
	return strings.ReplaceAll(codeName, ".", "_")
}

// FromReportColumns builds a hash-keyed object schema for a report.
// An unknown column data type is an error.
func FromReportColumns(columns []ReportColumn) (*Schema, error) {
	s := &Schema{
		Type:                 TypeList{TypeNull, TypeObject},
		AdditionalProperties: Bool(false),
		Properties: map[string]*Schema{
			HashKeyField: NullableOf(TypeString),
		},
	}

	for _, column := range columns {
		build, ok := reportTypes[column.DataType]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData,
				"column %s has data type %s which is not implemented", column.DisplayName, column.DataType).
				WithDetail("code_name", column.CodeName)
		}
		s.Properties[ReportFieldName(column.CodeName)] = build()
	}
	return s, nil
}
