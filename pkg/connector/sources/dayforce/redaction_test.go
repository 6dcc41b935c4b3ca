package dayforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payItem(policy interface{}) map[string]interface{} {
	item := map[string]interface{}{
		"BaseRate":           42,
		"BaseSalary":         87360,
		"PreviousBaseRate":   40,
		"PreviousBaseSalary": 83200,
		"ChangeValue":        2,
		"ChangePercent":      5,
		"NormalWeeklyHours":  40,
	}
	if policy != nil {
		item["PayPolicy"] = policy
	}
	return item
}

func employeeWith(item map[string]interface{}) map[string]interface{} {
	status := make(map[string]interface{}, len(item))
	for k, v := range item {
		status[k] = v
	}
	return map[string]interface{}{
		"XRefCode":            "E-1",
		"CompensationSummary": map[string]interface{}{"Items": []interface{}{item}},
		"EmploymentStatuses":  map[string]interface{}{"Items": []interface{}{status}},
	}
}

func firstItem(record map[string]interface{}, collection string) map[string]interface{} {
	items := record[collection].(map[string]interface{})["Items"].([]interface{})
	return items[0].(map[string]interface{})
}

func TestRedactorPayPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy interface{}
		kept   bool
	}{
		{"allowed USA_CA_HNE", map[string]interface{}{"XRefCode": "USA_CA_HNE"}, true},
		{"allowed USA_CA_HNE_4", map[string]interface{}{"XRefCode": "USA_CA_HNE_4"}, true},
		{"allowed USA_CA_HNEWHSE", map[string]interface{}{"XRefCode": "USA_CA_HNEWHSE"}, true},
		{"allowed USA_CA_HNEDRIVER", map[string]interface{}{"XRefCode": "USA_CA_HNEDRIVER"}, true},
		{"salaried", map[string]interface{}{"XRefCode": "SALARIED"}, false},
		{"contractor", map[string]interface{}{"XRefCode": "CONTRACTOR"}, false},
		{"null code", map[string]interface{}{"XRefCode": nil}, false},
		{"missing pay policy", nil, false},
	}

	r := NewRedactor(DefaultRedactionRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := employeeWith(payItem(tt.policy))
			require.NoError(t, r.Apply(record))

			for _, collection := range []string{"CompensationSummary", "EmploymentStatuses"} {
				item := firstItem(record, collection)
				assert.Equal(t, 40, item["NormalWeeklyHours"], "non-sensitive fields are never removed")
				for _, field := range sensitivePayFields {
					_, present := item[field]
					assert.Equal(t, tt.kept, present, "%s.%s", collection, field)
				}
			}
		})
	}
}

func TestRedactorConcreteCases(t *testing.T) {
	r := NewRedactor(DefaultRedactionRules())

	kept := map[string]interface{}{"PayPolicy": map[string]interface{}{"XRefCode": "USA_CA_HNE"}, "BaseRate": 42}
	record := map[string]interface{}{"CompensationSummary": map[string]interface{}{"Items": []interface{}{kept}}}
	require.NoError(t, r.Apply(record))
	assert.Equal(t, map[string]interface{}{"PayPolicy": map[string]interface{}{"XRefCode": "USA_CA_HNE"}, "BaseRate": 42}, kept)

	stripped := map[string]interface{}{"PayPolicy": map[string]interface{}{"XRefCode": "SALARIED"}, "BaseRate": 42}
	record = map[string]interface{}{"CompensationSummary": map[string]interface{}{"Items": []interface{}{stripped}}}
	require.NoError(t, r.Apply(record))
	assert.Equal(t, map[string]interface{}{"PayPolicy": map[string]interface{}{"XRefCode": "SALARIED"}}, stripped)
}

func TestRedactorMissingCollections(t *testing.T) {
	r := NewRedactor(DefaultRedactionRules())

	for _, record := range []map[string]interface{}{
		{"XRefCode": "E-1"},
		{"CompensationSummary": nil},
		{"CompensationSummary": map[string]interface{}{}},
		{"CompensationSummary": map[string]interface{}{"Items": nil}},
		{"CompensationSummary": map[string]interface{}{"Items": []interface{}{nil}}},
	} {
		assert.NoError(t, r.Apply(record))
	}
}

func TestRedactorUnexpectedShape(t *testing.T) {
	r := NewRedactor(DefaultRedactionRules())

	for _, record := range []map[string]interface{}{
		{"CompensationSummary": "oops"},
		{"CompensationSummary": map[string]interface{}{"Items": "oops"}},
		{"EmploymentStatuses": map[string]interface{}{"Items": []interface{}{"oops"}}},
	} {
		assert.Error(t, r.Apply(record))
	}
}
