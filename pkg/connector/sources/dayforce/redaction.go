package dayforce

import (
	"fmt"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

// RedactionRule strips sensitive fields from the items of one collection
// unless the item's pay policy is allowed.
type RedactionRule struct {
	Collection   string
	Fields       []string
	AllowedCodes []string
}

var (
	sensitivePayFields = []string{
		"BaseRate",
		"BaseSalary",
		"PreviousBaseRate",
		"PreviousBaseSalary",
		"ChangeValue",
		"ChangePercent",
	}
	allowedPayPolicies = []string{
		"USA_CA_HNE",
		"USA_CA_HNE_4",
		"USA_CA_HNEWHSE",
		"USA_CA_HNEDRIVER",
	}
)

// DefaultRedactionRules protects pay information in compensation and
// employment status history.
func DefaultRedactionRules() []RedactionRule {
	return []RedactionRule{
		{Collection: "CompensationSummary", Fields: sensitivePayFields, AllowedCodes: allowedPayPolicies},
		{Collection: "EmploymentStatuses", Fields: sensitivePayFields, AllowedCodes: allowedPayPolicies},
	}
}

// Redactor applies redaction rules to employee records.
type Redactor struct {
	rules []compiledRule
}

type compiledRule struct {
	RedactionRule
	allowed map[string]bool
}

// NewRedactor compiles rules.
func NewRedactor(rules []RedactionRule) *Redactor {
	r := &Redactor{}
	for _, rule := range rules {
		allowed := make(map[string]bool, len(rule.AllowedCodes))
		for _, code := range rule.AllowedCodes {
			allowed[code] = true
		}
		r.rules = append(r.rules, compiledRule{RedactionRule: rule, allowed: allowed})
	}
	return r
}

// Apply redacts record in place. A collection that is absent or null is
// skipped; one with an unexpected shape is an error and the record must not
// be emitted.
func (r *Redactor) Apply(record map[string]interface{}) error {
	for _, rule := range r.rules {
		raw, ok := record[rule.Collection]
		if !ok || raw == nil {
			continue
		}
		collection, ok := raw.(map[string]interface{})
		if !ok {
			return redactionError(rule.Collection, "is %T, expected an object", raw)
		}
		rawItems, ok := collection["Items"]
		if !ok || rawItems == nil {
			continue
		}
		items, ok := rawItems.([]interface{})
		if !ok {
			return redactionError(rule.Collection, "Items is %T, expected a list", rawItems)
		}

		for i, rawItem := range items {
			if rawItem == nil {
				continue
			}
			item, ok := rawItem.(map[string]interface{})
			if !ok {
				return redactionError(rule.Collection, "item %d is %T, expected an object", i, rawItem)
			}
			if rule.allowed[payPolicyCode(item)] {
				continue
			}
			for _, field := range rule.Fields {
				delete(item, field)
			}
		}
	}
	return nil
}

// payPolicyCode returns the item's PayPolicy.XRefCode, or "" when missing.
func payPolicyCode(item map[string]interface{}) string {
	policy, ok := item["PayPolicy"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := policy["XRefCode"].(string)
	return code
}

func redactionError(collection, format string, args ...interface{}) error {
	return errors.New(errors.ErrorTypeData, collection+" "+fmt.Sprintf(format, args...)).
		WithDetail("collection", collection)
}
