// Package schema models the JSON schemas attached to tap streams and
// coerces raw API records to them.
package schema

import (
	"sort"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
)

// JSON schema type names
const (
	TypeNull    = "null"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"

	FormatDateTime = "date-time"
)

// Inclusion values
const (
	InclusionAutomatic   = "automatic"
	InclusionAvailable   = "available"
	InclusionUnsupported = "unsupported"
)

// TypeList is a JSON schema "type" that may be written as a single string or a list.
type TypeList []string

// UnmarshalJSON accepts "string" and ["null", "string"] forms.
func (t *TypeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := jsonpool.Unmarshal(data, &single); err == nil {
		*t = TypeList{single}
		return nil
	}
	var list []string
	if err := jsonpool.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

// Has reports whether name is one of the types.
func (t TypeList) Has(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

// Schema is the subset of JSON schema used by stream definitions.
type Schema struct {
	Type                 TypeList           `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
	Inclusion            string             `json:"inclusion,omitempty"`
}

// Parse decodes a schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := jsonpool.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid JSON schema")
	}
	return &s, nil
}

// Nullable reports whether null is an accepted value.
func (s *Schema) Nullable() bool {
	return s.Type.Has(TypeNull)
}

// IsDateTime reports whether the schema describes a date-time string.
func (s *Schema) IsDateTime() bool {
	return s.Format == FormatDateTime && s.Type.Has(TypeString)
}

// AllowsAdditional reports whether properties absent from the schema are kept.
func (s *Schema) AllowsAdditional() bool {
	return s.AdditionalProperties != nil && *s.AdditionalProperties
}

// PropertyNames returns property names in sorted order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Type = append(TypeList(nil), s.Type...)
	if s.AdditionalProperties != nil {
		v := *s.AdditionalProperties
		c.AdditionalProperties = &v
	}
	if s.Properties != nil {
		c.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v.Clone()
		}
	}
	c.Items = s.Items.Clone()
	return &c
}

// NullableOf builds a schema accepting null or the given type.
func NullableOf(typeName string) *Schema {
	return &Schema{Type: TypeList{TypeNull, typeName}}
}

// Bool returns a pointer to b, for AdditionalProperties.
func Bool(b bool) *bool { return &b }
