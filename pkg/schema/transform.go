package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
)

// DateTimeLayout is the layout of coerced date-time values.
const DateTimeLayout = "2006-01-02T15:04:05.000000Z"

// dateTimeLayouts are tried in order when parsing date-time strings.
// Values without a zone are taken as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Transformer coerces raw records to a stream schema.
//
// A zero Transformer keeps every top-level property the schema declares.
type Transformer struct {
	// Selected reports whether a top-level property was selected in the catalog.
	// Nil selects everything.
	Selected func(field string) bool
}

type coercionError struct {
	path string
	msg  string
}

// Transform returns a coerced copy of raw. Properties that the schema does not
// declare are dropped unless additionalProperties is true. Every coercion
// failure is collected; any failure makes the whole record an ErrorTypeData error.
func (t *Transformer) Transform(raw map[string]interface{}, s *Schema) (map[string]interface{}, error) {
	var failures []coercionError
	var removed []string

	out := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		prop, declared := s.Properties[key]
		if !declared {
			if s.AllowsAdditional() {
				out[key] = value
			} else {
				removed = append(removed, key)
			}
			continue
		}
		if !t.selected(key, prop) {
			removed = append(removed, key)
			continue
		}
		coerced, ok := coerce(value, prop, key, &failures)
		if ok {
			out[key] = coerced
		}
	}

	if len(removed) > 0 {
		sort.Strings(removed)
		logger.Debug("removed properties not in schema or not selected", zap.Strings("paths", removed))
	}

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].path < failures[j].path })
		msgs := make([]string, len(failures))
		paths := make([]string, len(failures))
		for i, f := range failures {
			msgs[i] = f.path + ": " + f.msg
			paths[i] = f.path
		}
		return nil, errors.New(errors.ErrorTypeData, "record does not conform to schema: "+strings.Join(msgs, "; ")).
			WithDetail("paths", paths)
	}
	return out, nil
}

func (t *Transformer) selected(field string, prop *Schema) bool {
	if prop.Inclusion == InclusionAutomatic {
		return true
	}
	if prop.Inclusion == InclusionUnsupported {
		return false
	}
	if t.Selected == nil {
		return true
	}
	return t.Selected(field)
}

// coerce converts value to the first type in s that accepts it.
func coerce(value interface{}, s *Schema, path string, failures *[]coercionError) (interface{}, bool) {
	if value == nil {
		if s.Nullable() || len(s.Type) == 0 {
			return nil, true
		}
		*failures = append(*failures, coercionError{path, "null is not allowed"})
		return nil, false
	}
	if len(s.Type) == 0 {
		return value, true
	}

	var lastErr error
	for _, typeName := range s.Type {
		var (
			out interface{}
			err error
		)
		switch typeName {
		case TypeNull:
			continue
		case TypeString:
			if s.Format == FormatDateTime {
				out, err = toDateTime(value)
			} else {
				out, err = toString(value)
			}
		case TypeInteger:
			out, err = toInteger(value)
		case TypeNumber:
			out, err = toNumber(value)
		case TypeBoolean:
			out, err = toBoolean(value)
		case TypeObject:
			return coerceObject(value, s, path, failures)
		case TypeArray:
			return coerceArray(value, s, path, failures)
		default:
			err = fmt.Errorf("unsupported schema type %q", typeName)
		}
		if err == nil {
			return out, true
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("expected null, got %T", value)
	}
	*failures = append(*failures, coercionError{path, lastErr.Error()})
	return nil, false
}

func coerceObject(value interface{}, s *Schema, path string, failures *[]coercionError) (interface{}, bool) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		*failures = append(*failures, coercionError{path, fmt.Sprintf("expected object, got %T", value)})
		return nil, false
	}
	if s.Properties == nil {
		return obj, true
	}

	out := make(map[string]interface{}, len(obj))
	valid := true
	for key, v := range obj {
		prop, declared := s.Properties[key]
		if !declared {
			if s.AllowsAdditional() {
				out[key] = v
			}
			continue
		}
		coerced, ok := coerce(v, prop, path+"."+key, failures)
		if !ok {
			valid = false
			continue
		}
		out[key] = coerced
	}
	return out, valid
}

func coerceArray(value interface{}, s *Schema, path string, failures *[]coercionError) (interface{}, bool) {
	items, ok := value.([]interface{})
	if !ok {
		*failures = append(*failures, coercionError{path, fmt.Sprintf("expected array, got %T", value)})
		return nil, false
	}
	if s.Items == nil {
		return items, true
	}

	out := make([]interface{}, 0, len(items))
	valid := true
	for i, item := range items {
		coerced, ok := coerce(item, s.Items, path+"["+strconv.Itoa(i)+"]", failures)
		if !ok {
			valid = false
			continue
		}
		out = append(out, coerced)
	}
	return out, valid
}

func toString(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case jsonpool.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", value)
	}
}

func toDateTime(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(DateTimeLayout), nil
	case string:
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC().Format(DateTimeLayout), nil
			}
		}
		return nil, fmt.Errorf("unable to parse date-time %q", v)
	default:
		return nil, fmt.Errorf("expected date-time string, got %T", value)
	}
}

func toInteger(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case jsonpool.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil || !integral(f) {
			return nil, fmt.Errorf("expected integer, got %s", v)
		}
		return int64(f), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if !integral(v) {
			return nil, fmt.Errorf("expected integer, got %v", v)
		}
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", v)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", value)
	}
}

// integral reports whether f is a whole number that fits in an int64.
// 2^63 itself is representable as a float64 but not as an int64.
func integral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

// toNumber keeps decimal literals as Number so monetary values are emitted
// without float rounding.
func toNumber(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case jsonpool.Number:
		if _, err := v.Float64(); err != nil {
			return nil, fmt.Errorf("expected number, got %s", v)
		}
		return v, nil
	case float64, int, int64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("expected number, got %q", v)
		}
		return jsonpool.Number(s), nil
	default:
		return nil, fmt.Errorf("expected number, got %T", value)
	}
}

func toBoolean(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", v)
		}
		return b, nil
	case jsonpool.Number:
		switch v.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, fmt.Errorf("expected boolean, got %s", v)
	default:
		return nil, fmt.Errorf("expected boolean, got %T", value)
	}
}
