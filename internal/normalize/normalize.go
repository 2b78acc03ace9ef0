// Package normalize converts raw upstream payloads into the canonical result
// shape declared by a tool's field schema. The upstream provider is
// inconsistent across operations: Chinese column labels, "N/A"-style
// placeholder strings, percent-formatted and comma-grouped numbers, and at
// least three date encodings. All shape coercion lives here so every tool's
// output is structurally uniform to the host.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockmcp/internal/models"
)

// placeholder values the provider uses for "no data". All of them collapse
// to an absent field, never to zero.
var sentinels = map[string]bool{
	"":     true,
	"-":    true,
	"--":   true,
	"---":  true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"None": true,
}

// date layouts observed across upstream operations, most specific first.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// ISODate is the single calendar representation every date field is
// normalized to.
const ISODate = "2006-01-02"

// Rows maps raw upstream rows onto the canonical field schema. Fields that
// cannot be parsed are omitted from the row and reported once per field in
// the returned warnings. A row missing a required field fails the whole
// normalization with a MalformedUpstreamResponse, since silently returning
// malshaped data to the host is worse than a visible failure.
func Rows(fields []models.FieldSpec, raw []map[string]any) ([]map[string]any, []string, error) {
	rows := make([]map[string]any, 0, len(raw))
	flagged := make(map[string]bool)
	var warnings []string

	for i, src := range raw {
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			v, ok := lookup(src, f)
			if !ok {
				if f.Required {
					return nil, nil, models.NewToolError(models.KindMalformedUpstream,
						"required field %q missing from upstream row %d", f.Name, i)
				}
				continue
			}

			cv, err := Value(f.Type, v)
			if err != nil {
				if f.Required {
					return nil, nil, models.NewToolError(models.KindMalformedUpstream,
						"required field %q unparseable in upstream row %d", f.Name, i)
				}
				if !flagged[f.Name] {
					flagged[f.Name] = true
					warnings = append(warnings, fmt.Sprintf("field %q: %v", f.Name, err))
				}
				continue
			}
			if cv == nil {
				// Sentinel: absent, not zero.
				if f.Required {
					return nil, nil, models.NewToolError(models.KindMalformedUpstream,
						"required field %q empty in upstream row %d", f.Name, i)
				}
				continue
			}
			row[f.Name] = cv
		}
		rows = append(rows, row)
	}

	return rows, warnings, nil
}

// lookup finds the field's value in a raw row, trying the upstream column
// label first and the canonical name second (some provider endpoints already
// return anglicized columns).
func lookup(src map[string]any, f models.FieldSpec) (any, bool) {
	if f.Upstream != "" {
		if v, ok := src[f.Upstream]; ok {
			return v, true
		}
	}
	v, ok := src[f.Name]
	return v, ok
}

// Value normalizes a single raw value to the canonical representation for
// the given type. Returns (nil, nil) when the value is an upstream
// placeholder and should be treated as absent.
func Value(t models.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && sentinels[strings.TrimSpace(s)] {
		return nil, nil
	}

	switch t {
	case models.FieldNumber:
		return Number(v)
	case models.FieldInteger:
		n, err := Number(v)
		if err != nil || n == nil {
			return n, err
		}
		return int64(n.(float64)), nil
	case models.FieldDate:
		s, err := asString(v)
		if err != nil {
			return nil, err
		}
		return Date(s)
	case models.FieldString:
		s, err := asString(v)
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(s), nil
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

// Number parses a numeric value permissively: native JSON numbers,
// json.Number, and strings with thousands separators, percent signs, or
// surrounding whitespace all yield a plain float64. A percent-formatted
// value keeps its face value ("12.5%" -> 12.5). Values that cannot be
// parsed return an error so the caller can mark the field absent.
func Number(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("unparseable number %q", n.String())
		}
		return f, nil
	case string:
		s := strings.TrimSpace(n)
		if sentinels[s] {
			return nil, nil
		}
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable number %q", n)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unparseable number of type %T", v)
	}
}

// Date normalizes any of the upstream date encodings to ISO-8601
// (yyyy-MM-dd). Timestamps are truncated to their calendar day.
func Date(s string) (any, error) {
	s = strings.TrimSpace(s)
	if sentinels[s] {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), nil
		}
	}
	return nil, fmt.Errorf("unparseable date %q", s)
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case float64:
		// Compact numeric dates arrive as JSON numbers from some endpoints.
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}
