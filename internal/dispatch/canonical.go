package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stockmcp/internal/models"
	"stockmcp/internal/normalize"
	"stockmcp/internal/registry"
)

// parameters holding security/fund identifiers, normalized to lower case so
// "SH000300" and "sh000300" share a cache entry.
var symbolParams = map[string]bool{
	"symbol":     true,
	"fund_code":  true,
	"stock_code": true,
}

// canonicalArgs converts validated arguments into the provider's canonical
// string form: defaults applied, dates in ISO-8601, symbol casing
// normalized, stable value formatting. The result is what gets hashed for
// the cache key, so equal requests must canonicalize identically.
func canonicalArgs(desc *registry.Descriptor, args map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(args))

	props, _ := desc.ArgumentSchema["properties"].(map[string]any)
	for name, rawProp := range props {
		prop, _ := rawProp.(map[string]any)
		v, ok := args[name]
		if !ok {
			def, has := prop["default"]
			if !has {
				continue
			}
			v = def
		}

		s, err := canonicalValue(name, v)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}

	return out, nil
}

func canonicalValue(name string, v any) (string, error) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if isDateParam(name) && s != "" {
			d, err := normalize.Date(s)
			if err != nil || d == nil {
				return "", models.NewToolError(models.KindInvalidArgument,
					"argument %q: not a valid calendar date", name)
			}
			return d.(string), nil
		}
		if symbolParams[name] {
			return strings.ToLower(s), nil
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", models.NewToolError(models.KindInvalidArgument,
			"argument %q: unsupported value type", name)
	}
}

func isDateParam(name string) bool {
	return name == "date" || strings.HasSuffix(name, "_date")
}

// cacheKey derives a stable key from the tool name and canonicalized
// arguments: keys sorted, values already normalized, hashed so argument
// content never appears in cache internals or logs.
func cacheKey(tool string, cargs map[string]string) string {
	keys := make([]string, 0, len(cargs))
	for k := range cargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(tool))
	for _, k := range keys {
		fmt.Fprintf(h, "\x1f%s=%s", k, cargs[k])
	}
	return tool + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}
