package harness

import (
	"fmt"
	"strconv"

	"github.com/BoonLang/boon-sub001/internal/payload"
)

// toPayload maps a decoded YAML value onto a payload value. A mapping
// with a string "tag" field carries it as a tag payload so scenarios
// can drive pattern muxes; a bare {tag: press} mapping collapses to the
// tag itself.
func toPayload(v any) (payload.Value, error) {
	switch val := v.(type) {
	case nil:
		return payload.Absent{}, nil
	case bool:
		return payload.Bool(val), nil
	case int:
		return payload.Int(val), nil
	case int64:
		return payload.Int(val), nil
	case string:
		return payload.Text(val), nil

	case map[string]any:
		if tag, ok := val["tag"].(string); ok && len(val) == 1 {
			return payload.Tag(tag), nil
		}
		obj := make(payload.Object, len(val))
		for k, fv := range val {
			if k == "tag" {
				if s, ok := fv.(string); ok {
					obj["tag"] = payload.Tag(s)
					continue
				}
			}
			pv, err := toPayload(fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj[k] = pv
		}
		return obj, nil

	case []any:
		list := make(payload.List, 0, len(val))
		for i, ev := range val {
			pv, err := toPayload(ev)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list = append(list, payload.Element{Key: strconv.Itoa(i), Value: pv})
		}
		return list, nil

	case float64:
		return nil, fmt.Errorf("floating point payloads are not supported (got %v)", val)

	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}
