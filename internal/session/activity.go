package session

import (
	"github.com/matthewbaird/stationcu/internal/render"
	"github.com/matthewbaird/stationcu/internal/types"
)

var (
	activityIDKeys   = []string{"aid", "activityId", "id"}
	activityTypeKeys = []string{"atype", "activityType", "type"}
)

// ActivityFromMap converts an activity object from an "open" message. The
// payload property is left out of Fields.
func ActivityFromMap(m map[string]any, payloadField string) types.Activity {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		if k == payloadField {
			continue
		}
		fields[k] = v
	}
	return types.Activity{
		ID:     firstValue(m, activityIDKeys),
		Type:   firstValue(m, activityTypeKeys),
		Fields: fields,
	}
}

// mergeActivity fills id and type from the parsed payload when the host
// activity lacks them.
func mergeActivity(host, payload types.Activity) types.Activity {
	if host.ID == "" {
		host.ID = payload.ID
	}
	if host.Type == "" {
		host.Type = payload.Type
	}
	return host
}

func firstValue(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := render.FormatValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}
