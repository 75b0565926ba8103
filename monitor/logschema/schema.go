package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// 服务输出的结构化事件名。
const (
	EventDeltaUpdate   = "delta_update"
	EventVWAPUpdate    = "vwap_update"
	EventDerivatives   = "derivatives_update"
	EventStatsSnapshot = "stats_snapshot"
	EventFeedState     = "feed_state"
	EventTickDropped   = "tick_dropped"
	EventConfigReload  = "config_reload"
	EventError         = "error_event"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	EventDeltaUpdate: {
		Event:    EventDeltaUpdate,
		Required: []string{"symbol", "price", "delta", "cumulativeDelta", "imbalanceRatio"},
	},
	EventVWAPUpdate: {
		Event:    EventVWAPUpdate,
		Required: []string{"symbol", "price", "vwap", "anchoredVwap", "bandPosition"},
	},
	EventDerivatives: {
		Event:    EventDerivatives,
		Required: []string{"symbol", "venue", "kind"},
	},
	EventStatsSnapshot: {
		Event:    EventStatsSnapshot,
		Required: []string{"symbol", "totalDelta", "momentum", "strength"},
	},
	EventFeedState: {
		Event:    EventFeedState,
		Required: []string{"source", "state"},
	},
	EventTickDropped: {
		Event:    EventTickDropped,
		Required: []string{"symbol", "reason"},
	},
	EventConfigReload: {
		Event:    EventConfigReload,
		Required: []string{"path"},
	},
	EventError: {
		Event:    EventError,
		Required: []string{"error"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 检查日志字段是否包含 schema 中要求的 key。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}
