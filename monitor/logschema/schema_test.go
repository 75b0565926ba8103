package logschema

import "testing"

func TestValidate(t *testing.T) {
	err := Validate(EventVWAPUpdate, map[string]interface{}{
		"symbol":       "BTCUSDT",
		"price":        64000.0,
		"vwap":         63950.5,
		"anchoredVwap": 63990.1,
		"bandPosition": "middle",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate(EventVWAPUpdate, map[string]interface{}{
		"symbol": "BTCUSDT",
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	if err := Validate("unknown_event", nil); err != nil {
		t.Fatalf("unknown events are not validated: %v", err)
	}
}

func TestKnownEvents(t *testing.T) {
	names := Known()
	if len(names) == 0 {
		t.Fatalf("expected non-empty schema list")
	}
	found := false
	for _, n := range names {
		if n == EventFeedState {
			found = true
		}
	}
	if !found {
		t.Fatalf("feed_state not found in schemas")
	}
}
