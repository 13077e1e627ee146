package hub

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nakayama-software/ciren-sub000/internal/wire"
)

func TestSplitSnapshot_SinglePartWhenSmall(t *testing.T) {
	snap := wire.Snapshot{SensorControllerID: 1, ControllerStatus: wire.StatusOnline, TS: 100}
	snap.SetPort(1, "ID=t;VAL=1")

	parts, err := splitSnapshot(snap, 250)
	if err != nil {
		t.Fatalf("splitSnapshot: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("got %d parts; want 1", len(parts))
	}
	var obj map[string]any
	if err := json.Unmarshal(parts[0], &obj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := obj["seq"]; ok {
		t.Error("single-part send carries seq")
	}
}

func TestSplitSnapshot_SplitsLargeSnapshots(t *testing.T) {
	snap := wire.Snapshot{SensorControllerID: 1, ControllerStatus: wire.StatusOnline, PortsConnected: 8, TS: 100}
	for i := 1; i <= 8; i++ {
		snap.SetPort(i, "ID=ultrasonic;VAL="+strings.Repeat("9", 40))
	}

	const maxPayload = 250
	parts, err := splitSnapshot(snap, maxPayload)
	if err != nil {
		t.Fatalf("splitSnapshot: %v", err)
	}
	if len(parts) < 2 {
		t.Fatalf("got %d parts; want a multi-part send", len(parts))
	}

	seen := make(map[string]bool)
	for i, raw := range parts {
		if len(raw) > maxPayload {
			t.Errorf("part %d is %d bytes; exceeds %d", i, len(raw), maxPayload)
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			t.Fatalf("decode part %d: %v", i, err)
		}
		if obj["seq"] != float64(i+1) {
			t.Errorf("part %d seq = %v; want %d", i, obj["seq"], i+1)
		}
		if obj["tot"] != float64(len(parts)) {
			t.Errorf("part %d tot = %v; want %d", i, obj["tot"], len(parts))
		}
		if obj["sensor_controller_id"] != float64(1) {
			t.Errorf("part %d lost controller id", i)
		}
		for k := range obj {
			if strings.HasPrefix(k, "port-") {
				if seen[k] {
					t.Errorf("port key %s appears in more than one part", k)
				}
				seen[k] = true
			}
		}
	}
	if len(seen) != 8 {
		t.Errorf("parts cover %d ports; want all 8", len(seen))
	}
}

func TestSplitSnapshot_OversizedSinglePortStillSent(t *testing.T) {
	snap := wire.Snapshot{SensorControllerID: 1, ControllerStatus: wire.StatusOnline, PortsConnected: 2, TS: 100}
	snap.SetPort(1, "ID=gps;VAL="+strings.Repeat("7", 400))
	snap.SetPort(2, "ID=t;VAL=1")

	const maxPayload = 250
	parts, err := splitSnapshot(snap, maxPayload)
	if err != nil {
		t.Fatalf("splitSnapshot: %v", err)
	}

	seen := make(map[string]bool)
	oversized := 0
	for i, raw := range parts {
		if len(raw) > maxPayload {
			oversized++
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			t.Fatalf("decode part %d: %v", i, err)
		}
		for k := range obj {
			if strings.HasPrefix(k, "port-") {
				seen[k] = true
			}
		}
	}
	// The giant entry rides alone in an oversized frame; it is never
	// silently dropped, and it never drags other ports over the bound.
	if !seen["port-1"] || !seen["port-2"] {
		t.Errorf("parts cover %v; want both ports", seen)
	}
	if oversized != 1 {
		t.Errorf("%d oversized parts; want exactly the one carrying the giant entry", oversized)
	}
}
