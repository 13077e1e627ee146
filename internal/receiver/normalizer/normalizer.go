// Package normalizer validates and reshapes one decoded inbound snapshot
// into a structured hub record. It is the only gate between the wireless
// ingest path and anything downstream.
package normalizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nakayama-software/ciren-sub000/internal/wire"
)

// ErrNotHubTelemetry marks messages of a different class: the host's own
// self-status channel, or objects with no usable hub identifier. They are
// dropped, not stored.
var ErrNotHubTelemetry = errors.New("not hub telemetry")

// ErrMalformedPort rejects the entire record when any present port field
// fails the wire grammar. There is no partial acceptance.
var ErrMalformedPort = errors.New("malformed port field")

// Node is one sensor endpoint extracted from a snapshot.
type Node struct {
	NodeID     string `json:"node_id"`
	SensorType string `json:"sensor_type"`
	Value      string `json:"value"`
}

// HubRecord is the validated, reshaped form of one inbound snapshot. Raw
// retains the original decoded object verbatim for audit.
type HubRecord struct {
	HubID          string         `json:"hub_id"`
	SignalStrength *float64       `json:"signal_strength"`
	BatteryLevel   *float64       `json:"battery_level"`
	Latitude       *float64       `json:"latitude"`
	Longitude      *float64       `json:"longitude"`
	Nodes          []Node         `json:"nodes"`
	Raw            map[string]any `json:"raw"`
}

// Normalize converts a decoded inbound object into a HubRecord, or rejects
// it. Pure and stateless; safe to call concurrently.
func Normalize(obj map[string]any) (*HubRecord, error) {
	hubID := resolveHubID(obj)
	if hubID == "" {
		return nil, fmt.Errorf("%w: empty hub identifier", ErrNotHubTelemetry)
	}
	if strings.EqualFold(hubID, wire.HostStatusID) {
		return nil, fmt.Errorf("%w: host self-status identifier %q", ErrNotHubTelemetry, hubID)
	}
	if tagged, ok := obj["host_status"].(bool); ok && tagged {
		return nil, fmt.Errorf("%w: tagged as host status", ErrNotHubTelemetry)
	}

	var nodes []Node
	for i := 1; i <= wire.NumPorts; i++ {
		v, present := obj[wire.PortKey(i)]
		if !present {
			// Port offline from the receiver's perspective.
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T, not a string", ErrMalformedPort, wire.PortKey(i), v)
		}
		typ, val, err := wire.ParsePortValue(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPort, wire.PortKey(i), err)
		}
		nodes = append(nodes, Node{
			NodeID:     fmt.Sprintf("P%d", i),
			SensorType: strings.ToLower(strings.TrimSpace(typ)),
			Value:      strings.TrimSpace(val),
		})
	}

	return &HubRecord{
		HubID:          hubID,
		SignalStrength: numberField(obj, "signal_strength"),
		BatteryLevel:   numberField(obj, "battery_level"),
		Latitude:       numberField(obj, "latitude"),
		Longitude:      numberField(obj, "longitude"),
		Nodes:          nodes,
		Raw:            obj,
	}, nil
}

// resolveHubID prefers the primary field, falls back to the legacy alias,
// and defaults to the UNKNOWN sentinel.
func resolveHubID(obj map[string]any) string {
	if id := coerceString(obj["sensor_controller_id"]); id != "" {
		return id
	}
	if id := coerceString(obj["sensorID"]); id != "" {
		return id
	}
	return "UNKNOWN"
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func numberField(obj map[string]any, key string) *float64 {
	if f, ok := obj[key].(float64); ok {
		return &f
	}
	return nil
}
