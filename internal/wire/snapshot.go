// Package wire defines the uplink contract between a hub and the receiver:
// the snapshot object and the per-port payload grammar.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// NumPorts is the fixed number of sensor ports on a hub. This is a
	// hardware bound, not a tunable.
	NumPorts = 8

	// StatusOnline is the only controller_status a live hub reports.
	StatusOnline = "online"

	// HostStatusID is the reserved identifier of the host computer's own
	// self-status channel. Objects carrying it are never hub telemetry.
	HostStatusID = "RASPI_SYS"
)

// Snapshot is one aggregated telemetry object built for a single
// transmission. Ports holds the online ports only, keyed by 1-based index;
// each value follows the ID=<type>;VAL=<value> grammar.
type Snapshot struct {
	SensorControllerID int
	ControllerStatus   string
	BatteryLevel       int
	SignalStrength     int
	PortsConnected     int
	TS                 int64
	Ports              map[int]string

	// Seq/Tot tag one part of a multi-part snapshot (1-based). Both zero
	// means a single-part send.
	Seq int
	Tot int
}

// SetPort records the payload for port i (1..NumPorts).
func (s *Snapshot) SetPort(i int, payload string) {
	if i < 1 || i > NumPorts {
		return
	}
	if s.Ports == nil {
		s.Ports = make(map[int]string, NumPorts)
	}
	s.Ports[i] = payload
}

// PortKey returns the wire field name for port i, e.g. "port-3".
func PortKey(i int) string {
	return fmt.Sprintf("port-%d", i)
}

// MarshalJSON emits the flat wire object with one port-<i> key per online
// port and no port keys at all for a heartbeat snapshot.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, 6+len(s.Ports))
	obj["sensor_controller_id"] = s.SensorControllerID
	obj["controller_status"] = s.ControllerStatus
	obj["battery_level"] = s.BatteryLevel
	obj["signal_strength"] = s.SignalStrength
	obj["ports_connected"] = s.PortsConnected
	obj["ts"] = s.TS
	for i, payload := range s.Ports {
		obj[PortKey(i)] = payload
	}
	if s.Tot > 0 {
		obj["seq"] = s.Seq
		obj["tot"] = s.Tot
	}
	return json.Marshal(obj)
}

// EncodePortValue converts a canonical dash-joined payload ("type-value")
// into the wire grammar ID=<type>;VAL=<value>. A payload without a dash
// becomes a bare type with an empty value.
func EncodePortValue(canonical string) string {
	typ, val, found := strings.Cut(canonical, "-")
	if !found {
		return "ID=" + canonical + ";VAL="
	}
	return "ID=" + typ + ";VAL=" + val
}

// ParsePortValue splits a wire port payload into its sensor-type tag and
// value. The value may be empty; the type may not.
func ParsePortValue(s string) (typ string, val string, err error) {
	rest, ok := strings.CutPrefix(s, "ID=")
	if !ok {
		return "", "", fmt.Errorf("port payload %q: missing ID= prefix", s)
	}
	typ, val, ok = strings.Cut(rest, ";VAL=")
	if !ok {
		return "", "", fmt.Errorf("port payload %q: missing ;VAL= separator", s)
	}
	if strings.TrimSpace(typ) == "" {
		return "", "", fmt.Errorf("port payload %q: empty sensor type", s)
	}
	return typ, val, nil
}
