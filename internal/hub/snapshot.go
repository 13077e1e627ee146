package hub

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/wire"
)

// buildSnapshot assembles the current telemetry snapshot: heartbeat-only
// when nothing is online, otherwise one port-<i> entry per online port.
func (h *Hub) buildSnapshot(now time.Time) wire.Snapshot {
	snap := wire.Snapshot{
		SensorControllerID: h.opts.ID,
		ControllerStatus:   wire.StatusOnline,
		BatteryLevel:       h.opts.Health.BatteryLevel(),
		SignalStrength:     h.opts.Health.SignalStrength(),
		PortsConnected:     h.PortsConnected(),
		TS:                 now.Unix(),
	}
	for i := range h.ports {
		p := &h.ports[i]
		if p.online {
			snap.SetPort(i+1, wire.EncodePortValue(p.lastPayload))
		}
	}
	return snap
}

// splitSnapshot serializes a snapshot into radio frames no larger than
// maxPayload, tagging multi-part sends with seq/tot. Scalars repeat on
// every part; port entries are distributed across parts. Every part
// carries at least one port entry, so a single entry that alone exceeds
// maxPayload still goes out as an oversized frame rather than being
// dropped here.
func splitSnapshot(snap wire.Snapshot, maxPayload int) ([][]byte, error) {
	whole, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if len(whole) <= maxPayload || len(snap.Ports) < 2 {
		return [][]byte{whole}, nil
	}

	indices := make([]int, 0, len(snap.Ports))
	for i := range snap.Ports {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	base := snap
	base.Ports = nil
	// Size the greedy pass with seq/tot tags in place so the final tagging
	// cannot push a part over the frame bound.
	base.Seq, base.Tot = 99, 99

	var parts []wire.Snapshot
	current := base
	for _, i := range indices {
		current.SetPort(i, snap.Ports[i])
		b, err := json.Marshal(current)
		if err != nil {
			return nil, err
		}
		if len(b) > maxPayload && len(current.Ports) > 1 {
			delete(current.Ports, i)
			parts = append(parts, current)
			current = base
			current.Ports = nil
			current.SetPort(i, snap.Ports[i])
		}
	}
	parts = append(parts, current)

	if len(parts) == 1 {
		return [][]byte{whole}, nil
	}

	out := make([][]byte, 0, len(parts))
	for seq, part := range parts {
		part.Seq = seq + 1
		part.Tot = len(parts)
		b, err := json.Marshal(part)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
