package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/hub/channel"
	"github.com/nakayama-software/ciren-sub000/internal/hub/normalize"
)

// Run drives the cooperative control loop until ctx is canceled. One
// iteration drains queued downlinks, polls every channel once in
// round-robin order, evaluates timeouts, and evaluates the send condition.
// No iteration step blocks.
func (h *Hub) Run(ctx context.Context) error {
	slog.Info("hub loop starting",
		"hub_id", h.opts.ID,
		"port_timeout", h.opts.PortTimeout,
		"send_interval", h.opts.SendInterval,
		"tick_period", h.opts.TickPeriod,
	)

	ticker := time.NewTicker(h.opts.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub loop stopping")
			return ctx.Err()
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Hub) tick() {
	now := h.opts.Now()
	h.drainDownlink()
	h.pollPorts(now)
	h.checkTimeouts(now)
	h.maybeSend(now)
}

func (h *Hub) drainDownlink() {
	for {
		select {
		case payload := <-h.downlink:
			// Receive path is log-only on the hub.
			slog.Debug("downlink received", "len", len(payload), "payload", string(payload))
		default:
			return
		}
	}
}

func (h *Hub) pollPorts(now time.Time) {
	for i := range h.ports {
		p := &h.ports[i]
		if p.reader == nil {
			continue
		}
		if a, ok := h.opts.Channels[i].(channel.Activator); ok {
			if err := a.Activate(); err != nil {
				slog.Warn("channel activate failed", "port", i+1, "error", err)
				continue
			}
		}
		lines, err := p.reader.Poll()
		if err != nil {
			slog.Warn("channel read failed", "port", i+1, "error", err)
		}
		for _, line := range lines {
			h.handleLine(i, line, now)
		}
	}
}

func (h *Hub) handleLine(i int, line string, now time.Time) {
	canonical := normalize.Line(line)
	if canonical == "" {
		return
	}
	p := &h.ports[i]
	p.lastSeen = now
	p.lastPayload = canonical
	if !p.online {
		p.online = true
		h.stateChanged = true
		slog.Info("port online", "port", i+1, "payload", canonical)
		return
	}
	h.payloadDirty = true
}

func (h *Hub) checkTimeouts(now time.Time) {
	for i := range h.ports {
		p := &h.ports[i]
		if p.online && now.Sub(p.lastSeen) > h.opts.PortTimeout {
			p.online = false
			h.stateChanged = true
			h.payloadDirty = true
			slog.Info("port offline", "port", i+1, "silent_for", now.Sub(p.lastSeen))
		}
	}
}

// maybeSend transmits when the periodic interval has elapsed or a liveness
// transition demands an out-of-cycle send. Ordinary payload updates only
// mark the snapshot dirty and ride the next interval boundary.
func (h *Hub) maybeSend(now time.Time) {
	due := h.lastSend.IsZero() || now.Sub(h.lastSend) >= h.opts.SendInterval
	if !due && !h.stateChanged {
		return
	}
	h.send(now)
}

func (h *Hub) send(now time.Time) {
	snap := h.buildSnapshot(now)
	parts, err := splitSnapshot(snap, h.opts.MaxPayload)
	if err != nil {
		slog.Error("snapshot encode failed", "error", err)
		return
	}
	for _, part := range parts {
		if err := h.opts.Transmitter.Send(part); err != nil {
			// Fire-and-forget: the next cycle's snapshot supersedes this one.
			slog.Warn("uplink send failed", "error", err)
		}
	}
	slog.Debug("snapshot sent",
		"ports_connected", snap.PortsConnected,
		"parts", len(parts),
		"ts", snap.TS,
	)
	h.lastSend = now
	h.stateChanged = false
	h.payloadDirty = false
}
