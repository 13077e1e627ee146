// Package hub implements the edge aggregator: eight polled sensor
// channels, per-port liveness, and periodic snapshot transmission to one
// fixed peer.
package hub

import (
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/hub/channel"
	"github.com/nakayama-software/ciren-sub000/internal/hub/radio"
	"github.com/nakayama-software/ciren-sub000/internal/wire"
)

const NumPorts = wire.NumPorts

// Health reports the hub's own battery and radio signal readings for
// inclusion in every snapshot.
type Health interface {
	BatteryLevel() int
	SignalStrength() int
}

// StaticHealth is a fixed Health source, used when the platform exposes no
// live measurement.
type StaticHealth struct {
	Battery int
	Signal  int
}

func (h StaticHealth) BatteryLevel() int   { return h.Battery }
func (h StaticHealth) SignalStrength() int { return h.Signal }

// Options configures a Hub. Channels may contain nil entries for
// unpopulated ports; those ports simply never come online.
type Options struct {
	ID          int
	Channels    [NumPorts]channel.Channel
	Transmitter radio.Transmitter
	Health      Health

	// PortTimeout is how long a port may stay silent before it goes
	// offline. Default 10s.
	PortTimeout time.Duration

	// SendInterval is the periodic snapshot cadence. Default 2s.
	SendInterval time.Duration

	// TickPeriod is the control loop cadence. Default 20ms.
	TickPeriod time.Duration

	// MaxPayload bounds one radio frame; larger snapshots are split into
	// seq/tot-tagged parts. Default 250 bytes.
	MaxPayload int

	// Now is injectable for tests. Default time.Now.
	Now func() time.Time
}

type port struct {
	reader      *channel.LineReader
	lastSeen    time.Time
	online      bool
	lastPayload string
}

// Hub owns all mutable state from a single control loop goroutine. The
// radio receive path hands payloads in through a queue; nothing outside the
// loop mutates the port table or flags.
type Hub struct {
	opts  Options
	ports [NumPorts]port

	stateChanged bool
	payloadDirty bool
	lastSend     time.Time

	downlink chan []byte
}

func New(opts Options) *Hub {
	if opts.PortTimeout <= 0 {
		opts.PortTimeout = 10 * time.Second
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = 2 * time.Second
	}
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = 20 * time.Millisecond
	}
	if opts.MaxPayload <= 0 {
		opts.MaxPayload = 250
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Health == nil {
		opts.Health = StaticHealth{Battery: 100, Signal: -70}
	}

	h := &Hub{
		opts:     opts,
		downlink: make(chan []byte, 16),
	}
	for i, ch := range opts.Channels {
		if ch != nil {
			h.ports[i].reader = channel.NewLineReader(ch)
		}
	}
	return h
}

// PushDownlink queues a received radio payload for the control loop. Safe
// to call from the radio callback goroutine; payloads are dropped when the
// queue is full rather than blocking the producer.
func (h *Hub) PushDownlink(payload []byte) {
	select {
	case h.downlink <- payload:
	default:
	}
}

// PortsConnected counts the ports currently online.
func (h *Hub) PortsConnected() int {
	n := 0
	for i := range h.ports {
		if h.ports[i].online {
			n++
		}
	}
	return n
}
