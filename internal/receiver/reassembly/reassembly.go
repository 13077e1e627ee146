// Package reassembly merges multi-part snapshots back into whole objects.
// Hubs split snapshots that exceed the radio payload bound and tag each
// part with seq/tot; parts of one snapshot share a hub identifier and a
// timestamp.
package reassembly

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout is how long an incomplete snapshot waits for its missing
// parts before Cleanup drops it.
const DefaultTimeout = 10 * time.Second

type pending struct {
	parts    map[int]map[string]any
	tot      int
	lastSeen time.Time
}

// Buffer accumulates snapshot parts until a set is complete. Safe for
// concurrent use.
type Buffer struct {
	mu      sync.Mutex
	pending map[string]*pending
	timeout time.Duration
	now     func() time.Time
}

func NewBuffer(timeout time.Duration) *Buffer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Buffer{
		pending: make(map[string]*pending),
		timeout: timeout,
		now:     time.Now,
	}
}

// Add feeds one decoded inbound object into the buffer. Objects without
// seq/tot tags are complete already and come straight back. When the
// object completes a pending set, Add returns the merged snapshot;
// otherwise it returns nil and the part is held.
func (b *Buffer) Add(obj map[string]any) map[string]any {
	seq, seqOK := intField(obj, "seq")
	tot, totOK := intField(obj, "tot")
	if !seqOK || !totOK || tot <= 1 {
		return obj
	}
	if seq < 1 || seq > tot {
		return nil
	}

	key := snapshotKey(obj)

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[key]
	if !ok || p.tot != tot {
		p = &pending{parts: make(map[int]map[string]any), tot: tot}
		b.pending[key] = p
	}
	p.parts[seq] = obj
	p.lastSeen = b.now()

	if len(p.parts) < p.tot {
		return nil
	}
	delete(b.pending, key)
	return merge(p)
}

// Cleanup drops incomplete sets that have gone stale and returns how many
// were dropped. Call it periodically.
func (b *Buffer) Cleanup() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.timeout)
	dropped := 0
	for key, p := range b.pending {
		if p.lastSeen.Before(cutoff) {
			delete(b.pending, key)
			dropped++
		}
	}
	return dropped
}

// Pending reports how many incomplete snapshot sets are held.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// merge rebuilds the whole snapshot: scalar fields come from the
// lowest-numbered part, port fields from every part, and the split tags
// are removed.
func merge(p *pending) map[string]any {
	out := make(map[string]any)
	for seq := p.tot; seq >= 1; seq-- {
		part := p.parts[seq]
		for k, v := range part {
			out[k] = v
		}
	}
	delete(out, "seq")
	delete(out, "tot")
	return out
}

func snapshotKey(obj map[string]any) string {
	id := obj["sensor_controller_id"]
	if id == nil {
		id = obj["sensorID"]
	}
	ts := obj["ts"]
	return fmt.Sprintf("%v|%v", id, ts)
}

func intField(obj map[string]any, key string) (int, bool) {
	switch t := obj[key].(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
