package channel

import "sync"

// Mux emulates a set of serial lines that share one reception resource:
// only the activated line receives bytes, the way software-serial listeners
// behave. The control loop must Activate a line immediately before polling
// it; bytes arriving for an inactive line are lost at the hardware level.
//
// Injection models the reception interrupt and may come from another
// goroutine, so the pending buffers are guarded. The hub side still reads
// from a single loop.
type Mux struct {
	mu      sync.Mutex
	active  int
	pending [][]byte
}

func NewMux(n int) *Mux {
	return &Mux{active: -1, pending: make([][]byte, n)}
}

// Inject delivers bytes to line i. Bytes for an inactive line are dropped.
func (m *Mux) Inject(i int, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i != m.active || i < 0 || i >= len(m.pending) {
		return
	}
	m.pending[i] = append(m.pending[i], b...)
}

// Line returns the Channel view of line i. The returned value implements
// Activator.
func (m *Mux) Line(i int) *MuxLine {
	return &MuxLine{mux: m, idx: i}
}

type MuxLine struct {
	mux *Mux
	idx int
}

func (l *MuxLine) Activate() error {
	l.mux.mu.Lock()
	l.mux.active = l.idx
	l.mux.mu.Unlock()
	return nil
}

func (l *MuxLine) Read(p []byte) (int, error) {
	l.mux.mu.Lock()
	defer l.mux.mu.Unlock()
	if l.mux.active != l.idx {
		return 0, nil
	}
	pending := l.mux.pending[l.idx]
	n := copy(p, pending)
	l.mux.pending[l.idx] = pending[n:]
	return n, nil
}
