// Package channel provides the hub's non-blocking per-port byte readers and
// newline-delimited line assembly.
package channel

// Channel is one physical or emulated serial line. Read must never block:
// it returns only bytes already buffered and (0, nil) when nothing is
// available.
type Channel interface {
	Read(p []byte) (int, error)
}

// Activator is implemented by channels whose reception mechanism requires
// exclusive activation (one shared reception resource across lines). The
// control loop activates such a channel immediately before polling it, once
// per loop iteration.
type Activator interface {
	Activate() error
}

// MaxLineLen bounds line assembly. A partial line growing past this bound
// without a terminator is silently discarded and accumulation restarts.
const MaxLineLen = 200

// LineReader assembles newline-delimited lines from a Channel, one bounded
// poll at a time.
type LineReader struct {
	ch  Channel
	buf []byte
}

func NewLineReader(ch Channel) *LineReader {
	return &LineReader{ch: ch, buf: make([]byte, 0, MaxLineLen)}
}

// Poll consumes the bytes currently available on the channel and returns
// any completed lines. Carriage returns are stripped; an overlong partial
// line is dropped without surfacing an error.
func (r *LineReader) Poll() ([]string, error) {
	var lines []string
	var scratch [64]byte
	for {
		n, err := r.ch.Read(scratch[:])
		if n > 0 {
			for _, b := range scratch[:n] {
				switch b {
				case '\n':
					lines = append(lines, string(r.buf))
					r.buf = r.buf[:0]
				case '\r':
					// stripped
				default:
					if len(r.buf) >= MaxLineLen {
						r.buf = r.buf[:0]
					}
					r.buf = append(r.buf, b)
				}
			}
		}
		if err != nil {
			return lines, err
		}
		if n == 0 {
			return lines, nil
		}
	}
}
