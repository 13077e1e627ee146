// Package radio abstracts the hub's unreliable wireless link to its one
// fixed peer.
package radio

// Transmitter sends one serialized snapshot, fire-and-forget. There is no
// delivery guarantee and no retry; the caller's next snapshot supersedes a
// lost one.
type Transmitter interface {
	Send(payload []byte) error
}
