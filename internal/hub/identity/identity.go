// Package identity persists the hub's small integer identity across power
// cycles, emulating a single byte at a fixed non-volatile offset.
package identity

import (
	"fmt"
	"os"
)

const (
	// Offset of the identity byte within the non-volatile store.
	offset = 0

	// Uninitialized marks erased non-volatile storage.
	Uninitialized = 0xFF

	MinID = 1
	MaxID = 9
)

// Store reads and writes the persisted hub identity.
type Store struct {
	path      string
	defaultID int
}

func NewStore(path string, defaultID int) *Store {
	return &Store{path: path, defaultID: defaultID}
}

// Load returns the persisted identity, or the compiled-in default when the
// store is missing, unreadable, uninitialized, or holds a value outside
// [MinID, MaxID]. Read failures never surface; the hub always has an
// identity.
func (s *Store) Load() int {
	f, err := os.Open(s.path)
	if err != nil {
		return s.defaultID
	}
	defer f.Close()

	var b [1]byte
	if n, err := f.ReadAt(b[:], offset); err != nil || n != 1 {
		return s.defaultID
	}
	id := int(b[0])
	if id < MinID || id > MaxID {
		return s.defaultID
	}
	return id
}

// Provision writes a new identity. Called only on explicit re-provisioning,
// never during normal operation.
func (s *Store) Provision(id int) error {
	if id < MinID || id > MaxID {
		return fmt.Errorf("identity %d outside [%d,%d]", id, MinID, MaxID)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteAt([]byte{byte(id)}, offset); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
