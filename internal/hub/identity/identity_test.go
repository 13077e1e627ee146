package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "identity.nv")
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	s := NewStore(storePath(t), 4)
	if got := s.Load(); got != 4 {
		t.Errorf("Load = %d; want default 4", got)
	}
}

func TestLoad_UninitializedFallsBack(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte{Uninitialized}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(path, 2)
	if got := s.Load(); got != 2 {
		t.Errorf("Load = %d; want default 2", got)
	}
}

func TestLoad_OutOfRangeFallsBack(t *testing.T) {
	for _, b := range []byte{0, 10, 200} {
		path := storePath(t)
		if err := os.WriteFile(path, []byte{b}, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		s := NewStore(path, 1)
		if got := s.Load(); got != 1 {
			t.Errorf("Load with byte %d = %d; want default 1", b, got)
		}
	}
}

func TestLoad_EmptyFileFallsBack(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(path, 3)
	if got := s.Load(); got != 3 {
		t.Errorf("Load = %d; want default 3", got)
	}
}

func TestProvision_RoundTrip(t *testing.T) {
	path := storePath(t)
	s := NewStore(path, 1)
	if err := s.Provision(7); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if got := s.Load(); got != 7 {
		t.Errorf("Load after Provision = %d; want 7", got)
	}
	// Survives a fresh store, i.e. a power cycle.
	if got := NewStore(path, 1).Load(); got != 7 {
		t.Errorf("Load from fresh store = %d; want 7", got)
	}
}

func TestProvision_RejectsOutOfRange(t *testing.T) {
	s := NewStore(storePath(t), 1)
	for _, id := range []int{0, 10, -1, 255} {
		if err := s.Provision(id); err == nil {
			t.Errorf("Provision(%d): expected error", id)
		}
	}
}
