package reassembly

import (
	"testing"
	"time"
)

func part(hubID string, ts float64, seq, tot int, extra map[string]any) map[string]any {
	obj := map[string]any{
		"sensor_controller_id": hubID,
		"ts":                   ts,
		"seq":                  float64(seq),
		"tot":                  float64(tot),
	}
	for k, v := range extra {
		obj[k] = v
	}
	return obj
}

func TestAdd_UntaggedObjectPassesThrough(t *testing.T) {
	b := NewBuffer(0)
	obj := map[string]any{"sensor_controller_id": "HUB-1", "battery_level": 90.0}

	got := b.Add(obj)
	if got == nil {
		t.Fatal("untagged object should pass through")
	}
	if got["sensor_controller_id"] != "HUB-1" {
		t.Errorf("object mutated: %v", got)
	}
	if b.Pending() != 0 {
		t.Errorf("pending = %d; want 0", b.Pending())
	}
}

func TestAdd_MergesTwoPartSnapshot(t *testing.T) {
	b := NewBuffer(0)

	got := b.Add(part("HUB-1", 1000, 1, 2, map[string]any{
		"battery_level": 88.0,
		"port-1":        "ID=temp;VAL=21",
	}))
	if got != nil {
		t.Fatal("first of two parts should be held")
	}
	if b.Pending() != 1 {
		t.Errorf("pending = %d; want 1", b.Pending())
	}

	got = b.Add(part("HUB-1", 1000, 2, 2, map[string]any{
		"battery_level": 87.0,
		"port-5":        "ID=gps;VAL=1.2",
	}))
	if got == nil {
		t.Fatal("second part should complete the snapshot")
	}
	if got["port-1"] != "ID=temp;VAL=21" || got["port-5"] != "ID=gps;VAL=1.2" {
		t.Errorf("ports not merged: %v", got)
	}
	if got["battery_level"] != 88.0 {
		t.Errorf("battery_level = %v; want first part's 88", got["battery_level"])
	}
	if _, ok := got["seq"]; ok {
		t.Error("seq tag should be stripped from merged snapshot")
	}
	if _, ok := got["tot"]; ok {
		t.Error("tot tag should be stripped from merged snapshot")
	}
	if b.Pending() != 0 {
		t.Errorf("pending = %d; want 0 after merge", b.Pending())
	}
}

func TestAdd_OutOfOrderParts(t *testing.T) {
	b := NewBuffer(0)

	if got := b.Add(part("HUB-2", 5, 3, 3, map[string]any{"port-8": "ID=u;VAL=3"})); got != nil {
		t.Fatal("part 3/3 alone should be held")
	}
	if got := b.Add(part("HUB-2", 5, 1, 3, map[string]any{"port-1": "ID=t;VAL=1"})); got != nil {
		t.Fatal("parts 1,3 of 3 should be held")
	}
	got := b.Add(part("HUB-2", 5, 2, 3, map[string]any{"port-4": "ID=h;VAL=2"}))
	if got == nil {
		t.Fatal("all three parts present; want merged snapshot")
	}
	for _, k := range []string{"port-1", "port-4", "port-8"} {
		if _, ok := got[k]; !ok {
			t.Errorf("merged snapshot missing %s", k)
		}
	}
}

func TestAdd_DistinctSnapshotsDoNotMix(t *testing.T) {
	b := NewBuffer(0)

	b.Add(part("HUB-1", 100, 1, 2, map[string]any{"port-1": "ID=a;VAL=1"}))
	b.Add(part("HUB-3", 100, 1, 2, map[string]any{"port-1": "ID=b;VAL=2"}))
	b.Add(part("HUB-1", 200, 1, 2, map[string]any{"port-1": "ID=c;VAL=3"}))

	if b.Pending() != 3 {
		t.Fatalf("pending = %d; want 3 distinct sets", b.Pending())
	}

	got := b.Add(part("HUB-3", 100, 2, 2, map[string]any{"port-2": "ID=d;VAL=4"}))
	if got == nil {
		t.Fatal("HUB-3 set should complete")
	}
	if got["port-1"] != "ID=b;VAL=2" {
		t.Errorf("wrong set merged: %v", got)
	}
}

func TestAdd_RejectsSeqOutOfRange(t *testing.T) {
	b := NewBuffer(0)
	if got := b.Add(part("HUB-1", 1, 0, 2, nil)); got != nil {
		t.Error("seq 0 should be dropped")
	}
	if got := b.Add(part("HUB-1", 1, 3, 2, nil)); got != nil {
		t.Error("seq beyond tot should be dropped")
	}
	if b.Pending() != 0 {
		t.Errorf("pending = %d; want 0", b.Pending())
	}
}

func TestCleanup_DropsStaleIncompleteSets(t *testing.T) {
	b := NewBuffer(10 * time.Second)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	now := base
	b.now = func() time.Time { return now }

	b.Add(part("HUB-1", 1, 1, 2, nil))

	now = base.Add(5 * time.Second)
	if dropped := b.Cleanup(); dropped != 0 {
		t.Fatalf("dropped %d before timeout; want 0", dropped)
	}

	now = base.Add(11 * time.Second)
	if dropped := b.Cleanup(); dropped != 1 {
		t.Fatalf("dropped %d after timeout; want 1", dropped)
	}
	if b.Pending() != 0 {
		t.Errorf("pending = %d; want 0", b.Pending())
	}

	// A late straggler starts a fresh set instead of completing the old one.
	if got := b.Add(part("HUB-1", 1, 2, 2, nil)); got != nil {
		t.Error("straggler after cleanup should be held, not merged")
	}
}
