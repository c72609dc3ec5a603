// tilekiln - OSM vector tile pyramid builder
// SPDX-License-Identifier: Apache-2.0

package replaylog

import (
	"path/filepath"
	"testing"
)

func openTestLog(t *testing.T) Log {
	t.Helper()
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "replay"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndReplayPreservesOrder(t *testing.T) {
	l := openTestLog(t)

	want := []Entry{
		{ID: 1, Lat: 450000000, Lon: 100000000, Tags: map[string]string{"amenity": "cafe"}},
		{ID: 2, Lat: 450000001, Lon: 100000001},
		{ID: 3, Lat: 450000002, Lon: 100000002, Tags: map[string]string{"name": "Via Roma"}},
	}
	for _, e := range want {
		if err := l.Append(StreamNodes, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var got []Entry
	if err := l.Replay(StreamNodes, func(seq uint64, e Entry) error {
		if seq != uint64(len(got)) {
			t.Fatalf("expected seq %d, got %d", len(got), seq)
		}
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Lat != want[i].Lat || got[i].Lon != want[i].Lon {
			t.Errorf("entry %d mismatch: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStreamsAreIndependent(t *testing.T) {
	l := openTestLog(t)

	if err := l.Append(StreamNodes, Entry{ID: 1}); err != nil {
		t.Fatalf("Append nodes: %v", err)
	}
	if err := l.Append(StreamWays, Entry{ID: 100, Handle: 42}); err != nil {
		t.Fatalf("Append ways: %v", err)
	}

	var wayCount int
	if err := l.Replay(StreamWays, func(seq uint64, e Entry) error {
		wayCount++
		if e.Handle != 42 {
			t.Errorf("expected handle 42, got %d", e.Handle)
		}
		return nil
	}); err != nil {
		t.Fatalf("Replay ways: %v", err)
	}
	if wayCount != 1 {
		t.Fatalf("expected exactly 1 way entry, got %d", wayCount)
	}
}

func TestReopenResumesSequence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replay")

	l1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l1.Append(StreamRelations, Entry{ID: 7}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	if err := l2.Append(StreamRelations, Entry{ID: 8}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	var ids []int64
	if err := l2.Replay(StreamRelations, func(seq uint64, e Entry) error {
		ids = append(ids, e.ID)
		return nil
	}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Fatalf("expected [7 8] in order, got %v", ids)
	}
}

func TestDisabledLogIsNoOp(t *testing.T) {
	l := Disabled()
	if err := l.Append(StreamNodes, Entry{ID: 1}); err != nil {
		t.Fatalf("Append on disabled log should be a no-op, got %v", err)
	}
	called := false
	if err := l.Replay(StreamNodes, func(uint64, Entry) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("Replay on disabled log should be a no-op, got %v", err)
	}
	if called {
		t.Fatal("disabled log should never invoke the replay callback")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close on disabled log should be a no-op, got %v", err)
	}
}
