package cache

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bytecode.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(Key([]byte("unseen")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected miss for absent key")
	}
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	key := Key([]byte("raw procedure bytes"))
	if err := s.Put(key, "/mob/proc/attack", []byte("optimized")); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, ok, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(data) != "optimized" {
		t.Fatalf("got (%q, %v), want cached bytes", data, ok)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)

	key := Key([]byte("input"))
	if err := s.Put(key, "/proc/a", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(key, "/proc/a", []byte("v2")); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, ok, err := s.Get(key)
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if string(data) != "v2" {
		t.Fatalf("expected replacement, got %q", data)
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key([]byte("same bytes"))
	b := Key([]byte("same bytes"))
	if a != b {
		t.Fatalf("same input must hash identically")
	}
	if a == Key([]byte("other bytes")) {
		t.Fatalf("different inputs should not collide")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %d chars", len(a))
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bytecode.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := Key([]byte("persisted"))
	if err := s.Put(key, "/proc/b", []byte("kept")); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	data, ok, err := s2.Get(key)
	if err != nil || !ok || string(data) != "kept" {
		t.Fatalf("expected entry to survive reopen, got (%q, %v, %v)", data, ok, err)
	}
}
