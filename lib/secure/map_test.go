// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"fmt"
	"slices"
	"testing"
)

func mapContents(m *Map) []string {
	var contents []string
	for key, value := range m.All() {
		contents = append(contents, string(key)+"="+string(value))
	}
	return contents
}

func TestMap_SetGetOrdered(t *testing.T) {
	t.Parallel()

	allocator, arena := testAllocator(t)
	m := NewMap(allocator)

	for _, key := range []string{"delta", "alpha", "charlie", "bravo"} {
		if err := m.Set([]byte(key), []byte(key+"-value")); err != nil {
			t.Fatalf("Set(%q): %v", key, err)
		}
	}
	if m.Len() != 4 {
		t.Fatalf("Len() = %d", m.Len())
	}
	want := []string{"alpha=alpha-value", "bravo=bravo-value", "charlie=charlie-value", "delta=delta-value"}
	if got := mapContents(m); !slices.Equal(got, want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}

	value, ok := m.Get([]byte("charlie"))
	if !ok || string(value) != "charlie-value" {
		t.Errorf("Get(charlie) = %q, %v", value, ok)
	}
	if _, ok := m.Get([]byte("echo")); ok {
		t.Error("Get of a missing key succeeded")
	}
	if !m.Has([]byte("alpha")) || m.Has([]byte("alph")) {
		t.Error("Has gave the wrong answer")
	}

	m.Check()
	m.Close()
	requireNoLiveBytes(t, arena)
}

func TestMap_OverwriteZeroesOldValue(t *testing.T) {
	t.Parallel()

	allocator, _ := testAllocator(t)
	m := NewMap(allocator)
	defer m.Close()

	m.Set([]byte("key"), []byte("first-secret"))
	_, _, oldOffset, oldLength := m.entry(0)

	if err := m.Set([]byte("key"), []byte("second")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, _ := m.Get([]byte("key"))
	if string(value) != "second" {
		t.Fatalf("Get = %q", value)
	}
	for index, b := range m.data.storage[oldOffset : oldOffset+oldLength] {
		if b != 0 {
			t.Fatalf("old value byte %d = %q, want zero", index, b)
		}
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d after overwrite", m.Len())
	}
}

func TestMap_Delete(t *testing.T) {
	t.Parallel()

	allocator, _ := testAllocator(t)
	m := NewMap(allocator)
	defer m.Close()

	m.Set([]byte("a"), []byte("1"))
	m.Set([]byte("b"), []byte("2"))
	m.Set([]byte("c"), []byte("3"))

	if !m.Delete([]byte("b")) {
		t.Fatal("Delete(b) reported missing")
	}
	if m.Delete([]byte("b")) {
		t.Fatal("second Delete(b) reported present")
	}
	if got := mapContents(m); !slices.Equal(got, []string{"a=1", "c=3"}) {
		t.Fatalf("All() = %v", got)
	}
}

func TestMap_CompactsDeadBytes(t *testing.T) {
	t.Parallel()

	allocator, arena := testAllocator(t)
	m := NewMap(allocator)

	for round := range 200 {
		value := fmt.Sprintf("value-%04d-%s", round, "padding-padding-padding")
		if err := m.Set([]byte("only"), []byte(value)); err != nil {
			t.Fatalf("Set round %d: %v", round, err)
		}
	}
	if m.dead > compactThreshold && m.dead > m.data.Len()-m.dead {
		t.Fatalf("map not compacted: %d dead of %d bytes", m.dead, m.data.Len())
	}
	value, _ := m.Get([]byte("only"))
	if want := "value-0199-padding-padding-padding"; string(value) != want {
		t.Fatalf("Get = %q, want %q", value, want)
	}

	for index := range 50 {
		m.Set(fmt.Appendf(nil, "key-%02d", index), []byte("v"))
	}
	for index := range 50 {
		if index%5 != 0 {
			m.Delete(fmt.Appendf(nil, "key-%02d", index))
		}
	}
	if m.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", m.Len())
	}
	for index := 0; index < 50; index += 5 {
		if !m.Has(fmt.Appendf(nil, "key-%02d", index)) {
			t.Fatalf("key-%02d lost during compaction", index)
		}
	}

	m.Close()
	requireNoLiveBytes(t, arena)
}

func TestMap_ZeroValueAndEarlyStop(t *testing.T) {
	t.Parallel()

	var m Map
	defer m.Close()
	for _, key := range []string{"x", "y", "z"} {
		m.Set([]byte(key), nil)
	}
	var seen []string
	for key := range m.Keys() {
		seen = append(seen, string(key))
		if len(seen) == 2 {
			break
		}
	}
	if !slices.Equal(seen, []string{"x", "y"}) {
		t.Errorf("Keys() with early stop = %v", seen)
	}
	value, ok := m.Get([]byte("z"))
	if !ok || len(value) != 0 {
		t.Errorf("Get(z) = %q, %v", value, ok)
	}
}
