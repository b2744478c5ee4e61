// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"bytes"
	"iter"
	"sort"
)

// entryWords is the number of index words per entry: key offset, key
// length, value offset, value length.
const entryWords = 4

// compactThreshold is the number of dead bytes below which a map never
// compacts.
const compactThreshold = 256

// Map is an ordered map from byte-string keys to byte-string values.
// Keys and values are packed into one arena byte vector; a second arena
// vector holds the sorted index of offsets into it. Overwritten and
// deleted bytes are zeroed at once, and the data vector is compacted
// once dead bytes outnumber live ones.
//
// The zero value is an empty map using the process-wide arena.
type Map struct {
	data  Vector[byte]
	index Vector[uint64]
	dead  int
}

// NewMap returns an empty map drawing from allocator's arena.
func NewMap(allocator Allocator[byte]) *Map {
	return &Map{
		data:  Vector[byte]{allocator: allocator},
		index: Vector[uint64]{allocator: Rebind[uint64](allocator)},
	}
}

// Len returns the number of entries.
func (m *Map) Len() int { return m.index.Len() / entryWords }

func (m *Map) entry(position int) (keyOffset, keyLength, valueOffset, valueLength int) {
	words := m.index.storage[position*entryWords : (position+1)*entryWords]
	return int(words[0]), int(words[1]), int(words[2]), int(words[3])
}

func (m *Map) key(position int) []byte {
	offset, length, _, _ := m.entry(position)
	return m.data.storage[offset : offset+length : offset+length]
}

func (m *Map) value(position int) []byte {
	_, _, offset, length := m.entry(position)
	return m.data.storage[offset : offset+length : offset+length]
}

// search returns the position of key, or where it would be inserted.
func (m *Map) search(key []byte) (int, bool) {
	count := m.Len()
	position := sort.Search(count, func(i int) bool {
		return bytes.Compare(m.key(i), key) >= 0
	})
	return position, position < count && bytes.Equal(m.key(position), key)
}

// Get returns the value stored under key. The slice aliases arena
// memory and is invalidated by the next mutation.
func (m *Map) Get(key []byte) ([]byte, bool) {
	position, found := m.search(key)
	if !found {
		return nil, false
	}
	return m.value(position), true
}

// Has reports whether key is present.
func (m *Map) Has(key []byte) bool {
	_, found := m.search(key)
	return found
}

// appendData appends parts to the data vector and returns the offset of
// each. On failure the data vector is unchanged.
func (m *Map) appendData(parts ...[]byte) ([]int, error) {
	total := 0
	for _, part := range parts {
		total += len(part)
	}
	if err := m.data.grow(total); err != nil {
		return nil, err
	}
	offsets := make([]int, len(parts))
	for index, part := range parts {
		offsets[index] = m.data.Len()
		m.data.push(part)
	}
	return offsets, nil
}

// Set stores value under key, replacing and zeroing any previous value.
// Both slices are copied and must not alias the map's own storage.
func (m *Map) Set(key, value []byte) error {
	position, found := m.search(key)
	if found {
		_, _, oldOffset, oldLength := m.entry(position)
		offsets, err := m.appendData(value)
		if err != nil {
			return err
		}
		clear(m.data.storage[oldOffset : oldOffset+oldLength])
		m.dead += oldLength
		words := m.index.storage[position*entryWords:]
		words[2], words[3] = uint64(offsets[0]), uint64(len(value))
		return m.maybeCompact()
	}

	offsets, err := m.appendData(key, value)
	if err != nil {
		return err
	}
	entry := []uint64{uint64(offsets[0]), uint64(len(key)), uint64(offsets[1]), uint64(len(value))}
	if err := m.index.Insert(position*entryWords, entry...); err != nil {
		m.data.Truncate(offsets[0])
		return err
	}
	return nil
}

// Delete removes key and zeroes its bytes. It reports whether key was
// present.
func (m *Map) Delete(key []byte) bool {
	position, found := m.search(key)
	if !found {
		return false
	}
	keyOffset, keyLength, valueOffset, valueLength := m.entry(position)
	clear(m.data.storage[keyOffset : keyOffset+keyLength])
	clear(m.data.storage[valueOffset : valueOffset+valueLength])
	m.dead += keyLength + valueLength
	m.index.Delete(position*entryWords, (position+1)*entryWords)
	// A failed compaction leaves the map consistent, only larger.
	_ = m.maybeCompact()
	return true
}

func (m *Map) maybeCompact() error {
	live := m.data.Len() - m.dead
	if m.dead < compactThreshold || m.dead <= live {
		return nil
	}
	return m.compact()
}

// compact rewrites the data vector with only live bytes, in key order.
func (m *Map) compact() error {
	live := m.data.Len() - m.dead
	packed, err := NewVector(m.data.allocator, live)
	if err != nil {
		return err
	}
	for position := range m.Len() {
		words := m.index.storage[position*entryWords:]
		keyOffset := packed.Len()
		packed.push(m.key(position))
		valueOffset := packed.Len()
		packed.push(m.value(position))
		words[0], words[2] = uint64(keyOffset), uint64(valueOffset)
	}
	m.data.Close()
	m.data = *packed
	m.dead = 0
	return nil
}

// All iterates over entries in ascending key order. The slices alias
// arena memory; the map must not be modified during iteration.
func (m *Map) All() iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		for position := range m.Len() {
			if !yield(m.key(position), m.value(position)) {
				return
			}
		}
	}
}

// Keys iterates over keys in ascending order.
func (m *Map) Keys() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for position := range m.Len() {
			if !yield(m.key(position)) {
				return
			}
		}
	}
}

// Check verifies the guards around the map's storage.
func (m *Map) Check() {
	m.data.Check()
	m.index.Check()
}

// Close wipes and releases the map's storage. The map is empty
// afterwards.
func (m *Map) Close() error {
	m.data.Close()
	m.index.Close()
	m.dead = 0
	return nil
}
