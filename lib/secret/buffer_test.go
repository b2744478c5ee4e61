// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"testing"
)

func TestNew_ValidSize(t *testing.T) {
	buffer, err := New(64)
	if err != nil {
		t.Fatalf("New(64) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 64 {
		t.Errorf("expected length 64, got %d", buffer.Len())
	}

	data := buffer.Bytes()
	if len(data) != 64 {
		t.Errorf("expected Bytes() length 64, got %d", len(data))
	}
	for index, value := range data {
		if value != 0 {
			t.Fatalf("expected zero at index %d, got %d", index, value)
		}
	}
}

func TestNew_ZeroSize(t *testing.T) {
	buffer, err := New(0)
	if err != nil {
		t.Fatalf("New(0) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 0 || len(buffer.Bytes()) != 0 {
		t.Errorf("expected empty buffer, got %d bytes", buffer.Len())
	}
}

func TestNew_NegativeSize(t *testing.T) {
	_, err := New(-1)
	if err == nil {
		t.Fatal("expected error for negative size")
	}
}

func TestNewFromBytes(t *testing.T) {
	source := []byte("super-secret-password")
	originalContent := string(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != originalContent {
		t.Errorf("expected %q, got %q", originalContent, got)
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d was not zeroed: got %d", index, value)
		}
	}
}

func TestBuffer_WriteAndRead(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buffer.Close()

	data := buffer.Bytes()
	copy(data, []byte("hello, secrets!"))

	if got := buffer.String(); got != "hello, secrets!\x00" {
		t.Errorf("unexpected content: %q", got)
	}
	buffer.Check()
}

func TestBuffer_Equal(t *testing.T) {
	buffer, err := NewFromBytes([]byte("token-123"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	tests := []struct {
		name  string
		other []byte
		want  bool
	}{
		{name: "identical", other: []byte("token-123"), want: true},
		{name: "different content", other: []byte("token-124"), want: false},
		{name: "prefix", other: []byte("token"), want: false},
		{name: "longer", other: []byte("token-1234"), want: false},
		{name: "empty", other: nil, want: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := buffer.Equal(test.other); got != test.want {
				t.Errorf("Equal(%q) = %v, want %v", test.other, got, test.want)
			}
		})
	}

	empty, err := New(0)
	if err != nil {
		t.Fatalf("New(0) failed: %v", err)
	}
	defer empty.Close()
	if !empty.Equal(nil) {
		t.Error("empty buffer should equal an empty slice")
	}
}

func TestBuffer_WriteTo(t *testing.T) {
	buffer, err := NewFromBytes([]byte("streamed secret"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	var destination bytes.Buffer
	written, err := buffer.WriteTo(&destination)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if written != 15 || destination.String() != "streamed secret" {
		t.Errorf("WriteTo wrote %d bytes %q", written, destination.String())
	}
}

func TestBuffer_GoStringHidesContents(t *testing.T) {
	buffer, err := NewFromBytes([]byte("do-not-print"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if formatted := fmt.Sprintf("%#v", buffer); formatted != "secret.Buffer{len: 12}" {
		t.Errorf("%%#v = %q", formatted)
	}
}

func TestBuffer_Close_ReleasesMemory(t *testing.T) {
	before := Default().Stats()

	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	copy(buffer.Bytes(), []byte("this should be wiped"))

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if buffer.data != nil {
		t.Error("expected data to be nil after Close")
	}

	after := Default().Stats()
	if after.Frees-before.Frees < 1 {
		t.Error("Close did not return the region to the arena")
	}
}

func TestBuffer_Close_Idempotent(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestBuffer_PanicsAfterClose(t *testing.T) {
	accessors := map[string]func(*Buffer){
		"Bytes":  func(b *Buffer) { b.Bytes() },
		"String": func(b *Buffer) { _ = b.String() },
		"Equal":  func(b *Buffer) { b.Equal(nil) },
		"Check":  func(b *Buffer) { b.Check() },
	}
	for name, access := range accessors {
		t.Run(name, func(t *testing.T) {
			buffer, err := New(16)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			buffer.Close()

			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic on %s() after Close", name)
				}
			}()
			access(buffer)
		})
	}
}
