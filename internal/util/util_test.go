// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	data := []byte(`{"messages":[]}`)

	if err := AtomicWriteFile(path, data, 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", content, data)
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "state.json")

	if err := AtomicWriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := AtomicWriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "second" {
		t.Errorf("content = %q, want %q", content, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 6, "hél..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		if got := TruncateRunes(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	long := strings.Repeat("ä", 60)
	got := TruncateRunesNoEllipsis(long, 50)
	if len([]rune(got)) != 50 {
		t.Errorf("got %d runes, want 50", len([]rune(got)))
	}
	if TruncateRunesNoEllipsis("short", 50) != "short" {
		t.Error("short strings must be returned unchanged")
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	// Each CJK rune is two columns wide.
	if got := TruncateWidth("日本語のテキスト", 7); got != "日本..." {
		t.Errorf("TruncateWidth returned %q, want %q", got, "日本...")
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  line one\r\nline  two\n"); got != "line one line two" {
		t.Errorf("SingleLine = %q", got)
	}
}

// =============================================================================
// DATA URI TESTS
// =============================================================================

func TestImageDataURI_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.png")
	raw := []byte{0x89, 'P', 'N', 'G'}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		t.Fatal(err)
	}

	uri, err := ImageDataURI(path)
	if err != nil {
		t.Fatalf("ImageDataURI failed: %v", err)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	if uri != want {
		t.Errorf("uri = %q, want %q", uri, want)
	}
}

func TestImageDataURI_PassThrough(t *testing.T) {
	for _, ref := range []string{"https://example.com/a.png", "http://x/y.jpg", "data:image/gif;base64,AAAA"} {
		got, err := ImageDataURI(ref)
		if err != nil || got != ref {
			t.Errorf("ImageDataURI(%q) = %q, %v", ref, got, err)
		}
	}
}

func TestImageDataURI_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hi"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ImageDataURI(path); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestImageDataURI_Missing(t *testing.T) {
	if _, err := ImageDataURI(filepath.Join(t.TempDir(), "gone.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
