package utils

import (
	"strings"
	"testing"
)

func TestSplitWindowsShortText(t *testing.T) {
	windows := SplitWindows("hello world", 500, 50)
	if len(windows) != 1 {
		t.Fatalf("window count = %d, want 1", len(windows))
	}
	if windows[0].Content != "hello world" {
		t.Errorf("content = %q, want full text", windows[0].Content)
	}
	if windows[0].Start != 0 || windows[0].End != 11 {
		t.Errorf("offsets = [%d,%d), want [0,11)", windows[0].Start, windows[0].End)
	}
}

func TestSplitWindowsCount(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		wantCount int
	}{
		{"exactly one window", 500, 1},
		{"one past the window", 501, 2},
		{"two full steps", 950, 2},
		{"just past two steps", 951, 3},
		{"large text", 5000, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			windows := SplitWindows(text, 500, 50)

			// ceil((L-overlap)/step) for L > size, else 1
			if len(windows) != tt.wantCount {
				t.Errorf("length %d: window count = %d, want %d", tt.length, len(windows), tt.wantCount)
			}
		})
	}
}

func TestSplitWindowsOverlap(t *testing.T) {
	// Distinct runes so overlapping regions can be compared by content.
	var b strings.Builder
	for i := 0; i < 1300; i++ {
		b.WriteRune(rune('A' + i%26))
	}
	text := b.String()

	windows := SplitWindows(text, 500, 50)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}

	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		if cur.Start != prev.End-50 {
			t.Errorf("window %d starts at %d, want %d (50-rune overlap)", i, cur.Start, prev.End-50)
		}
		prevTail := []rune(prev.Content)[len([]rune(prev.Content))-50:]
		curHead := []rune(cur.Content)[:50]
		if string(prevTail) != string(curHead) {
			t.Errorf("window %d overlap content mismatch", i)
		}
	}

	last := windows[len(windows)-1]
	if last.End != 1300 {
		t.Errorf("last window ends at %d, want 1300", last.End)
	}
}

func TestSplitWindowsUnicode(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 100) // 1200 runes, multi-byte
	windows := SplitWindows(text, 500, 50)

	runes := []rune(text)
	for i, w := range windows {
		if string(runes[w.Start:w.End]) != w.Content {
			t.Errorf("window %d content does not match its rune offsets", i)
		}
	}
}
