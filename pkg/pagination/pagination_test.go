package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{-5, DefaultLimit},
		{0, DefaultLimit},
		{1, 1},
		{25, 25},
		{100, 100},
		{101, MaxLimit},
		{10000, MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLimitWithBuffer(t *testing.T) {
	if got := LimitWithBuffer(0); got != DefaultLimit+1 {
		t.Fatalf("LimitWithBuffer(0) = %d, want %d", got, DefaultLimit+1)
	}
	if got := LimitWithBuffer(MaxLimit + 50); got != MaxLimit+1 {
		t.Fatalf("LimitWithBuffer clamped = %d, want %d", got, MaxLimit+1)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, time.May, 2, 9, 30, 15, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(EncodeCursor(original))
	if err != nil {
		t.Fatalf("ParseCursor returned error: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected a cursor back")
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at = %s, want %s", parsed.CreatedAt, original.CreatedAt)
	}
	if parsed.ID != original.ID {
		t.Fatalf("id = %s, want %s", parsed.ID, original.ID)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	cursor, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("ParseCursor returned error: %v", err)
	}
	if cursor != nil {
		t.Fatalf("expected nil cursor for blank input, got %v", cursor)
	}
}

func TestParseCursorMalformed(t *testing.T) {
	for _, value := range []string{
		"not-base64!!",
		"bm8tc2VwYXJhdG9y",                 // "no-separator"
		"bm90LWEtdGltZXxub3QtYS11dWlk",     // "not-a-time|not-a-uuid"
		"MjAyNi0wNS0wMlQwOTozMDoxNVp8YmFk", // valid time, bad uuid
	} {
		if _, err := ParseCursor(value); err == nil {
			t.Fatalf("ParseCursor(%q) expected error", value)
		}
	}
}
