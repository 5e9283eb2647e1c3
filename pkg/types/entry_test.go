package types

import (
	"errors"
	"testing"
	"time"
)

func TestEntry_Validate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"text", NewTextEntry("a", now, "hello"), false},
		{"empty text", NewTextEntry("a", now, ""), false},
		{"image", NewImageEntry("b", now, []byte{1, 2}), false},
		{"missing id", NewTextEntry("", now, "x"), true},
		{"text with image", Entry{ID: "c", Kind: KindText, Text: "x", Image: []byte{1}}, true},
		{"image with text", Entry{ID: "d", Kind: KindImage, Text: "x"}, true},
		{"unknown kind", Entry{ID: "e", Kind: "file"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("expected ErrInvalidEntry, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestEntry_SizeInKB(t *testing.T) {
	e := NewImageEntry("x", time.Now(), make([]byte, 2048))
	if got := e.SizeInKB(); got != 2.0 {
		t.Errorf("SizeInKB = %v, want 2", got)
	}
	e = NewTextEntry("y", time.Now(), "héllo")
	if got := e.SizeInKB(); got != 6.0/1024.0 {
		t.Errorf("SizeInKB = %v, want %v", got, 6.0/1024.0)
	}
}

func TestEntry_CloneDoesNotShareImage(t *testing.T) {
	e := NewImageEntry("x", time.Now(), []byte{1, 2, 3})
	c := e.Clone()
	c.Image[0] = 9
	if e.Image[0] != 1 {
		t.Error("clone shares image bytes with original")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("image"); err != nil || k != KindImage {
		t.Errorf("ParseKind(image) = %v, %v", k, err)
	}
	if _, err := ParseKind("file"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
