package types

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies what an entry holds.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// ParseKind converts a stored tag back into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown entry kind %q", s)
	}
	return k, nil
}

// Payload is raw clipboard content as read from or written to the OS.
type Payload struct {
	Kind Kind
	Data []byte
}

// Entry is one stored clipboard capture. Exactly one of Text or Image is
// populated, selected by Kind.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Image     []byte    `json:"image,omitempty"`
}

// NewTextEntry builds a text entry.
func NewTextEntry(id string, createdAt time.Time, text string) Entry {
	return Entry{ID: id, CreatedAt: createdAt, Kind: KindText, Text: text}
}

// NewImageEntry builds an image entry.
func NewImageEntry(id string, createdAt time.Time, image []byte) Entry {
	return Entry{ID: id, CreatedAt: createdAt, Kind: KindImage, Image: image}
}

var ErrInvalidEntry = errors.New("invalid entry")

// Validate checks the text/image sum-type invariant.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	switch e.Kind {
	case KindText:
		if e.Image != nil {
			return fmt.Errorf("%w: text entry %s carries image bytes", ErrInvalidEntry, e.ID)
		}
	case KindImage:
		if e.Text != "" {
			return fmt.Errorf("%w: image entry %s carries text", ErrInvalidEntry, e.ID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	return nil
}

// Content returns the payload bytes used for equality checks.
func (e Entry) Content() []byte {
	if e.Kind == KindText {
		return []byte(e.Text)
	}
	return e.Image
}

// Payload converts the entry back into clipboard content.
func (e Entry) Payload() Payload {
	return Payload{Kind: e.Kind, Data: e.Content()}
}

// SizeInKB is the stored payload size in kibibytes, for display.
func (e Entry) SizeInKB() float64 {
	return float64(len(e.Text)+len(e.Image)) / 1024.0
}

// Clone returns a copy that shares no memory with e.
func (e Entry) Clone() Entry {
	if e.Image != nil {
		img := make([]byte, len(e.Image))
		copy(img, e.Image)
		e.Image = img
	}
	return e
}
