package storage

import (
	"clipboard-history/pkg/types"
	"fmt"
	"time"
)

// EntryModel is the row layout of the entries table.
type EntryModel struct {
	ID        string  `gorm:"primaryKey;type:text"`
	CreatedAt int64   `gorm:"not null;index:idx_entries_created_at;autoCreateTime:false"`
	Kind      string  `gorm:"type:text;not null"`
	Text      *string `gorm:"type:text"`
	Image     []byte  `gorm:"type:blob"`
}

func (EntryModel) TableName() string { return "entries" }

func (m *EntryModel) ToEntry() (types.Entry, error) {
	kind, err := types.ParseKind(m.Kind)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: row %s: %v", ErrInvalidType, m.ID, err)
	}
	createdAt := time.Unix(0, m.CreatedAt)
	if kind == types.KindText {
		var text string
		if m.Text != nil {
			text = *m.Text
		}
		return types.NewTextEntry(m.ID, createdAt, text), nil
	}
	return types.NewImageEntry(m.ID, createdAt, m.Image), nil
}

func FromEntry(e types.Entry) *EntryModel {
	m := &EntryModel{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UnixNano(),
		Kind:      string(e.Kind),
	}
	switch e.Kind {
	case types.KindText:
		text := e.Text
		m.Text = &text
	case types.KindImage:
		m.Image = e.Image
	}
	return m
}
