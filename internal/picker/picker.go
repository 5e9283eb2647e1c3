// Package picker is the interactive terminal history browser behind "pick".
package picker

import (
	"clipboard-history/internal/client"
	"clipboard-history/internal/server"
	"clipboard-history/pkg/types"
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Source is the subset of the daemon API the picker needs.
type Source interface {
	List(ctx context.Context, opts client.ListOptions) ([]server.EntryView, error)
	Copy(ctx context.Context, id string) (server.EntryView, error)
	Delete(ctx context.Context, id string) error
}

type Picker struct {
	src        Source
	screen     tcell.Screen
	limit      int
	entries    []server.EntryView
	selected   int
	offset     int
	searchMode bool
	searchText string
	query      string
	status     string
}

// New initializes screen, or a terminal screen when screen is nil. limit is
// passed to List; 0 uses the daemon's display limit.
func New(src Source, screen tcell.Screen, limit int) (*Picker, error) {
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return nil, fmt.Errorf("failed to create screen: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}

	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))

	return &Picker{src: src, screen: screen, limit: limit}, nil
}

// Run shows the history until the user copies an entry or quits. The copied
// entry is returned with ok set.
func (p *Picker) Run(ctx context.Context) (copied server.EntryView, ok bool, err error) {
	defer p.screen.Fini()

	if err := p.reload(ctx); err != nil {
		return copied, false, err
	}

	for {
		p.draw()

		switch ev := p.screen.PollEvent().(type) {
		case nil:
			return copied, false, nil
		case *tcell.EventResize:
			p.screen.Sync()
		case *tcell.EventKey:
			if p.searchMode {
				if err := p.handleSearchKey(ctx, ev); err != nil {
					return copied, false, err
				}
				continue
			}

			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return copied, false, nil
			case tcell.KeyUp, tcell.KeyCtrlP:
				p.moveSelection(-1)
			case tcell.KeyDown, tcell.KeyCtrlN:
				p.moveSelection(1)
			case tcell.KeyHome:
				p.moveSelection(-len(p.entries))
			case tcell.KeyEnd:
				p.moveSelection(len(p.entries))
			case tcell.KeyPgUp:
				p.moveSelection(-10)
			case tcell.KeyPgDn:
				p.moveSelection(10)
			case tcell.KeyDelete:
				p.deleteSelected(ctx)
			case tcell.KeyEnter:
				if len(p.entries) == 0 {
					continue
				}
				entry, err := p.src.Copy(ctx, p.entries[p.selected].ID)
				if err != nil {
					return copied, false, fmt.Errorf("copy: %w", err)
				}
				return entry, true, nil
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'j':
					p.moveSelection(1)
				case 'k':
					p.moveSelection(-1)
				case 'g':
					p.moveSelection(-len(p.entries))
				case 'G':
					p.moveSelection(len(p.entries))
				case 'd':
					p.deleteSelected(ctx)
				case 'r':
					if err := p.reload(ctx); err != nil {
						p.status = err.Error()
					}
				case '/':
					p.searchMode = true
					p.searchText = ""
				case 'q':
					return copied, false, nil
				}
			}
		}
	}
}

func (p *Picker) handleSearchKey(ctx context.Context, ev *tcell.EventKey) error {
	switch ev.Key() {
	case tcell.KeyEscape:
		p.searchMode = false
		p.searchText = ""
		p.query = ""
		return p.reload(ctx)
	case tcell.KeyEnter:
		p.searchMode = false
		p.query = p.searchText
		return p.reload(ctx)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(p.searchText); len(r) > 0 {
			p.searchText = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		p.searchText += string(ev.Rune())
	}
	return nil
}

func (p *Picker) reload(ctx context.Context) error {
	entries, err := p.src.List(ctx, client.ListOptions{Limit: p.limit, Query: p.query})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	p.entries = entries
	p.selected = 0
	p.offset = 0
	return nil
}

func (p *Picker) deleteSelected(ctx context.Context) {
	if len(p.entries) == 0 {
		return
	}
	id := p.entries[p.selected].ID
	if err := p.src.Delete(ctx, id); err != nil {
		p.status = fmt.Sprintf("delete failed: %v", err)
		return
	}
	p.entries = append(p.entries[:p.selected], p.entries[p.selected+1:]...)
	p.moveSelection(0)
	p.status = "deleted"
}

func (p *Picker) moveSelection(delta int) {
	p.selected += delta
	if p.selected >= len(p.entries) {
		p.selected = len(p.entries) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}

	visibleHeight := p.visibleHeight()
	if p.selected-p.offset >= visibleHeight {
		p.offset = p.selected - visibleHeight + 1
	} else if p.selected < p.offset {
		p.offset = p.selected
	}
}

// visibleHeight is the number of list rows between the header and the footer.
func (p *Picker) visibleHeight() int {
	_, height := p.screen.Size()
	if h := height - 5; h > 0 {
		return h
	}
	return 1
}

func (p *Picker) draw() {
	p.screen.Clear()
	width, height := p.screen.Size()

	drawStringCenter(p.screen, 0, " Clipboard History ", tcell.StyleDefault.Reverse(true))
	help := "↑/k:Up  ↓/j:Down  Enter:Copy  d:Delete  /:Search  r:Reload  q:Quit"
	drawStringCenter(p.screen, 1, help, tcell.StyleDefault.Foreground(tcell.ColorYellow))

	if p.searchMode {
		drawString(p.screen, 0, 2, fmt.Sprintf(" Search: %s█", p.searchText), tcell.StyleDefault.Reverse(true))
	} else {
		drawString(p.screen, 0, 2, strings.Repeat("─", width), tcell.StyleDefault)
	}

	end := p.offset + p.visibleHeight()
	if end > len(p.entries) {
		end = len(p.entries)
	}
	for i, e := range p.entries[p.offset:end] {
		style := tcell.StyleDefault
		if i+p.offset == p.selected {
			style = style.Reverse(true)
		}
		line := fmt.Sprintf(" %s  %-5s  %s", e.CreatedAt.Local().Format("Jan 02 15:04"), e.Kind, Preview(e, width-24))
		drawString(p.screen, 0, i+3, line, style)
	}

	if len(p.entries) == 0 {
		drawStringCenter(p.screen, 4, "No clipboard history", tcell.StyleDefault.Dim(true))
	}

	footer := p.status
	if p.query != "" {
		footer = fmt.Sprintf("filter %q  %s", p.query, footer)
	}
	drawString(p.screen, 1, height-1, footer, tcell.StyleDefault.Dim(true))
	if len(p.entries) > 0 {
		pos := fmt.Sprintf(" %d/%d ", p.selected+1, len(p.entries))
		drawString(p.screen, width-len(pos), height-1, pos, tcell.StyleDefault)
	}

	p.screen.Show()
}

// Preview renders an entry on one line of at most width runes.
func Preview(e server.EntryView, width int) string {
	var s string
	if e.Kind == types.KindImage {
		s = fmt.Sprintf("[image %.1f KB]", e.SizeKB)
	} else {
		s = strings.Join(strings.Fields(e.Text), " ")
	}
	return truncate(s, width)
}

func truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func drawString(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for _, r := range str {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func drawStringCenter(s tcell.Screen, y int, str string, style tcell.Style) {
	w, _ := s.Size()
	x := (w - len([]rune(str))) / 2
	if x < 0 {
		x = 0
	}
	drawString(s, x, y, str, style)
}
