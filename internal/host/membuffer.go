package host

import "strings"

// MemBuffer is an in-memory Buffer and View backed by a string. It is
// the reference host implementation, used by the CLI and by tests.
type MemBuffer struct {
	id      string
	lang    string
	tabSize int
	version int64
	lines   []string

	ranges  [][2]int
	curLine int
	curCol  int
	hasCur  bool
}

// NewMemBuffer creates a buffer from s. Line endings are normalized to
// LF; a trailing newline yields a final empty line, matching how
// editors model documents.
func NewMemBuffer(id, lang string, tabSize int, s string) *MemBuffer {
	if tabSize < 1 {
		tabSize = 4
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return &MemBuffer{
		id:      id,
		lang:    lang,
		tabSize: tabSize,
		version: 1,
		lines:   strings.Split(s, "\n"),
	}
}

// ID implements Buffer.
func (b *MemBuffer) ID() string { return b.id }

// Version implements Buffer.
func (b *MemBuffer) Version() int64 { return b.version }

// LineCount implements Buffer.
func (b *MemBuffer) LineCount() int { return len(b.lines) }

// LineText implements Buffer.
func (b *MemBuffer) LineText(line int) string {
	if line < 0 || line >= len(b.lines) {
		return ""
	}
	return b.lines[line]
}

// Text implements Buffer.
func (b *MemBuffer) Text() string { return strings.Join(b.lines, "\n") }

// TabSize implements Buffer.
func (b *MemBuffer) TabSize() int { return b.tabSize }

// LanguageID implements Buffer.
func (b *MemBuffer) LanguageID() string { return b.lang }

// SetText replaces the content and bumps the version.
func (b *MemBuffer) SetText(s string) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	b.lines = strings.Split(s, "\n")
	b.version++
}

// SetVisibleRanges sets what the view reports as on screen.
func (b *MemBuffer) SetVisibleRanges(ranges [][2]int) { b.ranges = ranges }

// SetCursor places the cursor.
func (b *MemBuffer) SetCursor(line, col int) {
	b.curLine, b.curCol, b.hasCur = line, col, true
}

// ClearCursor removes the cursor.
func (b *MemBuffer) ClearCursor() { b.hasCur = false }

// VisibleRanges implements View.
func (b *MemBuffer) VisibleRanges() [][2]int { return b.ranges }

// Cursor implements View.
func (b *MemBuffer) Cursor() (int, int, bool) { return b.curLine, b.curCol, b.hasCur }
