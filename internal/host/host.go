// Package host declares the interfaces the engine consumes from its
// embedding environment: buffers, views, and annotation buckets. The
// engine never owns text or rendering; it only reads the former and
// routes spans into the latter.
package host

// Buffer is read access to one open text buffer. Implementations must
// return stable values for the duration of a pipeline run; the engine
// captures Version once per run and applies nothing if it raced a
// newer edit.
type Buffer interface {
	// ID is a stable opaque identity for the buffer's lifetime.
	ID() string

	// Version increases with every content change.
	Version() int64

	// LineCount returns the number of lines.
	LineCount() int

	// LineText returns the text of one line without its terminator.
	// Out-of-range lines return "".
	LineText(line int) string

	// Text returns the full buffer content.
	Text() string

	// TabSize returns the buffer's resolved tab width.
	TabSize() int

	// LanguageID identifies the buffer's language ("go", "markdown").
	LanguageID() string
}

// View is the visible state of a buffer in some window.
type View interface {
	// VisibleRanges returns inclusive [start, end] line ranges
	// currently on screen. Empty means unknown.
	VisibleRanges() [][2]int

	// Cursor returns the primary cursor position. ok is false when
	// the buffer has no focused cursor.
	Cursor() (line, col int, ok bool)
}
