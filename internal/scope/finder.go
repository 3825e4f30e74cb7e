// Package scope resolves the indentation scope that is active at the
// cursor: the highlight depth plus the contiguous line range sharing
// that depth or deeper.
package scope

import "github.com/dshills/prism/internal/exclude"

// Source supplies the per-line facts the finder needs. Implementations
// typically wrap a buffer plus its indent data store.
type Source interface {
	// LineCount returns the number of lines in the buffer.
	LineCount() int

	// Blocks returns the indentation block count of the line.
	Blocks(line int) int

	// Blank reports whether the line is empty or whitespace-only.
	Blank(line int) bool

	// TrimmedEnd returns the column just past the line text with
	// trailing whitespace removed.
	TrimmedEnd(line int) int
}

// Result identifies the active scope.
type Result struct {
	// Level is the block index to emphasize, or -1 for no scope.
	Level int

	// Start and End bound the scope's line range, inclusive.
	Start int
	End   int
}

// None is the sentinel result for "no active scope".
var None = Result{Level: -1, Start: -1, End: -1}

// Cursor is a buffer position. Valid is false when no cursor exists
// (for example, the buffer has no focused view).
type Cursor struct {
	Line  int
	Col   int
	Valid bool
}

// Find resolves the active scope for the cursor. Blank and ignored
// lines never define depth themselves; the nearest real neighbor does.
// When the cursor sits on a line that opens a deeper block, the cursor
// column decides intent: at or past the trimmed end of the text the
// user anticipates the new scope, otherwise they are editing the
// header and its parent scope is active.
func Find(cur Cursor, ignored exclude.LineSet, src Source) Result {
	if !cur.Valid {
		return None
	}
	lineCount := src.LineCount()
	if lineCount == 0 || cur.Line < 0 || cur.Line >= lineCount {
		return None
	}

	skip := func(line int) bool {
		return src.Blank(line) || ignored.Has(line)
	}

	currentDepth := 0
	if skip(cur.Line) {
		for l := cur.Line - 1; l >= 0; l-- {
			if !skip(l) {
				currentDepth = src.Blocks(l)
				break
			}
		}
	} else {
		currentDepth = src.Blocks(cur.Line)
	}

	nextDepth := currentDepth
	for l := cur.Line + 1; l < lineCount; l++ {
		if !skip(l) {
			nextDepth = src.Blocks(l)
			break
		}
	}

	level := currentDepth - 1
	if nextDepth > currentDepth && cur.Col >= src.TrimmedEnd(cur.Line) {
		level = currentDepth
	}
	if level < 0 {
		return None
	}

	// Scan outward for the first line shallower than the scope on each
	// side. That line is part of the result; blank and ignored lines
	// pass through, and running off the buffer folds into the edge.
	start := cur.Line
	for l := cur.Line - 1; l >= 0; l-- {
		start = l
		if skip(l) {
			continue
		}
		if src.Blocks(l) <= level {
			break
		}
	}

	end := cur.Line
	for l := cur.Line + 1; l < lineCount; l++ {
		end = l
		if skip(l) {
			continue
		}
		if src.Blocks(l) <= level {
			break
		}
	}

	return Result{Level: level, Start: start, End: end}
}
