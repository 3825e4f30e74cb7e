// Package indent provides per-line indentation analysis and a compact
// columnar store for per-document analysis results.
package indent

// Analysis describes the leading-whitespace structure of a single line.
// It is derived from line text alone and is immutable once produced.
type Analysis struct {
	// Blocks holds ascending byte offsets into the line marking the end
	// of each indentation block. A boundary is recorded at i+1 whenever
	// the visual width reaches an exact multiple of the tab size.
	Blocks []int

	// VisualWidth is the column width of the leading whitespace after
	// tab expansion.
	VisualWidth int

	// Mixed reports that the leading run contains both tabs and spaces.
	Mixed bool

	// Error reports that the leading run does not end on a tab stop.
	Error bool

	// Ignored marks the line as excluded from span generation.
	Ignored bool
}

// BlockCount returns the number of indentation blocks.
func (a Analysis) BlockCount() int {
	return len(a.Blocks)
}

// Analyze scans the leading run of tabs and spaces in text and returns
// its indentation structure. A space advances the visual width by one;
// a tab advances it to the next multiple of tabSize. Scanning stops at
// the first non-whitespace byte.
//
// When the run ends off a tab stop and skipErrors is false, the line is
// flagged as an error and one final boundary is appended at the true
// end of the whitespace run so the error region covers exactly the
// malformed run.
//
// Analyze is pure and never fails; tabSize values below 1 are clamped.
func Analyze(text string, tabSize int, skipErrors bool) Analysis {
	if tabSize < 1 {
		tabSize = 1
	}

	var a Analysis
	var hasTab, hasSpace bool
	width := 0
	i := 0

scan:
	for ; i < len(text); i++ {
		switch text[i] {
		case ' ':
			hasSpace = true
			width++
		case '\t':
			hasTab = true
			width += tabSize - width%tabSize
		default:
			break scan
		}
		if width%tabSize == 0 {
			a.Blocks = append(a.Blocks, i+1)
		}
	}

	a.VisualWidth = width
	a.Mixed = hasTab && hasSpace

	if width > 0 && width%tabSize != 0 && !skipErrors {
		a.Error = true
		// Close the malformed run so its span has a right edge.
		a.Blocks = append(a.Blocks, i)
	}

	return a
}
