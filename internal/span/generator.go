// Package span turns per-line indentation analysis into color-bucketed
// annotation spans for a windowed range of lines.
package span

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"

	"github.com/dshills/prism/internal/exclude"
	"github.com/dshills/prism/internal/indent"
	"github.com/dshills/prism/internal/scope"
)

// ErrCancelled reports that generation was superseded before it
// finished. Unlike exclusion detection there is no partial result: a
// torn span map must never be applied.
var ErrCancelled = errors.New("span: generation cancelled")

// Span is a half-open column range on one or more lines.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Bundle is the output of one generation pass. Spectrum and Active are
// indexed by bucket; Active receives the spans of the highlighted scope
// level so emphasis never recolors unrelated indentation.
type Bundle struct {
	Spectrum [][]Span
	Active   [][]Span
	Errors   []Span
	Mixed    []Span

	// ProcessedLines lists every candidate line this pass covered, in
	// ascending order. The diffing layer uses it to merge incremental
	// output with retained spans outside the window.
	ProcessedLines []int
}

// Request describes one generation pass.
type Request struct {
	// Ranges holds inclusive visible line ranges. When empty, the
	// first DefaultWindow lines are used.
	Ranges [][2]int

	// Margin is added above and below each range. Default 50.
	Margin int

	// LineCount bounds all ranges.
	LineCount int

	// Buckets is the spectrum size N; spans cycle through it.
	Buckets int

	// Scope routes one block level into the active bucket set.
	Scope scope.Result

	// Ignored lines produce no spans of any kind.
	Ignored exclude.LineSet

	// Analysis returns the stored analysis for a line.
	Analysis func(line int) indent.Analysis

	// YieldEvery is the line count between cooperative checks.
	// Default 100.
	YieldEvery int

	// YieldAfter is how long a pass may run before it starts
	// yielding. Default 2ms.
	YieldAfter time.Duration
}

// DefaultWindow is the fallback candidate size when no visible ranges
// are supplied.
const DefaultWindow = 100

const defaultMargin = 50

// Generate scans the candidate lines and buckets their indentation
// boundaries. It yields cooperatively and aborts with ErrCancelled if
// the context is cancelled mid-pass.
func Generate(ctx context.Context, req Request) (*Bundle, error) {
	if req.Buckets < 1 || req.LineCount < 1 || req.Analysis == nil {
		return emptyBundle(max(req.Buckets, 1)), nil
	}
	if req.Margin <= 0 {
		req.Margin = defaultMargin
	}
	if req.YieldEvery <= 0 {
		req.YieldEvery = 100
	}
	if req.YieldAfter <= 0 {
		req.YieldAfter = 2 * time.Millisecond
	}

	lines := Candidates(req)
	b := emptyBundle(req.Buckets)
	b.ProcessedLines = lines

	began := time.Now()

	for n, line := range lines {
		if n > 0 && n%req.YieldEvery == 0 && time.Since(began) > req.YieldAfter {
			runtime.Gosched()
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}
		}

		if req.Ignored.Has(line) {
			continue
		}

		a := req.Analysis(line)
		if a.Ignored || len(a.Blocks) == 0 {
			continue
		}

		inScope := req.Scope.Level >= 0 &&
			line >= req.Scope.Start && line <= req.Scope.End

		prev := 0
		for bi, boundary := range a.Blocks {
			s := Span{StartLine: line, StartCol: prev, EndLine: line, EndCol: boundary}
			bucket := bi % req.Buckets
			if inScope && bi == req.Scope.Level {
				b.Active[bucket] = append(b.Active[bucket], s)
			} else {
				b.Spectrum[bucket] = append(b.Spectrum[bucket], s)
			}
			prev = boundary
		}

		last := a.Blocks[len(a.Blocks)-1]
		if a.Error {
			b.Errors = append(b.Errors, Span{
				StartLine: line, StartCol: 0, EndLine: line, EndCol: last,
			})
		}
		if a.Mixed {
			b.Mixed = append(b.Mixed, Span{
				StartLine: line, StartCol: 0, EndLine: line, EndCol: last,
			})
		}
	}

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}
	return b, nil
}

func emptyBundle(buckets int) *Bundle {
	return &Bundle{
		Spectrum: make([][]Span, buckets),
		Active:   make([][]Span, buckets),
	}
}

// Candidates builds the ascending, deduplicated candidate line set
// from the margin-expanded visible ranges clipped to the buffer. The
// engine analyzes exactly these lines before generation.
func Candidates(req Request) []int {
	if req.LineCount < 1 {
		return nil
	}
	if req.Margin <= 0 {
		req.Margin = defaultMargin
	}

	type iv struct{ lo, hi int }

	var ivs []iv
	if len(req.Ranges) == 0 {
		ivs = append(ivs, iv{0, min(DefaultWindow, req.LineCount) - 1})
	} else {
		for _, r := range req.Ranges {
			lo := r[0] - req.Margin
			hi := r[1] + req.Margin
			if lo < 0 {
				lo = 0
			}
			if hi > req.LineCount-1 {
				hi = req.LineCount - 1
			}
			if lo > hi {
				continue
			}
			ivs = append(ivs, iv{lo, hi})
		}
	}

	sort.Slice(ivs, func(i, j int) bool { return ivs[i].lo < ivs[j].lo })

	var lines []int
	next := -1
	for _, r := range ivs {
		lo := r.lo
		if lo <= next {
			lo = next + 1
		}
		for l := lo; l <= r.hi; l++ {
			lines = append(lines, l)
		}
		if r.hi > next {
			next = r.hi
		}
	}
	return lines
}
