// Package exclude finds lines that indentation highlighting should
// skip, by running user patterns over the whole buffer text.
package exclude

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"

	"github.com/dshills/prism/internal/pattern"
)

// ErrCancelled reports that detection stopped early because the run
// was superseded. The set returned alongside it is a valid partial
// result: it only narrows exclusions and never corrupts analysis.
var ErrCancelled = errors.New("exclude: detection cancelled")

// LineSet is a set of line numbers.
type LineSet map[int]struct{}

// Has reports whether line is in the set.
func (s LineSet) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// Add inserts line into the set.
func (s LineSet) Add(line int) {
	s[line] = struct{}{}
}

// Options tunes detection behavior. The zero value selects defaults.
type Options struct {
	// MaxSpanLines caps how many lines a single match may exclude.
	// Matches spanning more lines are dropped entirely, guarding
	// against pathological whole-buffer matches. Default 100.
	MaxSpanLines int

	// MaxTextLen skips detection outright for buffers longer than
	// this many bytes, where exclusion passes stop paying for
	// themselves. Default 8 MiB.
	MaxTextLen int

	// YieldEvery is the match count between cooperative checks.
	// Default 50.
	YieldEvery int

	// YieldAfter is how long a pass may run before it starts
	// yielding. Default 2ms.
	YieldAfter time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxSpanLines <= 0 {
		o.MaxSpanLines = 100
	}
	if o.MaxTextLen <= 0 {
		o.MaxTextLen = 8 << 20
	}
	if o.YieldEvery <= 0 {
		o.YieldEvery = 50
	}
	if o.YieldAfter <= 0 {
		o.YieldAfter = 2 * time.Millisecond
	}
	return o
}

// LineStarts returns the byte offset of every line start in text.
// Index 0 is always present, even for empty text.
func LineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// LineIndex returns the line containing the byte offset: the greatest
// line start that is at or before off. Runs in O(log lineCount).
func LineIndex(starts []int, off int) int {
	// First start strictly greater than off, minus one.
	return sort.Search(len(starts), func(i int) bool {
		return starts[i] > off
	}) - 1
}

// Detect runs every compiled pattern over text and returns the set of
// matched lines. Each match's byte range maps to an inclusive line
// range, all of which are excluded unless the range exceeds the span
// cap.
//
// Detection yields cooperatively on long passes and checks ctx on
// resume. On cancellation the partial set gathered so far is returned
// together with ErrCancelled; callers may use it as-is.
func Detect(ctx context.Context, text string, patterns []*pattern.Compiled, opts Options) (LineSet, error) {
	set := make(LineSet)
	if len(patterns) == 0 || len(text) == 0 {
		return set, nil
	}

	opts = opts.withDefaults()
	if len(text) > opts.MaxTextLen {
		return set, nil
	}

	starts := LineStarts(text)
	began := time.Now()
	matches := 0

	for _, p := range patterns {
		// One whole-text scan per pattern keeps (?m)^ anchored to real
		// line starts; resuming from a slice after each match would
		// re-anchor it mid-line.
		for _, loc := range p.Re.FindAllStringIndex(text, -1) {
			startLine := LineIndex(starts, loc[0])
			endLine := LineIndex(starts, loc[1])
			if endLine-startLine+1 <= opts.MaxSpanLines {
				for l := startLine; l <= endLine; l++ {
					set.Add(l)
				}
			}

			matches++
			if matches%opts.YieldEvery == 0 && time.Since(began) > opts.YieldAfter {
				runtime.Gosched()
				if err := ctx.Err(); err != nil {
					return set, ErrCancelled
				}
			}
		}
	}

	return set, nil
}
