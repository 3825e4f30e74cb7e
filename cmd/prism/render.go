package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/prism/internal/config"
	"github.com/dshills/prism/internal/decor"
	"github.com/dshills/prism/internal/span"
)

// termBucket holds the most recently applied spans for one decoration
// kind/index so the renderer can paint them after a pipeline run.
type termBucket struct {
	mu    sync.Mutex
	spec  decor.BucketSpec
	spans []span.Span
}

func (b *termBucket) Apply(bufferID string, spans []span.Span) {
	b.mu.Lock()
	b.spans = spans
	b.mu.Unlock()
}

func (b *termBucket) Dispose() {
	b.mu.Lock()
	b.spans = nil
	b.mu.Unlock()
}

func (b *termBucket) snapshot() []span.Span {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spans
}

// termFactory builds termBuckets and remembers every bucket it made.
type termFactory struct {
	mu      sync.Mutex
	buckets []*termBucket
}

func (f *termFactory) NewBucket(spec decor.BucketSpec) decor.Bucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &termBucket{spec: spec}
	f.buckets = append(f.buckets, b)
	return b
}

func (f *termFactory) all() []*termBucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*termBucket, len(f.buckets))
	copy(out, f.buckets)
	return out
}

// paint is one colored column range on one line. Later paints win when
// ranges overlap, so error and mixed marks sit on top of the spectrum.
type paint struct {
	line, start, end int
	style            lipgloss.Style
	rank             int
}

func rankOf(k decor.Kind) int {
	switch k {
	case decor.KindSpectrum:
		return 0
	case decor.KindActive:
		return 1
	case decor.KindMixed:
		return 2
	case decor.KindError:
		return 3
	}
	return 0
}

// renderFile writes the buffer lines to w with indentation guides
// painted as background colors.
func renderFile(w io.Writer, lines []string, buckets []*termBucket) {
	var paints []paint
	for _, b := range buckets {
		style := lipgloss.NewStyle().Background(lipgloss.Color(b.spec.Color.Hex()))
		rank := rankOf(b.spec.Kind)
		for _, s := range b.snapshot() {
			end := s.EndCol
			if b.spec.Style == config.StyleLight && s.StartCol+b.spec.LightWidth < end {
				// Light style marks only the block boundary line.
				end = s.StartCol + b.spec.LightWidth
			}
			paints = append(paints, paint{
				line:  s.StartLine,
				start: s.StartCol,
				end:   end,
				style: style,
				rank:  rank,
			})
		}
	}
	sort.SliceStable(paints, func(i, j int) bool { return paints[i].rank < paints[j].rank })

	byLine := make(map[int][]paint)
	for _, p := range paints {
		byLine[p.line] = append(byLine[p.line], p)
	}

	for i, text := range lines {
		fmt.Fprintln(w, paintLine(text, byLine[i]))
	}
}

// paintLine applies the paints to one line. Indentation is always
// ASCII spaces and tabs, so byte columns are safe to slice on.
func paintLine(text string, paints []paint) string {
	if len(paints) == 0 {
		return text
	}

	// Resolve per-column styles, later (higher-rank) paints winning.
	limit := 0
	for _, p := range paints {
		if p.end > limit {
			limit = p.end
		}
	}
	if limit > len(text) {
		limit = len(text)
	}
	styles := make([]*lipgloss.Style, limit)
	for i := range paints {
		p := paints[i]
		for c := p.start; c < p.end && c < limit; c++ {
			styles[c] = &p.style
		}
	}

	var sb strings.Builder
	start := 0
	for start < limit {
		end := start + 1
		for end < limit && styles[end] == styles[start] {
			end++
		}
		if styles[start] != nil {
			sb.WriteString(styles[start].Render(expandTabs(text[start:end])))
		} else {
			sb.WriteString(text[start:end])
		}
		start = end
	}
	sb.WriteString(text[limit:])
	return sb.String()
}

// expandTabs widens tabs so the painted background is visible; the
// analyzer already measured widths, this is cosmetic only.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// listSpans prints a plain-text span listing, one bucket per section.
func listSpans(w io.Writer, buckets []*termBucket) {
	for _, b := range buckets {
		spans := b.snapshot()
		if len(spans) == 0 {
			continue
		}
		label := b.spec.Kind.String()
		if b.spec.Kind == decor.KindSpectrum || b.spec.Kind == decor.KindActive {
			label = fmt.Sprintf("%s[%d]", label, b.spec.Index)
		}
		fmt.Fprintf(w, "%s %s\n", label, b.spec.Color.Hex())
		for _, s := range spans {
			fmt.Fprintf(w, "  line %d cols %d-%d\n", s.StartLine, s.StartCol, s.EndCol)
		}
	}
}
