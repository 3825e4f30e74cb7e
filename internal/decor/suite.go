// Package decor applies generated span bundles to host annotation
// buckets, re-applying only the buckets whose spans actually changed.
package decor

import (
	"fmt"

	"github.com/dshills/prism/internal/colorutil"
	"github.com/dshills/prism/internal/span"
)

// Kind classifies an annotation bucket.
type Kind uint8

const (
	// KindSpectrum is a cycling indent-guide bucket.
	KindSpectrum Kind = iota

	// KindActive is the emphasized counterpart of a spectrum bucket.
	KindActive

	// KindError flags malformed indentation.
	KindError

	// KindMixed flags mixed tabs and spaces.
	KindMixed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSpectrum:
		return "spectrum"
	case KindActive:
		return "active"
	case KindError:
		return "error"
	case KindMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// BucketSpec describes one bucket of a suite. A spec without a color
// is disabled: the suite holds no bucket for it and its spans are
// discarded at apply time. Style and LightWidth carry the indicator
// rendering hints through to the host; error and mixed buckets always
// fill and leave them zero.
type BucketSpec struct {
	Kind     Kind
	Index    int
	Color    colorutil.Color
	HasColor bool

	Style      string
	LightWidth int
}

// Bucket is a host-owned annotation channel. The host decides what a
// bucket looks like; the core only routes spans into it.
type Bucket interface {
	// Apply replaces the bucket's spans for the buffer.
	Apply(bufferID string, spans []span.Span)

	// Dispose releases the bucket's host resources.
	Dispose()
}

// Factory creates host buckets. Supplied by the embedding application.
type Factory interface {
	NewBucket(spec BucketSpec) Bucket
}

// bucketKey identifies a bucket within a suite.
type bucketKey struct {
	kind  Kind
	index int
}

func (k bucketKey) String() string {
	return fmt.Sprintf("%s/%d", k.kind, k.index)
}

// Suite is the full bucket set belonging to one (configuration, theme)
// identity: N spectrum buckets, N active buckets, plus the error and
// mixed buckets. Disabled buckets are nil entries.
type Suite struct {
	key      string
	spectrum []Bucket
	active   []Bucket
	errBkt   Bucket
	mixedBkt Bucket
}

// NewSuite builds a suite from specs using the factory. Specs must
// contain matching numbers of spectrum and active entries.
func NewSuite(key string, factory Factory, specs []BucketSpec) *Suite {
	s := &Suite{key: key}
	for _, spec := range specs {
		var b Bucket
		if spec.HasColor {
			b = factory.NewBucket(spec)
		}
		switch spec.Kind {
		case KindSpectrum:
			s.spectrum = append(s.spectrum, b)
		case KindActive:
			s.active = append(s.active, b)
		case KindError:
			s.errBkt = b
		case KindMixed:
			s.mixedBkt = b
		}
	}
	return s
}

// Key returns the suite's identity key.
func (s *Suite) Key() string {
	return s.key
}

// Buckets returns the spectrum size N.
func (s *Suite) Buckets() int {
	return len(s.spectrum)
}

// Dispose releases every bucket in the suite.
func (s *Suite) Dispose() {
	for _, b := range s.spectrum {
		if b != nil {
			b.Dispose()
		}
	}
	for _, b := range s.active {
		if b != nil {
			b.Dispose()
		}
	}
	if s.errBkt != nil {
		s.errBkt.Dispose()
	}
	if s.mixedBkt != nil {
		s.mixedBkt.Dispose()
	}
}

// bucket returns the bucket for a key, or nil when disabled/absent.
func (s *Suite) bucket(k bucketKey) Bucket {
	switch k.kind {
	case KindSpectrum:
		if k.index < len(s.spectrum) {
			return s.spectrum[k.index]
		}
	case KindActive:
		if k.index < len(s.active) {
			return s.active[k.index]
		}
	case KindError:
		return s.errBkt
	case KindMixed:
		return s.mixedBkt
	}
	return nil
}

// bundleBuckets flattens a bundle into (key, spans) pairs covering
// every bucket the suite owns, including now-empty ones so stale spans
// get cleared.
func (s *Suite) bundleBuckets(b *span.Bundle) []bucketSpans {
	out := make([]bucketSpans, 0, 2*len(s.spectrum)+2)
	for i := range s.spectrum {
		var spans []span.Span
		if i < len(b.Spectrum) {
			spans = b.Spectrum[i]
		}
		out = append(out, bucketSpans{bucketKey{KindSpectrum, i}, spans})
	}
	for i := range s.active {
		var spans []span.Span
		if i < len(b.Active) {
			spans = b.Active[i]
		}
		out = append(out, bucketSpans{bucketKey{KindActive, i}, spans})
	}
	out = append(out, bucketSpans{bucketKey{KindError, 0}, b.Errors})
	out = append(out, bucketSpans{bucketKey{KindMixed, 0}, b.Mixed})
	return out
}

type bucketSpans struct {
	key   bucketKey
	spans []span.Span
}
