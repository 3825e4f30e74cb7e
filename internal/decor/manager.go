package decor

import (
	"sync"

	"github.com/dshills/prism/internal/span"
)

// bufferState tracks what was last applied to one buffer so unchanged
// buckets can be skipped.
type bufferState struct {
	version  int64
	applied  bool
	hashes   map[bucketKey]uint64
	retained map[bucketKey][]span.Span
}

// Manager owns the bucket suites and the per-buffer diffing state. It
// is the only component that talks to host buckets.
//
// Manager is safe for concurrent use, though the scheduler guarantees
// a single in-flight pipeline at a time.
type Manager struct {
	mu      sync.Mutex
	factory Factory
	suites  map[string]*Suite
	states  map[string]*bufferState
}

// NewManager creates a manager that builds buckets with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		factory: factory,
		suites:  make(map[string]*Suite),
		states:  make(map[string]*bufferState),
	}
}

// Suite returns the suite for key, building it on first use. Prior
// suites stay addressable by their own keys until disposed, so a
// configuration flip-flop reuses the earlier suite instead of
// rebuilding it.
func (m *Manager) Suite(key string, specs func() []BucketSpec) *Suite {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.suites[key]; ok {
		return s
	}
	s := NewSuite(key, m.factory, specs())
	m.suites[key] = s
	return s
}

// ApplyOptions modifies one Apply call.
type ApplyOptions struct {
	// Incremental merges the bundle with retained spans outside its
	// processed lines instead of replacing everything.
	Incremental bool

	// Force re-applies every bucket regardless of hashes.
	Force bool
}

// Apply routes a bundle's spans into the suite's buckets for one
// buffer. Buckets are re-applied when the buffer's content version
// changed, on the first apply, when forced, or when the bucket's span
// hash differs from the last application. It returns the number of
// buckets re-applied.
func (m *Manager) Apply(bufferID string, version int64, suite *Suite, b *span.Bundle, opts ApplyOptions) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[bufferID]
	if !ok {
		st = &bufferState{
			hashes:   make(map[bucketKey]uint64),
			retained: make(map[bucketKey][]span.Span),
		}
		m.states[bufferID] = st
	}

	applyAll := opts.Force || !st.applied || st.version != version

	var processed map[int]struct{}
	if opts.Incremental {
		processed = make(map[int]struct{}, len(b.ProcessedLines))
		for _, l := range b.ProcessedLines {
			processed[l] = struct{}{}
		}
	}

	applied := 0
	for _, bs := range suite.bundleBuckets(b) {
		spans := bs.spans
		if opts.Incremental {
			spans = mergeRetained(st.retained[bs.key], spans, processed)
		}

		h := hashSpans(spans)
		if applyAll || st.hashes[bs.key] != h {
			if bkt := suite.bucket(bs.key); bkt != nil {
				bkt.Apply(bufferID, spans)
				applied++
			}
		}
		st.hashes[bs.key] = h
		st.retained[bs.key] = spans
	}

	st.version = version
	st.applied = true
	return applied
}

// Clear empties every bucket of the suite for one buffer and forgets
// its diffing state. Used when a buffer's language becomes excluded.
func (m *Manager) Clear(bufferID string, suite *Suite) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bs := range suite.bundleBuckets(&span.Bundle{
		Spectrum: make([][]span.Span, suite.Buckets()),
		Active:   make([][]span.Span, suite.Buckets()),
	}) {
		if bkt := suite.bucket(bs.key); bkt != nil {
			bkt.Apply(bufferID, nil)
		}
	}
	delete(m.states, bufferID)
}

// CloseBuffer drops the diffing state for a buffer.
func (m *Manager) CloseBuffer(bufferID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, bufferID)
}

// DisposeSuite disposes one suite and removes it from the cache.
func (m *Manager) DisposeSuite(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.suites[key]; ok {
		s.Dispose()
		delete(m.suites, key)
	}
}

// Dispose releases every suite and all diffing state.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, s := range m.suites {
		s.Dispose()
		delete(m.suites, key)
	}
	m.states = make(map[string]*bufferState)
}

// mergeRetained keeps prior spans whose start line was not reprocessed
// and appends the fresh ones, so a windowed run leaves untouched
// regions intact.
func mergeRetained(prior, fresh []span.Span, processed map[int]struct{}) []span.Span {
	merged := make([]span.Span, 0, len(prior)+len(fresh))
	for _, s := range prior {
		if _, ok := processed[s.StartLine]; !ok {
			merged = append(merged, s)
		}
	}
	return append(merged, fresh...)
}

// hashSpans folds span coordinates into a cheap structural hash.
// FNV-1a over the four coordinates of each span.
func hashSpans(spans []span.Span) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	mix := func(v int) {
		h ^= uint64(uint32(v))
		h *= prime64
	}
	for _, s := range spans {
		mix(s.StartLine)
		mix(s.StartCol)
		mix(s.EndLine)
		mix(s.EndCol)
	}
	return h
}
