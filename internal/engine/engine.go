// Package engine wires the analysis pipeline together: debounced
// triggers, ignored-line detection, windowed indentation analysis,
// scope resolution, span generation, and diffed application to host
// buckets. It is the single writer of all per-buffer state.
package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/prism/internal/colorutil"
	"github.com/dshills/prism/internal/config"
	"github.com/dshills/prism/internal/decor"
	"github.com/dshills/prism/internal/exclude"
	"github.com/dshills/prism/internal/host"
	"github.com/dshills/prism/internal/indent"
	"github.com/dshills/prism/internal/pattern"
	"github.com/dshills/prism/internal/scope"
	"github.com/dshills/prism/internal/sched"
	"github.com/dshills/prism/internal/span"
)

// ErrDisposed reports use after Dispose.
var ErrDisposed = errors.New("engine: disposed")

const patternCacheSize = 64

// docState is everything the engine remembers about one buffer.
type docState struct {
	data *indent.DocumentData

	ignored        exclude.LineSet
	ignoredVersion int64
	ignoredFull    bool // false while only a partial set is known
	configGen      uint64

	suiteKey string
}

// Engine runs the indentation highlighting pipeline for any number of
// buffers. One Engine instance serves one running host application.
type Engine struct {
	mu        sync.Mutex
	settings  config.Settings
	theme     string
	compiled  []*pattern.Compiled
	configGen uint64
	docs      map[string]*docState
	disposed  bool

	// target is the buffer/view pair of the most recent trigger; the
	// debounced run picks it up when the timer fires.
	target struct {
		buf  host.Buffer
		view host.View
	}

	patterns *pattern.Cache
	decor    *decor.Manager
	sched    *sched.Scheduler
	log      *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings overrides the default settings.
func WithSettings(s config.Settings) Option {
	return func(e *Engine) {
		s.Sanitize()
		e.settings = s
	}
}

// WithTheme sets the theme identity used for suite keying.
func WithTheme(name string) Option {
	return func(e *Engine) { e.theme = name }
}

// WithLogger routes engine diagnostics to logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// New creates an engine that applies spans through buckets built by
// factory.
func New(factory decor.Factory, opts ...Option) *Engine {
	e := &Engine{
		settings: config.Default(),
		theme:    "default",
		docs:     make(map[string]*docState),
		patterns: pattern.NewCache(patternCacheSize),
		decor:    decor.NewManager(factory),
		log:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.compiled = e.patterns.CompileAll(e.settings.IgnorePatterns)
	e.sched = sched.New(e.settings.UpdateDelay(), e.runScheduled)
	return e
}

// TriggerUpdate requests a debounced pipeline run for the buffer. Any
// in-flight run is cancelled; bursts of triggers coalesce into one run.
func (e *Engine) TriggerUpdate(buf host.Buffer, view host.View) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.target.buf = buf
	e.target.view = view
	e.mu.Unlock()

	e.sched.Trigger()
}

// Flush runs any pending update immediately. Intended for tests and
// for hosts that need a synchronous refresh point.
func (e *Engine) Flush() {
	e.sched.Flush()
}

// runScheduled is the scheduler's sole callback.
func (e *Engine) runScheduled(ctx context.Context) {
	e.mu.Lock()
	buf, view := e.target.buf, e.target.view
	e.mu.Unlock()

	if buf == nil {
		return
	}
	if err := e.RunOnce(ctx, buf, view); err != nil {
		if errors.Is(err, span.ErrCancelled) {
			e.log.Debug("update superseded", "buffer", buf.ID())
		} else {
			e.log.Error("update failed", "buffer", buf.ID(), "err", err)
		}
	}
}

// RunOnce executes the full pipeline for one buffer synchronously.
// On cancellation nothing is applied and span.ErrCancelled returns.
func (e *Engine) RunOnce(ctx context.Context, buf host.Buffer, view host.View) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	settings := e.settings
	theme := e.theme
	compiled := e.compiled
	gen := e.configGen
	st := e.doc(buf.ID())
	e.mu.Unlock()

	suite := e.suite(settings, theme)

	if settings.LanguageIgnored(buf.LanguageID()) {
		e.decor.Clear(buf.ID(), suite)
		e.log.Debug("language excluded", "buffer", buf.ID(), "language", buf.LanguageID())
		return nil
	}

	version := buf.Version()
	lineCount := buf.LineCount()

	// Refresh the ignored-line set when the content moved on or the
	// last detection was cut short. A partial set is used for this
	// run but not cached as complete.
	if len(compiled) == 0 {
		st.ignored = nil
	} else if st.ignoredVersion != version || !st.ignoredFull || st.configGen != gen {
		set, err := exclude.Detect(ctx, buf.Text(), compiled, exclude.Options{
			MaxSpanLines: settings.MaxSpanLines,
		})
		st.ignored = set
		st.ignoredVersion = version
		st.ignoredFull = err == nil
		if err != nil {
			e.log.Debug("exclusion pass cancelled, using partial set",
				"buffer", buf.ID(), "lines", len(set))
		}
	}
	st.configGen = gen

	// Analyze the candidate window into the columnar store.
	req := span.Request{
		Ranges:    rangesOf(view),
		LineCount: lineCount,
		Buckets:   len(settings.Colors),
		Ignored:   st.ignored,
	}
	st.data.Resize(lineCount)
	lines := span.Candidates(req)
	for _, l := range lines {
		a := indent.Analyze(buf.LineText(l), buf.TabSize(), settings.SkipErrors)
		a.Ignored = st.ignored.Has(l)
		st.data.SetLine(l, a)
	}
	if ctx.Err() != nil {
		return span.ErrCancelled
	}

	req.Scope = e.findScope(buf, view, st, settings)
	req.Analysis = st.data.Line

	bundle, err := span.Generate(ctx, req)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return span.ErrCancelled
	}

	force := st.suiteKey != suite.Key()
	st.suiteKey = suite.Key()
	applied := e.decor.Apply(buf.ID(), version, suite, bundle, decor.ApplyOptions{
		Incremental: true,
		Force:       force,
	})
	e.log.Debug("update applied",
		"buffer", buf.ID(),
		"lines", len(bundle.ProcessedLines),
		"buckets", applied)
	return nil
}

// ReloadConfig swaps in new settings: patterns recompile, the compile
// cache clears, the debounce delay updates, and cached exclusion sets
// invalidate. The bucket suite rotates automatically on the next run
// when the visual fingerprint changed.
func (e *Engine) ReloadConfig(s config.Settings) {
	s.Sanitize()

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.settings = s
	e.patterns.Clear()
	e.compiled = e.patterns.CompileAll(s.IgnorePatterns)
	// Bumping the generation invalidates every buffer's cached
	// exclusion set without touching state the pipeline owns.
	e.configGen++
	e.mu.Unlock()

	e.sched.SetDelay(s.UpdateDelay())
	e.log.Info("configuration reloaded",
		"colors", len(s.Colors), "patterns", len(s.IgnorePatterns))
	e.sched.Trigger()
}

// SetTheme records a theme switch; the suite rotates on the next run.
func (e *Engine) SetTheme(name string) {
	e.mu.Lock()
	e.theme = name
	e.mu.Unlock()
	e.sched.Trigger()
}

// CloseBuffer discards all state held for the buffer.
func (e *Engine) CloseBuffer(id string) {
	e.mu.Lock()
	delete(e.docs, id)
	if e.target.buf != nil && e.target.buf.ID() == id {
		e.target.buf = nil
		e.target.view = nil
	}
	e.mu.Unlock()

	e.decor.CloseBuffer(id)
}

// Dispose tears the engine down: the scheduler stops, every suite is
// disposed, and caches empty. The engine is unusable afterwards.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.docs = make(map[string]*docState)
	e.mu.Unlock()

	e.sched.Stop()
	e.decor.Dispose()
	e.patterns.Clear()
}

// doc returns (creating if needed) the state for a buffer. Caller
// holds e.mu.
func (e *Engine) doc(id string) *docState {
	st, ok := e.docs[id]
	if !ok {
		st = &docState{data: indent.NewDocumentData(0)}
		e.docs[id] = st
	}
	return st
}

// suite resolves the bucket suite for the settings/theme identity,
// building it on first use.
func (e *Engine) suite(s config.Settings, theme string) *decor.Suite {
	key := s.Fingerprint() + "@" + theme
	return e.decor.Suite(key, func() []decor.BucketSpec {
		return buildSpecs(s)
	})
}

// buildSpecs expands settings into the 2N+2 bucket specs of a suite.
// Active variants are brightness-adjusted copies of their spectrum
// color; colorless entries become disabled buckets.
func buildSpecs(s config.Settings) []decor.BucketSpec {
	specs := make([]decor.BucketSpec, 0, 2*len(s.Colors)+2)
	for i, raw := range s.Colors {
		c, ok := colorutil.Parse(raw)
		specs = append(specs, decor.BucketSpec{
			Kind: decor.KindSpectrum, Index: i, Color: c, HasColor: ok,
			Style: s.IndicatorStyle, LightWidth: s.LightWidth,
		})
		specs = append(specs, decor.BucketSpec{
			Kind: decor.KindActive, Index: i,
			Color: colorutil.Adjust(c, s.ActiveBrightness), HasColor: ok,
			Style: s.IndicatorStyle, LightWidth: s.LightWidth,
		})
	}
	ec, eok := colorutil.Parse(s.ErrorColor)
	specs = append(specs, decor.BucketSpec{Kind: decor.KindError, Color: ec, HasColor: eok})
	mc, mok := colorutil.Parse(s.MixedColor)
	specs = append(specs, decor.BucketSpec{Kind: decor.KindMixed, Color: mc, HasColor: mok})
	return specs
}

// findScope resolves the active scope for the view's cursor.
func (e *Engine) findScope(buf host.Buffer, view host.View, st *docState, settings config.Settings) scope.Result {
	line, col, ok := cursorOf(view)
	if !ok {
		return scope.None
	}
	src := &scopeSource{
		buf:        buf,
		data:       st.data,
		tabSize:    buf.TabSize(),
		skipErrors: settings.SkipErrors,
	}
	return scope.Find(scope.Cursor{Line: line, Col: col, Valid: true}, st.ignored, src)
}

func rangesOf(view host.View) [][2]int {
	if view == nil {
		return nil
	}
	return view.VisibleRanges()
}

func cursorOf(view host.View) (int, int, bool) {
	if view == nil {
		return 0, 0, false
	}
	return view.Cursor()
}

// scopeSource adapts a buffer plus its indent store to scope.Source.
// Lines outside the analyzed window fall back to direct analysis.
type scopeSource struct {
	buf        host.Buffer
	data       *indent.DocumentData
	tabSize    int
	skipErrors bool
}

func (s *scopeSource) LineCount() int {
	return s.buf.LineCount()
}

func (s *scopeSource) Blocks(line int) int {
	if s.data.HasLine(line) {
		return s.data.BlockCount(line)
	}
	return indent.Analyze(s.buf.LineText(line), s.tabSize, s.skipErrors).BlockCount()
}

func (s *scopeSource) Blank(line int) bool {
	return strings.TrimSpace(s.buf.LineText(line)) == ""
}

func (s *scopeSource) TrimmedEnd(line int) int {
	return len(strings.TrimRight(s.buf.LineText(line), " \t"))
}
