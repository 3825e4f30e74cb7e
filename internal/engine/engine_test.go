package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dshills/prism/internal/config"
	"github.com/dshills/prism/internal/decor"
	"github.com/dshills/prism/internal/host"
	"github.com/dshills/prism/internal/span"
)

type fakeBucket struct {
	mu       sync.Mutex
	spec     decor.BucketSpec
	applies  int
	last     []span.Span
	disposed bool
}

func (b *fakeBucket) Apply(bufferID string, spans []span.Span) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applies++
	b.last = spans
}

func (b *fakeBucket) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
}

func (b *fakeBucket) spans() []span.Span {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

type fakeFactory struct {
	mu      sync.Mutex
	buckets []*fakeBucket
}

func (f *fakeFactory) NewBucket(spec decor.BucketSpec) decor.Bucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &fakeBucket{spec: spec}
	f.buckets = append(f.buckets, b)
	return b
}

func (f *fakeFactory) bucket(kind decor.Kind, index int) *fakeBucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.buckets {
		if b.spec.Kind == kind && b.spec.Index == index {
			return b
		}
	}
	return nil
}

const sample = "func main() {\n\tif x {\n\t\tdo()\n\t}\n}\n"

func newTestEngine(f *fakeFactory) *Engine {
	s := config.Default()
	s.UpdateDelayMS = 1
	return New(f, WithSettings(s))
}

func TestRunOnceAppliesSpectrum(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)
	defer e.Dispose()

	buf := host.NewMemBuffer("a.go", "go", 4, sample)

	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	b0 := f.bucket(decor.KindSpectrum, 0)
	if b0 == nil {
		t.Fatal("spectrum bucket 0 missing")
	}
	// Lines 1, 2, 3 carry a first-level block.
	if got := len(b0.spans()); got != 3 {
		t.Errorf("bucket 0 holds %d spans, want 3: %v", got, b0.spans())
	}
	b1 := f.bucket(decor.KindSpectrum, 1)
	if got := len(b1.spans()); got != 1 {
		t.Errorf("bucket 1 holds %d spans, want 1: %v", got, b1.spans())
	}
}

func TestRunOnceActiveScope(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)
	defer e.Dispose()

	buf := host.NewMemBuffer("a.go", "go", 4, sample)
	buf.SetCursor(2, 0) // inside the if body

	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	active := f.bucket(decor.KindActive, 1)
	if active == nil {
		t.Fatal("active bucket 1 missing")
	}
	if len(active.spans()) == 0 {
		t.Error("cursor inside a nested block should emphasize level 1")
	}
}

func TestRunOnceIgnoredLanguageClears(t *testing.T) {
	f := &fakeFactory{}
	s := config.Default()
	s.IgnoreLanguages = []string{"markdown"}
	e := New(f, WithSettings(s))
	defer e.Dispose()

	buf := host.NewMemBuffer("doc.md", "markdown", 4, "\tindented\n")

	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	b0 := f.bucket(decor.KindSpectrum, 0)
	if b0 == nil {
		t.Fatal("suite should still be built")
	}
	if len(b0.spans()) != 0 {
		t.Errorf("excluded language should clear spans, got %v", b0.spans())
	}
}

func TestRunOnceIgnorePatterns(t *testing.T) {
	f := &fakeFactory{}
	s := config.Default()
	s.IgnorePatterns = []string{"/^\\s*skipme/"}
	e := New(f, WithSettings(s))
	defer e.Dispose()

	buf := host.NewMemBuffer("a.go", "go", 4, "\tkeep\n\tskipme\n\tkeep\n")

	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	b0 := f.bucket(decor.KindSpectrum, 0)
	for _, sp := range b0.spans() {
		if sp.StartLine == 1 {
			t.Errorf("line 1 matches an ignore pattern but produced %+v", sp)
		}
	}
	if len(b0.spans()) != 2 {
		t.Errorf("bucket 0 holds %d spans, want 2", len(b0.spans()))
	}
}

func TestRunOnceCancelledAppliesNothing(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)
	defer e.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := host.NewMemBuffer("a.go", "go", 4, sample)
	err := e.RunOnce(ctx, buf, buf)
	if err == nil {
		t.Fatal("cancelled run should report an error")
	}

	for _, b := range f.buckets {
		if b.applies != 0 {
			t.Fatalf("cancelled run applied spans to %v", b.spec.Kind)
		}
	}
}

func TestTriggerUpdateDebounces(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)
	defer e.Dispose()

	buf := host.NewMemBuffer("a.go", "go", 4, sample)
	for i := 0; i < 5; i++ {
		e.TriggerUpdate(buf, buf)
	}

	deadline := time.After(2 * time.Second)
	for f.bucket(decor.KindSpectrum, 0) == nil || f.bucket(decor.KindSpectrum, 0).spans() == nil {
		select {
		case <-deadline:
			t.Fatal("debounced update never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	b0 := f.bucket(decor.KindSpectrum, 0)
	b0.mu.Lock()
	applies := b0.applies
	b0.mu.Unlock()
	if applies != 1 {
		t.Errorf("burst of triggers applied %d times, want 1", applies)
	}
}

func TestReloadConfigRotatesSuite(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)
	defer e.Dispose()

	buf := host.NewMemBuffer("a.go", "go", 4, sample)
	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	before := len(f.buckets)

	s := config.Default()
	s.Colors = []string{"#111111", "#222222"}
	e.ReloadConfig(s)

	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(f.buckets) <= before {
		t.Error("palette change should build a fresh suite")
	}
	if b := f.bucket(decor.KindSpectrum, 0); b == nil {
		t.Fatal("new suite missing spectrum bucket")
	}
}

func TestCloseBufferDropsState(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)
	defer e.Dispose()

	buf := host.NewMemBuffer("a.go", "go", 4, sample)
	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	b0 := f.bucket(decor.KindSpectrum, 0)
	first := b0.applies

	e.CloseBuffer("a.go")

	// Same content re-applies from scratch after close.
	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if b0.applies <= first {
		t.Error("state should reset on buffer close")
	}
}

func TestDisposeStopsEngine(t *testing.T) {
	f := &fakeFactory{}
	e := newTestEngine(f)

	buf := host.NewMemBuffer("a.go", "go", 4, sample)
	if err := e.RunOnce(context.Background(), buf, buf); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	e.Dispose()

	for _, b := range f.buckets {
		b.mu.Lock()
		disposed := b.disposed
		b.mu.Unlock()
		if !disposed {
			t.Error("dispose should release every bucket")
		}
	}
	if err := e.RunOnce(context.Background(), buf, buf); err != ErrDisposed {
		t.Errorf("RunOnce after dispose = %v, want ErrDisposed", err)
	}
	// Safe to dispose twice.
	e.Dispose()
}
