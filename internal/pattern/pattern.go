// Package pattern compiles user-supplied match patterns into regular
// expressions and caches the results by (source, flags).
//
// Patterns may be written bare ("TODO.*") or wrapped in the familiar
// /source/flags form ("/^---$/m"). Flags are deduplicated; multiline
// matching is always enabled, and find-all use additionally forces the
// "g" flag. A pattern that fails to compile is dropped on its own and
// never fails the surrounding set.
package pattern

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/prism/internal/cache"
)

// Compiled is a validated pattern ready for matching.
type Compiled struct {
	// Source is the pattern body without wrapping slashes.
	Source string

	// Flags is the normalized flag set, sorted and deduplicated.
	Flags string

	// Re is the compiled expression.
	Re *regexp.Regexp
}

// Split separates a raw pattern into source and flags. A raw value of
// the form /source/flags is unwrapped; anything else is taken verbatim
// as a source with no flags.
func Split(raw string) (source, flags string) {
	if len(raw) > 1 && raw[0] == '/' {
		if end := strings.LastIndexByte(raw[1:], '/'); end >= 0 {
			return raw[1 : end+1], raw[end+2:]
		}
	}
	return raw, ""
}

// NormalizeFlags deduplicates flags, always adds "m", and force-adds
// "g" when global is set. The result is sorted for stable cache keys.
func NormalizeFlags(flags string, global bool) string {
	set := make(map[rune]struct{}, len(flags)+2)
	for _, f := range flags {
		set[f] = struct{}{}
	}
	set['m'] = struct{}{}
	if global {
		set['g'] = struct{}{}
	}

	out := make([]rune, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return string(out)
}

// compile maps the flag set onto Go regexp inline flags and compiles.
// "g" has no Go equivalent: find-all matching is global by nature, so
// it is tracked in the key but contributes nothing to the expression.
func compile(source, flags string) (*regexp.Regexp, error) {
	var inline []byte
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			inline = append(inline, byte(f))
		}
	}
	expr := source
	if len(inline) > 0 {
		expr = "(?" + string(inline) + ")" + source
	}
	return regexp.Compile(expr)
}

// Cache compiles patterns and memoizes the results. One instance is
// shared per running system; it is injected rather than held as a
// package global so the core stays testable without a host.
//
// Cache is safe for concurrent use.
type Cache struct {
	c *cache.Bounded[string, *Compiled]
}

// NewCache creates a compile cache holding up to capacity entries.
func NewCache(capacity int) *Cache {
	return &Cache{c: cache.New[string, *Compiled](capacity)}
}

// Compile returns the compiled form of raw for find-all use. The
// second result is false when the pattern is invalid; such patterns
// are silently excluded from the caller's set.
func (pc *Cache) Compile(raw string) (*Compiled, bool) {
	source, flags := Split(raw)
	flags = NormalizeFlags(flags, true)

	key := source + "\x00" + flags
	if hit, ok := pc.c.Get(key); ok {
		return hit, true
	}

	re, err := compile(source, flags)
	if err != nil {
		return nil, false
	}

	p := &Compiled{Source: source, Flags: flags, Re: re}
	pc.c.Set(key, p)
	return p, true
}

// CompileAll compiles every valid pattern in raws, dropping the rest.
func (pc *Cache) CompileAll(raws []string) []*Compiled {
	out := make([]*Compiled, 0, len(raws))
	for _, raw := range raws {
		if p, ok := pc.Compile(raw); ok {
			out = append(out, p)
		}
	}
	return out
}

// Clear empties the cache. Called on configuration reload.
func (pc *Cache) Clear() {
	pc.c.Purge()
}

// Len returns the number of cached compilations.
func (pc *Cache) Len() int {
	return pc.c.Len()
}
