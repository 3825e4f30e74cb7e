// Package config defines the highlighting settings, their defaults and
// validation, file loading in TOML or YAML, and change watching.
//
// Validation happens here, at the boundary where external values enter:
// invalid colors sanitize to the empty sentinel (disabling just that
// bucket) and invalid patterns are dropped later by the compiler, so
// bad input never surfaces as a pipeline fault. When no colors survive
// validation at all, the built-in palette applies instead of disabling
// rendering.
package config

import (
	"hash/fnv"
	"strconv"
	"time"

	"github.com/dshills/prism/internal/colorutil"
)

// Indicator styles.
const (
	// StyleClassic fills each indent block with its bucket color.
	StyleClassic = "classic"

	// StyleLight draws only a thin line at the block boundary.
	StyleLight = "light"
)

// Settings holds every tunable of the highlighting engine.
type Settings struct {
	// Colors is the cycling bucket palette. Each entry is a color
	// descriptor (#rrggbb, #rrggbbaa, rgba(...)); invalid entries are
	// disabled individually.
	Colors []string `toml:"colors" yaml:"colors"`

	// ErrorColor marks malformed indentation. Empty disables it.
	ErrorColor string `toml:"error_color" yaml:"error_color"`

	// MixedColor marks lines mixing tabs and spaces. Empty disables it.
	MixedColor string `toml:"mixed_color" yaml:"mixed_color"`

	// IgnorePatterns lists patterns whose matches exclude lines from
	// highlighting. Bare or /source/flags form.
	IgnorePatterns []string `toml:"ignore_patterns" yaml:"ignore_patterns"`

	// IgnoreLanguages disables the engine entirely for these language
	// identifiers.
	IgnoreLanguages []string `toml:"ignore_languages" yaml:"ignore_languages"`

	// SkipErrors suppresses malformed-indentation detection.
	SkipErrors bool `toml:"skip_errors" yaml:"skip_errors"`

	// UpdateDelayMS is the debounce delay in milliseconds.
	UpdateDelayMS int `toml:"update_delay_ms" yaml:"update_delay_ms"`

	// IndicatorStyle is StyleClassic or StyleLight.
	IndicatorStyle string `toml:"indicator_style" yaml:"indicator_style"`

	// LightWidth is the boundary line width for StyleLight, in cells.
	LightWidth int `toml:"light_width" yaml:"light_width"`

	// ActiveBrightness adjusts active-scope emphasis: positive blends
	// toward white, negative toward black. Clamped to [-1, 1].
	ActiveBrightness float64 `toml:"active_brightness" yaml:"active_brightness"`

	// MaxSpanLines caps the line span of one ignore-pattern match.
	MaxSpanLines int `toml:"max_span_lines" yaml:"max_span_lines"`
}

// Default returns the built-in settings: a four-color translucent
// rainbow with classic fill.
func Default() Settings {
	return Settings{
		Colors: []string{
			"rgba(255,255,64,0.07)",
			"rgba(127,255,127,0.07)",
			"rgba(255,127,255,0.07)",
			"rgba(79,236,236,0.07)",
		},
		ErrorColor:       "rgba(128,32,32,0.6)",
		MixedColor:       "rgba(128,32,96,0.6)",
		UpdateDelayMS:    100,
		IndicatorStyle:   StyleClassic,
		LightWidth:       1,
		ActiveBrightness: 0.5,
		MaxSpanLines:     100,
	}
}

// UpdateDelay returns the debounce delay as a duration.
func (s Settings) UpdateDelay() time.Duration {
	return time.Duration(s.UpdateDelayMS) * time.Millisecond
}

// Sanitize validates user-facing fields in place. Colors that fail to
// parse become empty sentinels; if the whole palette is invalid the
// default palette replaces it. Out-of-range numerics clamp to the
// defaults.
func (s *Settings) Sanitize() {
	// Rewrite into a copy; the caller's slice stays untouched.
	valid := 0
	colors := make([]string, len(s.Colors))
	for i, c := range s.Colors {
		if _, ok := colorutil.Parse(c); ok {
			colors[i] = c
			valid++
		}
	}
	if valid == 0 {
		colors = Default().Colors
	}
	s.Colors = colors

	if _, ok := colorutil.Parse(s.ErrorColor); !ok {
		s.ErrorColor = ""
	}
	if _, ok := colorutil.Parse(s.MixedColor); !ok {
		s.MixedColor = ""
	}

	if s.IndicatorStyle != StyleClassic && s.IndicatorStyle != StyleLight {
		s.IndicatorStyle = StyleClassic
	}
	if s.UpdateDelayMS < 0 {
		s.UpdateDelayMS = Default().UpdateDelayMS
	}
	if s.LightWidth < 1 {
		s.LightWidth = 1
	}
	if s.ActiveBrightness > 1 {
		s.ActiveBrightness = 1
	}
	if s.ActiveBrightness < -1 {
		s.ActiveBrightness = -1
	}
	if s.MaxSpanLines < 1 {
		s.MaxSpanLines = Default().MaxSpanLines
	}
}

// LanguageIgnored reports whether the language identifier is excluded.
func (s Settings) LanguageIgnored(lang string) bool {
	for _, l := range s.IgnoreLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// Fingerprint identifies the visual portion of the settings. Bucket
// suites are keyed by fingerprint plus theme, so only changes that
// affect rendering rotate the suite.
func (s Settings) Fingerprint() string {
	h := fnv.New64a()
	write := func(v string) {
		h.Write([]byte(v))
		h.Write([]byte{0})
	}
	for _, c := range s.Colors {
		write(c)
	}
	write(s.ErrorColor)
	write(s.MixedColor)
	write(s.IndicatorStyle)
	write(strconv.Itoa(s.LightWidth))
	write(strconv.FormatFloat(s.ActiveBrightness, 'f', -1, 64))
	return strconv.FormatUint(h.Sum64(), 16)
}
