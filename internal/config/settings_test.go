package config

import (
	"testing"
	"time"
)

func TestDefaultIsSane(t *testing.T) {
	s := Default()
	s.Sanitize()

	for i, c := range s.Colors {
		if c == "" {
			t.Errorf("default color %d failed its own validation", i)
		}
	}
	if s.UpdateDelay() != 100*time.Millisecond {
		t.Errorf("UpdateDelay = %v, want 100ms", s.UpdateDelay())
	}
	if s.IndicatorStyle != StyleClassic {
		t.Errorf("IndicatorStyle = %q, want classic", s.IndicatorStyle)
	}
}

func TestSanitizeDisablesInvalidColor(t *testing.T) {
	s := Default()
	s.Colors = []string{"#ff0000", "chartreuse-ish", "#00ff00"}
	s.Sanitize()

	if s.Colors[0] != "#ff0000" || s.Colors[2] != "#00ff00" {
		t.Error("valid colors must survive")
	}
	if s.Colors[1] != "" {
		t.Errorf("invalid color = %q, want empty sentinel", s.Colors[1])
	}
}

func TestSanitizeFallsBackToDefaultPalette(t *testing.T) {
	s := Default()
	s.Colors = []string{"bad", "worse"}
	s.Sanitize()

	if len(s.Colors) != len(Default().Colors) {
		t.Fatalf("Colors = %v, want the default palette", s.Colors)
	}
	for i, c := range s.Colors {
		if c != Default().Colors[i] {
			t.Errorf("color %d = %q, want default", i, c)
		}
	}
}

func TestSanitizeLeavesCallerSliceIntact(t *testing.T) {
	colors := []string{"#ff0000", "bogus", "#00ff00"}
	s := Default()
	s.Colors = colors
	s.Sanitize()

	if colors[1] != "bogus" {
		t.Errorf("caller slice entry = %q, sanitization must not write through", colors[1])
	}
	if s.Colors[1] != "" {
		t.Errorf("sanitized entry = %q, want empty sentinel", s.Colors[1])
	}
}

func TestSanitizeErrorColor(t *testing.T) {
	s := Default()
	s.ErrorColor = "not-a-color"
	s.MixedColor = ""
	s.Sanitize()

	if s.ErrorColor != "" {
		t.Errorf("ErrorColor = %q, want empty sentinel", s.ErrorColor)
	}
}

func TestSanitizeClampsNumerics(t *testing.T) {
	s := Default()
	s.UpdateDelayMS = -5
	s.ActiveBrightness = 3
	s.LightWidth = 0
	s.MaxSpanLines = -1
	s.IndicatorStyle = "neon"
	s.Sanitize()

	if s.UpdateDelayMS != Default().UpdateDelayMS {
		t.Errorf("UpdateDelayMS = %d", s.UpdateDelayMS)
	}
	if s.ActiveBrightness != 1 {
		t.Errorf("ActiveBrightness = %f, want 1", s.ActiveBrightness)
	}
	if s.LightWidth != 1 {
		t.Errorf("LightWidth = %d, want 1", s.LightWidth)
	}
	if s.MaxSpanLines != Default().MaxSpanLines {
		t.Errorf("MaxSpanLines = %d", s.MaxSpanLines)
	}
	if s.IndicatorStyle != StyleClassic {
		t.Errorf("IndicatorStyle = %q, want classic fallback", s.IndicatorStyle)
	}
}

func TestLanguageIgnored(t *testing.T) {
	s := Default()
	s.IgnoreLanguages = []string{"markdown", "plaintext"}

	if !s.LanguageIgnored("markdown") {
		t.Error("markdown should be ignored")
	}
	if s.LanguageIgnored("go") {
		t.Error("go should not be ignored")
	}
}

func TestFingerprintTracksVisualFields(t *testing.T) {
	a := Default()
	b := Default()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical settings must share a fingerprint")
	}

	b.Colors = append([]string{}, a.Colors...)
	b.Colors[0] = "#123456"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("palette change must rotate the fingerprint")
	}

	c := Default()
	c.IgnorePatterns = []string{"different"}
	if a.Fingerprint() != c.Fingerprint() {
		t.Error("non-visual fields must not rotate the fingerprint")
	}
}
