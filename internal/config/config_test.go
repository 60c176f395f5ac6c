package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Store.Kind != "toml" {
		t.Errorf("expected default store kind toml, got %q", s.Store.Kind)
	}
	if !s.Debugger.AutoOpenCurrent {
		t.Error("expected AutoOpenCurrent default true")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepwise.toml")
	content := `
[debugger]
search_paths = ["src", "lib"]
source_id_threshold = 100

[store]
kind = "sqlite"
path = "bp.db"

[watch]
enabled = false
debounce = "50ms"

[ui.keys]
toggle_breakpoint = "F9"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Debugger.SearchPaths) != 2 || s.Debugger.SearchPaths[1] != "lib" {
		t.Errorf("unexpected search paths %v", s.Debugger.SearchPaths)
	}
	if s.Debugger.SourceIDThreshold != 100 {
		t.Errorf("expected threshold 100, got %d", s.Debugger.SourceIDThreshold)
	}
	if s.Store.Kind != "sqlite" || s.Store.Path != "bp.db" {
		t.Errorf("unexpected store settings %+v", s.Store)
	}
	if s.Watch.Enabled {
		t.Error("expected watch disabled")
	}
	if s.DebounceDuration() != 50*time.Millisecond {
		t.Errorf("expected 50ms debounce, got %v", s.DebounceDuration())
	}
	if s.UI.Keys["toggle_breakpoint"] != "F9" {
		t.Errorf("unexpected key bindings %v", s.UI.Keys)
	}
	if s.UI.TabWidth != 4 {
		t.Errorf("expected default tab width 4, got %d", s.UI.TabWidth)
	}
	// Untouched section keeps its default.
	if s.Logging.Level != "info" {
		t.Errorf("expected default log level, got %q", s.Logging.Level)
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[debugger\nnope"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Path != path {
		t.Errorf("expected path %s, got %s", path, pe.Path)
	}
}

func TestApplyEnv(t *testing.T) {
	s := Defaults()
	err := ApplyEnv(&s, envMap(map[string]string{
		"STEPWISE_LOG_LEVEL":           "debug",
		"STEPWISE_STORE_KIND":          "yaml",
		"STEPWISE_WATCH_ENABLED":       "off",
		"STEPWISE_SOURCE_ID_THRESHOLD": "7",
		"STEPWISE_SEARCH_PATHS":        "a" + string(os.PathListSeparator) + " b ",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if s.Logging.Level != "debug" || s.Store.Kind != "yaml" {
		t.Errorf("string overrides not applied: %+v", s)
	}
	if s.Watch.Enabled {
		t.Error("expected watch disabled by env")
	}
	if s.Debugger.SourceIDThreshold != 7 {
		t.Errorf("expected threshold 7, got %d", s.Debugger.SourceIDThreshold)
	}
	if len(s.Debugger.SearchPaths) != 2 || s.Debugger.SearchPaths[1] != "b" {
		t.Errorf("unexpected search paths %q", s.Debugger.SearchPaths)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"STEPWISE_WATCH_ENABLED":       "maybe",
		"STEPWISE_SOURCE_ID_THRESHOLD": "-3",
		"STEPWISE_TAB_WIDTH":           "0",
	}
	for k, v := range tests {
		s := Defaults()
		err := ApplyEnv(&s, envMap(map[string]string{k: v}))
		if !errors.Is(err, ErrInvalidSetting) {
			t.Errorf("%s=%s: expected ErrInvalidSetting, got %v", k, v, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	s := Defaults()
	s.Store.Kind = "memory"
	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	var got Settings
	if err := Parse(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Store.Kind != "memory" || got.Watch.Debounce != s.Watch.Debounce {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
