package debug

import (
	"errors"
	"testing"

	"github.com/dshills/stepwise/internal/config"
	"github.com/dshills/stepwise/internal/config/store"
)

type bpTuple struct {
	kind      BreakpointKind
	file      string
	line      int
	enabled   bool
	condition string
}

func tuples(bps *BreakpointRegistry, sources *LineSourceRegistry) map[bpTuple]int {
	out := make(map[bpTuple]int)
	for _, bp := range bps.All() {
		file := ""
		if src, ok := sources.Get(bp.SourceID); ok {
			file = src.Filename
		}
		out[bpTuple{bp.Kind, file, bp.Line, bp.Enabled, bp.Condition}]++
	}
	return out
}

func newBridge() (*ConfigurationBridge, *BreakpointRegistry, *LineSourceRegistry) {
	status := NewLineStatusTracker(nil)
	sources := NewLineSourceRegistry(1)
	bps := NewBreakpointRegistry(status, sources)
	return NewConfigurationBridge(sources, bps, nil), bps, sources
}

func TestConfigurationBridge_RoundTrip(t *testing.T) {
	bridge, bps, sources := newBridge()
	main := sources.Synthesize("main.lua", "/src/main.lua")
	util := sources.Synthesize("util.lua", "")
	bps.AddLine(main.ID, 3, "", false, true)
	bps.AddLine(util.ID, 8, "n == 2", true, false)
	bps.AddGlobal("done", false, true)
	bps.SetTemporary(main.ID, 20)
	want := tuples(bps, sources)

	cfg := store.NewMemory()
	bridge.Save(cfg)

	if n := config.GroupLen(cfg, config.GroupBreakpoints, config.BreakpointFields); n != 3 {
		t.Fatalf("saved %d breakpoints, want 3", n)
	}
	if v, _ := cfg.Get(config.GroupSources, config.FieldPath, 0); v != "/src/main.lua" {
		t.Errorf("srcfiles.path[0] = %q", v)
	}

	loaded, lbps, lsources := newBridge()
	if res := loaded.Load(cfg, false); res != LoadOK {
		t.Fatalf("Load() = %s, want ok", res)
	}
	got := tuples(lbps, lsources)
	if len(got) != len(want) {
		t.Fatalf("loaded %v, want %v", got, want)
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("tuple %+v: got %d, want %d", k, got[k], n)
		}
	}
	if _, ok := lbps.Temporary(); ok {
		t.Error("temporary breakpoint restored")
	}
	if src, ok := lsources.Find("main.lua", ""); !ok || src.Path != "/src/main.lua" {
		t.Errorf("source path not restored: %+v", src)
	}
}

func TestConfigurationBridge_SaveOverwrites(t *testing.T) {
	bridge, bps, sources := newBridge()
	src := sources.Synthesize("main.lua", "")
	for line := 1; line <= 3; line++ {
		bps.AddLine(src.ID, line, "", false, true)
	}
	cfg := store.NewMemory()
	bridge.Save(cfg)

	bps.Clear()
	bps.AddLine(src.ID, 9, "", false, true)
	bridge.Save(cfg)

	if n := config.GroupLen(cfg, config.GroupBreakpoints, config.BreakpointFields); n != 1 {
		t.Errorf("stale records kept: %d", n)
	}
}

func TestConfigurationBridge_LoadMoved(t *testing.T) {
	cfg := store.NewMemory()
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 0, "0")
	cfg.Set(config.GroupBreakpoints, config.FieldFile, 0, "main.lua")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 0, "20")

	bridge, bps, sources := newBridge()
	sources.Register(1, "main.lua", "/src/main.lua")
	rt := newFakeRuntime("main.lua")
	rt.relocate[20] = 25
	bps.SetRuntime(rt)

	if res := bridge.Load(cfg, true); res != LoadBreakpointsMoved {
		t.Fatalf("Load() = %s, want breakpoints moved", res)
	}
	all := bps.All()
	if len(all) != 1 || all[0].Line != 25 {
		t.Errorf("breakpoints = %+v, want one at line 25", all)
	}
}

func TestConfigurationBridge_LoadNotSet(t *testing.T) {
	cfg := store.NewMemory()
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 0, "0")
	cfg.Set(config.GroupBreakpoints, config.FieldFile, 0, "main.lua")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 0, "20")
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 1, "0")
	cfg.Set(config.GroupBreakpoints, config.FieldFile, 1, "main.lua")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 1, "4")

	bridge, bps, sources := newBridge()
	sources.Register(1, "main.lua", "/src/main.lua")
	rt := newFakeRuntime("main.lua")
	rt.relocate[4] = 5
	rt.reject[20] = true
	bps.SetRuntime(rt)

	if res := bridge.Load(cfg, true); res != LoadBreakpointsNotSet {
		t.Errorf("Load() = %s, want breakpoints not set", res)
	}
	if bps.Len() != 1 {
		t.Errorf("Len() = %d, want 1", bps.Len())
	}
}

func TestConfigurationBridge_LoadMalformed(t *testing.T) {
	cfg := store.NewMemory()
	// 0: missing global field
	cfg.Set(config.GroupBreakpoints, config.FieldFile, 0, "main.lua")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 0, "1")
	// 1: bad line
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 1, "0")
	cfg.Set(config.GroupBreakpoints, config.FieldFile, 1, "main.lua")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 1, "abc")
	// 2: global without condition
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 2, "1")
	// 3: valid, status defaults to enabled
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 3, "0")
	cfg.Set(config.GroupBreakpoints, config.FieldFile, 3, "main.lua")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 3, "7")

	bridge, bps, _ := newBridge()
	if res := bridge.Load(cfg, false); res != LoadBreakpointsNotSet {
		t.Errorf("Load() = %s, want breakpoints not set", res)
	}
	all := bps.All()
	if len(all) != 1 || all[0].Line != 7 || !all[0].Enabled {
		t.Errorf("breakpoints = %+v", all)
	}
}

func TestReadBreakpoint_FieldError(t *testing.T) {
	cfg := store.NewMemory()
	cfg.Set(config.GroupBreakpoints, config.FieldGlobal, 0, "0")
	cfg.Set(config.GroupBreakpoints, config.FieldLine, 0, "3")

	_, err := readBreakpoint(cfg, 0)
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FieldError", err)
	}
	if fe.Field != config.FieldFile || !errors.Is(err, ErrConfigFieldMissing) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadResult_Merge(t *testing.T) {
	if got := LoadOK.Merge(LoadBreakpointsMoved); got != LoadBreakpointsMoved {
		t.Errorf("ok+moved = %s", got)
	}
	if got := LoadBreakpointsNotSet.Merge(LoadBreakpointsMoved); got != LoadBreakpointsNotSet {
		t.Errorf("notset+moved = %s", got)
	}
}
