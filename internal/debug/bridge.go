package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dshills/stepwise/internal/config"
	"github.com/dshills/stepwise/internal/logging"
)

// ConfigurationBridge saves and restores line sources and breakpoints to a
// config.Store.
type ConfigurationBridge struct {
	sources     *LineSourceRegistry
	breakpoints *BreakpointRegistry
	log         *logging.Logger
}

// NewConfigurationBridge creates a bridge over the given registries.
func NewConfigurationBridge(sources *LineSourceRegistry, breakpoints *BreakpointRegistry, log *logging.Logger) *ConfigurationBridge {
	if log == nil {
		log = logging.Nop()
	}
	return &ConfigurationBridge{sources: sources, breakpoints: breakpoints, log: log}
}

// Save overwrites the breakpoints and srcfiles groups of store. The
// temporary breakpoint is never saved.
func (b *ConfigurationBridge) Save(store config.Store) {
	config.ClearGroup(store, config.GroupBreakpoints, config.BreakpointFields)
	config.ClearGroup(store, config.GroupSources, config.SourceFields)

	for i, src := range b.sources.All() {
		store.Set(config.GroupSources, config.FieldFilename, i, src.Filename)
		store.Set(config.GroupSources, config.FieldPath, i, src.Path)
	}

	for i, bp := range b.breakpoints.All() {
		file := ""
		if !bp.IsGlobal() {
			if src, ok := b.sources.Get(bp.SourceID); ok {
				file = src.Filename
			}
		}
		store.Set(config.GroupBreakpoints, config.FieldGlobal, i, formatBool(bp.IsGlobal()))
		store.Set(config.GroupBreakpoints, config.FieldFile, i, file)
		store.Set(config.GroupBreakpoints, config.FieldLine, i, strconv.Itoa(bp.Line))
		store.Set(config.GroupBreakpoints, config.FieldStatus, i, formatBool(bp.Enabled))
		store.Set(config.GroupBreakpoints, config.FieldCond, i, bp.Condition)
		store.Set(config.GroupBreakpoints, config.FieldCondMode, i, formatBool(bp.StopOnChange))
	}
}

// savedBreakpoint is one decoded breakpoints record.
type savedBreakpoint struct {
	global       bool
	file         string
	line         int
	enabled      bool
	condition    string
	stopOnChange bool
}

// Load restores sources and breakpoints from store. With runtimeAttached
// the runtime confirms each line breakpoint and may move or reject it;
// without it records are recreated locally. Malformed records are skipped
// and counted as not set.
func (b *ConfigurationBridge) Load(store config.Store, runtimeAttached bool) LoadResult {
	b.loadSources(store)

	var notSet, moved int
	n := config.GroupLen(store, config.GroupBreakpoints, config.BreakpointFields)
	for i := 0; i < n; i++ {
		rec, err := readBreakpoint(store, i)
		if err != nil {
			b.log.Warn("skipping saved breakpoint: %v", err)
			notSet++
			continue
		}

		if rec.global {
			if _, err := b.breakpoints.AddGlobal(rec.condition, rec.stopOnChange, rec.enabled); err != nil {
				b.log.Warn("global breakpoint %q not set: %v", rec.condition, err)
				notSet++
			}
			continue
		}

		src, _ := b.sources.FindOrSynthesize(rec.file, "")
		bp, wasMoved, err := b.breakpoints.AddLine(src.ID, rec.line, rec.condition, rec.stopOnChange, rec.enabled)
		switch {
		case err != nil && bp == nil:
			b.log.Warn("breakpoint %s:%d not set: %v", rec.file, rec.line, err)
			notSet++
		case err != nil:
			b.log.Warn("breakpoint %s:%d restored with errors: %v", rec.file, rec.line, err)
			notSet++
		case wasMoved && runtimeAttached:
			b.log.Info("breakpoint %s:%d moved to line %d", rec.file, rec.line, bp.Line)
			moved++
		}
	}

	switch {
	case notSet > 0:
		return LoadBreakpointsNotSet
	case moved > 0:
		return LoadBreakpointsMoved
	default:
		return LoadOK
	}
}

func (b *ConfigurationBridge) loadSources(store config.Store) {
	n := config.GroupLen(store, config.GroupSources, config.SourceFields)
	for i := 0; i < n; i++ {
		name, ok := store.Get(config.GroupSources, config.FieldFilename, i)
		if !ok || name == "" {
			continue
		}
		path, _ := store.Get(config.GroupSources, config.FieldPath, i)
		b.sources.FindOrSynthesize(name, path)
	}
}

func readBreakpoint(store config.Store, i int) (savedBreakpoint, error) {
	var rec savedBreakpoint

	get := func(field string) (string, error) {
		v, ok := store.Get(config.GroupBreakpoints, field, i)
		if !ok || v == "" {
			return "", &FieldError{Group: config.GroupBreakpoints, Field: field, Index: i, Err: ErrConfigFieldMissing}
		}
		return v, nil
	}
	optional := func(field, def string) string {
		if v, ok := store.Get(config.GroupBreakpoints, field, i); ok && v != "" {
			return v
		}
		return def
	}

	global, err := get(config.FieldGlobal)
	if err != nil {
		return rec, err
	}
	rec.global = parseBool(global)
	rec.enabled = parseBool(optional(config.FieldStatus, "1"))
	rec.condition = optional(config.FieldCond, "")
	rec.stopOnChange = parseBool(optional(config.FieldCondMode, "0"))

	if rec.global {
		if rec.condition == "" {
			return rec, &FieldError{Group: config.GroupBreakpoints, Field: config.FieldCond, Index: i, Err: ErrConfigFieldMissing}
		}
		return rec, nil
	}

	if rec.file, err = get(config.FieldFile); err != nil {
		return rec, err
	}
	line, err := get(config.FieldLine)
	if err != nil {
		return rec, err
	}
	rec.line, err = strconv.Atoi(line)
	if err != nil || rec.line < 1 {
		return rec, &FieldError{
			Group: config.GroupBreakpoints, Field: config.FieldLine, Index: i,
			Err: fmt.Errorf("%q: %w", line, errors.Join(ErrConfigFieldMissing, ErrInvalidLine)),
		}
	}
	return rec, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool {
	return s == "1" || s == "true"
}
