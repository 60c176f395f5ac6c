package debug

import "sort"

// LineStatusEntry is the status of one line of a line source.
type LineStatusEntry struct {
	SourceID int
	Line     int
	Flags    LineFlags
}

type lineKey struct {
	source int
	line   int
}

// RefreshFunc is called whenever the flags of a line change. Flags is zero
// when the entry has been removed.
type RefreshFunc func(sourceID, line int, flags LineFlags)

// LineStatusTracker holds the sparse map of line status flags. An entry
// exists if and only if its flag mask is non-zero.
type LineStatusTracker struct {
	entries map[lineKey]*LineStatusEntry
	refresh RefreshFunc
}

// NewLineStatusTracker creates a tracker that reports changes to refresh.
func NewLineStatusTracker(refresh RefreshFunc) *LineStatusTracker {
	if refresh == nil {
		refresh = func(int, int, LineFlags) {}
	}
	return &LineStatusTracker{
		entries: make(map[lineKey]*LineStatusEntry),
		refresh: refresh,
	}
}

// Set ORs flag into the entry for (sourceID, line), creating it if needed.
func (t *LineStatusTracker) Set(sourceID, line int, flag LineFlags) {
	if flag == 0 {
		return
	}
	key := lineKey{sourceID, line}
	e, ok := t.entries[key]
	if !ok {
		e = &LineStatusEntry{SourceID: sourceID, Line: line}
		t.entries[key] = e
	}
	if e.Flags.Has(flag) {
		return
	}
	e.Flags |= flag
	t.refresh(sourceID, line, e.Flags)
}

// Clear removes flag from the entry for (sourceID, line), deleting the entry
// once no flag remains. Clearing an absent flag does nothing.
func (t *LineStatusTracker) Clear(sourceID, line int, flag LineFlags) {
	key := lineKey{sourceID, line}
	e, ok := t.entries[key]
	if !ok || e.Flags&flag == 0 {
		return
	}
	e.Flags &^= flag
	if e.Flags == 0 {
		delete(t.entries, key)
	}
	t.refresh(sourceID, line, e.Flags)
}

// Flags returns the flags of (sourceID, line).
func (t *LineStatusTracker) Flags(sourceID, line int) LineFlags {
	if e, ok := t.entries[lineKey{sourceID, line}]; ok {
		return e.Flags
	}
	return 0
}

// Entry returns a copy of the entry for (sourceID, line).
func (t *LineStatusTracker) Entry(sourceID, line int) (LineStatusEntry, bool) {
	e, ok := t.entries[lineKey{sourceID, line}]
	if !ok {
		return LineStatusEntry{}, false
	}
	return *e, true
}

// EntriesFor returns the entries of a line source ordered by line.
func (t *LineStatusTracker) EntriesFor(sourceID int) []LineStatusEntry {
	var out []LineStatusEntry
	for k, e := range t.entries {
		if k.source == sourceID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// ClearFlagEverywhere removes flag from every entry.
func (t *LineStatusTracker) ClearFlagEverywhere(flag LineFlags) {
	for _, k := range t.keys() {
		t.Clear(k.source, k.line, flag)
	}
}

// Reset removes every entry, reporting each removal.
func (t *LineStatusTracker) Reset() {
	keys := t.keys()
	t.entries = make(map[lineKey]*LineStatusEntry)
	for _, k := range keys {
		t.refresh(k.source, k.line, 0)
	}
}

// Len returns the number of entries.
func (t *LineStatusTracker) Len() int {
	return len(t.entries)
}

func (t *LineStatusTracker) keys() []lineKey {
	keys := make([]lineKey, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].line < keys[j].line
	})
	return keys
}
