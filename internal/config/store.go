package config

// Well-known groups and fields of the persisted debugger configuration.
const (
	GroupBreakpoints = "breakpoints"
	GroupSources     = "srcfiles"

	FieldGlobal   = "global"
	FieldFile     = "file"
	FieldLine     = "line"
	FieldStatus   = "status"
	FieldCond     = "cond"
	FieldCondMode = "cond-mode"

	FieldFilename = "fname"
	FieldPath     = "path"
)

// BreakpointFields lists every field of the breakpoints group.
var BreakpointFields = []string{FieldGlobal, FieldFile, FieldLine, FieldStatus, FieldCond, FieldCondMode}

// SourceFields lists every field of the srcfiles group.
var SourceFields = []string{FieldFilename, FieldPath}

// Store is an abstract key/value configuration store organised as groups of
// parallel indexed string fields.
//
// Implementations are not required to be safe for concurrent use.
type Store interface {
	// ClearField removes every indexed value of group/field.
	ClearField(group, field string)

	// Set stores value at group/field[index].
	Set(group, field string, index int, value string)

	// Get returns the value at group/field[index].
	Get(group, field string, index int) (string, bool)

	// Len returns one past the highest index set in group/field.
	Len(group, field string) int

	// Flush writes pending changes to the backing medium.
	Flush() error

	// Close releases resources held by the store.
	Close() error
}

// GroupLen returns the largest Len over the given fields of group.
func GroupLen(s Store, group string, fields []string) int {
	n := 0
	for _, f := range fields {
		if l := s.Len(group, f); l > n {
			n = l
		}
	}
	return n
}

// ClearGroup clears the given fields of group.
func ClearGroup(s Store, group string, fields []string) {
	for _, f := range fields {
		s.ClearField(group, f)
	}
}
