package debug

// LineSource is a source file known to the debugger. Path is empty when the
// file has not been resolved on disk.
type LineSource struct {
	ID       int
	Filename string
	Path     string
}

// LineSourceRegistry maps line source ids to files. Ids below the threshold
// are reserved for the runtime; local ids are allocated above it.
type LineSourceRegistry struct {
	order     []int
	byID      map[int]*LineSource
	threshold int
}

// NewLineSourceRegistry creates an empty registry.
func NewLineSourceRegistry(threshold int) *LineSourceRegistry {
	return &LineSourceRegistry{
		byID:      make(map[int]*LineSource),
		threshold: threshold,
	}
}

// Threshold returns the first id available for local sources.
func (r *LineSourceRegistry) Threshold() int {
	return r.threshold
}

// SetThreshold changes the first id available for local sources.
func (r *LineSourceRegistry) SetThreshold(n int) {
	if n < 0 {
		n = 0
	}
	r.threshold = n
}

// Register records a source under an id chosen by the runtime, replacing
// any previous source with that id.
func (r *LineSourceRegistry) Register(id int, filename, path string) *LineSource {
	if src, ok := r.byID[id]; ok {
		src.Filename = filename
		src.Path = path
		return src
	}
	src := &LineSource{ID: id, Filename: filename, Path: path}
	r.byID[id] = src
	r.order = append(r.order, id)
	return src
}

// Synthesize records a source the runtime does not know about under a new
// local id.
func (r *LineSourceRegistry) Synthesize(filename, path string) *LineSource {
	return r.Register(r.nextID(), filename, path)
}

func (r *LineSourceRegistry) nextID() int {
	next := r.threshold
	for id := range r.byID {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// Get returns the source with the given id.
func (r *LineSourceRegistry) Get(id int) (*LineSource, bool) {
	src, ok := r.byID[id]
	return src, ok
}

// Find looks a source up by path first, then by filename when either side
// has no path.
func (r *LineSourceRegistry) Find(filename, path string) (*LineSource, bool) {
	if path != "" {
		for _, id := range r.order {
			if src := r.byID[id]; src.Path != "" && src.Path == path {
				return src, true
			}
		}
	}
	for _, id := range r.order {
		src := r.byID[id]
		if src.Filename != filename {
			continue
		}
		if path == "" || src.Path == "" {
			return src, true
		}
	}
	return nil, false
}

// FindOrSynthesize returns the matching source or creates a local one.
// A match that lacks a path adopts path.
func (r *LineSourceRegistry) FindOrSynthesize(filename, path string) (*LineSource, bool) {
	if src, ok := r.Find(filename, path); ok {
		if src.Path == "" && path != "" {
			src.Path = path
		}
		return src, false
	}
	return r.Synthesize(filename, path), true
}

// All returns the sources in registration order.
func (r *LineSourceRegistry) All() []LineSource {
	out := make([]LineSource, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len returns the number of sources.
func (r *LineSourceRegistry) Len() int {
	return len(r.order)
}

// Reset drops every source.
func (r *LineSourceRegistry) Reset() {
	r.order = nil
	r.byID = make(map[int]*LineSource)
}
