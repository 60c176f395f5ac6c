package debug

// WindowAssociation ties an open window to what it shows. SourceID is
// NoSource for tool windows.
type WindowAssociation struct {
	Window   Handle
	SourceID int
	Filename string
	Path     string
	Kind     WindowKind
}

// WindowAssociationRegistry is the ordered list of open debugger windows.
// Tool window kinds are singletons tracked in per-kind slots.
type WindowAssociationRegistry struct {
	order    []Handle
	byHandle map[Handle]*WindowAssociation
	tools    map[WindowKind]Handle
}

// NewWindowAssociationRegistry creates an empty registry.
func NewWindowAssociationRegistry() *WindowAssociationRegistry {
	return &WindowAssociationRegistry{
		byHandle: make(map[Handle]*WindowAssociation),
		tools:    make(map[WindowKind]Handle),
	}
}

// Add appends an association. A tool window also fills its kind's slot.
func (r *WindowAssociationRegistry) Add(a *WindowAssociation) {
	if _, exists := r.byHandle[a.Window]; !exists {
		r.order = append(r.order, a.Window)
	}
	r.byHandle[a.Window] = a
	if a.Kind.IsTool() {
		r.tools[a.Kind] = a.Window
	}
}

// Remove deletes the association of a window and frees its tool slot.
func (r *WindowAssociationRegistry) Remove(h Handle) (*WindowAssociation, bool) {
	a, ok := r.byHandle[h]
	if !ok {
		return nil, false
	}
	delete(r.byHandle, h)
	for i, x := range r.order {
		if x == h {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if a.Kind.IsTool() && r.tools[a.Kind] == h {
		delete(r.tools, a.Kind)
	}
	return a, true
}

// Get returns the association of a window.
func (r *WindowAssociationRegistry) Get(h Handle) (*WindowAssociation, bool) {
	a, ok := r.byHandle[h]
	return a, ok
}

// ByKind returns the first window of a kind. For tool kinds that is the
// singleton.
func (r *WindowAssociationRegistry) ByKind(kind WindowKind) (*WindowAssociation, bool) {
	if kind.IsTool() {
		h, ok := r.tools[kind]
		if !ok {
			return nil, false
		}
		return r.Get(h)
	}
	for _, h := range r.order {
		if a := r.byHandle[h]; a.Kind == kind {
			return a, true
		}
	}
	return nil, false
}

// At returns the association at position index in opening order.
func (r *WindowAssociationRegistry) At(index int) (*WindowAssociation, bool) {
	if index < 0 || index >= len(r.order) {
		return nil, false
	}
	return r.byHandle[r.order[index]], true
}

// ByFilename returns the first source window showing filename.
func (r *WindowAssociationRegistry) ByFilename(filename string) (*WindowAssociation, bool) {
	for _, h := range r.order {
		if a := r.byHandle[h]; a.Kind == KindSource && a.Filename == filename {
			return a, true
		}
	}
	return nil, false
}

// ForFile finds a source window by path equality, falling back to filename
// equality when either side has no path.
func (r *WindowAssociationRegistry) ForFile(filename, path string) (*WindowAssociation, bool) {
	if path != "" {
		for _, h := range r.order {
			if a := r.byHandle[h]; a.Kind == KindSource && a.Path != "" && a.Path == path {
				return a, true
			}
		}
	}
	for _, h := range r.order {
		a := r.byHandle[h]
		if a.Kind != KindSource || a.Filename != filename {
			continue
		}
		if path == "" || a.Path == "" {
			return a, true
		}
	}
	return nil, false
}

// BySource returns every window showing a line source.
func (r *WindowAssociationRegistry) BySource(sourceID int) []*WindowAssociation {
	if sourceID == NoSource {
		return nil
	}
	var out []*WindowAssociation
	for _, h := range r.order {
		if a := r.byHandle[h]; a.SourceID == sourceID {
			out = append(out, a)
		}
	}
	return out
}

// Handles returns a snapshot of the window handles in opening order.
func (r *WindowAssociationRegistry) Handles() []Handle {
	return append([]Handle(nil), r.order...)
}

// Len returns the number of open windows.
func (r *WindowAssociationRegistry) Len() int {
	return len(r.order)
}
