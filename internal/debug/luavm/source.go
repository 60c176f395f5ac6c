package luavm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/stepwise/internal/debug"
)

// SourceFile is a Lua file to load. Path may be empty for code that does
// not live on disk.
type SourceFile struct {
	Filename string
	Path     string
	Code     string
}

// ReadSourceFile reads a Lua file from disk.
func ReadSourceFile(path string) (SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return SourceFile{Filename: filepath.Base(path), Path: abs, Code: string(data)}, nil
}

// source is a compiled file.
type source struct {
	id    int
	file  SourceFile
	proto *lua.FunctionProto
	lines []int
}

func compileSource(id int, f SourceFile) (*source, error) {
	chunk, err := parse.Parse(strings.NewReader(f.Code), f.Filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Filename, err)
	}
	in := newInstrumenter(id)
	chunk = in.block(chunk)
	proto, err := lua.Compile(chunk, f.Filename)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", f.Filename, err)
	}
	return &source{id: id, file: f, proto: proto, lines: in.executable()}, nil
}

func (s *source) runtimeSource() debug.RuntimeSource {
	return debug.RuntimeSource{ID: s.id, Filename: s.file.Filename, Path: s.file.Path}
}

// executableFrom returns the first executable line at or after line.
func (s *source) executableFrom(line int) (int, bool) {
	i := sort.SearchInts(s.lines, line)
	if i == len(s.lines) {
		return 0, false
	}
	return s.lines[i], true
}

// validateCondition checks that cond parses as a Lua expression.
func validateCondition(cond string) error {
	if _, err := parse.Parse(strings.NewReader("return "+cond), "condition"); err != nil {
		return fmt.Errorf("%q: %w: %v", cond, ErrBadCondition, err)
	}
	return nil
}
