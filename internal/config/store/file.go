package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/stepwise/internal/config"
)

// codec encodes and decodes a document.
type codec struct {
	name      string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	tomlCodec = codec{name: "toml", marshal: toml.Marshal, unmarshal: toml.Unmarshal}
	yamlCodec = codec{name: "yaml", marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
)

// File is a config.Store persisted as a single TOML or YAML document.
type File struct {
	*Memory
	path  string
	codec codec
}

// OpenTOML opens (or prepares to create) a TOML-backed store at path.
func OpenTOML(path string) (*File, error) {
	return openFile(path, tomlCodec)
}

// OpenYAML opens (or prepares to create) a YAML-backed store at path.
func OpenYAML(path string) (*File, error) {
	return openFile(path, yamlCodec)
}

func openFile(path string, c codec) (*File, error) {
	f := &File{Memory: NewMemory(), path: path, codec: c}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("reading %s store %s: %w", c.name, path, err)
	}

	var doc document
	if err := c.unmarshal(data, &doc); err != nil {
		return nil, &config.ParseError{Path: path, Message: err.Error(), Err: err}
	}
	f.fromDocument(doc)
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Flush writes the document to disk, creating parent directories.
func (f *File) Flush() error {
	if f.closed {
		return config.ErrStoreClosed
	}
	data, err := f.codec.marshal(f.toDocument())
	if err != nil {
		return fmt.Errorf("encoding %s store: %w", f.codec.name, err)
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return os.Rename(tmp, f.path)
}
