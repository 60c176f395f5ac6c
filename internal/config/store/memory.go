// Package store provides implementations of config.Store.
//
// Every store keeps its working set in memory; the file and SQLite stores
// read it when opened and write it back on Flush.
package store

import (
	"sort"

	"github.com/dshills/stepwise/internal/config"
)

// Memory is an in-memory config.Store.
type Memory struct {
	groups map[string]map[string]map[int]string
	closed bool
}

var _ config.Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{groups: make(map[string]map[string]map[int]string)}
}

// ClearField removes every indexed value of group/field.
func (m *Memory) ClearField(group, field string) {
	if fields, ok := m.groups[group]; ok {
		delete(fields, field)
		if len(fields) == 0 {
			delete(m.groups, group)
		}
	}
}

// Set stores value at group/field[index]. Negative indices are ignored.
func (m *Memory) Set(group, field string, index int, value string) {
	if index < 0 {
		return
	}
	fields, ok := m.groups[group]
	if !ok {
		fields = make(map[string]map[int]string)
		m.groups[group] = fields
	}
	values, ok := fields[field]
	if !ok {
		values = make(map[int]string)
		fields[field] = values
	}
	values[index] = value
}

// Get returns the value at group/field[index].
func (m *Memory) Get(group, field string, index int) (string, bool) {
	v, ok := m.groups[group][field][index]
	return v, ok
}

// Len returns one past the highest index set in group/field.
func (m *Memory) Len(group, field string) int {
	n := 0
	for i := range m.groups[group][field] {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

// Groups returns the group names in sorted order.
func (m *Memory) Groups() []string {
	names := make([]string, 0, len(m.groups))
	for g := range m.groups {
		names = append(names, g)
	}
	sort.Strings(names)
	return names
}

// Fields returns the field names of group in sorted order.
func (m *Memory) Fields(group string) []string {
	names := make([]string, 0, len(m.groups[group]))
	for f := range m.groups[group] {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

// Flush is a no-op for the in-memory store.
func (m *Memory) Flush() error {
	if m.closed {
		return config.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.closed = true
	return nil
}

// document is the dense on-disk form of a store: group -> field -> values.
// Unset positions below the field length are written as empty strings.
type document map[string]map[string][]string

func (m *Memory) toDocument() document {
	doc := make(document, len(m.groups))
	for g, fields := range m.groups {
		df := make(map[string][]string, len(fields))
		for f := range fields {
			n := m.Len(g, f)
			vals := make([]string, n)
			for i := 0; i < n; i++ {
				vals[i] = fields[f][i]
			}
			df[f] = vals
		}
		doc[g] = df
	}
	return doc
}

func (m *Memory) fromDocument(doc document) {
	m.groups = make(map[string]map[string]map[int]string, len(doc))
	for g, fields := range doc {
		for f, vals := range fields {
			for i, v := range vals {
				m.Set(g, f, i, v)
			}
		}
	}
}
