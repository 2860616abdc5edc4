package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrSchemaMismatch indicates a feature name that is not part of the loaded
// registry. It signals configuration drift and is fatal at sweep start.
var ErrSchemaMismatch = fmt.Errorf("schema mismatch")

// Entry declares one logical feature in the schema table. When Variants > 0
// the entry expands into suffixed columns (_param1.._paramN). Column defaults
// to the logical name when omitted.
type Entry struct {
	Name     string `yaml:"name"`
	Column   string `yaml:"column,omitempty"`
	Variants int    `yaml:"variants,omitempty"`
}

type table struct {
	Columns []Entry `yaml:"columns"`
}

// Registry is the immutable logical-name -> column-id mapping shared by the
// whole pipeline. All consumers iterate Columns() instead of hardcoding
// feature names, so adding an indicator variant is a registry-only change.
type Registry struct {
	byLogical map[string]string
	byColumn  map[string]string
	columns   []string
}

// Load reads the schema table from a YAML file.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var t table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return FromTable(t.Columns)
}

// FromTable builds a registry from declared entries, expanding variant
// suffixes and validating that the mapping is bijective.
func FromTable(entries []Entry) (*Registry, error) {
	r := &Registry{
		byLogical: make(map[string]string),
		byColumn:  make(map[string]string),
	}
	add := func(logical, column string) error {
		if logical == "" {
			return fmt.Errorf("schema entry with empty name")
		}
		if column == "" {
			column = logical
		}
		if _, dup := r.byLogical[logical]; dup {
			return fmt.Errorf("duplicate logical name %q", logical)
		}
		if prev, dup := r.byColumn[column]; dup {
			return fmt.Errorf("column %q claimed by both %q and %q", column, prev, logical)
		}
		r.byLogical[logical] = column
		r.byColumn[column] = logical
		r.columns = append(r.columns, column)
		return nil
	}

	for _, e := range entries {
		if e.Variants == 0 {
			if err := add(e.Name, e.Column); err != nil {
				return nil, err
			}
			continue
		}
		col := e.Column
		if col == "" {
			col = e.Name
		}
		for v := 1; v <= e.Variants; v++ {
			suffix := fmt.Sprintf("_param%d", v)
			if err := add(e.Name+suffix, col+suffix); err != nil {
				return nil, err
			}
		}
	}
	if len(r.columns) == 0 {
		return nil, fmt.Errorf("schema table is empty")
	}
	sort.Strings(r.columns)
	return r, nil
}

// Resolve maps a logical feature name to its column identifier.
func (r *Registry) Resolve(logical string) (string, error) {
	col, ok := r.byLogical[logical]
	if !ok {
		return "", fmt.Errorf("%w: unknown logical name %q", ErrSchemaMismatch, logical)
	}
	return col, nil
}

// Reverse maps a column identifier back to its logical name. Total over the
// registered column set.
func (r *Registry) Reverse(column string) (string, error) {
	logical, ok := r.byColumn[column]
	if !ok {
		return "", fmt.Errorf("%w: unknown column %q", ErrSchemaMismatch, column)
	}
	return logical, nil
}

// Has reports whether the logical name is registered.
func (r *Registry) Has(logical string) bool {
	_, ok := r.byLogical[logical]
	return ok
}

// HasColumn reports whether the column identifier is registered.
func (r *Registry) HasColumn(column string) bool {
	_, ok := r.byColumn[column]
	return ok
}

// Columns returns all registered column identifiers in sorted order. The
// returned slice is shared; callers must not mutate it.
func (r *Registry) Columns() []string { return r.columns }

// Len returns the number of registered features.
func (r *Registry) Len() int { return len(r.columns) }
