// Package schema declares explicit field descriptors for every persisted
// record type. The materializer walks these descriptors instead of reflecting
// over struct members, and the store derives its column lists from them.
package schema

import (
	"fmt"
	"time"
)

// FieldType is the value domain of a scalar column.
type FieldType int

const (
	String FieldType = iota
	Int
	Float
	Bool
	Time
	Bytes
)

// Field describes one scalar column: its wire name (which doubles as the
// column name), type, constraints, and typed accessors into the record
// struct. Accessors return nil for SQL NULL.
type Field struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
	ForeignKey bool
	Nullable   bool
	MaxLen     int
	Enum       []string

	Get func(obj any) any
	Set func(obj any, v any) error
}

// RelKind distinguishes how a relationship is stored.
type RelKind int

const (
	// HasOne is a singular relation through a foreign-key column on this
	// table (e.g. artifact.license_id -> licenses).
	HasOne RelKind = iota
	// HasMany is a collection relation through a foreign-key column on the
	// child table (e.g. artifact_metadata.artifact_id -> artifacts).
	HasMany
	// HasOneRemote is a singular relation through a foreign-key column on
	// the child table.
	HasOneRemote
)

// Rel describes one relationship field.
type Rel struct {
	Name    string
	Target  string
	Kind    RelKind
	FKField string // HasOne: the FK field name on this schema
	ChildFK string // HasMany/HasOneRemote: the FK field name on the child

	// Get returns the child (or nil) for singular kinds, or a []any snapshot
	// for HasMany.
	Get func(obj any) any
	// Add assigns the child for singular kinds or appends for HasMany.
	Add func(obj, child any) error
}

// Schema binds a record type to its table, fields, and relationships.
type Schema struct {
	Name   string
	Table  string
	Fields []Field
	Rels   []Rel

	// Uniques lists the table's uniqueness constraints as column-name sets.
	Uniques [][]string

	New   func() any
	ID    func(obj any) int64
	SetID func(obj any, id int64)
}

// Field returns the descriptor named name, or nil.
func (s *Schema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Rel returns the relationship descriptor named name, or nil.
func (s *Schema) Rel(name string) *Rel {
	for i := range s.Rels {
		if s.Rels[i].Name == name {
			return &s.Rels[i]
		}
	}
	return nil
}

// Columns returns the non-primary-key column names in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.PrimaryKey {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

// Registry holds schemas by name. It is constructed once at startup and
// passed by reference; there is no package-level mutable registry.
type Registry struct {
	byName map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Schema)}
}

// Register adds s, replacing any schema with the same name.
func (r *Registry) Register(s *Schema) {
	r.byName[s.Name] = s
}

// Lookup returns the schema named name.
func (r *Registry) Lookup(name string) (*Schema, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("schema: unknown schema %q", name)
	}
	return s, nil
}

// MustLookup is Lookup for statically known names.
func (r *Registry) MustLookup(name string) *Schema {
	s, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

// All returns every registered schema.
func (r *Registry) All() []*Schema {
	out := make([]*Schema, 0, len(r.byName))
	for _, s := range r.byName {
		out = append(out, s)
	}
	return out
}

// Accessor helpers. Each builds the Get/Set closure pair for one field;
// nullable fields map the Go zero value to SQL NULL.

func gs[T any, V comparable](get func(*T) *V, nullable bool) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			var zero V
			if nullable && *p == zero {
				return nil
			}
			return *p
		}, func(o, v any) error {
			p := get(o.(*T))
			if v == nil {
				var zero V
				*p = zero
				return nil
			}
			x, ok := v.(V)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T", v)
			}
			*p = x
			return nil
		}
}

func strGS[T any](get func(*T) *string, nullable bool) (func(any) any, func(any, any) error) {
	return gs[T, string](get, nullable)
}

func i64GS[T any](get func(*T) *int64, nullable bool) (func(any) any, func(any, any) error) {
	return gs[T, int64](get, nullable)
}

func boolGS[T any](get func(*T) *bool) (func(any) any, func(any, any) error) {
	return gs[T, bool](get, false)
}

func timeGS[T any](get func(*T) *time.Time) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			if p.IsZero() {
				return nil
			}
			return *p
		}, func(o, v any) error {
			p := get(o.(*T))
			if v == nil {
				*p = time.Time{}
				return nil
			}
			x, ok := v.(time.Time)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T as time", v)
			}
			*p = x
			return nil
		}
}

func timePtrGS[T any](get func(*T) **time.Time) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			if *p == nil {
				return nil
			}
			return **p
		}, func(o, v any) error {
			p := get(o.(*T))
			if v == nil {
				*p = nil
				return nil
			}
			x, ok := v.(time.Time)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T as time", v)
			}
			*p = &x
			return nil
		}
}

func bytesGS[T any](get func(*T) *[]byte, nullable bool) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			if nullable && len(*p) == 0 {
				return nil
			}
			return *p
		}, func(o, v any) error {
			p := get(o.(*T))
			if v == nil {
				*p = nil
				return nil
			}
			x, ok := v.([]byte)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T as bytes", v)
			}
			*p = x
			return nil
		}
}

// enumGS handles string-kinded named types (model.Relation and friends).
func enumGS[T any, V ~string](get func(*T) *V, nullable bool) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			if nullable && *p == "" {
				return nil
			}
			return string(*p)
		}, func(o, v any) error {
			p := get(o.(*T))
			if v == nil {
				*p = ""
				return nil
			}
			x, ok := v.(string)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T as string", v)
			}
			*p = V(x)
			return nil
		}
}

// Relationship accessor helpers.

func relOne[T any, C any](get func(*T) **C) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			if *p == nil {
				return nil
			}
			return *p
		}, func(o, child any) error {
			p := get(o.(*T))
			if child == nil {
				*p = nil
				return nil
			}
			c, ok := child.(*C)
			if !ok {
				return fmt.Errorf("schema: cannot assign %T", child)
			}
			*p = c
			return nil
		}
}

func relMany[T any, C any](get func(*T) *[]*C) (func(any) any, func(any, any) error) {
	return func(o any) any {
			p := get(o.(*T))
			out := make([]any, len(*p))
			for i, c := range *p {
				out[i] = c
			}
			return out
		}, func(o, child any) error {
			p := get(o.(*T))
			c, ok := child.(*C)
			if !ok {
				return fmt.Errorf("schema: cannot append %T", child)
			}
			*p = append(*p, c)
			return nil
		}
}
