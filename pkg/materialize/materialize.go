// Package materialize rehydrates untrusted wire-format JSON documents into
// record graphs. The walk is driven entirely by schema descriptors; type
// coercion goes through a fixed allow-list, declared foreign keys are
// rejected unless the caller opts in, and shallow records are deduplicated
// against the store by exact-equality query.
package materialize

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/cairnhub/cairn/pkg/schema"
	"github.com/cairnhub/cairn/pkg/store"
)

// PKPolicy controls how a document's primary-key field is treated.
type PKPolicy int

const (
	// PKSkip silently ignores an id key; used when creating new records.
	PKSkip PKPolicy = iota
	// PKSkipStrict rejects a document that carries an id key at all.
	PKSkipStrict
	// PKRequire demands an id key; used when referencing an existing record.
	PKRequire
)

// Options tunes one Materialize call. ShouldQuery applies to the top level
// and to FK-owned singular relations; collection elements and remote-FK
// children are always built fresh so a new parent never binds to rows owned
// elsewhere. The primary-key policy propagates through the recursion.
type Options struct {
	PrimaryKeys      PKPolicy
	AllowForeignKeys bool
	ShouldQuery      bool

	// ValidateWire runs the generated JSON Schema over the document before
	// the walk, catching structural garbage early.
	ValidateWire bool
}

// Materializer converts wire documents into record graphs.
type Materializer struct {
	schemas *schema.Registry
	wire    *wireValidator
	log     *slog.Logger
}

// New builds a materializer over the given schema registry.
func New(reg *schema.Registry) *Materializer {
	return &Materializer{
		schemas: reg,
		wire:    newWireValidator(reg),
		log:     slog.With("component", "materialize"),
	}
}

// Materialize converts doc into a record of the named schema. On success the
// returned record (and its transient children) is ready for insertion; when
// identity resolution finds a matching persisted row, that row is returned
// instead. Any validation failure aborts the whole document.
func (m *Materializer) Materialize(ctx context.Context, tx *store.Tx, schemaName string, doc map[string]any, opts Options) (any, error) {
	sc, err := m.schemas.Lookup(schemaName)
	if err != nil {
		return nil, err
	}
	if opts.ValidateWire {
		if verr := m.wire.validate(sc, doc); verr != nil {
			return nil, verr
		}
	}
	p := &pass{m: m, tx: tx, opts: opts, cache: make(map[string]any)}
	return p.record(ctx, sc, doc, opts.ShouldQuery, opts.PrimaryKeys)
}

// pass carries per-document state: the in-flight object cache keyed by the
// canonical form of the nested JSON value, so an identical nested object
// encountered twice in one document materializes once.
type pass struct {
	m     *Materializer
	tx    *store.Tx
	opts  Options
	cache map[string]any
}

func (p *pass) record(ctx context.Context, sc *schema.Schema, doc map[string]any, shouldQuery bool, pk PKPolicy) (any, error) {
	obj := sc.New()
	provided := make(map[string]any) // column -> stored value, for identity query
	inherentlyNew := false           // carries a collection or a transient child

	for key, raw := range doc {
		if f := sc.Field(key); f != nil {
			if f.PrimaryKey {
				switch pk {
				case PKSkip:
					continue
				case PKSkipStrict:
					return nil, errf(KindPrimaryKey, sc.Name, key, "primary key not accepted here")
				case PKRequire:
					id, ok := asInt64(raw)
					if !ok {
						return nil, errf(KindPrimaryKey, sc.Name, key, "primary key must be an integer, got %T", raw)
					}
					sc.SetID(obj, id)
					continue
				}
			}
			if f.ForeignKey && !p.opts.AllowForeignKeys {
				return nil, errf(KindForeignKey, sc.Name, key, "foreign key may not be set directly")
			}
			val, verr := coerce(sc, f, raw)
			if verr != nil {
				return nil, verr
			}
			if err := f.Set(obj, val); err != nil {
				return nil, errf(KindInvalidType, sc.Name, key, "%v", err)
			}
			provided[f.Name] = val
			continue
		}

		rel := sc.Rel(key)
		if rel == nil {
			return nil, errf(KindUnknownField, sc.Name, key, "not a field of %s", sc.Name)
		}
		childSc := p.m.schemas.MustLookup(rel.Target)
		// Children of a PKRequire document are created, not referenced.
		childPK := pk
		if childPK == PKRequire {
			childPK = PKSkip
		}
		switch rel.Kind {
		case schema.HasOne:
			child, err := p.singular(ctx, sc, childSc, key, raw, true, childPK)
			if err != nil {
				return nil, err
			}
			if err := rel.Add(obj, child); err != nil {
				return nil, errf(KindInvalidType, sc.Name, key, "%v", err)
			}
			if id := childSc.ID(child); id != 0 {
				// Persisted child: its id participates in identity resolution.
				if err := sc.Field(rel.FKField).Set(obj, id); err != nil {
					return nil, errf(KindInvalidType, sc.Name, key, "%v", err)
				}
				provided[rel.FKField] = id
			} else {
				inherentlyNew = true
			}
		case schema.HasOneRemote:
			child, err := p.singular(ctx, sc, childSc, key, raw, false, childPK)
			if err != nil {
				return nil, err
			}
			if err := rel.Add(obj, child); err != nil {
				return nil, errf(KindInvalidType, sc.Name, key, "%v", err)
			}
			inherentlyNew = true
		case schema.HasMany:
			items, ok := raw.([]any)
			if !ok {
				// A single nested object stands for a one-element list.
				one, isObj := raw.(map[string]any)
				if !isObj {
					return nil, errf(KindInvalidType, sc.Name, key, "expected list or object, got %T", raw)
				}
				items = []any{one}
			}
			for _, item := range items {
				child, err := p.singular(ctx, sc, childSc, key, item, false, childPK)
				if err != nil {
					return nil, err
				}
				if err := rel.Add(obj, child); err != nil {
					return nil, errf(KindInvalidType, sc.Name, key, "%v", err)
				}
			}
			inherentlyNew = true
		}
	}

	if verr := requireFields(sc, provided, pk); verr != nil {
		return nil, verr
	}

	if shouldQuery && !inherentlyNew && len(provided) > 0 {
		existing, err := p.tx.QueryOne(ctx, sc, provided)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			p.m.log.Debug("identity resolved", "schema", sc.Name, "id", sc.ID(existing))
			return existing, nil
		}
	}

	defaultTimes(sc, obj, provided)
	return obj, nil
}

// singular materializes one nested object, consulting the in-flight cache
// first. Only FK-owned children resolve identity against the store; the
// cache is partitioned by that flag so a queried hit never leaks into a
// collection element.
func (p *pass) singular(ctx context.Context, parent, childSc *schema.Schema, key string, raw any, shouldQuery bool, pk PKPolicy) (any, error) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, errf(KindInvalidType, parent.Name, key, "expected object, got %T", raw)
	}
	ck, err := cacheKey(childSc.Name, shouldQuery, raw)
	if err == nil {
		if hit, ok := p.cache[ck]; ok {
			return hit, nil
		}
	}
	child, cerr := p.record(ctx, childSc, doc, shouldQuery, pk)
	if cerr != nil {
		return nil, cerr
	}
	if err == nil {
		p.cache[ck] = child
	}
	return child, nil
}

// cacheKey is the canonical JSON form of the raw nested value, prefixed by
// the target schema and the query flag so equal shapes of different types
// or resolution modes never collide.
func cacheKey(schemaName string, shouldQuery bool, raw any) (string, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	canon, err := jcs.Transform(b)
	if err != nil {
		return "", err
	}
	mode := "n"
	if shouldQuery {
		mode = "q"
	}
	return schemaName + "\x00" + mode + "\x00" + string(canon), nil
}

// requireFields rejects a document missing a non-nullable scalar. Foreign
// keys are linkage supplied by the caller layer, and timestamps default, so
// neither counts as wire-required.
func requireFields(sc *schema.Schema, provided map[string]any, pk PKPolicy) *ValidationError {
	for i := range sc.Fields {
		f := &sc.Fields[i]
		if f.Nullable || f.PrimaryKey || f.ForeignKey || f.Type == schema.Time {
			continue
		}
		if _, ok := provided[f.Name]; !ok {
			return errf(KindMissingRequired, sc.Name, f.Name, "required field missing")
		}
	}
	return nil
}

// defaultTimes stamps non-nullable time columns absent from the document.
func defaultTimes(sc *schema.Schema, obj any, provided map[string]any) {
	now := time.Now().UTC()
	for i := range sc.Fields {
		f := &sc.Fields[i]
		if f.Type != schema.Time || f.Nullable {
			continue
		}
		if _, ok := provided[f.Name]; !ok {
			_ = f.Set(obj, now)
		}
	}
}

// coerce converts a JSON-decoded value to the field's domain. Only the fixed
// allow-list of conversions is performed; everything else is an invalid-type
// error.
func coerce(sc *schema.Schema, f *schema.Field, raw any) (any, *ValidationError) {
	if raw == nil {
		if !f.Nullable {
			return nil, errf(KindMissingRequired, sc.Name, f.Name, "null not allowed")
		}
		return nil, nil
	}
	switch f.Type {
	case schema.String:
		s, ok := raw.(string)
		if !ok {
			return nil, errf(KindInvalidType, sc.Name, f.Name, "expected string, got %T", raw)
		}
		if f.MaxLen > 0 && len(s) > f.MaxLen {
			return nil, errf(KindTooLong, sc.Name, f.Name, "%d bytes exceeds limit %d", len(s), f.MaxLen)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			return nil, errf(KindEnum, sc.Name, f.Name, "%q is not a permitted value", s)
		}
		return s, nil
	case schema.Int:
		n, ok := asInt64(raw)
		if !ok {
			return nil, errf(KindInvalidType, sc.Name, f.Name, "expected integer, got %v (%T)", raw, raw)
		}
		return n, nil
	case schema.Float:
		switch x := raw.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
		return nil, errf(KindInvalidType, sc.Name, f.Name, "expected number, got %T", raw)
	case schema.Bool:
		b, ok := raw.(bool)
		if !ok {
			return nil, errf(KindInvalidType, sc.Name, f.Name, "expected boolean, got %T", raw)
		}
		return b, nil
	case schema.Time:
		switch x := raw.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := time.Parse(time.RFC3339, x)
			if err != nil {
				return nil, errf(KindInvalidType, sc.Name, f.Name, "not an RFC 3339 timestamp: %q", x)
			}
			return t, nil
		}
		return nil, errf(KindInvalidType, sc.Name, f.Name, "expected timestamp string, got %T", raw)
	case schema.Bytes:
		switch x := raw.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
		return nil, errf(KindInvalidType, sc.Name, f.Name, "expected string, got %T", raw)
	}
	return nil, errf(KindInvalidType, sc.Name, f.Name, "unsupported field type")
}

// asInt64 accepts native int64 and integral JSON numbers.
func asInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if math.Trunc(x) != x {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
