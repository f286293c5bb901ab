package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cairnhub/cairn/pkg/schema"
)

// insertGraph persists obj. Singular HasOne children are inserted first so
// their ids can be written into this row's foreign-key columns; HasMany and
// HasOneRemote children are inserted afterwards with this row's id in their
// child foreign key. Children that already have a row id are linked, not
// re-inserted.
func insertGraph(ctx context.Context, q querier, st *Store, sc *schema.Schema, obj any) error {
	if obj == nil {
		return nil
	}
	if sc.ID(obj) != 0 {
		return nil
	}

	for _, rel := range sc.Rels {
		if rel.Kind != schema.HasOne {
			continue
		}
		child := rel.Get(obj)
		if child == nil {
			continue
		}
		childSc, err := st.schemas.Lookup(rel.Target)
		if err != nil {
			return err
		}
		if err := insertGraph(ctx, q, st, childSc, child); err != nil {
			return err
		}
		f := sc.Field(rel.FKField)
		if f == nil {
			return fmt.Errorf("store: schema %s has no fk field %s", sc.Name, rel.FKField)
		}
		if err := f.Set(obj, childSc.ID(child)); err != nil {
			return err
		}
	}

	cols := make([]string, 0, len(sc.Fields))
	vals := make([]any, 0, len(sc.Fields))
	for _, f := range sc.Fields {
		if f.PrimaryKey {
			continue
		}
		cols = append(cols, f.Name)
		vals = append(vals, f.Get(obj))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		sc.Table, strings.Join(cols, ", "), placeholders(len(cols)))
	var id int64
	if err := q.QueryRowContext(ctx, st.rebind(query), vals...).Scan(&id); err != nil {
		return fmt.Errorf("store: insert %s: %w", sc.Name, err)
	}
	sc.SetID(obj, id)

	for _, rel := range sc.Rels {
		switch rel.Kind {
		case schema.HasMany:
			children, _ := rel.Get(obj).([]any)
			for _, child := range children {
				if err := insertChild(ctx, q, st, sc, rel, obj, child); err != nil {
					return err
				}
			}
		case schema.HasOneRemote:
			if child := rel.Get(obj); child != nil {
				if err := insertChild(ctx, q, st, sc, rel, obj, child); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func insertChild(ctx context.Context, q querier, st *Store, sc *schema.Schema, rel schema.Rel, parent, child any) error {
	childSc, err := st.schemas.Lookup(rel.Target)
	if err != nil {
		return err
	}
	if childSc.ID(child) != 0 {
		return nil
	}
	fk := childSc.Field(rel.ChildFK)
	if fk == nil {
		return fmt.Errorf("store: schema %s has no fk field %s", childSc.Name, rel.ChildFK)
	}
	if err := fk.Set(child, sc.ID(parent)); err != nil {
		return err
	}
	return insertGraph(ctx, q, st, childSc, child)
}

func queryAll(ctx context.Context, q querier, st *Store, sc *schema.Schema, eq map[string]any) ([]any, error) {
	var (
		where []string
		args  []any
		seen  int
	)
	for _, f := range sc.Fields {
		v, ok := eq[f.Name]
		if !ok {
			continue
		}
		seen++
		if v == nil {
			where = append(where, f.Name+" IS NULL")
			continue
		}
		where = append(where, f.Name+" = ?")
		args = append(args, v)
	}
	if seen != len(eq) {
		for k := range eq {
			if sc.Field(k) == nil {
				return nil, fmt.Errorf("store: schema %s has no field %q", sc.Name, k)
			}
		}
	}
	clause := ""
	if len(where) > 0 {
		clause = strings.Join(where, " AND ")
	}
	return queryWhere(ctx, q, st, sc, clause, args...)
}

func queryOne(ctx context.Context, q querier, st *Store, sc *schema.Schema, eq map[string]any) (any, error) {
	all, err := queryAll(ctx, q, st, sc, eq)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func queryWhere(ctx context.Context, q querier, st *Store, sc *schema.Schema, where string, args ...any) ([]any, error) {
	cols := make([]string, 0, len(sc.Fields))
	for _, f := range sc.Fields {
		cols = append(cols, f.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), sc.Table)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"
	rows, err := q.QueryContext(ctx, st.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", sc.Name, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		obj, err := scanRecord(sc, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query %s: %w", sc.Name, err)
	}
	return out, nil
}

func scanRecord(sc *schema.Schema, rows *sql.Rows) (any, error) {
	holders := make([]any, len(sc.Fields))
	for i, f := range sc.Fields {
		switch f.Type {
		case schema.String:
			holders[i] = new(sql.NullString)
		case schema.Int:
			holders[i] = new(sql.NullInt64)
		case schema.Float:
			holders[i] = new(sql.NullFloat64)
		case schema.Bool:
			holders[i] = new(sql.NullBool)
		case schema.Time:
			holders[i] = new(sql.NullTime)
		case schema.Bytes:
			holders[i] = new([]byte)
		default:
			return nil, fmt.Errorf("store: schema %s field %s: unknown type", sc.Name, f.Name)
		}
	}
	if err := rows.Scan(holders...); err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", sc.Name, err)
	}
	obj := sc.New()
	for i, f := range sc.Fields {
		var v any
		switch h := holders[i].(type) {
		case *sql.NullString:
			if h.Valid {
				v = h.String
			}
		case *sql.NullInt64:
			if h.Valid {
				v = h.Int64
			}
		case *sql.NullFloat64:
			if h.Valid {
				v = h.Float64
			}
		case *sql.NullBool:
			if h.Valid {
				v = h.Bool
			}
		case *sql.NullTime:
			if h.Valid {
				v = h.Time
			}
		case *[]byte:
			if *h != nil {
				v = *h
			}
		}
		if v == nil && !f.PrimaryKey {
			continue
		}
		if err := f.Set(obj, v); err != nil {
			return nil, fmt.Errorf("store: scan %s.%s: %w", sc.Name, f.Name, err)
		}
	}
	return obj, nil
}
