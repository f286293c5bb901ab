package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cairnhub/cairn/pkg/schema"
)

// Migrate creates every registered table if it does not exist. DDL is derived
// from the schema descriptors, so the descriptor list is the single source of
// truth for columns and uniqueness constraints.
func (s *Store) Migrate(ctx context.Context) error {
	for _, sc := range s.schemas.All() {
		ddl := s.createTableDDL(sc)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("store: migrate %s: %w", sc.Table, err)
		}
	}
	s.log.Debug("migrated schema", "tables", len(s.schemas.All()))
	return nil
}

func (s *Store) createTableDDL(sc *schema.Schema) string {
	var cols []string
	for _, f := range sc.Fields {
		if f.PrimaryKey {
			if s.dialect == DialectPostgres {
				cols = append(cols, "id BIGSERIAL PRIMARY KEY")
			} else {
				cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
			}
			continue
		}
		col := f.Name + " " + s.columnType(f)
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	for _, u := range sc.Uniques {
		cols = append(cols, "UNIQUE ("+strings.Join(u, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", sc.Table, strings.Join(cols, ",\n\t"))
}

func (s *Store) columnType(f schema.Field) string {
	if s.dialect == DialectPostgres {
		switch f.Type {
		case schema.String:
			if f.MaxLen > 0 {
				return fmt.Sprintf("VARCHAR(%d)", f.MaxLen)
			}
			return "TEXT"
		case schema.Int:
			return "BIGINT"
		case schema.Float:
			return "DOUBLE PRECISION"
		case schema.Bool:
			return "BOOLEAN"
		case schema.Time:
			return "TIMESTAMPTZ"
		case schema.Bytes:
			return "BYTEA"
		}
		return "TEXT"
	}
	switch f.Type {
	case schema.String:
		return "TEXT"
	case schema.Int:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.Bool:
		return "BOOLEAN"
	case schema.Time:
		return "TIMESTAMP"
	case schema.Bytes:
		return "BLOB"
	}
	return "TEXT"
}
