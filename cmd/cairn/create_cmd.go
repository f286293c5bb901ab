package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cairnhub/cairn/pkg/config"
	"github.com/cairnhub/cairn/pkg/materialize"
	"github.com/cairnhub/cairn/pkg/model"
	"github.com/cairnhub/cairn/pkg/schema"
)

// runCreateCmd implements `cairn create`: materialize one wire-format JSON
// document as a persisted record graph.
//
// Exit codes:
//
//	0 = record created
//	1 = validation or persistence failure
//	2 = usage or setup error
func runCreateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("create", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		schemaName string
		docPath    string
		allowFK    bool
		strict     bool
		noQuery    bool
		noValidate bool
	)
	cmd.StringVar(&schemaName, "schema", schema.Artifact, "target schema name")
	cmd.StringVar(&docPath, "file", "-", "JSON document path, - for stdin")
	cmd.BoolVar(&allowFK, "allow-foreign-keys", false, "accept raw foreign-key fields")
	cmd.BoolVar(&strict, "strict", false, "reject documents carrying an id")
	cmd.BoolVar(&noQuery, "no-query", false, "skip identity resolution for the top-level record")
	cmd.BoolVar(&noValidate, "no-validate", false, "skip structural wire validation")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	var (
		data []byte
		err  error
	)
	if docPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(docPath)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: parse document: %v\n", err)
		return 2
	}

	ctx := context.Background()
	cfg := config.Load()
	st, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	tx, err := st.Begin(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer tx.Rollback()

	pk := materialize.PKSkip
	if strict {
		pk = materialize.PKSkipStrict
	}
	m := materialize.New(st.Schemas())
	obj, err := m.Materialize(ctx, tx, schemaName, doc, materialize.Options{
		PrimaryKeys:      pk,
		AllowForeignKeys: allowFK,
		ShouldQuery:      !noQuery,
		ValidateWire:     !noValidate,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	sc := st.Schemas().MustLookup(schemaName)
	if sc.ID(obj) == 0 {
		if err := tx.Insert(ctx, sc, obj); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	if err := tx.Commit(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if art, ok := obj.(*model.Artifact); ok {
		_, _ = fmt.Fprintf(stdout, "%d\t%s\n", art.ID, art.URL)
	} else {
		_, _ = fmt.Fprintf(stdout, "%d\n", sc.ID(obj))
	}
	return 0
}
