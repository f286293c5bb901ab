package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/cairnhub/cairn/pkg/config"
)

// runListCmd implements `cairn list`.
func runListCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	jsonOutput := cmd.Bool("json", false, "print artifacts as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	st, err := openStore(config.Load())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	artifacts, err := st.ListArtifacts(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(artifacts)
		return 0
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tTITLE\tURL")
	for _, a := range artifacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			strconv.FormatInt(a.ID, 10), a.Type, a.Title, a.URL)
	}
	_ = w.Flush()
	return 0
}

// runGetCmd implements `cairn get`.
func runGetCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("get", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	id := cmd.Int64("id", 0, "artifact id (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if *id == 0 {
		_, _ = fmt.Fprintln(stderr, "Error: --id is required")
		return 2
	}

	ctx := context.Background()
	st, err := openStore(config.Load())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer st.Close()

	art, err := st.LoadArtifact(ctx, *id)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(art)
	return 0
}

// runMigrateCmd implements `cairn migrate`.
func runMigrateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("migrate", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	st, err := openStore(config.Load())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "migrations applied")
	return 0
}
