package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ctxlog"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/indexer"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/validator"
)

func main() {
	output := flag.String("output", "", "write facts JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	view := flag.String("view", "", "hierarchical view of the top component")
	deltaFrom := flag.String("delta-from", "", "previous facts JSON to compute delta from")
	flag.StringVar(deltaFrom, "delta", "", "previous facts JSON to compute delta from (alias)")
	deltaOut := flag.String("delta-out", "", "write delta JSON to file (default: stdout after the facts)")
	verbose := flag.Bool("v", false, "log progress to stderr")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: ipxact-facts [--output file] [--view name] [--delta prev.json [--delta-out delta.json]] <path> <vlnv>")
		os.Exit(1)
	}

	if err := run(args[0], args[1], *view, *output, *deltaFrom, *deltaOut, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path, vlnv, view, output, deltaFrom, deltaOut string, verbose bool) error {
	top, err := ipxact.ParseVLNV(vlnv)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New(os.Stderr, verbose))
	idx := indexer.NewWithConfig(cfg)
	idx.JSONOutput = true
	idx.Out = io.Discard
	if err := idx.Run(ctx, path); err != nil {
		return err
	}
	defer idx.Close()

	res, err := idx.Resolve(ctx, top, view)
	if err != nil {
		return err
	}

	fv, err := validator.NewFactsValidator()
	if err != nil {
		return fmt.Errorf("init facts validator: %w", err)
	}
	if err := fv.Validate(res.Tables); err != nil {
		return fmt.Errorf("fact tables: %w", err)
	}

	if output != "" {
		if err := writeJSON(output, res.Tables); err != nil {
			return fmt.Errorf("writing facts: %w", err)
		}
	} else if err := encode(os.Stdout, res.Tables); err != nil {
		return fmt.Errorf("encoding facts: %w", err)
	}

	if deltaFrom == "" {
		if deltaOut != "" {
			return fmt.Errorf("--delta-out requires --delta-from")
		}
		return nil
	}
	prev, err := readTables(deltaFrom)
	if err != nil {
		return fmt.Errorf("reading delta-from: %w", err)
	}
	delta := facts.ComputeDelta(prev, res.Tables)
	if err := fv.ValidateDelta(delta); err != nil {
		return fmt.Errorf("delta: %w", err)
	}
	if deltaOut == "" {
		return encode(os.Stdout, delta)
	}
	if err := writeJSON(deltaOut, delta); err != nil {
		return fmt.Errorf("writing delta: %w", err)
	}
	return nil
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	tables := facts.NewTables()
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return encode(f, data)
}

func encode(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
