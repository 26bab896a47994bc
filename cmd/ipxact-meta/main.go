// =============================================================================
// ipxact-meta - Main Entry Point
// =============================================================================
//
// This tool turns a library of IP-XACT documents into a resolved, queryable
// model of a design hierarchy.
//
// THE PIPELINE:
//   1. Indexer summarizes every document and builds the VLNV symbol table
//   2. The closure of the top component is loaded into a library
//   3. The meta-model builder resolves parameters, wires and interconnections
//   4. Fact tables flatten the hierarchy; CUE checks them against the contract
//   5. OPA evaluates the lint rules against the fact tables
//
// WHEN A RESULT LOOKS WRONG:
//   Start at the beginning of the pipeline. A missing reference reported by
//   the indexer explains more lint findings than any rule change will.
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ctxlog"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/document"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/extractor"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/indexer"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "init":
		err = runInit(args)
	case "resolve":
		err = runResolve(args)
	case "lint":
		err = runLint(args)
	case "import":
		err = runImport(args)
	case "businterface":
		err = runBusInterface(args)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if errors.Is(err, errLintFailed) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// errLintFailed is returned when lint found error severity violations.
var errLintFailed = errors.New("lint found errors")

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: ipxact-meta <command> [options]

Commands:
  init [--yaml]                      Create an ipxact_meta configuration file
  resolve [options] <path> <vlnv>    Resolve a top component and print its fact tables
  lint [options] <path> <vlnv>       Resolve a top component and run the lint rules
  import [options] <file.vhd>        Create a component from a VHDL entity header
  businterface [--name n] <file.xml> Validate and pretty print bus interfaces

Common options:
  -c, --config      Configuration file (default: looked up from <path>)
  -v, --verbose     Enable verbose output
  --json            Machine readable output
  --view            Hierarchical view of the top component

A VLNV is written vendor:library:name:version.

Configuration:
  ipxact-meta looks for configuration in:
    1. ./ipxact_meta.json (or .yaml/.yml)
    2. ./.ipxact_meta.json (or .yaml/.yml)
    3. ~/.config/ipxact_meta/config.json

  Run 'ipxact-meta init' to create a default configuration file.`)
}

// commonFlags are shared by the commands that index a library.
type commonFlags struct {
	configPath string
	verbose    bool
	jsonOut    bool
	view       string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "configuration file")
	fs.StringVar(&c.configPath, "c", "", "configuration file (shorthand)")
	fs.BoolVar(&c.verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose output (shorthand)")
	fs.BoolVar(&c.jsonOut, "json", false, "machine readable output")
	fs.StringVar(&c.view, "view", "", "hierarchical view of the top component")
}

func (c *commonFlags) loadConfig(root string) (*config.Config, error) {
	if c.configPath != "" {
		cfg, err := config.LoadFile(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", c.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v (using defaults)\n", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func (c *commonFlags) context() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.New(os.Stderr, c.verbose))
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	useYAML := fs.Bool("yaml", false, "write ipxact_meta.yaml instead of JSON")
	author := fs.String("author", "", "author recorded on imported components")
	vendor := fs.String("vendor", "", "vendor used by import")
	_ = fs.Parse(args)

	configPath := "ipxact_meta.json"
	if *useYAML {
		configPath = "ipxact_meta.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.Author = *author
	cfg.Import.Vendor = *vendor
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Library document patterns")
	fmt.Println("  - Import vendor, library and author")
	fmt.Println("  - Lint rule severities and policy directories")
	return nil
}

// indexRoot runs the indexer over root and parses the top VLNV. The timing
// trace is opened by Run, so it has to be requested up front.
func indexRoot(ctx context.Context, flags *commonFlags, root, vlnv string, timing bool) (*indexer.Indexer, ipxact.VLNV, error) {
	top, err := ipxact.ParseVLNV(vlnv)
	if err != nil {
		return nil, ipxact.VLNV{}, err
	}
	cfg, err := flags.loadConfig(root)
	if err != nil {
		return nil, ipxact.VLNV{}, err
	}

	idx := indexer.NewWithConfig(cfg)
	idx.Verbose = flags.verbose
	idx.JSONOutput = flags.jsonOut
	idx.Timing = timing || cfg.Analysis.Timing
	idx.Out = os.Stderr
	if err := idx.Run(ctx, root); err != nil {
		return nil, ipxact.VLNV{}, err
	}
	return idx, top, nil
}

func runResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: ipxact-meta resolve [options] <path> <vlnv>")
	}

	ctx := flags.context()
	idx, top, err := indexRoot(ctx, &flags, fs.Arg(0), fs.Arg(1), false)
	if err != nil {
		return err
	}
	defer idx.Close()

	res, err := idx.Resolve(ctx, top, flags.view)
	if err != nil {
		return err
	}

	if flags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Resolved %s (view %s) from %d documents\n", res.Top, res.View, len(res.Files))
	for _, d := range res.Levels {
		fmt.Printf("\n%s%s (%s)\n", strings.Repeat("  ", d.Depth), d.TopInstance.ModuleName, d.VLNV)
		for _, inst := range d.OrderedInstances() {
			fmt.Printf("%s  %s: %s\n", strings.Repeat("  ", d.Depth), inst.InstanceName, inst.VLNV)
		}
	}
	fmt.Printf("\n=== Fact Summary ===\n")
	fmt.Printf("  Designs:          %d\n", len(res.Tables.Designs))
	fmt.Printf("  Instances:        %d\n", len(res.Tables.Instances))
	fmt.Printf("  Ports:            %d\n", len(res.Tables.Ports))
	fmt.Printf("  Wires:            %d\n", len(res.Tables.Wires))
	fmt.Printf("  Interconnections: %d\n", len(res.Tables.Interconnections))
	for u, reason := range res.Report.Skipped {
		fmt.Printf("  skipped %s: %s\n", u, reason)
	}
	return nil
}

func runLint(args []string) error {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	timing := fs.Bool("timing", false, "write a timing.jsonl trace into the cache directory")
	clearCache := fs.Bool("clear-cache", false, "drop the cached lint result and fact snapshots first")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: ipxact-meta lint [options] <path> <vlnv>")
	}
	root := fs.Arg(0)

	if *clearCache {
		cfg, err := flags.loadConfig(root)
		if err != nil {
			return err
		}
		if _, err := indexer.ClearLintCache(root, cfg); err != nil {
			return err
		}
	}

	ctx := flags.context()
	idx, top, err := indexRoot(ctx, &flags, root, fs.Arg(1), *timing)
	if err != nil {
		return err
	}
	defer idx.Close()

	result, err := idx.Lint(ctx, top, flags.view)
	if err != nil {
		return err
	}
	idx.Out = os.Stdout
	if err := idx.WriteLintResult(result); err != nil {
		return err
	}
	if result.HasErrors() {
		return errLintFailed
	}
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("c", "", "configuration file")
	entity := fs.String("entity", "", "entity to import when the file holds several")
	output := fs.String("o", "", "write the component to this file (default: stdout)")
	vendor := fs.String("vendor", "", "vendor (default: from config)")
	library := fs.String("library", "", "library (default: from config)")
	version := fs.String("version", "", "version (default: from config)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ipxact-meta import [options] <file.vhd>")
	}
	src := fs.Arg(0)

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(filepath.Dir(src))
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts := extractor.ImportOptions{
		Vendor:  firstNonEmpty(*vendor, cfg.Import.Vendor),
		Library: firstNonEmpty(*library, cfg.Import.Library),
		Version: firstNonEmpty(*version, cfg.Import.Version),
		Author:  cfg.Author,
	}

	facts, err := extractor.New().Extract(src)
	if err != nil {
		return err
	}
	ent, err := selectEntity(facts, *entity)
	if err != nil {
		return err
	}
	c, err := extractor.ToComponent(ent, opts)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := document.WriteDocument(w, c, 2); err != nil {
		return err
	}
	if *output != "" {
		fmt.Fprintf(os.Stderr, "Imported %s from %s into %s\n", c.VLNV, src, *output)
	}
	return nil
}

func selectEntity(facts extractor.FileFacts, name string) (extractor.Entity, error) {
	if len(facts.Entities) == 0 {
		return extractor.Entity{}, fmt.Errorf("no entity found in %s", facts.File)
	}
	if name == "" {
		return facts.Entities[0], nil
	}
	for _, e := range facts.Entities {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return extractor.Entity{}, fmt.Errorf("entity %s not found in %s", name, facts.File)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func runBusInterface(args []string) error {
	fs := flag.NewFlagSet("businterface", flag.ExitOnError)
	name := fs.String("name", "", "only this bus interface")
	jsonOut := fs.Bool("json", false, "print the model as JSON instead of XML")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ipxact-meta businterface [--name n] <file.xml>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := document.ReadDocument(f)
	if err != nil {
		return err
	}
	c, ok := doc.(*ipxact.Component)
	if !ok {
		return fmt.Errorf("%s is a %s, not a component", fs.Arg(0), doc.DocumentVLNV().Type)
	}

	v, err := validator.New()
	if err != nil {
		return fmt.Errorf("init validator: %w", err)
	}

	var selected []*ipxact.BusInterface
	for _, bi := range c.BusInterfaces {
		if *name != "" && bi.Name != *name {
			continue
		}
		if err := v.Validate(bi); err != nil {
			return fmt.Errorf("bus interface %s: %w", bi.Name, err)
		}
		selected = append(selected, bi)
	}
	if *name != "" && len(selected) == 0 {
		return fmt.Errorf("%w: component %s has no bus interface %q", ipxact.ErrDanglingReference, c.VLNV, *name)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(selected)
	}

	out := etree.NewDocument()
	root := out.CreateElement("ipxact:busInterfaces")
	root.CreateAttr("xmlns:ipxact", document.NamespaceIPXACT)
	root.CreateAttr("xmlns:kactus2", document.NamespaceKactus2)
	for _, bi := range selected {
		if err := document.WriteBusInterface(root, bi); err != nil {
			return fmt.Errorf("bus interface %s: %w", bi.Name, err)
		}
	}
	out.Indent(2)
	_, err = out.WriteTo(os.Stdout)
	return err
}
