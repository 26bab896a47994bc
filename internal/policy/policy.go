package policy

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ctxlog"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/validator"
)

//go:embed rules/*.rego
var rulesFS embed.FS

const violationsQuery = "data.ipxact_meta.lint.all_violations"

// Engine evaluates OPA policies against resolved fact tables.
type Engine struct {
	query  rego.PreparedEvalQuery
	rules  RuleConfig
	facts  *validator.FactsValidator
	output *validator.OutputValidator
}

// RuleConfig switches rules off and overrides their severity.
// *config.Config satisfies it.
type RuleConfig interface {
	IsRuleEnabled(rule string) bool
	GetRuleSeverity(rule string, defaultSeverity string) string
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Design   string `json:"design"`
	Instance string `json:"instance,omitempty"`
	Target   string `json:"target,omitempty"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// HasErrors reports whether any error severity violation was found.
func (r *Result) HasErrors() bool {
	return r.Summary.Errors > 0
}

type options struct {
	dirs  []string
	rules RuleConfig
}

// Option configures an Engine.
type Option func(*options)

// WithPolicyDirs loads every *.rego file in dirs next to the embedded rules.
func WithPolicyDirs(dirs ...string) Option {
	return func(o *options) { o.dirs = append(o.dirs, dirs...) }
}

// WithRules applies rule enablement and severities.
func WithRules(rc RuleConfig) Option {
	return func(o *options) { o.rules = rc }
}

// New prepares the embedded rules plus any extra policy directories.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	modules, err := embeddedModules()
	if err != nil {
		return nil, err
	}
	for _, dir := range o.dirs {
		extra, err := dirModules(dir)
		if err != nil {
			return nil, err
		}
		modules = append(modules, extra...)
	}

	query, err := rego.New(append(modules, rego.Query(violationsQuery))...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}

	factsValidator, err := validator.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("init facts validator: %w", err)
	}
	outputValidator, err := validator.NewOutputValidator()
	if err != nil {
		return nil, fmt.Errorf("init output validator: %w", err)
	}

	return &Engine{query: query, rules: o.rules, facts: factsValidator, output: outputValidator}, nil
}

func embeddedModules() ([]func(*rego.Rego), error) {
	var modules []func(*rego.Rego)
	err := fs.WalkDir(rulesFS, "rules", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := rulesFS.ReadFile(path)
		if err != nil {
			return err
		}
		modules = append(modules, rego.Module(path, string(content)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading embedded rules: %w", err)
	}
	return modules, nil
}

func dirModules(dir string) ([]func(*rego.Rego), error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", dir)
	}

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}
	return modules, nil
}

// Fingerprint hashes the embedded rules and every *.rego file in dirs, so
// cached results can be tied to the rule set that produced them.
func Fingerprint(dirs ...string) (string, error) {
	hasher := sha256.New()
	write := func(name string, data []byte) {
		hasher.Write([]byte(name))
		hasher.Write([]byte{0})
		hasher.Write(data)
		hasher.Write([]byte{0})
	}

	err := fs.WalkDir(rulesFS, "rules", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := rulesFS.ReadFile(path)
		if err != nil {
			return err
		}
		write(path, data)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("policy rules hash: %w", err)
	}

	for _, dir := range dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
		if err != nil {
			return "", fmt.Errorf("policy rules hash: %w", err)
		}
		sort.Strings(files)
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return "", fmt.Errorf("policy rules hash read: %w", err)
			}
			write(f, data)
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Evaluate runs the policies against a fact snapshot. The tables are checked
// against the facts schema first.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) (*Result, error) {
	if err := e.facts.Validate(tables); err != nil {
		return nil, fmt.Errorf("facts invalid: %w", err)
	}

	inputMap, err := structToMap(tables)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	result := &Result{Violations: []Violation{}}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				violation := Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Design:   getString(vmap, "design"),
					Instance: getString(vmap, "instance"),
					Target:   getString(vmap, "target"),
					Message:  getString(vmap, "message"),
				}
				if e.rules != nil {
					if !e.rules.IsRuleEnabled(violation.Rule) {
						continue
					}
					violation.Severity = e.rules.GetRuleSeverity(violation.Rule, violation.Severity)
				}
				result.Violations = append(result.Violations, violation)
			}
		}
	}

	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Design != b.Design {
			return a.Design < b.Design
		}
		if a.Instance != b.Instance {
			return a.Instance < b.Instance
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
	result.Summary = summarize(result.Violations)

	if err := e.output.Validate(result); err != nil {
		return nil, fmt.Errorf("lint output invalid: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("policies evaluated",
		"violations", result.Summary.TotalViolations, "errors", result.Summary.Errors)
	return result, nil
}

func summarize(violations []Violation) Summary {
	s := Summary{TotalViolations: len(violations)}
	for _, v := range violations {
		switch v.Severity {
		case "error":
			s.Errors++
		case "warning":
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
