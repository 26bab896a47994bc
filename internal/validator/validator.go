package validator

// The CUE schemas are the contract between the resolver and everything that
// consumes its JSON: the policy engine, fact dumps and the bus interface
// printer. A renamed field or a bad enum value fails here, loudly, instead of
// making a Rego rule silently match nothing.
//
// When validation fails, fix the producer or the schema. Do not work around
// the error.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed businterface_schema.cue output_schema.cue facts_schema.cue
var schemaFS embed.FS

// schema is one compiled CUE file and the definition data is checked against.
type schema struct {
	ctx   *cue.Context
	value cue.Value
	def   string
}

func compile(file, def string) (*schema, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	value := ctx.CompileBytes(schemaBytes, cue.Filename(file))
	if value.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, value.Err())
	}

	if d := value.LookupPath(cue.ParsePath(def)); d.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", def, d.Err())
	}

	return &schema{ctx: ctx, value: value, def: def}, nil
}

func (s *schema) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}
	return s.value.LookupPath(cue.ParsePath(s.def)).Unify(dataValue), nil
}

func (s *schema) validateJSON(jsonBytes []byte) error {
	unified, err := s.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", s.def, err)
	}
	return nil
}

func (s *schema) validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return s.validateJSON(jsonBytes)
}

// errorList returns one line per schema violation.
func (s *schema) errorList(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	unified, err := s.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// Validator checks bus interfaces against #BusInterface.
type Validator struct {
	s *schema
}

// New creates a Validator with the embedded bus interface schema.
func New() (*Validator, error) {
	s, err := compile("businterface_schema.cue", "#BusInterface")
	if err != nil {
		return nil, err
	}
	return &Validator{s: s}, nil
}

// Validate checks that a bus interface (or anything marshaling to the same
// JSON) conforms to the schema.
func (v *Validator) Validate(bi interface{}) error {
	return v.s.validate(bi)
}

// ValidateJSON validates JSON bytes directly against the schema.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	return v.s.validateJSON(jsonBytes)
}

// ValidationErrors returns detailed information about all validation errors.
func (v *Validator) ValidationErrors(bi interface{}) []string {
	return v.s.errorList(bi)
}

// OutputValidator validates lint output against the output schema.
type OutputValidator struct {
	s *schema
}

// NewOutputValidator creates a validator for lint output.
func NewOutputValidator() (*OutputValidator, error) {
	s, err := compile("output_schema.cue", "#LintOutput")
	if err != nil {
		return nil, err
	}
	return &OutputValidator{s: s}, nil
}

// Validate checks that the output data conforms to the output schema.
func (v *OutputValidator) Validate(data interface{}) error {
	return v.s.validate(data)
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	tables *schema
	delta  *schema
}

// NewFactsValidator creates a validator for fact tables and deltas.
func NewFactsValidator() (*FactsValidator, error) {
	tables, err := compile("facts_schema.cue", "#FactTables")
	if err != nil {
		return nil, err
	}
	delta, err := compile("facts_schema.cue", "#FactDelta")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{tables: tables, delta: delta}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(tables interface{}) error {
	return v.tables.validate(tables)
}

// ValidateDelta checks an added/removed pair of fact tables.
func (v *FactsValidator) ValidateDelta(delta interface{}) error {
	return v.delta.validate(delta)
}

// ValidationErrors lists every violation in the fact tables.
func (v *FactsValidator) ValidationErrors(tables interface{}) []string {
	return v.tables.errorList(tables)
}
