package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

const (
	// ViewName is the flat view created for imported entities.
	ViewName = "flat_vhdl"

	instantiationName = "vhdl_implementation"
	envIdentifier     = "VHDL:ipxact-meta:"
)

// ImportOptions carries the VLNV parts an entity header does not contain.
type ImportOptions struct {
	Vendor  string
	Library string
	Version string
	Author  string
}

// ValueID is the parameter ID generated for an entity generic.
func ValueID(entity, generic string) string {
	return "id_" + strings.ToLower(entity) + "_" + strings.ToLower(generic)
}

// ToComponent builds a component skeleton from an entity header. Generics
// become component parameters with module parameters referring to them, and
// generic names in port bounds and defaults are replaced by parameter IDs.
func ToComponent(ent Entity, opts ImportOptions) (*ipxact.Component, error) {
	if ent.Name == "" {
		return nil, fmt.Errorf("%w: entity without a name", ipxact.ErrMalformedDocument)
	}
	c := &ipxact.Component{
		VLNV:   ipxact.NewVLNV(ipxact.TypeComponent, opts.Vendor, opts.Library, ent.Name, opts.Version),
		Author: opts.Author,
	}
	if !c.VLNV.IsValid() {
		return nil, fmt.Errorf("incomplete VLNV %q for entity %s: set vendor, library and version", c.VLNV, ent.Name)
	}
	if opts.Author != "" {
		c.Description = fmt.Sprintf("Imported from VHDL entity %s by %s", ent.Name, opts.Author)
	}

	ids := make(map[string]string, len(ent.Generics))
	for _, g := range ent.Generics {
		ids[strings.ToLower(g.Name)] = ValueID(ent.Name, g.Name)
	}
	replace := referenceReplacer(ids)

	inst := ipxact.ComponentInstantiation{
		Name:       instantiationName,
		Language:   "VHDL",
		ModuleName: ent.Name,
	}
	for _, g := range ent.Generics {
		id := ids[strings.ToLower(g.Name)]
		c.Parameters = append(c.Parameters, ipxact.Parameter{
			Name:    g.Name,
			ValueID: id,
			Value:   literal(replace(g.Default)),
			Type:    parameterType(g.Type),
		})
		inst.ModuleParameters = append(inst.ModuleParameters, ipxact.Parameter{
			Name:  g.Name,
			Value: id,
			Type:  parameterType(g.Type),
		})
	}

	for _, p := range ent.Ports {
		c.Ports = append(c.Ports, ipxact.Port{
			Name:         p.Name,
			Direction:    portDirection(p.Direction),
			Left:         replace(p.Left),
			Right:        replace(p.Right),
			DefaultValue: literal(replace(p.Default)),
		})
	}

	c.ComponentInstantiations = []ipxact.ComponentInstantiation{inst}
	c.Views = []ipxact.View{{
		Name:                      ViewName,
		EnvIdentifiers:            []string{envIdentifier},
		ComponentInstantiationRef: instantiationName,
	}}
	return c, nil
}

var identPattern = regexp.MustCompile(`[A-Za-z_]\w*`)

// referenceReplacer rewrites generic names to their IDs. VHDL identifiers
// are case insensitive.
func referenceReplacer(ids map[string]string) func(string) string {
	return func(expr string) string {
		if expr == "" || len(ids) == 0 {
			return expr
		}
		return identPattern.ReplaceAllStringFunc(expr, func(word string) string {
			if id, ok := ids[strings.ToLower(word)]; ok {
				return id
			}
			return word
		})
	}
}

// literal turns a character literal like '1' into its bit value.
func literal(v string) string {
	if m := charLiteralPattern.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

func portDirection(mode string) ipxact.Direction {
	switch strings.ToLower(mode) {
	case "out", "buffer":
		return ipxact.DirectionOut
	case "inout":
		return ipxact.DirectionInOut
	case "linkage":
		return ipxact.DirectionPhantom
	default:
		return ipxact.DirectionIn
	}
}

func parameterType(vhdlType string) string {
	t := strings.ToLower(vhdlType)
	switch {
	case strings.HasPrefix(t, "integer"), strings.HasPrefix(t, "natural"), strings.HasPrefix(t, "positive"):
		return "int"
	case t == "boolean":
		return "bit"
	case t == "string":
		return "string"
	case t == "real":
		return "real"
	default:
		return ""
	}
}
