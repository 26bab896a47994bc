package meta

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/expr"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// FormatComponent resolves c on its own: parameters and module parameters
// are sorted and evaluated, ports get evaluated bounds and bus interfaces
// group the ports they map. view selects the component instantiation and
// may be nil. lib is only used to look up abstraction definitions and may
// be nil as well.
func FormatComponent(lib Library, c *ipxact.Component, view *ipxact.View) (*Component, error) {
	mc, err := newComponent(c, view)
	if err != nil {
		return nil, err
	}
	if mc.Parameters, err = SortParameters(mc.Parameters); err != nil {
		return nil, errors.Wrapf(err, "component %s", c.VLNV)
	}
	if mc.ModuleParameters, err = SortParameters(mc.ModuleParameters); err != nil {
		return nil, errors.Wrapf(err, "component %s", c.VLNV)
	}
	mc.captureExpressions()

	if err := evaluateParameters(mc.Parameters, nil); err != nil {
		return nil, errors.Wrapf(err, "component %s", c.VLNV)
	}
	if err := evaluateParameters(mc.ModuleParameters, expr.ListFinder(mc.Parameters)); err != nil {
		return nil, errors.Wrapf(err, "component %s", c.VLNV)
	}

	finder := expr.MultiFinder{expr.ListFinder(mc.Parameters), expr.ListFinder(mc.ModuleParameters)}
	if err := mc.parsePorts(finder); err != nil {
		return nil, err
	}
	if err := mc.buildInterfaces(lib, finder, false, false); err != nil {
		return nil, err
	}
	return mc, nil
}

func newComponent(c *ipxact.Component, view *ipxact.View) (*Component, error) {
	mc := &Component{
		VLNV:        c.VLNV,
		ModuleName:  c.VLNV.Name,
		Source:      c,
		ActiveView:  view,
		Parameters:  cloneParameters(c.Parameters),
		Expressions: make(map[string]string),
		Ports:       make(map[string]*Port),
		Interfaces:  make(map[string]*Interface),
	}
	if view != nil && view.ComponentInstantiationRef != "" {
		ci := c.ComponentInstantiation(view.ComponentInstantiationRef)
		if ci == nil {
			return nil, errors.Wrapf(ipxact.ErrDanglingReference, "component %s view %s: no component instantiation %q",
				c.VLNV, view.Name, view.ComponentInstantiationRef)
		}
		mc.Instantiation = ci
		mc.ModuleParameters = cloneParameters(ci.ModuleParameters)
		if ci.ModuleName != "" {
			mc.ModuleName = ci.ModuleName
		}
	}
	return mc, nil
}

func cloneParameters(params []ipxact.Parameter) []ipxact.Parameter {
	if len(params) == 0 {
		return nil
	}
	return append([]ipxact.Parameter(nil), params...)
}

func (c *Component) captureExpressions() {
	f := expr.NewFormatter(expr.MultiFinder{expr.ListFinder(c.Parameters), expr.ListFinder(c.ModuleParameters)})
	for _, p := range c.Parameters {
		c.Expressions[p.Name] = f.Format(p.Value)
	}
	for _, p := range c.ModuleParameters {
		c.Expressions[p.Name] = f.Format(p.Value)
	}
}

// applyOverrides replaces the values of parameters a configurable element
// value targets and reports which value ids were overridden.
func applyOverrides(params []ipxact.Parameter, cevs []ipxact.ConfigurableElementValue) map[string]bool {
	overridden := make(map[string]bool)
	for i := range params {
		for _, cev := range cevs {
			if cev.ReferenceID == params[i].ValueID {
				params[i].Value = cev.Value
				overridden[params[i].ValueID] = true
				break
			}
		}
	}
	return overridden
}

// evaluateParameters evaluates params in place. Each value may refer to
// the other parameters of the list and, failing that, to top.
func evaluateParameters(params []ipxact.Parameter, top expr.Finder) error {
	r := expr.NewResolver(expr.MultiFinder{expr.ListFinder(params), top})
	for i := range params {
		v, err := r.Evaluate(params[i].Value)
		if err != nil {
			return errors.Wrapf(err, "parameter %s", params[i].Name)
		}
		params[i].Value = v
	}
	return nil
}

func evaluateBounds(r *expr.Resolver, left, right string) (Bounds, error) {
	l, err := r.Evaluate(left)
	if err != nil {
		return Bounds{}, err
	}
	rt, err := r.Evaluate(right)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{Left: l, Right: rt}, nil
}

func (c *Component) parsePorts(finder expr.Finder) error {
	r := expr.NewResolver(finder)
	f := expr.NewFormatter(finder)
	for i := range c.Source.Ports {
		src := &c.Source.Ports[i]
		p := newPort(src)

		left, right := src.Left, src.Right
		if left == "" {
			left = "0"
		}
		if right == "" {
			right = "0"
		}
		b, err := evaluateBounds(r, left, right)
		if err != nil {
			return errors.Wrapf(err, "component %s port %s", c.VLNV, src.Name)
		}
		p.VectorBounds = b
		p.Expression = Bounds{Left: f.Format(left), Right: f.Format(right)}

		if p.DefaultValue, err = r.Evaluate(src.DefaultValue); err != nil {
			return errors.Wrapf(err, "component %s port %s default", c.VLNV, src.Name)
		}
		if _, dup := c.Ports[p.Name]; !dup {
			c.PortOrder = append(c.PortOrder, p.Name)
		}
		c.Ports[p.Name] = p
	}
	return nil
}

// buildInterfaces groups ports by bus interface. With up or down set it also
// creates a port assignment per port map in the corresponding direction.
// Calling it again for the other direction reuses the interfaces.
func (c *Component) buildInterfaces(lib Library, finder expr.Finder, up, down bool) error {
	r := expr.NewResolver(finder)
	for _, bi := range c.Source.BusInterfaces {
		mi, ok := c.Interfaces[bi.Name]
		fresh := !ok
		if fresh {
			mi = &Interface{
				Name:         bi.Name,
				Mode:         bi.InterfaceMode(),
				BusInterface: bi,
				Ports:        make(map[string]*Port),
			}
			c.Interfaces[bi.Name] = mi
			c.InterfaceOrder = append(c.InterfaceOrder, bi.Name)
		}

		at, err := bi.PrimaryAbstractionType()
		if err != nil {
			continue
		}
		if fresh && lib != nil && at.AbstractionRef != nil {
			ad, err := lib.AbstractionDefinition(at.AbstractionRef.VLNV)
			if err != nil {
				return errors.Wrapf(err, "component %s bus interface %s", c.VLNV, bi.Name)
			}
			mi.AbstractionDefinition = ad
		}

		for _, pm := range at.PortMaps {
			if pm.LogicalPort == nil || pm.PhysicalPort == nil {
				continue
			}
			p, ok := c.Ports[pm.PhysicalPort.Name]
			if !ok {
				return errors.Wrapf(ipxact.ErrDanglingReference, "component %s bus interface %s maps unknown port %q",
					c.VLNV, bi.Name, pm.PhysicalPort.Name)
			}
			mi.addPort(p)

			if !up && !down {
				continue
			}
			a, err := c.assignment(r, mi, pm, p)
			if err != nil {
				return errors.Wrapf(err, "component %s bus interface %s", c.VLNV, bi.Name)
			}
			if up {
				p.UpAssignments.add(a)
			}
			if down {
				cp := *a
				p.DownAssignments.add(&cp)
			}
		}
	}
	return nil
}

func (c *Component) assignment(r *expr.Resolver, mi *Interface, pm ipxact.PortMap, p *Port) (*PortAssignment, error) {
	a := &PortAssignment{
		LogicalPort: pm.LogicalPort.Name,
		Invert:      pm.Invert == ipxact.BoolTrue,
		iface:       mi,
	}

	a.PhysicalBounds = p.VectorBounds
	if ps := pm.PhysicalPort.PartSelect; ps != nil && ps.Range.IsComplete() {
		b, err := evaluateBounds(r, ps.Range.Left, ps.Range.Right)
		if err != nil {
			return nil, err
		}
		a.PhysicalBounds = b
	}

	lb, err := logicalBounds(r, mi, pm, a.PhysicalBounds)
	if err != nil {
		return nil, err
	}
	a.LogicalBounds = lb
	return a, nil
}

// logicalBounds picks, in order: the port map's logical range, the width the
// abstraction definition declares for the interface mode, the width of the
// physical bounds, and finally a single bit.
func logicalBounds(r *expr.Resolver, mi *Interface, pm ipxact.PortMap, phys Bounds) (Bounds, error) {
	if rng := pm.LogicalPort.Range; rng != nil && rng.IsComplete() {
		return evaluateBounds(r, rng.Left, rng.Right)
	}

	if pa := mi.AbstractionDefinition.Port(pm.LogicalPort.Name); pa != nil {
		if width := pa.Wire.WidthFor(mi.Mode); width != "" {
			w, err := r.Evaluate(width)
			if err != nil {
				return Bounds{}, err
			}
			if n, convErr := strconv.Atoi(strings.TrimSpace(w)); convErr == nil && n > 0 {
				return Bounds{Left: strconv.Itoa(n - 1), Right: "0"}, nil
			}
		}
	}

	if w := phys.Width(); w > 0 {
		return Bounds{Left: strconv.Itoa(w - 1), Right: "0"}, nil
	}
	return singleBit(), nil
}
