package meta

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ctxlog"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/expr"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// Option configures ParseHierarchy.
type Option func(*options)

type options struct {
	maxDepth int
	log      *slog.Logger
}

// WithMaxDepth limits how many design levels below the top may be entered.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithLogger overrides the logger carried by the context.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

type hierarchy struct {
	lib      Library
	maxDepth int
	log      *slog.Logger
}

// ParseHierarchy resolves the design that top's view instantiates and every
// design below it, breadth first. The result holds one Design per level,
// starting with top's own design.
func ParseHierarchy(ctx context.Context, lib Library, top *ipxact.Component, view *ipxact.View, opts ...Option) ([]*Design, error) {
	o := options{maxDepth: DefaultMaxDepth, log: ctxlog.FromContext(ctx)}
	for _, opt := range opts {
		opt(&o)
	}
	h := &hierarchy{lib: lib, maxDepth: o.maxDepth, log: o.log}

	if top == nil || view == nil {
		return nil, errors.Wrap(ipxact.ErrDanglingReference, "top component and view are required")
	}

	topInst, err := newInstance(nil, top, view)
	if err != nil {
		return nil, err
	}
	if err := topInst.resolveOwnParameters(); err != nil {
		return nil, err
	}
	finder := topInst.finder()
	if err := topInst.parsePorts(finder); err != nil {
		return nil, err
	}
	if err := topInst.buildInterfaces(lib, finder, false, true); err != nil {
		return nil, err
	}
	topInst.downBuilt = true

	design, di, dc, err := h.findHierarchy(top, view)
	if err != nil {
		return nil, err
	}
	if design == nil {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "view %s of %s does not instantiate a design", view.Name, top.VLNV)
	}

	root := h.newDesign(design, di, dc, topInst, 0, []ipxact.VLNV{top.VLNV})

	var levels []*Design
	names := make(map[string]int)
	queue := []*Design{root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := queue[0]
		queue = queue[1:]

		if err := h.collectInstances(d); err != nil {
			return nil, err
		}
		levels = append(levels, d)

		for _, sub := range d.subDesigns {
			queue = append(queue, sub)
			name := sub.TopInstance.ModuleName
			n := names[name]
			names[name] = n + 1
			sub.TopInstance.ModuleName = fmt.Sprintf("%s_%d", name, n)
		}
	}

	for _, d := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.parseDesign(d); err != nil {
			return nil, err
		}
	}
	return levels, nil
}

func (h *hierarchy) newDesign(d *ipxact.Design, di *ipxact.DesignInstantiation, dc *ipxact.DesignConfiguration,
	top *Instance, depth int, ancestors []ipxact.VLNV) *Design {
	return &Design{
		VLNV:          d.VLNV,
		Source:        d,
		Configuration: dc,
		TopInstance:   top,
		Instances:     make(map[string]*Instance),
		Depth:         depth,
		instantiation: di,
		ancestors:     ancestors,
		log:           h.log.With("design", d.VLNV.String()),
	}
}

// findHierarchy returns the design (and its configuration) a hierarchical
// view refers to. Non hierarchical views yield a nil design.
func (h *hierarchy) findHierarchy(c *ipxact.Component, view *ipxact.View) (*ipxact.Design, *ipxact.DesignInstantiation, *ipxact.DesignConfiguration, error) {
	if view == nil || !view.IsHierarchical() {
		return nil, nil, nil, nil
	}

	var (
		design *ipxact.Design
		di     *ipxact.DesignInstantiation
		dc     *ipxact.DesignConfiguration
		err    error
	)
	if ref := view.DesignInstantiationRef; ref != "" {
		if di = c.DesignInstantiation(ref); di == nil {
			return nil, nil, nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s view %s: no design instantiation %q",
				c.VLNV, view.Name, ref)
		}
		if design, err = h.lib.Design(di.DesignRef.VLNV); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "%s view %s", c.VLNV, view.Name)
		}
	}

	if ref := view.DesignConfigurationInstantiationRef; ref != "" {
		dci := c.DesignConfigurationInstantiation(ref)
		if dci == nil {
			return nil, nil, nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s view %s: no design configuration instantiation %q",
				c.VLNV, view.Name, ref)
		}
		if dc, err = h.lib.DesignConfiguration(dci.DesignConfigurationRef.VLNV); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "%s view %s", c.VLNV, view.Name)
		}
		switch {
		case design == nil:
			if design, err = h.lib.Design(dc.DesignRef); err != nil {
				return nil, nil, nil, errors.Wrapf(err, "design configuration %s", dc.VLNV)
			}
		case !dc.DesignRef.Equal(design.VLNV):
			h.log.Warn("design configuration refers to a different design",
				"component", c.VLNV.String(), "configuration", dc.VLNV.String(),
				"configured", dc.DesignRef.String(), "instantiated", design.VLNV.String())
		}
	}
	return design, di, dc, nil
}

// activeView picks the configured view of an instance, or the component's
// only view when none is configured. A component without views has no
// active view.
func activeView(dc *ipxact.DesignConfiguration, instance string, c *ipxact.Component) (*ipxact.View, error) {
	if name := dc.ActiveView(instance); name != "" {
		v := c.View(name)
		if v == nil {
			return nil, errors.Wrapf(ipxact.ErrDanglingReference, "instance %s: component %s has no view %q",
				instance, c.VLNV, name)
		}
		return v, nil
	}
	switch len(c.Views) {
	case 0:
		return nil, nil
	case 1:
		return &c.Views[0], nil
	}
	return nil, errors.Wrapf(ipxact.ErrAmbiguousActiveView, "instance %s: component %s has %d views and none is configured",
		instance, c.VLNV, len(c.Views))
}

// HierarchicalView picks the view of a top component to resolve: the named
// one, or else the only view that instantiates a design or a design
// configuration.
func HierarchicalView(c *ipxact.Component, name string) (*ipxact.View, error) {
	if name != "" {
		v := c.View(name)
		if v == nil {
			return nil, errors.Wrapf(ipxact.ErrDanglingReference, "component %s has no view %q", c.VLNV, name)
		}
		return v, nil
	}
	views := c.HierarchicalViews()
	if len(views) != 1 {
		return nil, errors.Wrapf(ipxact.ErrAmbiguousActiveView, "component %s has %d hierarchical views, name one",
			c.VLNV, len(views))
	}
	return views[0], nil
}

// collectInstances creates the instances of d and queues the designs their
// active views instantiate.
func (h *hierarchy) collectInstances(d *Design) error {
	for i := range d.Source.ComponentInstances {
		ci := &d.Source.ComponentInstances[i]
		c, err := h.lib.Component(ci.ComponentRef.VLNV)
		if err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, ci.InstanceName)
		}
		view, err := activeView(d.Configuration, ci.InstanceName, c)
		if err != nil {
			return errors.Wrapf(err, "design %s", d.VLNV)
		}
		if view == nil {
			d.log.Warn("component has no views", "instance", ci.InstanceName, "component", c.VLNV.String())
		}
		inst, err := newInstance(ci, c, view)
		if err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, ci.InstanceName)
		}
		if _, dup := d.Instances[ci.InstanceName]; !dup {
			d.Order = append(d.Order, ci.InstanceName)
		}
		d.Instances[ci.InstanceName] = inst

		sub, di, dc, err := h.findHierarchy(c, view)
		if err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, ci.InstanceName)
		}
		if sub == nil {
			continue
		}
		for _, a := range d.ancestors {
			if a.Equal(c.VLNV) {
				return errors.Wrapf(ipxact.ErrCircularComponentReference, "design %s instance %s re-enters %s",
					d.VLNV, ci.InstanceName, c.VLNV)
			}
		}
		if d.Depth+1 > h.maxDepth {
			return errors.Wrapf(ipxact.ErrHierarchyTooDeep, "design %s instance %s exceeds depth %d",
				d.VLNV, ci.InstanceName, h.maxDepth)
		}
		ancestors := append(append([]ipxact.VLNV(nil), d.ancestors...), c.VLNV)
		d.subDesigns = append(d.subDesigns, h.newDesign(sub, di, dc, inst, d.Depth+1, ancestors))
	}
	return nil
}

func (h *hierarchy) parseDesign(d *Design) error {
	if !d.TopInstance.downBuilt {
		if err := d.TopInstance.buildInterfaces(h.lib, d.TopInstance.finder(), false, true); err != nil {
			return err
		}
		d.TopInstance.downBuilt = true
	}
	if err := d.parseParameters(); err != nil {
		return err
	}
	if err := h.parseInstances(d); err != nil {
		return err
	}
	if err := d.parseInterconnections(); err != nil {
		return err
	}
	if err := d.parseAdHocs(); err != nil {
		return err
	}
	d.removeUnconnectedInterfaceAssignments()
	d.removeUnconnectedAdHocAssignments()
	d.cullParameters()
	return nil
}

// parseParameters evaluates the design parameters, overridden by the design
// instantiation of the top component.
func (d *Design) parseParameters() error {
	d.Parameters = cloneParameters(d.Source.Parameters)
	if d.instantiation != nil {
		applyOverrides(d.Parameters, d.instantiation.DesignRef.ConfigurableElementValues)
	}
	if err := evaluateParameters(d.Parameters, d.TopInstance.finder()); err != nil {
		return errors.Wrapf(err, "design %s", d.VLNV)
	}
	return nil
}

func (h *hierarchy) parseInstances(d *Design) error {
	designFinder := expr.ListFinder(d.Parameters)
	for _, inst := range d.OrderedInstances() {
		inst.overridden = applyOverrides(inst.allParameters, inst.Source.ComponentRef.ConfigurableElementValues)
		sorted, err := SortParameters(inst.allParameters)
		if err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, inst.InstanceName)
		}
		inst.setParameters(sorted)
		inst.captureExpressions()
		if err := evaluateParameters(inst.allParameters, designFinder); err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, inst.InstanceName)
		}

		if vc := d.Configuration.ViewConfiguration(inst.InstanceName); vc != nil {
			applyOverrides(inst.ModuleParameters, vc.ConfigurableElementValues)
		}
		if inst.ModuleParameters, err = SortParameters(inst.ModuleParameters); err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, inst.InstanceName)
		}
		top := expr.MultiFinder{expr.ListFinder(inst.allParameters), designFinder}
		if err := evaluateParameters(inst.ModuleParameters, top); err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, inst.InstanceName)
		}

		finder := inst.finder()
		if err := inst.parsePorts(finder); err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, inst.InstanceName)
		}
		if err := inst.buildInterfaces(h.lib, finder, true, false); err != nil {
			return errors.Wrapf(err, "design %s instance %s", d.VLNV, inst.InstanceName)
		}
		view := ""
		if inst.ActiveView != nil {
			view = inst.ActiveView.Name
		}
		d.log.Debug("instance resolved", "instance", inst.InstanceName,
			"component", inst.VLNV.String(), "view", view)
	}
	return nil
}

func (d *Design) parseInterconnections() error {
	for i := range d.Source.Interconnections {
		ic := &d.Source.Interconnections[i]

		var found, hier []*Interface
		for _, ep := range ic.Endpoints() {
			inst, ok := d.Instances[ep.ComponentRef]
			if !ok {
				return errors.Wrapf(ipxact.ErrDanglingReference, "design %s interconnection %s: no instance %q",
					d.VLNV, ic.Name, ep.ComponentRef)
			}
			mi, ok := inst.Interfaces[ep.BusRef]
			if !ok {
				return errors.Wrapf(ipxact.ErrDanglingReference, "design %s interconnection %s: %s has no bus interface %q",
					d.VLNV, ic.Name, inst.VLNV, ep.BusRef)
			}
			found = append(found, mi)
		}
		for _, hi := range ic.HierInterfaces {
			mi, ok := d.TopInstance.Interfaces[hi.BusRef]
			if !ok {
				return errors.Wrapf(ipxact.ErrDanglingReference, "design %s interconnection %s: top %s has no bus interface %q",
					d.VLNV, ic.Name, d.TopInstance.VLNV, hi.BusRef)
			}
			hier = append(hier, mi)
		}

		if len(found)+len(hier) < 2 {
			d.log.Warn("interconnection has fewer than two interfaces", "interconnection", ic.Name)
			continue
		}

		var mic *Interconnection
		for _, mi := range found {
			if mi.UpInterconnection != nil {
				mic = mi.UpInterconnection
				break
			}
		}
		for _, mi := range hier {
			if mi.DownInterconnection != nil {
				mic = mi.DownInterconnection
				break
			}
		}
		if mic == nil {
			mic = &Interconnection{Name: ic.Name, Wires: make(map[string]*Wire), HierInterfaces: hier}
			d.Interconnections = append(d.Interconnections, mic)
		}

		for _, mi := range found {
			mi.UpInterconnection = mic
			d.wireInterfacePorts(mi, mic, false)
		}
		for _, mi := range hier {
			mi.DownInterconnection = mic
			d.wireInterfacePorts(mi, mic, true)
		}
	}
	return nil
}

// wireInterfacePorts attaches every assignment mi created to the
// interconnection's wire of its logical port, in port map order. Slices of
// one port mapped to the same logical port share that wire.
func (d *Design) wireInterfacePorts(mi *Interface, mic *Interconnection, hierarchical bool) {
	at, err := mi.BusInterface.PrimaryAbstractionType()
	if err != nil {
		return
	}
	seen := make(map[*PortAssignment]bool)
	for _, pm := range at.PortMaps {
		if pm.LogicalPort == nil || pm.PhysicalPort == nil {
			continue
		}
		p, ok := mi.Ports[pm.PhysicalPort.Name]
		if !ok {
			continue
		}
		assignments := p.UpAssignments
		if hierarchical {
			assignments = p.DownAssignments
		}
		for _, a := range assignments[pm.LogicalPort.Name] {
			if a.iface != mi || seen[a] {
				continue
			}
			seen[a] = true
			w := mic.wire(a.LogicalPort)
			w.refCount++
			a.Wire = w
			if !w.widen(a.LogicalBounds) {
				d.log.Warn("wire bounds are not numeric, keeping current bounds",
					"wire", w.Name, "bounds", w.Bounds.String(), "candidate", a.LogicalBounds.String())
			}
			if hierarchical {
				w.addHierPort(p)
			}
		}
	}
}

func (d *Design) removeUnconnectedInterfaceAssignments() {
	for _, inst := range d.OrderedInstances() {
		for _, mi := range inst.OrderedInterfaces() {
			if mi.UpInterconnection != nil {
				continue
			}
			for _, p := range mi.OrderedPorts() {
				p.UpAssignments.filter(func(a *PortAssignment) bool { return a.iface != mi })
			}
		}
	}
	for _, mi := range d.TopInstance.OrderedInterfaces() {
		if mi.DownInterconnection != nil {
			continue
		}
		for _, p := range mi.OrderedPorts() {
			p.DownAssignments.filter(func(a *PortAssignment) bool { return a.iface != mi })
		}
	}
}

// removeUnconnectedAdHocAssignments detaches wires with a single user and
// drops ad-hoc assignments left with neither a wire nor a default value.
func (d *Design) removeUnconnectedAdHocAssignments() {
	prune := func(assignments Assignments) {
		assignments.filter(func(a *PortAssignment) bool {
			adHoc := d.isAdHocWire(a.Wire)
			if a.Wire != nil && a.Wire.refCount < 2 {
				a.Wire = nil
			}
			return a.Wire != nil || a.DefaultValue != "" || !adHoc
		})
	}
	for _, inst := range d.OrderedInstances() {
		for _, p := range inst.OrderedPorts() {
			prune(p.UpAssignments)
		}
	}
	for _, p := range d.TopInstance.OrderedPorts() {
		prune(p.DownAssignments)
	}
}
