package meta

import (
	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/expr"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

func newInstance(ci *ipxact.ComponentInstance, c *ipxact.Component, view *ipxact.View) (*Instance, error) {
	mc, err := newComponent(c, view)
	if err != nil {
		return nil, err
	}
	inst := &Instance{
		Component:    mc,
		InstanceName: c.VLNV.Name,
		Source:       ci,
		overridden:   make(map[string]bool),
	}
	if ci != nil {
		inst.InstanceName = ci.InstanceName
	}
	inst.setParameters(mc.Parameters)
	return inst, nil
}

// setParameters replaces both the full and the visible parameter list.
func (i *Instance) setParameters(params []ipxact.Parameter) {
	i.allParameters = params
	i.Parameters = params
	i.raw = make(map[string]string, len(params))
	for _, p := range params {
		if p.ValueID != "" {
			i.raw[p.ValueID] = p.Value
		}
	}
}

// finder looks up the instance's own parameters, then its module parameters.
func (i *Instance) finder() expr.Finder {
	return expr.MultiFinder{expr.ListFinder(i.allParameters), expr.ListFinder(i.ModuleParameters)}
}

// resolveOwnParameters evaluates a top component against nothing but itself.
func (i *Instance) resolveOwnParameters() error {
	sorted, err := SortParameters(i.allParameters)
	if err != nil {
		return errors.Wrapf(err, "component %s", i.VLNV)
	}
	i.setParameters(sorted)
	if i.ModuleParameters, err = SortParameters(i.ModuleParameters); err != nil {
		return errors.Wrapf(err, "component %s", i.VLNV)
	}
	i.captureExpressions()
	if err := evaluateParameters(i.allParameters, nil); err != nil {
		return errors.Wrapf(err, "component %s", i.VLNV)
	}
	if err := evaluateParameters(i.ModuleParameters, expr.ListFinder(i.allParameters)); err != nil {
		return errors.Wrapf(err, "component %s", i.VLNV)
	}
	return nil
}

// usedTexts returns every expression of an instance that may refer to its
// parameters, excluding the parameters themselves.
func (d *Design) usedTexts(inst *Instance) []string {
	var texts []string
	src := inst.Component.Source
	for _, p := range src.Ports {
		texts = append(texts, p.Left, p.Right, p.DefaultValue)
	}
	if inst.Instantiation != nil {
		for _, p := range inst.Instantiation.ModuleParameters {
			texts = append(texts, p.Value)
		}
	}
	if v := inst.ActiveView; v != nil && v.DesignInstantiationRef != "" {
		if di := src.DesignInstantiation(v.DesignInstantiationRef); di != nil {
			for _, cev := range di.DesignRef.ConfigurableElementValues {
				texts = append(texts, cev.Value)
			}
		}
	}
	if vc := d.Configuration.ViewConfiguration(inst.InstanceName); vc != nil {
		for _, cev := range vc.ConfigurableElementValues {
			texts = append(texts, cev.Value)
		}
	}
	for _, bi := range src.BusInterfaces {
		at, err := bi.PrimaryAbstractionType()
		if err != nil {
			continue
		}
		for _, pm := range at.PortMaps {
			if pm.LogicalPort != nil && pm.LogicalPort.Range != nil {
				texts = append(texts, pm.LogicalPort.Range.Left, pm.LogicalPort.Range.Right)
			}
			if pm.PhysicalPort != nil && pm.PhysicalPort.PartSelect != nil {
				ps := pm.PhysicalPort.PartSelect
				texts = append(texts, ps.Range.Left, ps.Range.Right)
				texts = append(texts, ps.Indices...)
			}
		}
	}
	for _, ah := range d.Source.AdHocConnections {
		for _, ref := range ah.InternalPortReferences {
			if ref.ComponentRef != inst.InstanceName {
				continue
			}
			texts = append(texts, ah.TiedValue)
			if ref.PartSelect != nil {
				texts = append(texts, ref.PartSelect.Range.Left, ref.PartSelect.Range.Right)
			}
		}
	}
	return texts
}

// cullParameters hides instance parameters nothing refers to. A parameter
// survives when it is referenced, directly or through another kept
// parameter, or when the design overrides it.
func (d *Design) cullParameters() {
	for _, inst := range d.OrderedInstances() {
		used := make(map[string]bool)
		var queue []string
		mark := func(text string) {
			for _, ref := range expr.References(text) {
				if !used[ref] {
					used[ref] = true
					queue = append(queue, ref)
				}
			}
		}
		for _, text := range d.usedTexts(inst) {
			mark(text)
		}
		for len(queue) > 0 {
			ref := queue[0]
			queue = queue[1:]
			if raw, ok := inst.raw[ref]; ok {
				mark(raw)
			}
		}

		var kept []ipxact.Parameter
		for _, p := range inst.allParameters {
			if used[p.ValueID] || used[p.Name] || inst.overridden[p.ValueID] {
				kept = append(kept, p)
				continue
			}
			d.log.Debug("parameter culled", "instance", inst.InstanceName, "parameter", p.Name)
		}
		inst.Parameters = kept
	}
}
