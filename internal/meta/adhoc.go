package meta

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/expr"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

const (
	tieOpen    = "open"
	tieDefault = "default"
)

func (d *Design) parseAdHocs() error {
	for i := range d.Source.AdHocConnections {
		ah := &d.Source.AdHocConnections[i]

		var w *Wire
		if len(ah.InternalPortReferences)+len(ah.ExternalPortReferences) > 1 {
			w = &Wire{Name: ah.Name}
			d.AdHocWires = append(d.AdHocWires, w)
		}

		for _, ref := range ah.InternalPortReferences {
			inst, ok := d.Instances[ref.ComponentRef]
			if !ok {
				return errors.Wrapf(ipxact.ErrDanglingReference, "design %s ad-hoc %s: no instance %q",
					d.VLNV, ah.Name, ref.ComponentRef)
			}
			if err := d.attachAdHoc(ah, ref, inst, w, false); err != nil {
				return err
			}
		}
		for _, ref := range ah.ExternalPortReferences {
			if err := d.attachAdHoc(ah, ref, d.TopInstance, w, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Design) attachAdHoc(ah *ipxact.AdHocConnection, ref ipxact.PortReference, inst *Instance, w *Wire, external bool) error {
	p, ok := inst.Ports[ref.PortRef]
	if !ok {
		return errors.Wrapf(ipxact.ErrDanglingReference, "design %s ad-hoc %s: %s has no port %q",
			d.VLNV, ah.Name, inst.VLNV, ref.PortRef)
	}

	finder := expr.MultiFinder{inst.finder(), expr.ListFinder(d.Parameters), d.TopInstance.finder()}
	r := expr.NewResolver(finder)

	def, err := tieOff(r, ah.TiedValue, p)
	if err != nil {
		return errors.Wrapf(err, "design %s ad-hoc %s", d.VLNV, ah.Name)
	}
	if w == nil && def == "" {
		return nil
	}

	phys := p.VectorBounds
	if ps := ref.PartSelect; ps != nil && ps.Range.IsComplete() {
		if phys, err = evaluateBounds(r, ps.Range.Left, ps.Range.Right); err != nil {
			return errors.Wrapf(err, "design %s ad-hoc %s", d.VLNV, ah.Name)
		}
	}
	logical := singleBit()
	if width := phys.Width(); width > 0 {
		logical.Left = strconv.Itoa(width - 1)
	}

	a := &PortAssignment{
		Wire:           w,
		LogicalPort:    ah.Name,
		LogicalBounds:  logical,
		PhysicalBounds: phys,
		DefaultValue:   def,
	}
	if w != nil {
		w.refCount++
		if !w.widen(logical) {
			d.log.Warn("wire bounds are not numeric, keeping current bounds",
				"wire", w.Name, "bounds", w.Bounds.String(), "candidate", logical.String())
		}
		if external {
			w.addHierPort(p)
		}
	}

	if external {
		p.DownAssignments.add(a)
	} else {
		p.UpAssignments.add(a)
	}
	return nil
}

// tieOff turns a tied value into a port assignment default: "open" leaves
// the port unassigned, "default" takes the port's default value and any
// other text is evaluated, falling back to the text itself.
func tieOff(r *expr.Resolver, tied string, p *Port) (string, error) {
	tied = strings.TrimSpace(tied)
	switch {
	case tied == "":
		return "", nil
	case tied == tieOpen:
		return "", nil
	case tied == tieDefault:
		return p.DefaultValue, nil
	}
	return r.Evaluate(tied)
}
