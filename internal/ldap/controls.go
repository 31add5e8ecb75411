package ldap

import (
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// controlFailurePolicy decides whether a control that failed to decode
// fails the whole message. Only fatal failures of critical controls do;
// anything else drops the control.
func controlFailurePolicy(c Control, err error) error {
	if c.Criticality && IsFatal(err) {
		return err
	}
	return nil
}

// readControls reads [0] SEQUENCE OF Control, applying the failure policy
// to each control.
func (c *Codec) readControls(d *decoder) ([]Control, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagControls)
	if err != nil {
		return nil, wrapDecodeError(KeyMessageStructure, err)
	}
	defer g.Close()

	var controls []Control
	for d.r.HasNextElement() {
		ctrl, err := c.readControl(d)
		if err == nil {
			controls = append(controls, ctrl)
			continue
		}
		if perr := controlFailurePolicy(ctrl, err); perr != nil {
			return nil, wrapDecodeError(KeyControlStructure, perr, ctrl.OID)
		}
		d.logger.Debug("dropping control that failed to decode",
			"messageID", d.id, "oid", ctrl.OID, "critical", ctrl.Criticality, "error", err)
		if IsFatal(err) {
			// The stream position is unknown; closing the scope reports it.
			break
		}
	}

	if err := g.End(); err != nil {
		return nil, wrapDecodeError(KeyMessageStructure, err)
	}
	return controls, nil
}

// readControl reads one Control. On failure the returned control holds
// whatever fields were read, and the element has been consumed whenever
// the stream allows it.
func (c *Codec) readControl(d *decoder) (Control, error) {
	var ctrl Control
	r := d.r

	g, err := r.ReadStartSequence()
	if err != nil {
		if serr := r.SkipElement(); serr != nil {
			return ctrl, serr
		}
		return ctrl, err
	}
	defer g.Close()

	if ctrl.OID, err = r.ReadOctetStringAsString(); err != nil {
		return ctrl, err
	}
	if r.HasNextElement() {
		tag, err := r.PeekType()
		if err != nil {
			return ctrl, err
		}
		if tag == ber.UniversalBooleanType {
			if ctrl.Criticality, err = r.ReadBoolean(); err != nil {
				return ctrl, err
			}
		}
	}
	if r.HasNextElement() {
		tag, err := r.PeekType()
		if err != nil {
			return ctrl, err
		}
		if tag == ber.UniversalOctetStringType {
			if ctrl.Value, err = r.ReadOctetString(); err != nil {
				return ctrl, err
			}
		}
	}
	if err := g.End(); err != nil {
		return ctrl, err
	}

	if v, ok := c.validators[ctrl.OID]; ok {
		if err := v(ctrl.Value); err != nil {
			return ctrl, newDecodeError(KeyInvalidControlValue,
				fmt.Errorf("%w: %v", ErrInvalidControlValue, err), ctrl.OID)
		}
	}
	d.trace("DECODE LDAP CONTROL", "oid", ctrl.OID, "critical", ctrl.Criticality, "valueLength", len(ctrl.Value))
	return ctrl, nil
}

// writeControls writes [0] SEQUENCE OF Control.
func (c *Codec) writeControls(w *ber.BEREncoder, controls []Control) error {
	pos := w.BeginTag(TagControls)
	for _, ctrl := range controls {
		cpos := w.BeginSequence()
		if err := w.WriteString(ctrl.OID); err != nil {
			return err
		}
		if ctrl.Criticality {
			if err := w.WriteBoolean(true); err != nil {
				return err
			}
		}
		if ctrl.Value != nil {
			if err := w.WriteOctetString(ctrl.Value); err != nil {
				return err
			}
		}
		if err := w.EndSequence(cpos); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}
