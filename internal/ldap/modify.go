package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// ModifyOperation represents the type of modification
type ModifyOperation int

const (
	// ModifyAdd adds values to an attribute
	ModifyAdd ModifyOperation = 0
	// ModifyDelete deletes values from an attribute
	ModifyDelete ModifyOperation = 1
	// ModifyReplace replaces all values of an attribute
	ModifyReplace ModifyOperation = 2
	// ModifyIncrement increments an integer attribute (RFC 4525)
	ModifyIncrement ModifyOperation = 3
)

// String returns the string representation of the modify operation
func (m ModifyOperation) String() string {
	switch m {
	case ModifyAdd:
		return "add"
	case ModifyDelete:
		return "delete"
	case ModifyReplace:
		return "replace"
	case ModifyIncrement:
		return "increment"
	default:
		return "unknown"
	}
}

// Modification represents a single modification in a ModifyRequest
//
//	change SEQUENCE {
//	     operation       ENUMERATED { add, delete, replace, ... },
//	     modification    PartialAttribute }
type Modification struct {
	Operation ModifyOperation
	Attribute Attribute
}

// ModifyRequest ::= [APPLICATION 6] SEQUENCE {
//
//	object          LDAPDN,
//	changes         SEQUENCE OF change }
func (d *decoder) readModifyRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagModifyRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &ModifyRequest{}
	var rs ResolvedSchema
	if req.Object, rs, err = d.readDN(); err != nil {
		return nil, err
	}

	cg, err := d.r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer cg.Close()
	for d.r.HasNextElement() {
		mod, err := d.readModification(rs)
		if err != nil {
			return nil, err
		}
		req.Changes = append(req.Changes, mod)
	}
	if err := cg.End(); err != nil {
		return nil, err
	}

	d.trace("DECODE LDAP MODIFY REQUEST", "dn", req.Object.String(), "changes", len(req.Changes))
	return req, g.End()
}

func (d *decoder) readModification(rs ResolvedSchema) (Modification, error) {
	var mod Modification
	g, err := d.r.ReadStartSequence()
	if err != nil {
		return mod, err
	}
	defer g.Close()

	op, err := d.r.ReadEnumerated()
	if err != nil {
		return mod, err
	}
	mod.Operation = ModifyOperation(op)
	if mod.Attribute, err = d.readAttribute(rs); err != nil {
		return mod, err
	}
	return mod, g.End()
}

func writeModifyRequest(w *ber.BEREncoder, req *ModifyRequest) error {
	pos := w.BeginTag(TagModifyRequest)
	if err := w.WriteString(req.Object.String()); err != nil {
		return err
	}
	cpos := w.BeginSequence()
	if err := WriteModifications(w, req.Changes); err != nil {
		return err
	}
	if err := w.EndSequence(cpos); err != nil {
		return err
	}
	return w.EndTag(pos)
}

// WriteModifications writes each change as SEQUENCE { operation,
// modification } with no enclosing SEQUENCE OF. Replication update
// messages carry modifications in this bare form.
func WriteModifications(w *ber.BEREncoder, mods []Modification) error {
	for _, mod := range mods {
		pos := w.BeginSequence()
		if err := w.WriteEnumerated(int64(mod.Operation)); err != nil {
			return err
		}
		if err := writeAttribute(w, mod.Attribute); err != nil {
			return err
		}
		if err := w.EndSequence(pos); err != nil {
			return err
		}
	}
	return nil
}

// ReadModifications reads changes written by WriteModifications until the
// current scope or the source is exhausted. Names are not resolved against
// a schema.
func ReadModifications(r *ber.StreamReader) ([]Modification, error) {
	d := &decoder{r: r, resolver: DefaultSchema{}, logger: logging.NewNop()}
	var mods []Modification
	for r.HasNextElement() {
		mod, err := d.readModification(DefaultSchema{})
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// WriteAttributes writes each attribute as SEQUENCE { type, SET OF value }
// with no enclosing SEQUENCE OF.
func WriteAttributes(w *ber.BEREncoder, attrs []Attribute) error {
	for _, attr := range attrs {
		if err := writeAttribute(w, attr); err != nil {
			return err
		}
	}
	return nil
}

// ReadAttributes reads attributes written by WriteAttributes until the
// current scope or the source is exhausted.
func ReadAttributes(r *ber.StreamReader) ([]Attribute, error) {
	d := &decoder{r: r, resolver: DefaultSchema{}, logger: logging.NewNop()}
	var attrs []Attribute
	for r.HasNextElement() {
		attr, err := d.readAttribute(DefaultSchema{})
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}
