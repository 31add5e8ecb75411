package ldap

import (
	"strings"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// AddRequest ::= [APPLICATION 8] SEQUENCE {
//
//	entry           LDAPDN,
//	attributes      AttributeList }
func (d *decoder) readAddRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagAddRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &AddRequest{}
	var rs ResolvedSchema
	if req.Entry, rs, err = d.readDN(); err != nil {
		return nil, err
	}
	if req.Attributes, err = d.readAttributeList(rs); err != nil {
		return nil, err
	}

	d.trace("DECODE LDAP ADD REQUEST", "dn", req.Entry.String(), "attributes", len(req.Attributes))
	return req, g.End()
}

func writeAddRequest(w *ber.BEREncoder, req *AddRequest) error {
	pos := w.BeginTag(TagAddRequest)
	if err := w.WriteString(req.Entry.String()); err != nil {
		return err
	}
	if err := writeAttributeList(w, req.Attributes); err != nil {
		return err
	}
	return w.EndTag(pos)
}

// writeAttribute writes SEQUENCE { type, SET OF value }.
func writeAttribute(w *ber.BEREncoder, attr Attribute) error {
	pos := w.BeginSequence()
	if err := w.WriteString(attr.Type); err != nil {
		return err
	}
	vpos := w.BeginSet()
	for _, v := range attr.Values {
		if err := w.WriteOctetString(v); err != nil {
			return err
		}
	}
	if err := w.EndSet(vpos); err != nil {
		return err
	}
	return w.EndSequence(pos)
}

func writeAttributeList(w *ber.BEREncoder, attrs []Attribute) error {
	pos := w.BeginSequence()
	for _, attr := range attrs {
		if err := writeAttribute(w, attr); err != nil {
			return err
		}
	}
	return w.EndSequence(pos)
}

// GetAttribute returns the attribute with the given type (case-insensitive).
func (r *AddRequest) GetAttribute(attrType string) *Attribute {
	for i := range r.Attributes {
		if strings.EqualFold(r.Attributes[i].Type, attrType) {
			return &r.Attributes[i]
		}
	}
	return nil
}

// GetAttributeStringValues returns the values of an attribute as strings.
func (r *AddRequest) GetAttributeStringValues(attrType string) []string {
	attr := r.GetAttribute(attrType)
	if attr == nil {
		return nil
	}
	values := make([]string, len(attr.Values))
	for i, v := range attr.Values {
		values[i] = string(v)
	}
	return values
}
