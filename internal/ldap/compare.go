package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// CompareRequest ::= [APPLICATION 14] SEQUENCE {
//
//	entry           LDAPDN,
//	ava             AttributeValueAssertion }
func (d *decoder) readCompareRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagCompareRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &CompareRequest{}
	var rs ResolvedSchema
	if req.Entry, rs, err = d.readDN(); err != nil {
		return nil, err
	}

	ag, err := d.r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer ag.Close()
	desc, err := d.r.ReadOctetStringAsString()
	if err != nil {
		return nil, err
	}
	if req.Attribute, err = rs.DecodeAttributeDescription(desc); err != nil {
		return nil, newDecodeError(KeyInvalidAttributeDesc, err, desc)
	}
	if req.Value, err = d.r.ReadOctetString(); err != nil {
		return nil, err
	}
	if err := ag.End(); err != nil {
		return nil, err
	}

	d.trace("DECODE LDAP COMPARE REQUEST", "dn", req.Entry.String(), "attribute", req.Attribute.String(),
		"value", string(req.Value))
	return req, g.End()
}

func writeCompareRequest(w *ber.BEREncoder, req *CompareRequest) error {
	pos := w.BeginTag(TagCompareRequest)
	if err := w.WriteString(req.Entry.String()); err != nil {
		return err
	}
	apos := w.BeginSequence()
	if err := w.WriteString(req.Attribute.String()); err != nil {
		return err
	}
	if err := w.WriteOctetString(req.Value); err != nil {
		return err
	}
	if err := w.EndSequence(apos); err != nil {
		return err
	}
	return w.EndTag(pos)
}
