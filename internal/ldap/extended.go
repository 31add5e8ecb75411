package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// ExtendedRequest ::= [APPLICATION 23] SEQUENCE {
//
//	requestName      [0] LDAPOID,
//	requestValue     [1] OCTET STRING OPTIONAL }
func (d *decoder) readExtendedRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagExtendedRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &ExtendedRequest{}
	if req.Name, err = d.r.ReadOctetStringAsStringWithTag(TagExtendedName); err != nil {
		return nil, err
	}
	if d.r.HasNextElement() {
		tag, err := d.r.PeekType()
		if err != nil {
			return nil, err
		}
		if tag == TagExtendedValue {
			if req.Value, err = d.r.ReadOctetStringWithTag(TagExtendedValue); err != nil {
				return nil, err
			}
		}
	}

	d.trace("DECODE LDAP EXTENDED REQUEST", "oid", req.Name, "hasValue", req.Value != nil)
	return req, g.End()
}

func writeExtendedRequest(w *ber.BEREncoder, req *ExtendedRequest) error {
	pos := w.BeginTag(TagExtendedRequest)
	if err := w.WriteStringWithTag(TagExtendedName, req.Name); err != nil {
		return err
	}
	if req.Value != nil {
		if err := w.WriteOctetStringWithTag(TagExtendedValue, req.Value); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}

// ExtendedResponse ::= [APPLICATION 24] SEQUENCE {
//
//	COMPONENTS OF LDAPResult,
//	responseName     [10] LDAPOID OPTIONAL,
//	responseValue    [11] OCTET STRING OPTIONAL }
func (d *decoder) readExtendedResponse() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagExtendedResponse)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	resp := &ExtendedResponse{}
	if resp.Result, err = d.readResultComponents(); err != nil {
		return nil, err
	}
	for d.r.HasNextElement() {
		tag, err := d.r.PeekType()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagResponseName:
			if resp.Name, err = d.r.ReadOctetStringAsStringWithTag(tag); err != nil {
				return nil, err
			}
		case TagResponseValue:
			if resp.Value, err = d.r.ReadOctetStringWithTag(tag); err != nil {
				return nil, err
			}
		default:
			if err := d.r.SkipElement(); err != nil {
				return nil, err
			}
		}
	}

	d.trace("DECODE LDAP EXTENDED RESULT", "resultCode", resp.Code, "matchedDN", resp.MatchedDN,
		"diagnosticMessage", resp.DiagnosticMessage, "oid", resp.Name, "hasValue", resp.Value != nil)
	return resp, g.End()
}

func writeExtendedResponse(w *ber.BEREncoder, resp *ExtendedResponse) error {
	pos := w.BeginTag(TagExtendedResponse)
	if err := writeResultComponents(w, resp.Result); err != nil {
		return err
	}
	if resp.Name != "" {
		if err := w.WriteStringWithTag(TagResponseName, resp.Name); err != nil {
			return err
		}
	}
	if resp.Value != nil {
		if err := w.WriteOctetStringWithTag(TagResponseValue, resp.Value); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}

// IntermediateResponse ::= [APPLICATION 25] SEQUENCE {
//
//	responseName     [0] LDAPOID OPTIONAL,
//	responseValue    [1] OCTET STRING OPTIONAL }
func (d *decoder) readIntermediateResponse() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagIntermediateResponse)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	resp := &IntermediateResponse{}
	for d.r.HasNextElement() {
		tag, err := d.r.PeekType()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagIntermediateName:
			if resp.Name, err = d.r.ReadOctetStringAsStringWithTag(tag); err != nil {
				return nil, err
			}
		case TagIntermediateVal:
			if resp.Value, err = d.r.ReadOctetStringWithTag(tag); err != nil {
				return nil, err
			}
		default:
			if err := d.r.SkipElement(); err != nil {
				return nil, err
			}
		}
	}

	d.trace("DECODE LDAP INTERMEDIATE RESPONSE", "oid", resp.Name, "hasValue", resp.Value != nil)
	return resp, g.End()
}

func writeIntermediateResponse(w *ber.BEREncoder, resp *IntermediateResponse) error {
	pos := w.BeginTag(TagIntermediateResponse)
	if resp.Name != "" {
		if err := w.WriteStringWithTag(TagIntermediateName, resp.Name); err != nil {
			return err
		}
	}
	if resp.Value != nil {
		if err := w.WriteOctetStringWithTag(TagIntermediateVal, resp.Value); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}
