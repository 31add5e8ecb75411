package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// ModifyDNRequest ::= [APPLICATION 12] SEQUENCE {
//
//	entry           LDAPDN,
//	newrdn          RelativeLDAPDN,
//	deleteoldrdn    BOOLEAN,
//	newSuperior     [0] LDAPDN OPTIONAL }
func (d *decoder) readModifyDNRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagModifyDNRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &ModifyDNRequest{}
	var rs ResolvedSchema
	if req.Entry, rs, err = d.readDN(); err != nil {
		return nil, err
	}
	rdn, err := d.r.ReadOctetStringAsString()
	if err != nil {
		return nil, err
	}
	if req.NewRDN, err = rs.DecodeRDN(rdn); err != nil {
		return nil, newDecodeError(KeyInvalidDN, err, rdn)
	}
	if req.DeleteOldRDN, err = d.r.ReadBoolean(); err != nil {
		return nil, err
	}

	if d.r.HasNextElement() {
		tag, err := d.r.PeekType()
		if err != nil {
			return nil, err
		}
		if tag == TagNewSuperior {
			s, err := d.r.ReadOctetStringAsStringWithTag(TagNewSuperior)
			if err != nil {
				return nil, err
			}
			sup, _, err := d.resolveDN(s)
			if err != nil {
				return nil, err
			}
			req.NewSuperior = &sup
		}
	}

	if d.logger.Enabled(logging.LevelTrace) {
		newSuperior := ""
		if req.NewSuperior != nil {
			newSuperior = req.NewSuperior.String()
		}
		d.trace("DECODE LDAP MODIFY DN REQUEST", "dn", req.Entry.String(), "newRDN", req.NewRDN.String(),
			"deleteOldRDN", req.DeleteOldRDN, "newSuperior", newSuperior)
	}
	return req, g.End()
}

func writeModifyDNRequest(w *ber.BEREncoder, req *ModifyDNRequest) error {
	pos := w.BeginTag(TagModifyDNRequest)
	if err := w.WriteString(req.Entry.String()); err != nil {
		return err
	}
	if err := w.WriteString(req.NewRDN.String()); err != nil {
		return err
	}
	if err := w.WriteBoolean(req.DeleteOldRDN); err != nil {
		return err
	}
	if req.NewSuperior != nil {
		if err := w.WriteStringWithTag(TagNewSuperior, req.NewSuperior.String()); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}

// NewDN returns the DN the entry has after the rename.
func (r *ModifyDNRequest) NewDN() DN {
	parent := r.Entry.Parent()
	if r.NewSuperior != nil {
		parent = *r.NewSuperior
	}
	rdns := make([]RDN, 0, len(parent.RDNs)+1)
	rdns = append(rdns, r.NewRDN)
	rdns = append(rdns, parent.RDNs...)
	return DN{RDNs: rdns}
}
