package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// readResultComponents reads resultCode, matchedDN, diagnosticMessage and
// the optional referral inside an already opened response scope.
func (d *decoder) readResultComponents() (Result, error) {
	var res Result
	code, err := d.r.ReadEnumerated()
	if err != nil {
		return res, err
	}
	res.Code = ResultCode(code)
	if res.MatchedDN, err = d.r.ReadOctetStringAsString(); err != nil {
		return res, err
	}
	if res.DiagnosticMessage, err = d.r.ReadOctetStringAsString(); err != nil {
		return res, err
	}

	if d.r.HasNextElement() {
		tag, err := d.r.PeekType()
		if err != nil {
			return res, err
		}
		if tag == TagReferral {
			if res.Referrals, err = d.readReferral(); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (d *decoder) readReferral() ([]string, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagReferral)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	var uris []string
	for d.r.HasNextElement() {
		uri, err := d.r.ReadOctetStringAsString()
		if err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return uris, g.End()
}

// readResult reads a response that is nothing but an LDAPResult.
func (d *decoder) readResult(tag byte, traceMsg string) (Result, error) {
	g, err := d.r.ReadStartSequenceWithTag(tag)
	if err != nil {
		return Result{}, err
	}
	defer g.Close()

	res, err := d.readResultComponents()
	if err != nil {
		return res, err
	}
	d.trace(traceMsg, "resultCode", res.Code, "matchedDN", res.MatchedDN,
		"diagnosticMessage", res.DiagnosticMessage, "referrals", res.Referrals)
	return res, g.End()
}

// writeResultComponents writes the LDAPResult fields without a wrapper.
func writeResultComponents(w *ber.BEREncoder, res Result) error {
	if err := w.WriteEnumerated(int64(res.Code)); err != nil {
		return err
	}
	if err := w.WriteString(res.MatchedDN); err != nil {
		return err
	}
	if err := w.WriteString(res.DiagnosticMessage); err != nil {
		return err
	}
	if len(res.Referrals) > 0 {
		pos := w.BeginTag(TagReferral)
		for _, uri := range res.Referrals {
			if err := w.WriteString(uri); err != nil {
				return err
			}
		}
		if err := w.EndTag(pos); err != nil {
			return err
		}
	}
	return nil
}

// writeResult writes a response consisting only of an LDAPResult.
func writeResult(w *ber.BEREncoder, tag byte, res Result) error {
	pos := w.BeginTag(tag)
	if err := writeResultComponents(w, res); err != nil {
		return err
	}
	return w.EndTag(pos)
}
