package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// BindRequest ::= [APPLICATION 0] SEQUENCE {
//
//	version                 INTEGER (1 ..  127),
//	name                    LDAPDN,
//	authentication          AuthenticationChoice }
//
// AuthenticationChoice ::= CHOICE {
//
//	simple                  [0] OCTET STRING,
//	sasl                    [3] SaslCredentials,
//	...  }
func (d *decoder) readBindRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagBindRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &BindRequest{}
	version, err := d.r.ReadInteger()
	if err != nil {
		return nil, err
	}
	req.Version = int(version)
	// The bind name is not resolved against the schema: SASL binds may
	// carry names that are not DNs.
	if req.Name, err = d.r.ReadOctetStringAsString(); err != nil {
		return nil, err
	}

	authTag, err := d.r.PeekType()
	if err != nil {
		return nil, err
	}
	switch authTag {
	case TagSimpleAuth:
		if req.Simple, err = d.r.ReadOctetStringWithTag(TagSimpleAuth); err != nil {
			return nil, err
		}
		if len(req.Simple) == 0 {
			req.Simple = nil
		}
	case TagSASLAuth:
		if req.SASL, err = d.readSASLCredentials(); err != nil {
			return nil, err
		}
	default:
		return nil, newDecodeError(KeyInvalidAuthentication, nil, authTag)
	}

	d.trace("DECODE LDAP BIND REQUEST", "version", req.Version, "name", req.Name,
		"authType", authTag, "sasl", req.SASL != nil)
	return req, g.End()
}

func (d *decoder) readSASLCredentials() (*SASLCredentials, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagSASLAuth)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	creds := &SASLCredentials{}
	if creds.Mechanism, err = d.r.ReadOctetStringAsString(); err != nil {
		return nil, err
	}
	if d.r.HasNextElement() {
		if creds.Credentials, err = d.r.ReadOctetString(); err != nil {
			return nil, err
		}
	}
	return creds, g.End()
}

func writeBindRequest(w *ber.BEREncoder, req *BindRequest) error {
	pos := w.BeginTag(TagBindRequest)
	if err := w.WriteInteger(int64(req.Version)); err != nil {
		return err
	}
	if err := w.WriteString(req.Name); err != nil {
		return err
	}
	if req.SASL != nil {
		spos := w.BeginTag(TagSASLAuth)
		if err := w.WriteString(req.SASL.Mechanism); err != nil {
			return err
		}
		if req.SASL.Credentials != nil {
			if err := w.WriteOctetString(req.SASL.Credentials); err != nil {
				return err
			}
		}
		if err := w.EndTag(spos); err != nil {
			return err
		}
	} else if err := w.WriteOctetStringWithTag(TagSimpleAuth, req.Simple); err != nil {
		return err
	}
	return w.EndTag(pos)
}

// BindResponse ::= [APPLICATION 1] SEQUENCE {
//
//	COMPONENTS OF LDAPResult,
//	serverSaslCreds    [7] OCTET STRING OPTIONAL }
func (d *decoder) readBindResponse() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagBindResponse)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	resp := &BindResponse{}
	if resp.Result, err = d.readResultComponents(); err != nil {
		return nil, err
	}
	if d.r.HasNextElement() {
		tag, err := d.r.PeekType()
		if err != nil {
			return nil, err
		}
		if tag == TagServerSASLCreds {
			if resp.ServerSASLCreds, err = d.r.ReadOctetStringWithTag(tag); err != nil {
				return nil, err
			}
		}
	}

	d.trace("DECODE LDAP BIND RESULT", "resultCode", resp.Code, "matchedDN", resp.MatchedDN,
		"diagnosticMessage", resp.DiagnosticMessage)
	return resp, g.End()
}

func writeBindResponse(w *ber.BEREncoder, resp *BindResponse) error {
	pos := w.BeginTag(TagBindResponse)
	if err := writeResultComponents(w, resp.Result); err != nil {
		return err
	}
	if resp.ServerSASLCreds != nil {
		if err := w.WriteOctetStringWithTag(TagServerSASLCreds, resp.ServerSASLCreds); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}
