package ldap

// DelRequest ::= [APPLICATION 10] LDAPDN
func (d *decoder) readDeleteRequest() (ProtocolOp, error) {
	s, err := d.r.ReadOctetStringAsStringWithTag(TagDeleteRequest)
	if err != nil {
		return nil, err
	}
	dn, _, err := d.resolveDN(s)
	if err != nil {
		return nil, err
	}
	d.trace("DECODE LDAP DELETE REQUEST", "dn", dn.String())
	return &DeleteRequest{Entry: dn}, nil
}

// UnbindRequest ::= [APPLICATION 2] NULL
func (d *decoder) readUnbindRequest() (ProtocolOp, error) {
	if err := d.r.ReadNullWithTag(TagUnbindRequest); err != nil {
		return nil, err
	}
	d.trace("DECODE LDAP UNBIND REQUEST")
	return &UnbindRequest{}, nil
}

// AbandonRequest ::= [APPLICATION 16] MessageID
func (d *decoder) readAbandonRequest() (ProtocolOp, error) {
	id, err := d.r.ReadIntegerWithTag(TagAbandonRequest)
	if err != nil {
		return nil, err
	}
	if id < MinMessageID || id > MaxMessageID {
		return nil, newDecodeError(KeyInvalidMessageID, ErrInvalidMessageID, id)
	}
	d.trace("DECODE LDAP ABANDON REQUEST", "idToAbandon", id)
	return &AbandonRequest{MessageID: int32(id)}, nil
}
