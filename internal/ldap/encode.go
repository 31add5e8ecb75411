package ldap

import (
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// Encode writes m as SEQUENCE { messageID, protocolOp [, controls] }.
func (c *Codec) Encode(w *ber.BEREncoder, m *Message) error {
	if m.Op == nil {
		return ErrNilOperation
	}
	if m.ID < MinMessageID {
		return ErrInvalidMessageID
	}

	pos := w.BeginSequence()
	if err := w.WriteInteger(int64(m.ID)); err != nil {
		return err
	}
	if err := c.writeOp(w, m.ID, m.Op); err != nil {
		return err
	}
	if len(m.Controls) > 0 {
		if err := c.writeControls(w, m.Controls); err != nil {
			return err
		}
	}
	return w.EndSequence(pos)
}

// Marshal encodes m into a new buffer.
func (c *Codec) Marshal(m *Message) ([]byte, error) {
	w := ber.NewBEREncoder(256)
	if err := c.Encode(w, m); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (c *Codec) trace(msg string, id int32, keysAndValues ...interface{}) {
	if !c.logger.Enabled(logging.LevelTrace) {
		return
	}
	c.logger.Trace(msg, append([]interface{}{"messageID", id}, keysAndValues...)...)
}

// writeOp encodes the protocol operation.
func (c *Codec) writeOp(w *ber.BEREncoder, id int32, op ProtocolOp) error {
	switch op := op.(type) {
	case *BindRequest:
		c.trace("ENCODE LDAP BIND REQUEST", id, "version", op.Version, "name", op.Name, "sasl", op.SASL != nil)
		return writeBindRequest(w, op)
	case *BindResponse:
		c.trace("ENCODE LDAP BIND RESULT", id, "resultCode", op.Code)
		return writeBindResponse(w, op)
	case *UnbindRequest:
		c.trace("ENCODE LDAP UNBIND REQUEST", id)
		return w.WriteNullWithTag(TagUnbindRequest)
	case *SearchRequest:
		c.trace("ENCODE LDAP SEARCH REQUEST", id, "baseObject", op.BaseObject.String(), "scope", op.Scope)
		return writeSearchRequest(w, op)
	case *SearchResultEntry:
		c.trace("ENCODE LDAP SEARCH RESULT ENTRY", id, "dn", op.ObjectName.String())
		return writeSearchResultEntry(w, op)
	case *SearchResultReference:
		c.trace("ENCODE LDAP SEARCH RESULT REFERENCE", id, "uris", op.URIs)
		return writeSearchResultReference(w, op)
	case *SearchResultDone:
		c.trace("ENCODE LDAP SEARCH RESULT DONE", id, "resultCode", op.Code)
		return writeResult(w, TagSearchResultDone, op.Result)
	case *ModifyRequest:
		c.trace("ENCODE LDAP MODIFY REQUEST", id, "dn", op.Object.String(), "changes", len(op.Changes))
		return writeModifyRequest(w, op)
	case *ModifyResponse:
		c.trace("ENCODE LDAP MODIFY RESULT", id, "resultCode", op.Code)
		return writeResult(w, TagModifyResponse, op.Result)
	case *AddRequest:
		c.trace("ENCODE LDAP ADD REQUEST", id, "dn", op.Entry.String(), "attributes", len(op.Attributes))
		return writeAddRequest(w, op)
	case *AddResponse:
		c.trace("ENCODE LDAP ADD RESULT", id, "resultCode", op.Code)
		return writeResult(w, TagAddResponse, op.Result)
	case *DeleteRequest:
		c.trace("ENCODE LDAP DELETE REQUEST", id, "dn", op.Entry.String())
		return w.WriteStringWithTag(TagDeleteRequest, op.Entry.String())
	case *DeleteResponse:
		c.trace("ENCODE LDAP DELETE RESULT", id, "resultCode", op.Code)
		return writeResult(w, TagDeleteResponse, op.Result)
	case *ModifyDNRequest:
		c.trace("ENCODE LDAP MODIFY DN REQUEST", id, "dn", op.Entry.String(), "newRDN", op.NewRDN.String())
		return writeModifyDNRequest(w, op)
	case *ModifyDNResponse:
		c.trace("ENCODE LDAP MODIFY DN RESULT", id, "resultCode", op.Code)
		return writeResult(w, TagModifyDNResponse, op.Result)
	case *CompareRequest:
		c.trace("ENCODE LDAP COMPARE REQUEST", id, "dn", op.Entry.String(), "attribute", op.Attribute.String())
		return writeCompareRequest(w, op)
	case *CompareResponse:
		c.trace("ENCODE LDAP COMPARE RESULT", id, "resultCode", op.Code)
		return writeResult(w, TagCompareResponse, op.Result)
	case *AbandonRequest:
		c.trace("ENCODE LDAP ABANDON REQUEST", id, "idToAbandon", op.MessageID)
		return w.WriteIntegerWithTag(TagAbandonRequest, int64(op.MessageID))
	case *ExtendedRequest:
		c.trace("ENCODE LDAP EXTENDED REQUEST", id, "oid", op.Name)
		return writeExtendedRequest(w, op)
	case *ExtendedResponse:
		c.trace("ENCODE LDAP EXTENDED RESULT", id, "resultCode", op.Code, "oid", op.Name)
		return writeExtendedResponse(w, op)
	case *IntermediateResponse:
		c.trace("ENCODE LDAP INTERMEDIATE RESPONSE", id, "oid", op.Name)
		return writeIntermediateResponse(w, op)
	case *UnrecognizedOp:
		c.trace("ENCODE LDAP UNRECOGNIZED OP", id, "tag", op.OpTag)
		return w.WriteOctetStringWithTag(op.OpTag, op.Raw)
	default:
		return fmt.Errorf("ldap: unhandled protocol op %T", op)
	}
}
