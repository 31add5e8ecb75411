package ldap

import (
	"errors"
	"io"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// Handler receives decoded messages from Codec.Decode.
type Handler interface {
	SchemaResolver
	// HandleMessage is called for every message with a known operation.
	HandleMessage(m *Message) error
	// HandleUnrecognized is called for operations with an unknown tag.
	HandleUnrecognized(messageID int32, tag byte, raw []byte) error
}

// ControlValidator checks the value of a control it is registered for.
type ControlValidator func(value []byte) error

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithControlValidator registers a validator run on the value of every
// decoded control with the given OID.
func WithControlValidator(oid string, v ControlValidator) CodecOption {
	return func(c *Codec) {
		c.validators[oid] = v
	}
}

// Codec decodes and encodes LDAP messages. A Codec holds no per-message
// state and may be shared between connections.
type Codec struct {
	logger     logging.Logger
	validators map[string]ControlValidator
}

// NewCodec creates a codec that logs decode and encode traces to logger.
func NewCodec(logger logging.Logger, opts ...CodecOption) *Codec {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Codec{
		logger:     logger,
		validators: make(map[string]ControlValidator),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode reads one message from r and passes it to h. Unknown operations
// go to h.HandleUnrecognized with their tag and raw value. A clean end of
// stream before the message starts returns io.EOF.
func (c *Codec) Decode(r *ber.StreamReader, h Handler) error {
	m, err := c.ReadMessage(r, h)
	if err != nil {
		return err
	}
	if u, ok := m.Op.(*UnrecognizedOp); ok {
		return h.HandleUnrecognized(m.ID, u.OpTag, u.Raw)
	}
	return h.HandleMessage(m)
}

// ReadMessage reads one message from r. DNs and attribute descriptions are
// decoded with the schema resolver returns; a nil resolver uses
// DefaultSchema.
func (c *Codec) ReadMessage(r *ber.StreamReader, resolver SchemaResolver) (*Message, error) {
	if resolver == nil {
		resolver = DefaultSchema{}
	}

	g, err := r.ReadStartSequence()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, wrapDecodeError(KeyMessageStructure, err)
	}
	defer g.Close()

	id, err := r.ReadInteger()
	if err != nil {
		return nil, wrapDecodeError(KeyMessageStructure, err)
	}
	if id < MinMessageID || id > MaxMessageID {
		return nil, newDecodeError(KeyInvalidMessageID, ErrInvalidMessageID, id)
	}

	d := &decoder{r: r, resolver: resolver, logger: c.logger, id: int32(id)}
	tag, err := r.PeekType()
	if err != nil {
		return nil, wrapDecodeError(KeyMessageStructure, err)
	}
	op, err := d.readOp(tag)
	if err != nil {
		return nil, wrapDecodeError(KeyOperationStructure, err, OperationName(tag))
	}

	m := &Message{ID: int32(id), Op: op}
	if r.HasNextElement() {
		next, err := r.PeekType()
		if err != nil {
			return nil, wrapDecodeError(KeyMessageStructure, err)
		}
		if next == TagControls {
			if m.Controls, err = c.readControls(d); err != nil {
				return nil, err
			}
		}
	}

	if err := g.End(); err != nil {
		return nil, wrapDecodeError(KeyMessageStructure, err)
	}
	return m, nil
}

// readOp dispatches on the protocol operation tag. Every tag in the
// application range 0x42-0x79 that RFC 4511 leaves unassigned, and every
// tag outside it, decodes to UnrecognizedOp.
func (d *decoder) readOp(tag byte) (ProtocolOp, error) {
	switch tag {
	case TagBindRequest:
		return d.readBindRequest()
	case TagBindResponse:
		return d.readBindResponse()
	case TagUnbindRequest:
		return d.readUnbindRequest()
	case TagSearchRequest:
		return d.readSearchRequest()
	case TagSearchResultEntry:
		return d.readSearchResultEntry()
	case TagSearchResultDone:
		res, err := d.readResult(tag, "DECODE LDAP SEARCH RESULT DONE")
		return &SearchResultDone{Result: res}, err
	case TagModifyRequest:
		return d.readModifyRequest()
	case TagModifyResponse:
		res, err := d.readResult(tag, "DECODE LDAP MODIFY RESULT")
		return &ModifyResponse{Result: res}, err
	case TagAddRequest:
		return d.readAddRequest()
	case TagAddResponse:
		res, err := d.readResult(tag, "DECODE LDAP ADD RESULT")
		return &AddResponse{Result: res}, err
	case TagDeleteRequest:
		return d.readDeleteRequest()
	case TagDeleteResponse:
		res, err := d.readResult(tag, "DECODE LDAP DELETE RESULT")
		return &DeleteResponse{Result: res}, err
	case TagModifyDNRequest:
		return d.readModifyDNRequest()
	case TagModifyDNResponse:
		res, err := d.readResult(tag, "DECODE LDAP MODIFY DN RESULT")
		return &ModifyDNResponse{Result: res}, err
	case TagCompareRequest:
		return d.readCompareRequest()
	case TagCompareResponse:
		res, err := d.readResult(tag, "DECODE LDAP COMPARE RESULT")
		return &CompareResponse{Result: res}, err
	case TagAbandonRequest:
		return d.readAbandonRequest()
	case TagSearchResultReference:
		return d.readSearchResultReference()
	case TagExtendedRequest:
		return d.readExtendedRequest()
	case TagExtendedResponse:
		return d.readExtendedResponse()
	case TagIntermediateResponse:
		return d.readIntermediateResponse()
	default:
		return d.readUnrecognized()
	}
}

// decoder carries the state of one ReadMessage call.
type decoder struct {
	r        *ber.StreamReader
	resolver SchemaResolver
	logger   logging.Logger
	id       int32
}

func (d *decoder) trace(msg string, keysAndValues ...interface{}) {
	if !d.logger.Enabled(logging.LevelTrace) {
		return
	}
	d.logger.Trace(msg, append([]interface{}{"messageID", d.id}, keysAndValues...)...)
}

// resolveDN resolves the schema for s and decodes s with it.
func (d *decoder) resolveDN(s string) (DN, ResolvedSchema, error) {
	rs, err := d.resolver.ResolveSchema(s)
	if err != nil {
		return DN{}, nil, newDecodeError(KeySchemaResolution, err, s)
	}
	dn, err := rs.DecodeDN(s)
	if err != nil {
		return DN{}, nil, newDecodeError(KeyInvalidDN, err, s)
	}
	return dn, rs, nil
}

// readDN reads an LDAPDN octet string.
func (d *decoder) readDN() (DN, ResolvedSchema, error) {
	s, err := d.r.ReadOctetStringAsString()
	if err != nil {
		return DN{}, nil, err
	}
	return d.resolveDN(s)
}

// readAttributeType reads an AttributeDescription and returns its
// normalized string form.
func (d *decoder) readAttributeType(rs ResolvedSchema) (string, error) {
	s, err := d.r.ReadOctetStringAsString()
	if err != nil {
		return "", err
	}
	desc, err := rs.DecodeAttributeDescription(s)
	if err != nil {
		return "", newDecodeError(KeyInvalidAttributeDesc, err, s)
	}
	return desc.String(), nil
}

// readAttribute reads SEQUENCE { type AttributeDescription, vals SET OF value }.
func (d *decoder) readAttribute(rs ResolvedSchema) (Attribute, error) {
	var attr Attribute
	g, err := d.r.ReadStartSequence()
	if err != nil {
		return attr, err
	}
	defer g.Close()

	if attr.Type, err = d.readAttributeType(rs); err != nil {
		return attr, err
	}
	vg, err := d.r.ReadStartSet()
	if err != nil {
		return attr, err
	}
	defer vg.Close()
	for d.r.HasNextElement() {
		v, err := d.r.ReadOctetString()
		if err != nil {
			return attr, err
		}
		attr.Values = append(attr.Values, v)
	}
	if err := vg.End(); err != nil {
		return attr, err
	}
	return attr, g.End()
}

// readAttributeList reads SEQUENCE OF attribute.
func (d *decoder) readAttributeList(rs ResolvedSchema) ([]Attribute, error) {
	g, err := d.r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer g.Close()

	var attrs []Attribute
	for d.r.HasNextElement() {
		attr, err := d.readAttribute(rs)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, g.End()
}

func (d *decoder) readUnrecognized() (ProtocolOp, error) {
	tag, raw, err := d.r.ReadRawElement()
	if err != nil {
		return nil, err
	}
	d.logger.Debug("unrecognized LDAP protocol op", "messageID", d.id, "tag", tag, "length", len(raw))
	return &UnrecognizedOp{OpTag: tag, Raw: raw}, nil
}

func wrapDecodeError(key string, err error, args ...interface{}) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return newDecodeError(key, err, args...)
}
