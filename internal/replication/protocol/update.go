package protocol

import (
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// UpdateHeader is the assured replication envelope of an update.
type UpdateHeader struct {
	CSN           common.CSN
	Assured       bool
	AssuredMode   common.AssuredMode
	SafeDataLevel byte
}

// Header returns the envelope.
func (h UpdateHeader) Header() UpdateHeader { return h }

// UpdateEnvelope is implemented by every message that carries a change:
// the LDAP update messages and UpdateMsg.
type UpdateEnvelope interface {
	Msg
	Header() UpdateHeader
}

// CompareUpdates orders updates by CSN only. This is the replay order.
func CompareUpdates(a, b UpdateEnvelope) int {
	return a.Header().CSN.Compare(b.Header().CSN)
}

// LDAPUpdate is the header shared by the Add, Delete, Modify and ModifyDN
// messages.
type LDAPUpdate struct {
	UpdateHeader
	DN        string
	EntryUUID string
}

func (u *LDAPUpdate) ldapUpdate() *LDAPUpdate { return u }

// V1 updates carry no assured mode or level. Decoding assumes safe data
// with a level of one.
var ldapUpdateHeaderLayouts = []layout[LDAPUpdate]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, u *LDAPUpdate, _ Version) {
			b.AppendCSN(u.CSN).
				AppendString(u.DN).
				AppendString(u.EntryUUID).
				AppendBool(u.Assured)
		},
		decode: func(s *ByteArrayScanner, u *LDAPUpdate, _ Version) {
			u.CSN = s.CSN()
			u.DN = s.String()
			u.EntryUUID = s.String()
			u.Assured = s.Bool()
			u.AssuredMode = common.SafeDataMode
			u.SafeDataLevel = 1
		},
	},
	{
		minVersion: V2,
		encode: func(b *ByteArrayBuilder, u *LDAPUpdate, _ Version) {
			b.AppendCSN(u.CSN).
				AppendString(u.DN).
				AppendString(u.EntryUUID).
				AppendBool(u.Assured).
				AppendByte(byte(u.AssuredMode)).
				AppendByte(u.SafeDataLevel)
		},
		decode: func(s *ByteArrayScanner, u *LDAPUpdate, _ Version) {
			u.CSN = s.CSN()
			u.DN = s.String()
			u.EntryUUID = s.String()
			u.Assured = s.Bool()
			u.AssuredMode = common.AssuredMode(s.Byte())
			u.SafeDataLevel = s.Byte()
		},
	},
}

type ldapUpdateMsg[T any] interface {
	*T
	UpdateEnvelope
	ldapUpdate() *LDAPUpdate
}

// updateTags maps the current tag of each LDAP update to its V1 tag.
var updateTags = map[MsgType]MsgType{
	MsgTypeModify:   MsgTypeModifyV1,
	MsgTypeAdd:      MsgTypeAddV1,
	MsgTypeDelete:   MsgTypeDeleteV1,
	MsgTypeModifyDN: MsgTypeModifyDNV1,
}

// encodeLDAPUpdate writes an LDAP update. From V2 the tag is followed by the
// version byte; V1 uses the V1 tag and no version byte.
func encodeLDAPUpdate[T any, P ldapUpdateMsg[T]](m P, v Version, table []layout[T]) ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, byte(v))
	}
	body, ok := layoutFor(table, v)
	if !ok {
		return nil, versionError(m.Type(), v)
	}
	hdr, _ := layoutFor(ldapUpdateHeaderLayouts, v)

	b := NewByteArrayBuilder(256)
	if v == V1 {
		b.AppendByte(byte(updateTags[m.Type()]))
	} else {
		b.AppendByte(byte(m.Type())).AppendByte(byte(v))
	}
	hdr.encode(b, m.ldapUpdate(), v)
	body.encode(b, (*T)(m), v)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return b.Bytes(), nil
}

// decodeLDAPUpdate reads an LDAP update. The header and body layouts follow
// the embedded version byte, or V1 for V1 tags.
func decodeLDAPUpdate[T any, P ldapUpdateMsg[T]](data []byte, table []layout[T]) (Msg, error) {
	m := P(new(T))
	s := NewByteArrayScanner(data)
	t := MsgType(s.Byte())
	v := V1
	if t != updateTags[m.Type()] {
		if t != m.Type() {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrDataFormat, m.Type(), t)
		}
		v = Version(s.Byte())
		if s.Err() == nil && (!v.Valid() || v == V1) {
			return nil, fmt.Errorf("decode %s: %w: embedded version %d", t, ErrDataFormat, byte(v))
		}
	}
	body, ok := layoutFor(table, v)
	if !ok {
		return nil, versionError(t, v)
	}
	hdr, _ := layoutFor(ldapUpdateHeaderLayouts, v)
	hdr.decode(s, m.ldapUpdate(), v)
	body.decode(s, (*T)(m), v)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return m, nil
}

// UpdateMsg is a generic update: the assured envelope around a payload
// replicated opaquely.
type UpdateMsg struct {
	UpdateHeader
	Payload []byte
}

var updateLayouts = []layout[UpdateMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *UpdateMsg, v Version) {
		b.AppendByte(byte(v)).
			AppendCSN(m.CSN).
			AppendBool(m.Assured).
			AppendByte(byte(m.AssuredMode)).
			AppendByte(m.SafeDataLevel).
			AppendRaw(m.Payload)
	},
	decode: func(s *ByteArrayScanner, m *UpdateMsg, _ Version) {
		s.Byte()
		m.CSN = s.CSN()
		m.Assured = s.Bool()
		m.AssuredMode = common.AssuredMode(s.Byte())
		m.SafeDataLevel = s.Byte()
		m.Payload = copyBytes(s.Rest())
	},
}}

func (m *UpdateMsg) Type() MsgType { return MsgTypeGenericUpdate }

func (m *UpdateMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeGenericUpdate, m, v, updateLayouts)
}

func decodeUpdate(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeGenericUpdate, v, updateLayouts)
}

func (*UpdateMsg) isMsg() {}
