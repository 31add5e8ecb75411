package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
)

// ModifyMsg replicates a modify operation.
type ModifyMsg struct {
	LDAPUpdate
	Mods []ldap.Modification
	// ECLIncludes are the entry attributes recorded in the external change
	// log with the change. From V4.
	ECLIncludes []ldap.Attribute
}

// Up to V3 the body is the modifications followed by a zero byte.
var modifyLayouts = []layout[ModifyMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *ModifyMsg, _ Version) {
			b.AppendRaw(encodeMods(b, m.Mods)).AppendByte(0)
		},
		decode: func(s *ByteArrayScanner, m *ModifyMsg, _ Version) {
			m.Mods = decodeMods(s, zeroTerminatedRest(s))
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *ModifyMsg, _ Version) {
			b.appendSized(encodeMods(b, m.Mods))
			b.appendSized(encodeAttrs(b, m.ECLIncludes))
		},
		decode: func(s *ByteArrayScanner, m *ModifyMsg, _ Version) {
			m.Mods = decodeMods(s, s.sized())
			m.ECLIncludes = decodeAttrs(s, s.sized())
		},
	},
}

func (m *ModifyMsg) Type() MsgType { return MsgTypeModify }

func (m *ModifyMsg) Bytes(v Version) ([]byte, error) {
	return encodeLDAPUpdate(m, v, modifyLayouts)
}

func decodeModify(b []byte, _ Version) (Msg, error) {
	return decodeLDAPUpdate[ModifyMsg](b, modifyLayouts)
}

func (*ModifyMsg) isMsg() {}

// AddMsg replicates an add operation.
type AddMsg struct {
	LDAPUpdate
	ParentEntryUUID string
	Attributes      []ldap.Attribute
	ECLIncludes     []ldap.Attribute
}

// Up to V3 the attributes run to the end of the PDU.
var addLayouts = []layout[AddMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *AddMsg, _ Version) {
			b.AppendString(m.ParentEntryUUID)
			b.AppendRaw(encodeAttrs(b, m.Attributes))
		},
		decode: func(s *ByteArrayScanner, m *AddMsg, _ Version) {
			m.ParentEntryUUID = s.String()
			m.Attributes = decodeAttrs(s, s.Rest())
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *AddMsg, _ Version) {
			b.AppendString(m.ParentEntryUUID)
			b.appendSized(encodeAttrs(b, m.Attributes))
			b.appendSized(encodeAttrs(b, m.ECLIncludes))
		},
		decode: func(s *ByteArrayScanner, m *AddMsg, _ Version) {
			m.ParentEntryUUID = s.String()
			m.Attributes = decodeAttrs(s, s.sized())
			m.ECLIncludes = decodeAttrs(s, s.sized())
		},
	},
}

func (m *AddMsg) Type() MsgType { return MsgTypeAdd }

func (m *AddMsg) Bytes(v Version) ([]byte, error) {
	return encodeLDAPUpdate(m, v, addLayouts)
}

func decodeAdd(b []byte, _ Version) (Msg, error) {
	return decodeLDAPUpdate[AddMsg](b, addLayouts)
}

func (*AddMsg) isMsg() {}

// DeleteMsg replicates a delete operation.
type DeleteMsg struct {
	LDAPUpdate
	// InitiatorsName, ECLIncludes and IsSubtreeDelete exist from V4.
	InitiatorsName  string
	ECLIncludes     []ldap.Attribute
	IsSubtreeDelete bool
}

// Up to V3 a delete is the header alone.
var deleteLayouts = []layout[DeleteMsg]{
	{
		minVersion: V1,
		encode:     func(*ByteArrayBuilder, *DeleteMsg, Version) {},
		decode:     func(*ByteArrayScanner, *DeleteMsg, Version) {},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *DeleteMsg, _ Version) {
			b.AppendString(m.InitiatorsName)
			b.appendSized(encodeAttrs(b, m.ECLIncludes))
			b.AppendBool(m.IsSubtreeDelete)
		},
		decode: func(s *ByteArrayScanner, m *DeleteMsg, _ Version) {
			m.InitiatorsName = s.String()
			m.ECLIncludes = decodeAttrs(s, s.sized())
			m.IsSubtreeDelete = s.Bool()
		},
	},
}

func (m *DeleteMsg) Type() MsgType { return MsgTypeDelete }

func (m *DeleteMsg) Bytes(v Version) ([]byte, error) {
	return encodeLDAPUpdate(m, v, deleteLayouts)
}

func decodeDelete(b []byte, _ Version) (Msg, error) {
	return decodeLDAPUpdate[DeleteMsg](b, deleteLayouts)
}

func (*DeleteMsg) isMsg() {}

// ModifyDNMsg replicates a modify DN operation. An empty NewSuperior means
// the entry stays under its parent.
type ModifyDNMsg struct {
	LDAPUpdate
	NewRDN               string
	NewSuperior          string
	NewSuperiorEntryUUID string
	DeleteOldRDN         bool
	Mods                 []ldap.Modification
	ECLIncludes          []ldap.Attribute
}

var modifyDNLayouts = []layout[ModifyDNMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *ModifyDNMsg, _ Version) {
			b.AppendString(m.NewRDN).
				AppendString(m.NewSuperior).
				AppendBool(m.DeleteOldRDN)
		},
		decode: func(s *ByteArrayScanner, m *ModifyDNMsg, _ Version) {
			m.NewRDN = s.String()
			m.NewSuperior = s.String()
			m.DeleteOldRDN = s.Bool()
		},
	},
	{
		minVersion: V2,
		encode: func(b *ByteArrayBuilder, m *ModifyDNMsg, _ Version) {
			b.AppendString(m.NewRDN).
				AppendString(m.NewSuperior).
				AppendString(m.NewSuperiorEntryUUID).
				AppendBool(m.DeleteOldRDN)
			b.AppendRaw(encodeMods(b, m.Mods)).AppendByte(0)
		},
		decode: func(s *ByteArrayScanner, m *ModifyDNMsg, _ Version) {
			m.NewRDN = s.String()
			m.NewSuperior = s.String()
			m.NewSuperiorEntryUUID = s.String()
			m.DeleteOldRDN = s.Bool()
			m.Mods = decodeMods(s, zeroTerminatedRest(s))
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *ModifyDNMsg, _ Version) {
			b.AppendString(m.NewRDN).
				AppendString(m.NewSuperior).
				AppendString(m.NewSuperiorEntryUUID).
				AppendBool(m.DeleteOldRDN)
			b.appendSized(encodeMods(b, m.Mods))
			b.appendSized(encodeAttrs(b, m.ECLIncludes))
		},
		decode: func(s *ByteArrayScanner, m *ModifyDNMsg, _ Version) {
			m.NewRDN = s.String()
			m.NewSuperior = s.String()
			m.NewSuperiorEntryUUID = s.String()
			m.DeleteOldRDN = s.Bool()
			m.Mods = decodeMods(s, s.sized())
			m.ECLIncludes = decodeAttrs(s, s.sized())
		},
	},
}

func (m *ModifyDNMsg) Type() MsgType { return MsgTypeModifyDN }

func (m *ModifyDNMsg) Bytes(v Version) ([]byte, error) {
	return encodeLDAPUpdate(m, v, modifyDNLayouts)
}

func decodeModifyDN(b []byte, _ Version) (Msg, error) {
	return decodeLDAPUpdate[ModifyDNMsg](b, modifyDNLayouts)
}

func (*ModifyDNMsg) isMsg() {}

// zeroTerminatedRest reads the remaining bytes, which must end with a zero
// byte, and returns them without it.
func zeroTerminatedRest(s *ByteArrayScanner) []byte {
	rest := s.Rest()
	if s.Err() != nil {
		return nil
	}
	if len(rest) == 0 || rest[len(rest)-1] != 0 {
		s.fail("body is not zero terminated")
		return nil
	}
	return rest[:len(rest)-1]
}
