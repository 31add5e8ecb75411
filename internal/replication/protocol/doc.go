// Package protocol implements the replication protocol messages exchanged
// between directory servers and replication servers.
//
// # PDU Layout
//
// Every PDU starts with a one byte message type. Most fields follow as text:
// integers in decimal, strings and CSNs each terminated by a zero byte.
// Entry attributes, modifications and monitoring data are BER encoded.
//
//	[type][field]\0[field]\0...
//
// Start messages and, from V2, LDAP update messages carry the version they
// were written at right after the type byte. Their layout follows that
// embedded version rather than the session version.
//
// # Versions
//
// The protocol has eight versions. Two peers speak the lower of their
// versions, see Negotiate. Each message keeps a table of body layouts keyed
// by the first version they apply to:
//
//	codec, _ := protocol.NewCodec(protocol.Negotiate(local, remote))
//	pdu, err := codec.Encode(&protocol.WindowMsg{NumAck: 100})
//	msg, err := codec.Decode(pdu)
//
// A message that cannot be written at a version returns
// ErrVersionUnsupported. Two V1 types have no translation and are refused
// with a *NotSupportedOldVersionPDUError.
//
// # Errors
//
// Decoding never panics on malformed input. Any mismatch between a PDU and
// its layout returns an error wrapping ErrDataFormat.
package protocol
