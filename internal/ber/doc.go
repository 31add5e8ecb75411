// Package ber implements ASN.1 BER (Basic Encoding Rules) encoding and decoding
// as specified in ITU-T X.690.
//
// BER is the wire format used by LDAP for all protocol messages and by the
// replication protocol for entry attributes, modifications and monitoring
// data. This package provides the low-level primitives for both directions.
//
// # Tag Classes
//
// BER uses four tag classes to identify data types:
//
//   - Universal (0x00): Standard ASN.1 types like INTEGER, BOOLEAN, SEQUENCE
//   - Application (0x40): Protocol-specific types (LDAP operations)
//   - Context-specific (0x80): Context-dependent types within a structure
//   - Private (0xC0): Organization-specific types
//
// # Encoding
//
// Use BEREncoder to build BER-encoded data:
//
//	encoder := ber.NewBEREncoder(256)
//	encoder.WriteInteger(42)
//	encoder.WriteOctetString([]byte("hello"))
//	data := encoder.Bytes()
//
// For constructed types (SEQUENCE, SET), use Begin/End methods:
//
//	encoder := ber.NewBEREncoder(256)
//	pos := encoder.BeginSequence()
//	encoder.WriteInteger(1)
//	encoder.WriteInteger(2)
//	encoder.EndSequence(pos)
//
// # Decoding
//
// StreamReader decodes from a Source, which is either a *bufio.Reader over a
// connection or a *Buffer fed by an event loop. Non-blocking callers probe
// with ElementAvailable before reading:
//
//	r := ber.NewStreamReader(buf, 5*1024*1024)
//	switch avail, err := r.ElementAvailable(); avail {
//	case ber.NeedMoreData:
//	    // wait for more bytes
//	case ber.Error:
//	    // close the connection: err is fatal
//	case ber.Ready:
//	    // decode the element
//	}
//
// Nested SEQUENCE and SET values are read inside a scope bounded by their
// declared length:
//
//	g, err := r.ReadStartSequence()
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//	id, err := r.ReadInteger()
//	...
//	return g.End()
//
// Closing a scope discards any bytes the caller did not read. Such drains
// are logged and counted by the ber_trailing_bytes_drained_total metric.
//
// # References
//
//   - ITU-T X.690: ASN.1 encoding rules
//   - RFC 4511: LDAP Protocol (uses BER encoding)
package ber
