// Package ldap implements the LDAPv3 message codec of RFC 4511 on top of
// the incremental BER stream reader.
//
// # Message Structure
//
// All LDAP messages follow the LDAPMessage envelope structure:
//
//	LDAPMessage ::= SEQUENCE {
//	    messageID       MessageID,
//	    protocolOp      CHOICE { ... },
//	    controls        [0] Controls OPTIONAL
//	}
//
// A Codec reads one envelope at a time from a ber.StreamReader and hands
// it to a Handler:
//
//	codec := ldap.NewCodec(logger)
//	r := ber.NewStreamReader(bufio.NewReader(conn), maxElementSize)
//	for {
//	    if err := codec.Decode(r, handler); err != nil {
//	        // io.EOF on a clean close, *DecodeError otherwise
//	    }
//	}
//
// Protocol operations form a closed set of ProtocolOp implementations.
// Operations with tags the codec does not know are delivered to
// Handler.HandleUnrecognized with their raw value, and filters with
// unknown tags decode to UnrecognizedFilter, so neither aborts decoding.
//
// # Names
//
// DNs and attribute descriptions are decoded by the ResolvedSchema the
// handler's SchemaResolver returns for the target entry. DefaultSchema
// applies RFC 4514 and RFC 4512 syntax only.
//
// # Controls
//
// A control that fails to decode is dropped unless it is critical and the
// failure is fatal, in which case the whole message fails. See IsFatal.
//
// # Tracing
//
// Every decoded and encoded operation is logged at trace level with a
// "DECODE LDAP ..." or "ENCODE LDAP ..." message.
//
// # References
//
//   - RFC 4511: LDAP Protocol
//   - RFC 4512: LDAP Directory Information Models
//   - RFC 4514: String Representation of Distinguished Names
//   - RFC 4515: String Representation of Search Filters
package ldap
