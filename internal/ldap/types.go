package ldap

import (
	"fmt"
)

// LDAP protocol operation tags, as they appear on the wire.
// Per RFC 4511 Section 4.2; primitive operations carry their value directly.
const (
	TagBindRequest           byte = 0x60 // [APPLICATION 0] SEQUENCE
	TagBindResponse          byte = 0x61 // [APPLICATION 1] SEQUENCE
	TagUnbindRequest         byte = 0x42 // [APPLICATION 2] NULL
	TagSearchRequest         byte = 0x63 // [APPLICATION 3] SEQUENCE
	TagSearchResultEntry     byte = 0x64 // [APPLICATION 4] SEQUENCE
	TagSearchResultDone      byte = 0x65 // [APPLICATION 5] LDAPResult
	TagModifyRequest         byte = 0x66 // [APPLICATION 6] SEQUENCE
	TagModifyResponse        byte = 0x67 // [APPLICATION 7] LDAPResult
	TagAddRequest            byte = 0x68 // [APPLICATION 8] SEQUENCE
	TagAddResponse           byte = 0x69 // [APPLICATION 9] LDAPResult
	TagDeleteRequest         byte = 0x4A // [APPLICATION 10] LDAPDN
	TagDeleteResponse        byte = 0x6B // [APPLICATION 11] LDAPResult
	TagModifyDNRequest       byte = 0x6C // [APPLICATION 12] SEQUENCE
	TagModifyDNResponse      byte = 0x6D // [APPLICATION 13] LDAPResult
	TagCompareRequest        byte = 0x6E // [APPLICATION 14] SEQUENCE
	TagCompareResponse       byte = 0x6F // [APPLICATION 15] LDAPResult
	TagAbandonRequest        byte = 0x50 // [APPLICATION 16] MessageID
	TagSearchResultReference byte = 0x73 // [APPLICATION 19] SEQUENCE OF URI
	TagExtendedRequest       byte = 0x77 // [APPLICATION 23] SEQUENCE
	TagExtendedResponse      byte = 0x78 // [APPLICATION 24] SEQUENCE
	TagIntermediateResponse  byte = 0x79 // [APPLICATION 25] SEQUENCE
)

// Context-specific tags used inside operations.
const (
	TagControls         byte = 0xA0 // [0] Controls
	TagReferral         byte = 0xA3 // [3] Referral
	TagSimpleAuth       byte = 0x80 // [0] simple password
	TagSASLAuth         byte = 0xA3 // [3] SaslCredentials
	TagServerSASLCreds  byte = 0x87 // [7] serverSaslCreds
	TagNewSuperior      byte = 0x80 // [0] newSuperior
	TagExtendedName     byte = 0x80 // [0] requestName
	TagExtendedValue    byte = 0x81 // [1] requestValue
	TagResponseName     byte = 0x8A // [10] responseName
	TagResponseValue    byte = 0x8B // [11] responseValue
	TagIntermediateName byte = 0x80 // [0] responseName
	TagIntermediateVal  byte = 0x81 // [1] responseValue
)

// OperationName returns a readable name for a protocol operation tag.
func OperationName(tag byte) string {
	switch tag {
	case TagBindRequest:
		return "BindRequest"
	case TagBindResponse:
		return "BindResponse"
	case TagUnbindRequest:
		return "UnbindRequest"
	case TagSearchRequest:
		return "SearchRequest"
	case TagSearchResultEntry:
		return "SearchResultEntry"
	case TagSearchResultDone:
		return "SearchResultDone"
	case TagModifyRequest:
		return "ModifyRequest"
	case TagModifyResponse:
		return "ModifyResponse"
	case TagAddRequest:
		return "AddRequest"
	case TagAddResponse:
		return "AddResponse"
	case TagDeleteRequest:
		return "DelRequest"
	case TagDeleteResponse:
		return "DelResponse"
	case TagModifyDNRequest:
		return "ModifyDNRequest"
	case TagModifyDNResponse:
		return "ModifyDNResponse"
	case TagCompareRequest:
		return "CompareRequest"
	case TagCompareResponse:
		return "CompareResponse"
	case TagAbandonRequest:
		return "AbandonRequest"
	case TagSearchResultReference:
		return "SearchResultReference"
	case TagExtendedRequest:
		return "ExtendedRequest"
	case TagExtendedResponse:
		return "ExtendedResponse"
	case TagIntermediateResponse:
		return "IntermediateResponse"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", tag)
	}
}

// MaxMessageID is the maximum valid message ID per RFC 4511
// MessageID ::= INTEGER (0 .. maxInt)
// maxInt INTEGER ::= 2147483647 -- (2^^31 - 1)
const MaxMessageID = 2147483647

// MinMessageID is the minimum valid message ID
const MinMessageID = 0

// Control represents an LDAP control as defined in RFC 4511 Section 4.1.11
// Control ::= SEQUENCE {
//
//	controlType             LDAPOID,
//	criticality             BOOLEAN DEFAULT FALSE,
//	controlValue            OCTET STRING OPTIONAL
//
// }
type Control struct {
	// OID is the control type OID
	OID string
	// Criticality indicates whether the control is critical
	Criticality bool
	// Value is the optional control value; nil when absent
	Value []byte
}

// Message represents an LDAP protocol message envelope.
// Per RFC 4511 Section 4.1.1:
// LDAPMessage ::= SEQUENCE {
//
//	messageID       MessageID,
//	protocolOp      CHOICE { ... },
//	controls        [0] Controls OPTIONAL
//
// }
type Message struct {
	// ID correlates a response with its request within a connection
	ID int32
	// Op is the protocol operation
	Op ProtocolOp
	// Controls contains optional message controls
	Controls []Control
}

// Result carries the components shared by every LDAP response.
//
//	LDAPResult ::= SEQUENCE {
//	     resultCode         ENUMERATED { ... },
//	     matchedDN          LDAPDN,
//	     diagnosticMessage  LDAPString,
//	     referral           [3] Referral OPTIONAL }
type Result struct {
	Code              ResultCode
	MatchedDN         string
	DiagnosticMessage string
	Referrals         []string
}

// NewSuccessResult creates a successful result.
func NewSuccessResult() Result {
	return Result{Code: ResultSuccess}
}

// NewErrorResult creates a result with the given code and diagnostic message.
func NewErrorResult(code ResultCode, message string) Result {
	return Result{Code: code, DiagnosticMessage: message}
}

// NewErrorResultWithDN creates an error result with a matched DN.
func NewErrorResultWithDN(code ResultCode, matchedDN, message string) Result {
	return Result{Code: code, MatchedDN: matchedDN, DiagnosticMessage: message}
}
