package ldap

// ProtocolOp is one of the RFC 4511 protocol operations. The set of
// implementations is closed: every variant is declared in this package and
// the codec switches over all of them.
type ProtocolOp interface {
	// Tag returns the BER tag the operation is encoded with.
	Tag() byte
	isProtocolOp()
}

// Attribute is an attribute description with its values, used by add
// requests, modifications and search result entries.
type Attribute struct {
	Type   string
	Values [][]byte
}

// BindRequest authenticates the connection.
type BindRequest struct {
	Version int
	Name    string
	// Simple is the simple password; used when SASL is nil.
	Simple []byte
	SASL   *SASLCredentials
}

// SASLCredentials carries a SASL mechanism and optional credentials.
type SASLCredentials struct {
	Mechanism   string
	Credentials []byte
}

// IsAnonymous reports whether the request is an anonymous simple bind.
func (r *BindRequest) IsAnonymous() bool {
	return r.SASL == nil && r.Name == "" && len(r.Simple) == 0
}

// BindResponse is the result of a bind.
type BindResponse struct {
	Result
	ServerSASLCreds []byte
}

// UnbindRequest closes the connection.
type UnbindRequest struct{}

// SearchRequest per RFC 4511 Section 4.5.1.
type SearchRequest struct {
	BaseObject   DN
	Scope        SearchScope
	DerefAliases DerefAliases
	SizeLimit    int
	TimeLimit    int
	TypesOnly    bool
	Filter       Filter
	Attributes   []string
}

// SearchResultEntry returns one entry of a search.
type SearchResultEntry struct {
	ObjectName DN
	Attributes []Attribute
}

// SearchResultReference returns continuation references of a search.
type SearchResultReference struct {
	URIs []string
}

// SearchResultDone terminates a search.
type SearchResultDone struct {
	Result
}

// ModifyRequest changes the attributes of an entry.
type ModifyRequest struct {
	Object  DN
	Changes []Modification
}

// ModifyResponse is the result of a modify.
type ModifyResponse struct {
	Result
}

// AddRequest creates an entry.
type AddRequest struct {
	Entry      DN
	Attributes []Attribute
}

// AddResponse is the result of an add.
type AddResponse struct {
	Result
}

// DeleteRequest removes an entry.
type DeleteRequest struct {
	Entry DN
}

// DeleteResponse is the result of a delete.
type DeleteResponse struct {
	Result
}

// ModifyDNRequest renames or moves an entry.
type ModifyDNRequest struct {
	Entry        DN
	NewRDN       RDN
	DeleteOldRDN bool
	// NewSuperior is nil when the entry keeps its parent.
	NewSuperior *DN
}

// ModifyDNResponse is the result of a modify DN.
type ModifyDNResponse struct {
	Result
}

// CompareRequest asserts an attribute value of an entry.
type CompareRequest struct {
	Entry     DN
	Attribute AttributeDescription
	Value     []byte
}

// CompareResponse is the result of a compare.
type CompareResponse struct {
	Result
}

// AbandonRequest asks the server to drop an outstanding operation.
type AbandonRequest struct {
	MessageID int32
}

// ExtendedRequest per RFC 4511 Section 4.12. Value is nil when absent.
type ExtendedRequest struct {
	Name  string
	Value []byte
}

// ExtendedResponse per RFC 4511 Section 4.12. Name and Value are optional.
type ExtendedResponse struct {
	Result
	Name  string
	Value []byte
}

// IntermediateResponse per RFC 4511 Section 4.13.
type IntermediateResponse struct {
	Name  string
	Value []byte
}

// UnrecognizedOp holds an operation whose tag this codec does not know.
// Raw is the undecoded value; the operation is re-encoded verbatim.
type UnrecognizedOp struct {
	OpTag byte
	Raw   []byte
}

func (*BindRequest) Tag() byte           { return TagBindRequest }
func (*BindResponse) Tag() byte          { return TagBindResponse }
func (*UnbindRequest) Tag() byte         { return TagUnbindRequest }
func (*SearchRequest) Tag() byte         { return TagSearchRequest }
func (*SearchResultEntry) Tag() byte     { return TagSearchResultEntry }
func (*SearchResultReference) Tag() byte { return TagSearchResultReference }
func (*SearchResultDone) Tag() byte      { return TagSearchResultDone }
func (*ModifyRequest) Tag() byte         { return TagModifyRequest }
func (*ModifyResponse) Tag() byte        { return TagModifyResponse }
func (*AddRequest) Tag() byte            { return TagAddRequest }
func (*AddResponse) Tag() byte           { return TagAddResponse }
func (*DeleteRequest) Tag() byte         { return TagDeleteRequest }
func (*DeleteResponse) Tag() byte        { return TagDeleteResponse }
func (*ModifyDNRequest) Tag() byte       { return TagModifyDNRequest }
func (*ModifyDNResponse) Tag() byte      { return TagModifyDNResponse }
func (*CompareRequest) Tag() byte        { return TagCompareRequest }
func (*CompareResponse) Tag() byte       { return TagCompareResponse }
func (*AbandonRequest) Tag() byte        { return TagAbandonRequest }
func (*ExtendedRequest) Tag() byte       { return TagExtendedRequest }
func (*ExtendedResponse) Tag() byte      { return TagExtendedResponse }
func (*IntermediateResponse) Tag() byte  { return TagIntermediateResponse }
func (u *UnrecognizedOp) Tag() byte      { return u.OpTag }

func (*BindRequest) isProtocolOp()           {}
func (*BindResponse) isProtocolOp()          {}
func (*UnbindRequest) isProtocolOp()         {}
func (*SearchRequest) isProtocolOp()         {}
func (*SearchResultEntry) isProtocolOp()     {}
func (*SearchResultReference) isProtocolOp() {}
func (*SearchResultDone) isProtocolOp()      {}
func (*ModifyRequest) isProtocolOp()         {}
func (*ModifyResponse) isProtocolOp()        {}
func (*AddRequest) isProtocolOp()            {}
func (*AddResponse) isProtocolOp()           {}
func (*DeleteRequest) isProtocolOp()         {}
func (*DeleteResponse) isProtocolOp()        {}
func (*ModifyDNRequest) isProtocolOp()       {}
func (*ModifyDNResponse) isProtocolOp()      {}
func (*CompareRequest) isProtocolOp()        {}
func (*CompareResponse) isProtocolOp()       {}
func (*AbandonRequest) isProtocolOp()        {}
func (*ExtendedRequest) isProtocolOp()       {}
func (*ExtendedResponse) isProtocolOp()      {}
func (*IntermediateResponse) isProtocolOp()  {}
func (*UnrecognizedOp) isProtocolOp()        {}

// ResultOf returns the LDAPResult embedded in a response operation.
func ResultOf(op ProtocolOp) (Result, bool) {
	switch o := op.(type) {
	case *BindResponse:
		return o.Result, true
	case *SearchResultDone:
		return o.Result, true
	case *ModifyResponse:
		return o.Result, true
	case *AddResponse:
		return o.Result, true
	case *DeleteResponse:
		return o.Result, true
	case *ModifyDNResponse:
		return o.Result, true
	case *CompareResponse:
		return o.Result, true
	case *ExtendedResponse:
		return o.Result, true
	default:
		return Result{}, false
	}
}
