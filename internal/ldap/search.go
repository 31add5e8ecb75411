package ldap

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// SearchScope represents the scope of an LDAP search operation
type SearchScope int

const (
	// ScopeBaseObject searches only the base object
	ScopeBaseObject SearchScope = 0
	// ScopeSingleLevel searches one level below the base object
	ScopeSingleLevel SearchScope = 1
	// ScopeWholeSubtree searches the entire subtree
	ScopeWholeSubtree SearchScope = 2
	// ScopeSubordinateSubtree searches the subtree without the base object
	ScopeSubordinateSubtree SearchScope = 3
)

// String returns the string representation of the search scope
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "BaseObject"
	case ScopeSingleLevel:
		return "SingleLevel"
	case ScopeWholeSubtree:
		return "WholeSubtree"
	case ScopeSubordinateSubtree:
		return "SubordinateSubtree"
	default:
		return "Unknown"
	}
}

// DerefAliases represents how aliases should be dereferenced during search
type DerefAliases int

const (
	// DerefNever never dereferences aliases
	DerefNever DerefAliases = 0
	// DerefInSearching dereferences aliases when searching subordinates
	DerefInSearching DerefAliases = 1
	// DerefFindingBaseObj dereferences aliases when finding the base object
	DerefFindingBaseObj DerefAliases = 2
	// DerefAlways always dereferences aliases
	DerefAlways DerefAliases = 3
)

// String returns the string representation of the deref aliases setting
func (d DerefAliases) String() string {
	switch d {
	case DerefNever:
		return "NeverDerefAliases"
	case DerefInSearching:
		return "DerefInSearching"
	case DerefFindingBaseObj:
		return "DerefFindingBaseObj"
	case DerefAlways:
		return "DerefAlways"
	default:
		return "Unknown"
	}
}

// SearchRequest ::= [APPLICATION 3] SEQUENCE {
//
//	baseObject      LDAPDN,
//	scope           ENUMERATED,
//	derefAliases    ENUMERATED,
//	sizeLimit       INTEGER (0 ..  maxInt),
//	timeLimit       INTEGER (0 ..  maxInt),
//	typesOnly       BOOLEAN,
//	filter          Filter,
//	attributes      AttributeSelection }
func (d *decoder) readSearchRequest() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagSearchRequest)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	req := &SearchRequest{}
	if req.BaseObject, _, err = d.readDN(); err != nil {
		return nil, err
	}
	scope, err := d.r.ReadEnumerated()
	if err != nil {
		return nil, err
	}
	req.Scope = SearchScope(scope)
	deref, err := d.r.ReadEnumerated()
	if err != nil {
		return nil, err
	}
	req.DerefAliases = DerefAliases(deref)
	size, err := d.r.ReadInteger()
	if err != nil {
		return nil, err
	}
	req.SizeLimit = int(size)
	limit, err := d.r.ReadInteger()
	if err != nil {
		return nil, err
	}
	req.TimeLimit = int(limit)
	if req.TypesOnly, err = d.r.ReadBoolean(); err != nil {
		return nil, err
	}
	if req.Filter, err = readFilter(d.r, d.logger); err != nil {
		return nil, wrapDecodeError(KeyFilterStructure, err)
	}

	// Attribute selectors may be "*", "+" or "1.1", so they are not
	// resolved as attribute descriptions.
	ag, err := d.r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer ag.Close()
	for d.r.HasNextElement() {
		attr, err := d.r.ReadOctetStringAsString()
		if err != nil {
			return nil, err
		}
		req.Attributes = append(req.Attributes, attr)
	}
	if err := ag.End(); err != nil {
		return nil, err
	}

	d.trace("DECODE LDAP SEARCH REQUEST", "baseObject", req.BaseObject.String(), "scope", req.Scope,
		"derefAliases", req.DerefAliases, "sizeLimit", req.SizeLimit, "timeLimit", req.TimeLimit,
		"typesOnly", req.TypesOnly, "filter", req.Filter.String(), "attributes", req.Attributes)
	return req, g.End()
}

func writeSearchRequest(w *ber.BEREncoder, req *SearchRequest) error {
	pos := w.BeginTag(TagSearchRequest)
	if err := w.WriteString(req.BaseObject.String()); err != nil {
		return err
	}
	if err := w.WriteEnumerated(int64(req.Scope)); err != nil {
		return err
	}
	if err := w.WriteEnumerated(int64(req.DerefAliases)); err != nil {
		return err
	}
	if err := w.WriteInteger(int64(req.SizeLimit)); err != nil {
		return err
	}
	if err := w.WriteInteger(int64(req.TimeLimit)); err != nil {
		return err
	}
	if err := w.WriteBoolean(req.TypesOnly); err != nil {
		return err
	}
	if err := writeFilter(w, req.Filter); err != nil {
		return err
	}
	apos := w.BeginSequence()
	for _, attr := range req.Attributes {
		if err := w.WriteString(attr); err != nil {
			return err
		}
	}
	if err := w.EndSequence(apos); err != nil {
		return err
	}
	return w.EndTag(pos)
}

// SearchResultEntry ::= [APPLICATION 4] SEQUENCE {
//
//	objectName      LDAPDN,
//	attributes      PartialAttributeList }
func (d *decoder) readSearchResultEntry() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagSearchResultEntry)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	entry := &SearchResultEntry{}
	var rs ResolvedSchema
	if entry.ObjectName, rs, err = d.readDN(); err != nil {
		return nil, err
	}
	if entry.Attributes, err = d.readAttributeList(rs); err != nil {
		return nil, err
	}

	d.trace("DECODE LDAP SEARCH RESULT ENTRY", "dn", entry.ObjectName.String(), "attributes", len(entry.Attributes))
	return entry, g.End()
}

func writeSearchResultEntry(w *ber.BEREncoder, entry *SearchResultEntry) error {
	pos := w.BeginTag(TagSearchResultEntry)
	if err := w.WriteString(entry.ObjectName.String()); err != nil {
		return err
	}
	if err := writeAttributeList(w, entry.Attributes); err != nil {
		return err
	}
	return w.EndTag(pos)
}

// SearchResultReference ::= [APPLICATION 19] SEQUENCE SIZE (1..MAX) OF uri URI
func (d *decoder) readSearchResultReference() (ProtocolOp, error) {
	g, err := d.r.ReadStartSequenceWithTag(TagSearchResultReference)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	ref := &SearchResultReference{}
	for d.r.HasNextElement() {
		uri, err := d.r.ReadOctetStringAsString()
		if err != nil {
			return nil, err
		}
		ref.URIs = append(ref.URIs, uri)
	}

	d.trace("DECODE LDAP SEARCH RESULT REFERENCE", "uris", ref.URIs)
	return ref, g.End()
}

func writeSearchResultReference(w *ber.BEREncoder, ref *SearchResultReference) error {
	pos := w.BeginTag(TagSearchResultReference)
	for _, uri := range ref.URIs {
		if err := w.WriteString(uri); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}
