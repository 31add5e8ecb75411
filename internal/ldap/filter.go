package ldap

import (
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// Filter tags per RFC 4511 Section 4.5.1
const (
	FilterTagAnd             byte = 0xA0 // [0] SET OF filter
	FilterTagOr              byte = 0xA1 // [1] SET OF filter
	FilterTagNot             byte = 0xA2 // [2] Filter
	FilterTagEquality        byte = 0xA3 // [3] AttributeValueAssertion
	FilterTagSubstrings      byte = 0xA4 // [4] SubstringFilter
	FilterTagGreaterOrEqual  byte = 0xA5 // [5] AttributeValueAssertion
	FilterTagLessOrEqual     byte = 0xA6 // [6] AttributeValueAssertion
	FilterTagPresent         byte = 0x87 // [7] AttributeDescription
	FilterTagApproxMatch     byte = 0xA8 // [8] AttributeValueAssertion
	FilterTagExtensibleMatch byte = 0xA9 // [9] MatchingRuleAssertion
)

// Substring and extensible match component tags
const (
	substringInitial byte = 0x80
	substringAny     byte = 0x81
	substringFinal   byte = 0x82

	matchingRuleTag byte = 0x81
	matchTypeTag    byte = 0x82
	matchValueTag   byte = 0x83
	dnAttributesTag byte = 0x84
)

// Filter is a search filter. The set of variants is closed.
type Filter interface {
	// String returns the RFC 4515 string form.
	String() string
	isFilter()
}

// AndFilter matches when every sub-filter matches. With no sub-filters it
// is the RFC 4526 absolute true filter.
type AndFilter struct {
	Filters []Filter
}

// OrFilter matches when any sub-filter matches. With no sub-filters it is
// the RFC 4526 absolute false filter.
type OrFilter struct {
	Filters []Filter
}

// NotFilter negates a filter.
type NotFilter struct {
	Filter Filter
}

// EqualityFilter is (attr=value).
type EqualityFilter struct {
	Attribute string
	Value     []byte
}

// GreaterOrEqualFilter is (attr>=value).
type GreaterOrEqualFilter struct {
	Attribute string
	Value     []byte
}

// LessOrEqualFilter is (attr<=value).
type LessOrEqualFilter struct {
	Attribute string
	Value     []byte
}

// ApproxFilter is (attr~=value).
type ApproxFilter struct {
	Attribute string
	Value     []byte
}

// SubstringsFilter is (attr=initial*any*final).
type SubstringsFilter struct {
	Attribute string
	Initial   []byte
	Any       [][]byte
	Final     []byte
}

// PresentFilter is (attr=*).
type PresentFilter struct {
	Attribute string
}

// ExtensibleMatchFilter is (attr:dn:rule:=value).
type ExtensibleMatchFilter struct {
	MatchingRule string
	Attribute    string
	Value        []byte
	DNAttributes bool
}

// UnrecognizedFilter holds a filter element with an unknown tag. It is
// re-encoded verbatim.
type UnrecognizedFilter struct {
	Tag byte
	Raw []byte
}

func (*AndFilter) isFilter()             {}
func (*OrFilter) isFilter()              {}
func (*NotFilter) isFilter()             {}
func (*EqualityFilter) isFilter()        {}
func (*GreaterOrEqualFilter) isFilter()  {}
func (*LessOrEqualFilter) isFilter()     {}
func (*ApproxFilter) isFilter()          {}
func (*SubstringsFilter) isFilter()      {}
func (*PresentFilter) isFilter()         {}
func (*ExtensibleMatchFilter) isFilter() {}
func (*UnrecognizedFilter) isFilter()    {}

// AbsoluteTrue returns the filter that matches every entry, (&).
func AbsoluteTrue() Filter {
	return &AndFilter{}
}

// AbsoluteFalse returns the filter that matches no entry, (|).
func AbsoluteFalse() Filter {
	return &OrFilter{}
}

// IsAbsoluteTrue reports whether f is an AND filter without sub-filters.
func IsAbsoluteTrue(f Filter) bool {
	a, ok := f.(*AndFilter)
	return ok && len(a.Filters) == 0
}

// IsAbsoluteFalse reports whether f is an OR filter without sub-filters.
func IsAbsoluteFalse(f Filter) bool {
	o, ok := f.(*OrFilter)
	return ok && len(o.Filters) == 0
}

// readFilter decodes one filter element, recursing into composites.
func readFilter(r *ber.StreamReader, logger logging.Logger) (Filter, error) {
	tag, err := r.PeekType()
	if err != nil {
		return nil, err
	}

	switch tag {
	case FilterTagAnd, FilterTagOr:
		subs, err := readFilterSet(r, tag, logger)
		if err != nil {
			return nil, err
		}
		if tag == FilterTagAnd {
			return &AndFilter{Filters: subs}, nil
		}
		return &OrFilter{Filters: subs}, nil

	case FilterTagNot:
		g, err := r.ReadStartExplicitTag(tag)
		if err != nil {
			return nil, err
		}
		defer g.Close()
		inner, err := readFilter(r, logger)
		if err != nil {
			return nil, err
		}
		if err := g.End(); err != nil {
			return nil, err
		}
		return &NotFilter{Filter: inner}, nil

	case FilterTagEquality, FilterTagGreaterOrEqual, FilterTagLessOrEqual, FilterTagApproxMatch:
		attr, value, err := readAssertion(r, tag)
		if err != nil {
			return nil, err
		}
		switch tag {
		case FilterTagEquality:
			return &EqualityFilter{Attribute: attr, Value: value}, nil
		case FilterTagGreaterOrEqual:
			return &GreaterOrEqualFilter{Attribute: attr, Value: value}, nil
		case FilterTagLessOrEqual:
			return &LessOrEqualFilter{Attribute: attr, Value: value}, nil
		default:
			return &ApproxFilter{Attribute: attr, Value: value}, nil
		}

	case FilterTagSubstrings:
		return readSubstrings(r)

	case FilterTagPresent:
		attr, err := r.ReadOctetStringAsStringWithTag(FilterTagPresent)
		if err != nil {
			return nil, err
		}
		return &PresentFilter{Attribute: attr}, nil

	case FilterTagExtensibleMatch:
		return readExtensibleMatch(r)

	default:
		tag, raw, err := r.ReadRawElement()
		if err != nil {
			return nil, err
		}
		logger.Debug("unrecognized filter tag", "tag", tag, "length", len(raw))
		return &UnrecognizedFilter{Tag: tag, Raw: raw}, nil
	}
}

func readFilterSet(r *ber.StreamReader, tag byte, logger logging.Logger) ([]Filter, error) {
	g, err := r.ReadStartSetWithTag(tag)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	var subs []Filter
	for r.HasNextElement() {
		f, err := readFilter(r, logger)
		if err != nil {
			return nil, err
		}
		subs = append(subs, f)
	}
	if err := g.End(); err != nil {
		return nil, err
	}
	return subs, nil
}

func readAssertion(r *ber.StreamReader, tag byte) (string, []byte, error) {
	g, err := r.ReadStartSequenceWithTag(tag)
	if err != nil {
		return "", nil, err
	}
	defer g.Close()
	attr, err := r.ReadOctetStringAsString()
	if err != nil {
		return "", nil, err
	}
	value, err := r.ReadOctetString()
	if err != nil {
		return "", nil, err
	}
	return attr, value, g.End()
}

func readSubstrings(r *ber.StreamReader) (Filter, error) {
	g, err := r.ReadStartSequenceWithTag(FilterTagSubstrings)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	f := &SubstringsFilter{}
	if f.Attribute, err = r.ReadOctetStringAsString(); err != nil {
		return nil, err
	}
	sg, err := r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer sg.Close()
	for r.HasNextElement() {
		tag, err := r.PeekType()
		if err != nil {
			return nil, err
		}
		switch tag {
		case substringInitial:
			f.Initial, err = r.ReadOctetStringWithTag(tag)
		case substringAny:
			var v []byte
			v, err = r.ReadOctetStringWithTag(tag)
			f.Any = append(f.Any, v)
		case substringFinal:
			f.Final, err = r.ReadOctetStringWithTag(tag)
		default:
			err = r.SkipElement()
		}
		if err != nil {
			return nil, err
		}
	}
	if err := sg.End(); err != nil {
		return nil, err
	}
	return f, g.End()
}

func readExtensibleMatch(r *ber.StreamReader) (Filter, error) {
	g, err := r.ReadStartSequenceWithTag(FilterTagExtensibleMatch)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	f := &ExtensibleMatchFilter{}
	for r.HasNextElement() {
		tag, err := r.PeekType()
		if err != nil {
			return nil, err
		}
		switch tag {
		case matchingRuleTag:
			f.MatchingRule, err = r.ReadOctetStringAsStringWithTag(tag)
		case matchTypeTag:
			f.Attribute, err = r.ReadOctetStringAsStringWithTag(tag)
		case matchValueTag:
			f.Value, err = r.ReadOctetStringWithTag(tag)
		case dnAttributesTag:
			f.DNAttributes, err = r.ReadBooleanWithTag(tag)
		default:
			err = r.SkipElement()
		}
		if err != nil {
			return nil, err
		}
	}
	return f, g.End()
}

// writeFilter encodes f.
func writeFilter(w *ber.BEREncoder, f Filter) error {
	switch f := f.(type) {
	case *AndFilter:
		return writeFilterSet(w, FilterTagAnd, f.Filters)
	case *OrFilter:
		return writeFilterSet(w, FilterTagOr, f.Filters)
	case *NotFilter:
		pos := w.BeginTag(FilterTagNot)
		if err := writeFilter(w, f.Filter); err != nil {
			return err
		}
		return w.EndTag(pos)
	case *EqualityFilter:
		return writeAssertion(w, FilterTagEquality, f.Attribute, f.Value)
	case *GreaterOrEqualFilter:
		return writeAssertion(w, FilterTagGreaterOrEqual, f.Attribute, f.Value)
	case *LessOrEqualFilter:
		return writeAssertion(w, FilterTagLessOrEqual, f.Attribute, f.Value)
	case *ApproxFilter:
		return writeAssertion(w, FilterTagApproxMatch, f.Attribute, f.Value)
	case *SubstringsFilter:
		pos := w.BeginTag(FilterTagSubstrings)
		if err := w.WriteString(f.Attribute); err != nil {
			return err
		}
		seq := w.BeginSequence()
		if f.Initial != nil {
			if err := w.WriteOctetStringWithTag(substringInitial, f.Initial); err != nil {
				return err
			}
		}
		for _, a := range f.Any {
			if err := w.WriteOctetStringWithTag(substringAny, a); err != nil {
				return err
			}
		}
		if f.Final != nil {
			if err := w.WriteOctetStringWithTag(substringFinal, f.Final); err != nil {
				return err
			}
		}
		if err := w.EndSequence(seq); err != nil {
			return err
		}
		return w.EndTag(pos)
	case *PresentFilter:
		return w.WriteStringWithTag(FilterTagPresent, f.Attribute)
	case *ExtensibleMatchFilter:
		pos := w.BeginTag(FilterTagExtensibleMatch)
		if f.MatchingRule != "" {
			if err := w.WriteStringWithTag(matchingRuleTag, f.MatchingRule); err != nil {
				return err
			}
		}
		if f.Attribute != "" {
			if err := w.WriteStringWithTag(matchTypeTag, f.Attribute); err != nil {
				return err
			}
		}
		if err := w.WriteOctetStringWithTag(matchValueTag, f.Value); err != nil {
			return err
		}
		if f.DNAttributes {
			if err := w.WriteBooleanWithTag(dnAttributesTag, true); err != nil {
				return err
			}
		}
		return w.EndTag(pos)
	case *UnrecognizedFilter:
		return w.WriteOctetStringWithTag(f.Tag, f.Raw)
	case nil:
		return writeFilter(w, AbsoluteTrue())
	default:
		return fmt.Errorf("ldap: unhandled filter type %T", f)
	}
}

func writeFilterSet(w *ber.BEREncoder, tag byte, subs []Filter) error {
	pos := w.BeginTag(tag)
	for _, sub := range subs {
		if err := writeFilter(w, sub); err != nil {
			return err
		}
	}
	return w.EndTag(pos)
}

func writeAssertion(w *ber.BEREncoder, tag byte, attr string, value []byte) error {
	pos := w.BeginTag(tag)
	if err := w.WriteString(attr); err != nil {
		return err
	}
	if err := w.WriteOctetString(value); err != nil {
		return err
	}
	return w.EndTag(pos)
}
