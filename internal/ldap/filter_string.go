package ldap

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Filter string parser errors
var (
	ErrEmptyFilter      = errors.New("ldap: empty filter")
	ErrInvalidFilter    = errors.New("ldap: invalid filter syntax")
	ErrUnbalancedParens = errors.New("ldap: unbalanced parentheses")
	ErrMissingAttribute = errors.New("ldap: missing attribute name")
	ErrInvalidEscape    = errors.New("ldap: invalid escape sequence in filter value")
)

// ParseFilter parses an LDAP filter string into a Filter.
// Supports RFC 4515 filter syntax:
//   - (attr=value)          - equality
//   - (attr=*)              - presence
//   - (attr=*val*)          - substring
//   - (attr>=value)         - greater or equal
//   - (attr<=value)         - less or equal
//   - (attr~=value)         - approximate match
//   - (attr:dn:rule:=value) - extensible match
//   - (&(f1)(f2)...)        - AND, (&) is absolute true
//   - (|(f1)(f2)...)        - OR, (|) is absolute false
//   - (!(filter))           - NOT
//
// Values may contain \XX hex escapes.
func ParseFilter(filterStr string) (Filter, error) {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" {
		return nil, ErrEmptyFilter
	}

	return parseFilter(filterStr)
}

func parseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyFilter
	}

	// Must start and end with parentheses
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		// Try wrapping simple filters
		if !strings.Contains(s, "(") {
			s = "(" + s + ")"
		} else {
			return nil, ErrInvalidFilter
		}
	}

	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, ErrEmptyFilter
	}

	switch inner[0] {
	case '&':
		children, err := parseFilterList(inner[1:])
		if err != nil {
			return nil, err
		}
		return &AndFilter{Filters: children}, nil
	case '|':
		children, err := parseFilterList(inner[1:])
		if err != nil {
			return nil, err
		}
		return &OrFilter{Filters: children}, nil
	case '!':
		child, err := parseFilter(inner[1:])
		if err != nil {
			return nil, err
		}
		return &NotFilter{Filter: child}, nil
	default:
		return parseSimpleFilter(inner)
	}
}

func parseFilterList(s string) ([]Filter, error) {
	var filters []Filter
	s = strings.TrimSpace(s)

	for len(s) > 0 {
		if s[0] != '(' {
			return nil, ErrInvalidFilter
		}

		// Find matching closing paren
		depth := 0
		end := -1
		for i := 0; i < len(s); i++ {
			if s[i] == '(' {
				depth++
			} else if s[i] == ')' {
				depth--
				if depth == 0 {
					end = i
					break
				}
			}
		}

		if end == -1 {
			return nil, ErrUnbalancedParens
		}

		f, err := parseFilter(s[:end+1])
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)

		s = strings.TrimSpace(s[end+1:])
	}

	return filters, nil
}

func parseSimpleFilter(s string) (Filter, error) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return nil, ErrInvalidFilter
	}
	if eq == 0 {
		return nil, ErrMissingAttribute
	}
	raw := s[eq+1:]

	// The character before the first '=' selects the match type.
	switch s[eq-1] {
	case ':':
		return parseExtensibleFilter(s[:eq-1], raw)
	case '>', '<', '~':
		attr := strings.TrimSpace(s[:eq-1])
		if attr == "" {
			return nil, ErrMissingAttribute
		}
		value, err := unescapeFilterValue(raw)
		if err != nil {
			return nil, err
		}
		switch s[eq-1] {
		case '>':
			return &GreaterOrEqualFilter{Attribute: attr, Value: value}, nil
		case '<':
			return &LessOrEqualFilter{Attribute: attr, Value: value}, nil
		default:
			return &ApproxFilter{Attribute: attr, Value: value}, nil
		}
	}

	attr := strings.TrimSpace(s[:eq])
	if attr == "" {
		return nil, ErrMissingAttribute
	}
	if raw == "*" {
		return &PresentFilter{Attribute: attr}, nil
	}
	if strings.Contains(raw, "*") {
		return parseSubstringFilter(attr, raw)
	}

	value, err := unescapeFilterValue(raw)
	if err != nil {
		return nil, err
	}
	return &EqualityFilter{Attribute: attr, Value: value}, nil
}

func parseSubstringFilter(attr, raw string) (Filter, error) {
	parts := strings.Split(raw, "*")
	sf := &SubstringsFilter{Attribute: attr}

	for i, part := range parts {
		if part == "" {
			continue
		}
		v, err := unescapeFilterValue(part)
		if err != nil {
			return nil, err
		}
		switch i {
		case 0:
			sf.Initial = v
		case len(parts) - 1:
			sf.Final = v
		default:
			sf.Any = append(sf.Any, v)
		}
	}
	return sf, nil
}

// parseExtensibleFilter parses the left side "attr:dn:rule" of attr:dn:rule:=value.
func parseExtensibleFilter(left, raw string) (Filter, error) {
	value, err := unescapeFilterValue(raw)
	if err != nil {
		return nil, err
	}
	f := &ExtensibleMatchFilter{Value: value}
	parts := strings.Split(left, ":")
	f.Attribute = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		switch {
		case strings.EqualFold(p, "dn"):
			f.DNAttributes = true
		case p != "":
			f.MatchingRule = p
		}
	}
	if f.Attribute == "" && f.MatchingRule == "" {
		return nil, ErrMissingAttribute
	}
	return f, nil
}

func unescapeFilterValue(s string) ([]byte, error) {
	if !strings.Contains(s, `\`) {
		return []byte(s), nil
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			out = append(out, s[i])
			continue
		}
		if i+3 > len(s) {
			return nil, ErrInvalidEscape
		}
		b, err := hex.DecodeString(s[i+1 : i+3])
		if err != nil {
			return nil, ErrInvalidEscape
		}
		out = append(out, b[0])
		i += 2
	}
	return out, nil
}

func escapeFilterValue(v []byte) string {
	valid := utf8.Valid(v)
	var b strings.Builder
	for _, c := range v {
		switch {
		case c == '*' || c == '(' || c == ')' || c == '\\' || c == 0:
			fmt.Fprintf(&b, `\%02x`, c)
		case c >= 0x80 && !valid:
			fmt.Fprintf(&b, `\%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (f *AndFilter) String() string {
	return "(&" + joinFilters(f.Filters) + ")"
}

func (f *OrFilter) String() string {
	return "(|" + joinFilters(f.Filters) + ")"
}

func (f *NotFilter) String() string {
	return "(!" + f.Filter.String() + ")"
}

func (f *EqualityFilter) String() string {
	return "(" + f.Attribute + "=" + escapeFilterValue(f.Value) + ")"
}

func (f *GreaterOrEqualFilter) String() string {
	return "(" + f.Attribute + ">=" + escapeFilterValue(f.Value) + ")"
}

func (f *LessOrEqualFilter) String() string {
	return "(" + f.Attribute + "<=" + escapeFilterValue(f.Value) + ")"
}

func (f *ApproxFilter) String() string {
	return "(" + f.Attribute + "~=" + escapeFilterValue(f.Value) + ")"
}

func (f *SubstringsFilter) String() string {
	var b strings.Builder
	b.WriteString("(" + f.Attribute + "=")
	b.WriteString(escapeFilterValue(f.Initial))
	b.WriteByte('*')
	for _, a := range f.Any {
		b.WriteString(escapeFilterValue(a))
		b.WriteByte('*')
	}
	b.WriteString(escapeFilterValue(f.Final))
	b.WriteByte(')')
	return b.String()
}

func (f *PresentFilter) String() string {
	return "(" + f.Attribute + "=*)"
}

func (f *ExtensibleMatchFilter) String() string {
	var b strings.Builder
	b.WriteString("(" + f.Attribute)
	if f.DNAttributes {
		b.WriteString(":dn")
	}
	if f.MatchingRule != "" {
		b.WriteString(":" + f.MatchingRule)
	}
	b.WriteString(":=" + escapeFilterValue(f.Value) + ")")
	return b.String()
}

func (f *UnrecognizedFilter) String() string {
	return fmt.Sprintf("(?%02x=%x)", f.Tag, f.Raw)
}

func joinFilters(fs []Filter) string {
	var b strings.Builder
	for _, f := range fs {
		b.WriteString(f.String())
	}
	return b.String()
}
