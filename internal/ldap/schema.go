package ldap

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Schema identifies the set of definitions a ResolvedSchema decodes with.
type Schema interface {
	Name() string
}

// ResolvedSchema decodes names for one part of the directory. The codec
// never parses DNs or attribute descriptions itself; it asks the schema
// resolved for the entry being decoded.
type ResolvedSchema interface {
	DecodeDN(s string) (DN, error)
	DecodeRDN(s string) (RDN, error)
	DecodeAttributeDescription(s string) (AttributeDescription, error)
	Schema() Schema
}

// SchemaResolver returns the schema that governs dn.
type SchemaResolver interface {
	ResolveSchema(dn string) (ResolvedSchema, error)
}

// AVA is a single attribute type and value pair of an RDN.
type AVA struct {
	Type  string
	Value string
}

// RDN is a relative distinguished name. Multi-valued RDNs hold more than
// one AVA.
type RDN struct {
	AVAs []AVA
}

// String returns the RFC 4514 form of the RDN.
func (r RDN) String() string {
	parts := make([]string, len(r.AVAs))
	for i, ava := range r.AVAs {
		parts[i] = ava.Type + "=" + escapeDNValue(ava.Value)
	}
	return strings.Join(parts, "+")
}

// DN is a distinguished name, most specific RDN first.
type DN struct {
	RDNs []RDN
}

// String returns the RFC 4514 form of the DN. The root DN is "".
func (d DN) String() string {
	parts := make([]string, len(d.RDNs))
	for i, rdn := range d.RDNs {
		parts[i] = rdn.String()
	}
	return strings.Join(parts, ",")
}

// IsRoot reports whether d is the empty DN.
func (d DN) IsRoot() bool {
	return len(d.RDNs) == 0
}

// Parent returns the DN with the first RDN removed.
func (d DN) Parent() DN {
	if len(d.RDNs) == 0 {
		return d
	}
	return DN{RDNs: d.RDNs[1:]}
}

// RDN returns the most specific RDN, or the zero RDN for the root DN.
func (d DN) RDN() RDN {
	if len(d.RDNs) == 0 {
		return RDN{}
	}
	return d.RDNs[0]
}

// AttributeDescription is an attribute type with its options,
// e.g. "userCertificate;binary".
type AttributeDescription struct {
	Type    string
	Options []string
}

// String returns the RFC 4512 form of the description.
func (a AttributeDescription) String() string {
	if len(a.Options) == 0 {
		return a.Type
	}
	return a.Type + ";" + strings.Join(a.Options, ";")
}

type coreSchema struct{}

func (coreSchema) Name() string { return "core" }

// DefaultSchema decodes names without consulting any schema definitions.
// It checks RFC 4514 and RFC 4512 syntax only.
type DefaultSchema struct{}

// ResolveSchema implements SchemaResolver; every DN maps to DefaultSchema.
func (DefaultSchema) ResolveSchema(string) (ResolvedSchema, error) {
	return DefaultSchema{}, nil
}

// Schema returns the schema-less core schema.
func (DefaultSchema) Schema() Schema {
	return coreSchema{}
}

// DecodeDN parses an RFC 4514 string.
func (DefaultSchema) DecodeDN(s string) (DN, error) {
	return ParseDN(s)
}

// DecodeRDN parses a single RDN.
func (DefaultSchema) DecodeRDN(s string) (RDN, error) {
	dn, err := ParseDN(s)
	if err != nil {
		return RDN{}, err
	}
	if len(dn.RDNs) != 1 {
		return RDN{}, fmt.Errorf("%w: %q is not a single RDN", ErrInvalidDN, s)
	}
	return dn.RDNs[0], nil
}

// DecodeAttributeDescription parses "type;option;option".
func (DefaultSchema) DecodeAttributeDescription(s string) (AttributeDescription, error) {
	if s == "" {
		return AttributeDescription{}, fmt.Errorf("%w: empty", ErrInvalidAttributeDescription)
	}
	parts := strings.Split(s, ";")
	for _, p := range parts {
		if !isDescriptor(p) {
			return AttributeDescription{}, fmt.Errorf("%w: %q", ErrInvalidAttributeDescription, s)
		}
	}
	desc := AttributeDescription{Type: parts[0]}
	if len(parts) > 1 {
		desc.Options = parts[1:]
	}
	return desc, nil
}

// isDescriptor accepts a keystring or a numeric OID.
func isDescriptor(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '.':
		default:
			return false
		}
	}
	return true
}

// ParseDN parses an RFC 4514 distinguished name.
func ParseDN(s string) (DN, error) {
	var dn DN
	if strings.TrimSpace(s) == "" {
		return dn, nil
	}

	var (
		rdn   RDN
		ava   AVA
		buf   strings.Builder
		inVal bool
	)
	flushAVA := func() error {
		if !inVal {
			return fmt.Errorf("%w: %q: missing '='", ErrInvalidDN, s)
		}
		ava.Value = strings.TrimRight(buf.String(), " ")
		if ava.Type == "" {
			return fmt.Errorf("%w: %q: empty attribute type", ErrInvalidDN, s)
		}
		rdn.AVAs = append(rdn.AVAs, ava)
		ava = AVA{}
		buf.Reset()
		inVal = false
		return nil
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !inVal && c == '=':
			ava.Type = strings.TrimSpace(buf.String())
			buf.Reset()
			inVal = true
			for i+1 < len(s) && s[i+1] == ' ' {
				i++
			}
		case inVal && c == '\\':
			if i+1 >= len(s) {
				return DN{}, fmt.Errorf("%w: %q: trailing escape", ErrInvalidDN, s)
			}
			if isHex(s[i+1]) && i+2 < len(s) && isHex(s[i+2]) {
				b, _ := hex.DecodeString(s[i+1 : i+3])
				buf.WriteByte(b[0])
				i += 2
			} else {
				buf.WriteByte(s[i+1])
				i++
			}
		case inVal && c == '+':
			if err := flushAVA(); err != nil {
				return DN{}, err
			}
		case inVal && (c == ',' || c == ';'):
			if err := flushAVA(); err != nil {
				return DN{}, err
			}
			dn.RDNs = append(dn.RDNs, rdn)
			rdn = RDN{}
			for i+1 < len(s) && s[i+1] == ' ' {
				i++
			}
		case !inVal && (c == ',' || c == '+'):
			return DN{}, fmt.Errorf("%w: %q: missing '='", ErrInvalidDN, s)
		default:
			buf.WriteByte(c)
		}
	}
	if err := flushAVA(); err != nil {
		return DN{}, err
	}
	dn.RDNs = append(dn.RDNs, rdn)
	return dn, nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// escapeDNValue escapes an attribute value per RFC 4514 Section 2.4.
func escapeDNValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == ',' || c == '+' || c == '"' || c == '\\' || c == '<' || c == '>' || c == ';' || c == '=':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == 0:
			b.WriteString("\\00")
		case i == 0 && (c == ' ' || c == '#'):
			b.WriteByte('\\')
			b.WriteByte(c)
		case i == len(v)-1 && c == ' ':
			b.WriteString("\\ ")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
