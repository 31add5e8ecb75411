package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDN(t *testing.T) {
	tests := []struct {
		input string
		want  DN
		str   string
	}{
		{"", DN{}, ""},
		{"dc=com", DN{RDNs: []RDN{{AVAs: []AVA{{Type: "dc", Value: "com"}}}}}, "dc=com"},
		{"uid=jdoe, ou=people ,dc=example", DN{RDNs: []RDN{
			{AVAs: []AVA{{Type: "uid", Value: "jdoe"}}},
			{AVAs: []AVA{{Type: "ou", Value: "people"}}},
			{AVAs: []AVA{{Type: "dc", Value: "example"}}},
		}}, "uid=jdoe,ou=people,dc=example"},
		{"cn=John+sn=Doe,dc=x", DN{RDNs: []RDN{
			{AVAs: []AVA{{Type: "cn", Value: "John"}, {Type: "sn", Value: "Doe"}}},
			{AVAs: []AVA{{Type: "dc", Value: "x"}}},
		}}, "cn=John+sn=Doe,dc=x"},
		{`cn=Smith\, John,dc=x`, DN{RDNs: []RDN{
			{AVAs: []AVA{{Type: "cn", Value: "Smith, John"}}},
			{AVAs: []AVA{{Type: "dc", Value: "x"}}},
		}}, `cn=Smith\, John,dc=x`},
		{`cn=a\2Cb;dc=x`, DN{RDNs: []RDN{
			{AVAs: []AVA{{Type: "cn", Value: "a,b"}}},
			{AVAs: []AVA{{Type: "dc", Value: "x"}}},
		}}, `cn=a\,b,dc=x`},
		{`cn=\ lead`, DN{RDNs: []RDN{{AVAs: []AVA{{Type: "cn", Value: " lead"}}}}}, `cn=\ lead`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDN(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParseDN_Errors(t *testing.T) {
	for _, in := range []string{"cn", "=x", "cn=x,ou", "cn=x,,dc=y", `cn=x\`} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDN(in)
			assert.ErrorIs(t, err, ErrInvalidDN)
		})
	}
}

func TestDN_Navigation(t *testing.T) {
	dn := mustDN(t, "uid=a,ou=people,dc=example")
	assert.Equal(t, "ou=people,dc=example", dn.Parent().String())
	assert.Equal(t, "uid=a", dn.RDN().String())
	assert.False(t, dn.IsRoot())
	assert.True(t, DN{}.IsRoot())
	assert.True(t, DN{}.Parent().IsRoot())
	assert.Empty(t, DN{}.RDN().AVAs)
}

func TestDefaultSchema(t *testing.T) {
	rs, err := DefaultSchema{}.ResolveSchema("dc=example")
	require.NoError(t, err)
	assert.Equal(t, "core", rs.Schema().Name())

	rdn, err := rs.DecodeRDN("cn=a+sn=b")
	require.NoError(t, err)
	assert.Len(t, rdn.AVAs, 2)

	_, err = rs.DecodeRDN("cn=a,dc=b")
	assert.ErrorIs(t, err, ErrInvalidDN)

	tests := []struct {
		input string
		want  AttributeDescription
		ok    bool
	}{
		{"cn", AttributeDescription{Type: "cn"}, true},
		{"userCertificate;binary", AttributeDescription{Type: "userCertificate", Options: []string{"binary"}}, true},
		{"2.5.4.3;lang-de;x", AttributeDescription{Type: "2.5.4.3", Options: []string{"lang-de", "x"}}, true},
		{"", AttributeDescription{}, false},
		{"cn;", AttributeDescription{}, false},
		{"c n", AttributeDescription{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := rs.DecodeAttributeDescription(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidAttributeDescription)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestResultCode(t *testing.T) {
	tests := []struct {
		code       ResultCode
		isError    bool
		clientSide bool
	}{
		{ResultSuccess, false, false},
		{ResultCompareTrue, false, false},
		{ResultNoSuchObject, true, false},
		{ResultCanceled, true, false},
		{ResultClientSideUserCancelled, true, true},
		{ResultClientSideTimeout, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.isError, tt.code.IsError())
			assert.Equal(t, tt.clientSide, tt.code.IsClientSide())
		})
	}
}
