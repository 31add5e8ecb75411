package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// StartSessionMsg is sent by a directory server once the handshake is done,
// to declare its status and assured replication configuration.
type StartSessionMsg struct {
	Status        common.ServerStatus
	Assured       bool
	AssuredMode   common.AssuredMode
	SafeDataLevel byte
	// RefURLs are the LDAP URLs clients are referred to while the server
	// is not available.
	RefURLs []string
	// ECLIncludes exist from V4, ECLIncludesForDeletes from V5.
	ECLIncludes           []string
	ECLIncludesForDeletes []string
}

func appendStartSessionBase(b *ByteArrayBuilder, m *StartSessionMsg) {
	b.AppendByte(byte(m.Status)).
		AppendBool(m.Assured).
		AppendByte(byte(m.AssuredMode)).
		AppendByte(m.SafeDataLevel)
}

func scanStartSessionBase(s *ByteArrayScanner, m *StartSessionMsg) {
	m.Status = common.ServerStatus(s.Byte())
	m.Assured = s.Bool()
	m.AssuredMode = common.AssuredMode(s.Byte())
	m.SafeDataLevel = s.Byte()
}

// Up to V3 the referral URLs run to the end of the PDU.
var startSessionLayouts = []layout[StartSessionMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *StartSessionMsg, _ Version) {
			appendStartSessionBase(b, m)
			for _, url := range m.RefURLs {
				b.AppendString(url)
			}
		},
		decode: func(s *ByteArrayScanner, m *StartSessionMsg, _ Version) {
			scanStartSessionBase(s, m)
			for !s.IsEmpty() && s.Err() == nil {
				m.RefURLs = append(m.RefURLs, s.String())
			}
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *StartSessionMsg, _ Version) {
			appendStartSessionBase(b, m)
			b.AppendStrings(m.RefURLs).AppendStrings(m.ECLIncludes)
		},
		decode: func(s *ByteArrayScanner, m *StartSessionMsg, _ Version) {
			scanStartSessionBase(s, m)
			m.RefURLs = s.Strings()
			m.ECLIncludes = s.Strings()
		},
	},
	{
		minVersion: V5,
		encode: func(b *ByteArrayBuilder, m *StartSessionMsg, _ Version) {
			appendStartSessionBase(b, m)
			b.AppendStrings(m.RefURLs).
				AppendStrings(m.ECLIncludes).
				AppendStrings(m.ECLIncludesForDeletes)
		},
		decode: func(s *ByteArrayScanner, m *StartSessionMsg, _ Version) {
			scanStartSessionBase(s, m)
			m.RefURLs = s.Strings()
			m.ECLIncludes = s.Strings()
			m.ECLIncludesForDeletes = s.Strings()
		},
	},
}

func (m *StartSessionMsg) Type() MsgType { return MsgTypeStartSession }

func (m *StartSessionMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeStartSession, m, v, startSessionLayouts)
}

func decodeStartSession(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeStartSession, v, startSessionLayouts)
}

func (*StartSessionMsg) isMsg() {}
