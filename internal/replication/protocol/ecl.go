package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// ECLRequestType selects where an external change log search starts.
type ECLRequestType byte

const (
	// ECLRequestFromCookie starts after the changes a cookie covers.
	ECLRequestFromCookie ECLRequestType = 0
	// ECLRequestFromChangeNumber starts at a change number.
	ECLRequestFromChangeNumber ECLRequestType = 1
	// ECLRequestEqualsReplicationCSN returns the change with one CSN.
	ECLRequestEqualsReplicationCSN ECLRequestType = 2
)

// ECLPersistence tells whether a change log search keeps running after
// returning the existing changes.
type ECLPersistence byte

const (
	ECLNonPersistent         ECLPersistence = 0
	ECLPersistent            ECLPersistence = 1
	ECLPersistentChangesOnly ECLPersistence = 2
)

// StartECLSessionMsg starts an external change log search on a session
// opened with ServerStartECLMsg.
type StartECLSessionMsg struct {
	RequestType       ECLRequestType
	FirstChangeNumber int64
	LastChangeNumber  int64
	CSN               common.CSN
	Persistent        ECLPersistence
	// CrossDomainServerState is the cookie of a cookie based search.
	CrossDomainServerState string
	OperationID            string
	ExcludedBaseDNs        []string
}

var startECLSessionLayouts = []layout[StartECLSessionMsg]{{
	minVersion: V4,
	encode: func(b *ByteArrayBuilder, m *StartECLSessionMsg, _ Version) {
		b.AppendByte(byte(m.RequestType))
		AppendInt(b, m.FirstChangeNumber)
		AppendInt(b, m.LastChangeNumber)
		b.AppendCSN(m.CSN).
			AppendByte(byte(m.Persistent)).
			AppendString(m.CrossDomainServerState).
			AppendString(m.OperationID).
			AppendStrings(m.ExcludedBaseDNs)
	},
	decode: func(s *ByteArrayScanner, m *StartECLSessionMsg, _ Version) {
		m.RequestType = ECLRequestType(s.Byte())
		m.FirstChangeNumber = ScanInt[int64](s)
		m.LastChangeNumber = ScanInt[int64](s)
		m.CSN = s.CSN()
		m.Persistent = ECLPersistence(s.Byte())
		m.CrossDomainServerState = s.String()
		m.OperationID = s.String()
		m.ExcludedBaseDNs = s.Strings()
	},
}}

func (m *StartECLSessionMsg) Type() MsgType { return MsgTypeStartECLSession }

func (m *StartECLSessionMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeStartECLSession, m, v, startECLSessionLayouts)
}

func decodeStartECLSession(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeStartECLSession, v, startECLSessionLayouts)
}

func (*StartECLSessionMsg) isMsg() {}

// ECLUpdateMsg returns one change of an external change log search: an
// LDAP update message with its change log position.
type ECLUpdateMsg struct {
	Cookie       string
	BaseDN       string
	ChangeNumber int64
	Update       UpdateEnvelope
}

var eclUpdateLayouts = []layout[ECLUpdateMsg]{{
	minVersion: V4,
	encode: func(b *ByteArrayBuilder, m *ECLUpdateMsg, v Version) {
		b.AppendString(m.Cookie).AppendString(m.BaseDN)
		AppendInt(b, m.ChangeNumber)
		if m.Update == nil {
			return
		}
		p, err := m.Update.Bytes(v)
		if err != nil {
			b.setErr(err)
			return
		}
		b.AppendRaw(p)
	},
	decode: func(s *ByteArrayScanner, m *ECLUpdateMsg, v Version) {
		m.Cookie = s.String()
		m.BaseDN = s.String()
		m.ChangeNumber = ScanInt[int64](s)
		rest := s.Rest()
		if s.Err() != nil || len(rest) == 0 {
			return
		}
		msg, err := GenerateMsg(rest, v)
		if err != nil {
			s.fail("embedded update: %v", err)
			return
		}
		update, ok := msg.(UpdateEnvelope)
		if !ok {
			s.fail("embedded %s is not an update", msg.Type())
			return
		}
		m.Update = update
	},
}}

func (m *ECLUpdateMsg) Type() MsgType { return MsgTypeECLUpdate }

func (m *ECLUpdateMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeECLUpdate, m, v, eclUpdateLayouts)
}

func decodeECLUpdate(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeECLUpdate, v, eclUpdateLayouts)
}

func (*ECLUpdateMsg) isMsg() {}
