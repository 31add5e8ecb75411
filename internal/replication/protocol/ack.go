package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// AckMsg acknowledges an assured update. The flags and the failed server
// list aggregate the outcome across every server the update was forwarded
// to.
type AckMsg struct {
	CSN            common.CSN
	HasTimeout     bool
	HasWrongStatus bool
	HasReplayError bool
	FailedServers  []int
}

// NewAckMsg creates a clean ack for csn.
func NewAckMsg(csn common.CSN) *AckMsg {
	return &AckMsg{CSN: csn}
}

// Merge folds other into m: the flags are ORed and the failed servers of
// other not yet listed are appended in order.
func (m *AckMsg) Merge(other *AckMsg) {
	m.HasTimeout = m.HasTimeout || other.HasTimeout
	m.HasWrongStatus = m.HasWrongStatus || other.HasWrongStatus
	m.HasReplayError = m.HasReplayError || other.HasReplayError

	seen := make(map[int]bool, len(m.FailedServers))
	for _, id := range m.FailedServers {
		seen[id] = true
	}
	for _, id := range other.FailedServers {
		if !seen[id] {
			seen[id] = true
			m.FailedServers = append(m.FailedServers, id)
		}
	}
}

// HasErrors reports whether any flag is set.
func (m *AckMsg) HasErrors() bool {
	return m.HasTimeout || m.HasWrongStatus || m.HasReplayError
}

var ackLayouts = []layout[AckMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *AckMsg, _ Version) {
		b.AppendCSN(m.CSN).
			AppendBool(m.HasTimeout).
			AppendBool(m.HasWrongStatus).
			AppendBool(m.HasReplayError)
		for _, id := range m.FailedServers {
			AppendInt(b, id)
		}
	},
	decode: func(s *ByteArrayScanner, m *AckMsg, _ Version) {
		m.CSN = s.CSN()
		m.HasTimeout = s.Bool()
		m.HasWrongStatus = s.Bool()
		m.HasReplayError = s.Bool()
		for !s.IsEmpty() && s.Err() == nil {
			m.FailedServers = append(m.FailedServers, ScanInt[int](s))
		}
	},
}}

func (m *AckMsg) Type() MsgType { return MsgTypeAck }

func (m *AckMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeAck, m, v, ackLayouts)
}

func decodeAck(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeAck, v, ackLayouts)
}

func (*AckMsg) isMsg() {}
