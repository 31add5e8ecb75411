package protocol

import "github.com/KilimcininKorOglu/obarepl/internal/replication/common"

// HeartbeatMsg is published on an idle session so the peer knows it is
// alive.
type HeartbeatMsg struct{}

func (m *HeartbeatMsg) Type() MsgType { return MsgTypeHeartbeat }

func (m *HeartbeatMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeHeartbeat, m, v, emptyLayouts[HeartbeatMsg]())
}

func decodeHeartbeat(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeHeartbeat, v, emptyLayouts[HeartbeatMsg]())
}

func (*HeartbeatMsg) isMsg() {}

// StopMsg asks the peer to close the session gracefully.
type StopMsg struct{}

func (m *StopMsg) Type() MsgType { return MsgTypeStop }

func (m *StopMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeStop, m, v, emptyLayouts[StopMsg]())
}

func decodeStop(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeStop, v, emptyLayouts[StopMsg]())
}

func (*StopMsg) isMsg() {}

// ChangeTimeHeartbeatMsg carries the current time of a directory server as a
// CSN, so replicas can tell that no older change is still in flight.
type ChangeTimeHeartbeatMsg struct {
	CSN common.CSN
}

var ctHeartbeatLayouts = []layout[ChangeTimeHeartbeatMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *ChangeTimeHeartbeatMsg, _ Version) {
			b.AppendCSN(m.CSN)
		},
		decode: func(s *ByteArrayScanner, m *ChangeTimeHeartbeatMsg, _ Version) {
			m.CSN = s.CSN()
		},
	},
	{
		minVersion: V7,
		encode: func(b *ByteArrayBuilder, m *ChangeTimeHeartbeatMsg, _ Version) {
			b.AppendCSNBytes(m.CSN)
		},
		decode: func(s *ByteArrayScanner, m *ChangeTimeHeartbeatMsg, _ Version) {
			m.CSN = s.CSNBytes()
		},
	},
}

func (m *ChangeTimeHeartbeatMsg) Type() MsgType { return MsgTypeCTHeartbeat }

func (m *ChangeTimeHeartbeatMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeCTHeartbeat, m, v, ctHeartbeatLayouts)
}

func decodeChangeTimeHeartbeat(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeCTHeartbeat, v, ctHeartbeatLayouts)
}

func (*ChangeTimeHeartbeatMsg) isMsg() {}

// ReplicaOfflineMsg announces that a directory server went offline cleanly.
// CSN is the time it went offline. It exists from V8 only.
type ReplicaOfflineMsg struct {
	CSN common.CSN
}

var replicaOfflineLayouts = []layout[ReplicaOfflineMsg]{{
	minVersion: V8,
	encode: func(b *ByteArrayBuilder, m *ReplicaOfflineMsg, _ Version) {
		b.AppendCSNBytes(m.CSN)
	},
	decode: func(s *ByteArrayScanner, m *ReplicaOfflineMsg, _ Version) {
		m.CSN = s.CSNBytes()
	},
}}

func (m *ReplicaOfflineMsg) Type() MsgType { return MsgTypeReplicaOffline }

func (m *ReplicaOfflineMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeReplicaOffline, m, v, replicaOfflineLayouts)
}

func decodeReplicaOffline(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeReplicaOffline, v, replicaOfflineLayouts)
}

func (*ReplicaOfflineMsg) isMsg() {}
