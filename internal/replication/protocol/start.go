package protocol

import (
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// StartHeader is the header shared by the messages that open a session.
// Start messages are exchanged before the version is negotiated, so each
// one carries the version it was written at.
type StartHeader struct {
	// ProtocolVersion is the version the message was written at. It is set
	// on decode; Bytes always writes the version it is asked for.
	ProtocolVersion Version
	GenerationID    int64
	// GroupID is -1 when decoded from a V1 message.
	GroupID int8
}

func (h *StartHeader) startHeader() *StartHeader { return h }

// Start returns the header.
func (h StartHeader) Start() StartHeader { return h }

// StartEnvelope is implemented by the messages that open a session.
type StartEnvelope interface {
	Msg
	Start() StartHeader
}

// The V1 header has a zero separator after the version and no group ID.
var startHeaderLayouts = []layout[StartHeader]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, h *StartHeader, _ Version) {
			b.AppendByte(0)
			AppendInt(b, h.GenerationID)
		},
		decode: func(s *ByteArrayScanner, h *StartHeader, _ Version) {
			if sep := s.Byte(); s.Err() == nil && sep != 0 {
				s.fail("expected V1 header separator, got %#x", sep)
			}
			h.GenerationID = ScanInt[int64](s)
			h.GroupID = -1
		},
	},
	{
		minVersion: V2,
		encode: func(b *ByteArrayBuilder, h *StartHeader, _ Version) {
			AppendInt(b, h.GenerationID)
			b.AppendByte(byte(h.GroupID))
		},
		decode: func(s *ByteArrayScanner, h *StartHeader, _ Version) {
			h.GenerationID = ScanInt[int64](s)
			h.GroupID = s.Int8()
		},
	},
}

type startMsg[T any] interface {
	*T
	Msg
	startHeader() *StartHeader
}

// encodeStart writes tag, the version byte, the header layout for v and the
// body layout for v.
func encodeStart[T any, P startMsg[T]](tag MsgType, m P, v Version, table []layout[T]) ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, byte(v))
	}
	body, ok := layoutFor(table, v)
	if !ok {
		return nil, versionError(m.Type(), v)
	}
	hdr, _ := layoutFor(startHeaderLayouts, v)
	b := NewByteArrayBuilder(128)
	b.AppendByte(byte(tag)).AppendByte(byte(v))
	hdr.encode(b, m.startHeader(), v)
	body.encode(b, (*T)(m), v)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	return b.Bytes(), nil
}

// decodeStart reads a start message. The header and body layouts follow
// the embedded version byte, not the session version.
func decodeStart[T any, P startMsg[T]](data []byte, table []layout[T]) (Msg, error) {
	s := NewByteArrayScanner(data)
	t := MsgType(s.Byte())
	v := Version(s.Byte())
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	if !v.Valid() {
		return nil, fmt.Errorf("decode %s: %w: embedded version %d", t, ErrDataFormat, byte(v))
	}
	body, ok := layoutFor(table, v)
	if !ok {
		return nil, versionError(t, v)
	}
	hdr, _ := layoutFor(startHeaderLayouts, v)

	m := P(new(T))
	h := m.startHeader()
	h.ProtocolVersion = v
	hdr.decode(s, h, v)
	body.decode(s, (*T)(m), v)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return m, nil
}

// ServerStartMsg is sent by a directory server to open a session with a
// replication server.
type ServerStartMsg struct {
	StartHeader
	ServerID          int32
	ServerURL         string
	BaseDN            string
	MaxReceiveQueue   int32
	MaxReceiveDelay   int32
	MaxSendQueue      int32
	MaxSendDelay      int32
	WindowSize        int32
	HeartbeatInterval int64
	SSLEncryption     bool
	ServerState       *common.ServerState
}

var serverStartLayouts = []layout[ServerStartMsg]{{
	minVersion: V2,
	encode: func(b *ByteArrayBuilder, m *ServerStartMsg, _ Version) {
		b.AppendString(m.BaseDN)
		AppendInt(b, m.ServerID)
		b.AppendString(m.ServerURL)
		AppendInt(b, m.MaxReceiveQueue)
		AppendInt(b, m.MaxReceiveDelay)
		AppendInt(b, m.MaxSendQueue)
		AppendInt(b, m.MaxSendDelay)
		AppendInt(b, m.WindowSize)
		AppendInt(b, m.HeartbeatInterval)
		b.AppendBoolString(m.SSLEncryption)
		b.AppendServerState(m.ServerState)
	},
	decode: func(s *ByteArrayScanner, m *ServerStartMsg, _ Version) {
		m.BaseDN = s.String()
		m.ServerID = ScanInt[int32](s)
		m.ServerURL = s.String()
		m.MaxReceiveQueue = ScanInt[int32](s)
		m.MaxReceiveDelay = ScanInt[int32](s)
		m.MaxSendQueue = ScanInt[int32](s)
		m.MaxSendDelay = ScanInt[int32](s)
		m.WindowSize = ScanInt[int32](s)
		m.HeartbeatInterval = ScanInt[int64](s)
		m.SSLEncryption = s.BoolString()
		m.ServerState = s.ServerState()
	},
}}

func (m *ServerStartMsg) Type() MsgType { return MsgTypeServerStart }

func (m *ServerStartMsg) Bytes(v Version) ([]byte, error) {
	return encodeStart(MsgTypeServerStart, m, v, serverStartLayouts)
}

func decodeServerStart(b []byte, _ Version) (Msg, error) {
	return decodeStart[ServerStartMsg](b, serverStartLayouts)
}

func (*ServerStartMsg) isMsg() {}

// ReplServerStartMsg is sent by a replication server to open a session, or
// in answer to a ServerStartMsg.
type ReplServerStartMsg struct {
	StartHeader
	ServerID      int32
	ServerURL     string
	BaseDN        string
	WindowSize    int32
	SSLEncryption bool
	// DegradedStatusThreshold is the queue size above which a directory
	// server is put in degraded status. It is -1 when decoded from V1.
	DegradedStatusThreshold int32
	ServerState             *common.ServerState
}

var replServerStartLayouts = []layout[ReplServerStartMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *ReplServerStartMsg, _ Version) {
			b.AppendString(m.BaseDN)
			AppendInt(b, m.ServerID)
			b.AppendString(m.ServerURL)
			AppendInt(b, m.WindowSize)
			b.AppendBoolString(m.SSLEncryption)
			b.AppendServerState(m.ServerState)
		},
		decode: func(s *ByteArrayScanner, m *ReplServerStartMsg, _ Version) {
			m.BaseDN = s.String()
			m.ServerID = ScanInt[int32](s)
			m.ServerURL = s.String()
			m.WindowSize = ScanInt[int32](s)
			m.SSLEncryption = s.BoolString()
			m.DegradedStatusThreshold = -1
			m.ServerState = s.ServerState()
		},
	},
	{
		minVersion: V2,
		encode: func(b *ByteArrayBuilder, m *ReplServerStartMsg, _ Version) {
			b.AppendString(m.BaseDN)
			AppendInt(b, m.ServerID)
			b.AppendString(m.ServerURL)
			AppendInt(b, m.WindowSize)
			b.AppendBoolString(m.SSLEncryption)
			AppendInt(b, m.DegradedStatusThreshold)
			b.AppendServerState(m.ServerState)
		},
		decode: func(s *ByteArrayScanner, m *ReplServerStartMsg, _ Version) {
			m.BaseDN = s.String()
			m.ServerID = ScanInt[int32](s)
			m.ServerURL = s.String()
			m.WindowSize = ScanInt[int32](s)
			m.SSLEncryption = s.BoolString()
			m.DegradedStatusThreshold = ScanInt[int32](s)
			m.ServerState = s.ServerState()
		},
	},
}

func (m *ReplServerStartMsg) Type() MsgType { return MsgTypeReplServerStart }

func (m *ReplServerStartMsg) Bytes(v Version) ([]byte, error) {
	tag := MsgTypeReplServerStart
	if v == V1 {
		tag = MsgTypeReplServerStartV1
	}
	return encodeStart(tag, m, v, replServerStartLayouts)
}

func decodeReplServerStart(b []byte, _ Version) (Msg, error) {
	return decodeStart[ReplServerStartMsg](b, replServerStartLayouts)
}

func (*ReplServerStartMsg) isMsg() {}

// ReplServerStartDSMsg is the answer of a replication server to a
// directory server. It describes the replication server's load so the
// directory server can pick the best one.
type ReplServerStartDSMsg struct {
	StartHeader
	ServerID                int32
	ServerURL               string
	BaseDN                  string
	WindowSize              int32
	SSLEncryption           bool
	DegradedStatusThreshold int32
	Weight                  int32
	ConnectedDSNumber       int32
}

var replServerStartDSLayouts = []layout[ReplServerStartDSMsg]{{
	minVersion: V4,
	encode: func(b *ByteArrayBuilder, m *ReplServerStartDSMsg, _ Version) {
		b.AppendString(m.BaseDN)
		AppendInt(b, m.ServerID)
		b.AppendString(m.ServerURL)
		AppendInt(b, m.WindowSize)
		b.AppendBoolString(m.SSLEncryption)
		AppendInt(b, m.DegradedStatusThreshold)
		AppendInt(b, m.Weight)
		AppendInt(b, m.ConnectedDSNumber)
	},
	decode: func(s *ByteArrayScanner, m *ReplServerStartDSMsg, _ Version) {
		m.BaseDN = s.String()
		m.ServerID = ScanInt[int32](s)
		m.ServerURL = s.String()
		m.WindowSize = ScanInt[int32](s)
		m.SSLEncryption = s.BoolString()
		m.DegradedStatusThreshold = ScanInt[int32](s)
		m.Weight = ScanInt[int32](s)
		m.ConnectedDSNumber = ScanInt[int32](s)
	},
}}

func (m *ReplServerStartDSMsg) Type() MsgType { return MsgTypeReplServerStartDS }

func (m *ReplServerStartDSMsg) Bytes(v Version) ([]byte, error) {
	return encodeStart(MsgTypeReplServerStartDS, m, v, replServerStartDSLayouts)
}

func decodeReplServerStartDS(b []byte, _ Version) (Msg, error) {
	return decodeStart[ReplServerStartDSMsg](b, replServerStartDSLayouts)
}

func (*ReplServerStartDSMsg) isMsg() {}

// ServerStartECLMsg opens a session for reading the external change log.
type ServerStartECLMsg struct {
	StartHeader
	ServerURL         string
	MaxReceiveQueue   int32
	MaxReceiveDelay   int32
	MaxSendQueue      int32
	MaxSendDelay      int32
	WindowSize        int32
	HeartbeatInterval int64
	SSLEncryption     bool
	ServerState       *common.ServerState
}

var serverStartECLLayouts = []layout[ServerStartECLMsg]{{
	minVersion: V4,
	encode: func(b *ByteArrayBuilder, m *ServerStartECLMsg, _ Version) {
		b.AppendString(m.ServerURL)
		AppendInt(b, m.MaxReceiveQueue)
		AppendInt(b, m.MaxReceiveDelay)
		AppendInt(b, m.MaxSendQueue)
		AppendInt(b, m.MaxSendDelay)
		AppendInt(b, m.WindowSize)
		AppendInt(b, m.HeartbeatInterval)
		b.AppendBoolString(m.SSLEncryption)
		b.AppendServerState(m.ServerState)
	},
	decode: func(s *ByteArrayScanner, m *ServerStartECLMsg, _ Version) {
		m.ServerURL = s.String()
		m.MaxReceiveQueue = ScanInt[int32](s)
		m.MaxReceiveDelay = ScanInt[int32](s)
		m.MaxSendQueue = ScanInt[int32](s)
		m.MaxSendDelay = ScanInt[int32](s)
		m.WindowSize = ScanInt[int32](s)
		m.HeartbeatInterval = ScanInt[int64](s)
		m.SSLEncryption = s.BoolString()
		m.ServerState = s.ServerState()
	},
}}

func (m *ServerStartECLMsg) Type() MsgType { return MsgTypeStartECL }

func (m *ServerStartECLMsg) Bytes(v Version) ([]byte, error) {
	return encodeStart(MsgTypeStartECL, m, v, serverStartECLLayouts)
}

func decodeServerStartECL(b []byte, _ Version) (Msg, error) {
	return decodeStart[ServerStartECLMsg](b, serverStartECLLayouts)
}

func (*ServerStartECLMsg) isMsg() {}
