package protocol

// Routing addresses a message to one server of the topology. It is carried
// by the total update and monitoring messages.
type Routing struct {
	SenderID      int32
	DestinationID int32
}

func (r *Routing) appendTo(b *ByteArrayBuilder) {
	AppendInt(b, r.SenderID)
	AppendInt(b, r.DestinationID)
}

func (r *Routing) scanFrom(s *ByteArrayScanner) {
	r.SenderID = ScanInt[int32](s)
	r.DestinationID = ScanInt[int32](s)
}

// InitializeRequestMsg asks a server to export its data for a total update
// of the sender.
type InitializeRequestMsg struct {
	Routing
	BaseDN string
	// InitWindow is the number of entries the requester accepts before
	// acknowledging. From V4.
	InitWindow int32
}

var initializeRequestLayouts = []layout[InitializeRequestMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *InitializeRequestMsg, _ Version) {
			b.AppendString(m.BaseDN)
			m.Routing.appendTo(b)
		},
		decode: func(s *ByteArrayScanner, m *InitializeRequestMsg, _ Version) {
			m.BaseDN = s.String()
			m.Routing.scanFrom(s)
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *InitializeRequestMsg, _ Version) {
			b.AppendString(m.BaseDN)
			m.Routing.appendTo(b)
			AppendInt(b, m.InitWindow)
		},
		decode: func(s *ByteArrayScanner, m *InitializeRequestMsg, _ Version) {
			m.BaseDN = s.String()
			m.Routing.scanFrom(s)
			m.InitWindow = ScanInt[int32](s)
		},
	},
}

func (m *InitializeRequestMsg) Type() MsgType { return MsgTypeInitializeRequest }

func (m *InitializeRequestMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeInitializeRequest, m, v, initializeRequestLayouts)
}

func decodeInitializeRequest(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeInitializeRequest, v, initializeRequestLayouts)
}

func (*InitializeRequestMsg) isMsg() {}

// InitializeTargetMsg announces a total update to its target. It is
// followed by EntryCount EntryMsgs and a DoneMsg.
type InitializeTargetMsg struct {
	Routing
	BaseDN      string
	InitiatorID int32
	EntryCount  int64
	InitWindow  int32
}

// The destination comes first, ahead of the base DN and the sender.
var initializeTargetLayouts = []layout[InitializeTargetMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *InitializeTargetMsg, _ Version) {
			AppendInt(b, m.DestinationID)
			b.AppendString(m.BaseDN)
			AppendInt(b, m.SenderID)
			AppendInt(b, m.InitiatorID)
			AppendInt(b, m.EntryCount)
		},
		decode: func(s *ByteArrayScanner, m *InitializeTargetMsg, _ Version) {
			m.DestinationID = ScanInt[int32](s)
			m.BaseDN = s.String()
			m.SenderID = ScanInt[int32](s)
			m.InitiatorID = ScanInt[int32](s)
			m.EntryCount = ScanInt[int64](s)
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *InitializeTargetMsg, _ Version) {
			AppendInt(b, m.DestinationID)
			b.AppendString(m.BaseDN)
			AppendInt(b, m.SenderID)
			AppendInt(b, m.InitiatorID)
			AppendInt(b, m.EntryCount)
			AppendInt(b, m.InitWindow)
		},
		decode: func(s *ByteArrayScanner, m *InitializeTargetMsg, _ Version) {
			m.DestinationID = ScanInt[int32](s)
			m.BaseDN = s.String()
			m.SenderID = ScanInt[int32](s)
			m.InitiatorID = ScanInt[int32](s)
			m.EntryCount = ScanInt[int64](s)
			m.InitWindow = ScanInt[int32](s)
		},
	},
}

func (m *InitializeTargetMsg) Type() MsgType { return MsgTypeInitializeTarget }

func (m *InitializeTargetMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeInitializeTarget, m, v, initializeTargetLayouts)
}

func decodeInitializeTarget(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeInitializeTarget, v, initializeTargetLayouts)
}

func (*InitializeTargetMsg) isMsg() {}

// InitializeRcvAckMsg acknowledges NumAck entries of a total update.
type InitializeRcvAckMsg struct {
	Routing
	NumAck int32
}

var initializeRcvAckLayouts = []layout[InitializeRcvAckMsg]{{
	minVersion: V4,
	encode: func(b *ByteArrayBuilder, m *InitializeRcvAckMsg, _ Version) {
		m.Routing.appendTo(b)
		AppendInt(b, m.NumAck)
	},
	decode: func(s *ByteArrayScanner, m *InitializeRcvAckMsg, _ Version) {
		m.Routing.scanFrom(s)
		m.NumAck = ScanInt[int32](s)
	},
}}

func (m *InitializeRcvAckMsg) Type() MsgType { return MsgTypeInitializeRcvAck }

func (m *InitializeRcvAckMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeInitializeRcvAck, m, v, initializeRcvAckLayouts)
}

func decodeInitializeRcvAck(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeInitializeRcvAck, v, initializeRcvAckLayouts)
}

func (*InitializeRcvAckMsg) isMsg() {}

// EntryMsg carries one LDIF entry of a total update.
type EntryMsg struct {
	Routing
	// MsgID numbers the entries of an update from 1. From V4.
	MsgID int32
	Entry []byte
}

// The entry is followed by a zero byte.
var entryLayouts = []layout[EntryMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *EntryMsg, _ Version) {
			m.Routing.appendTo(b)
			b.AppendRaw(m.Entry).AppendByte(0)
		},
		decode: func(s *ByteArrayScanner, m *EntryMsg, _ Version) {
			m.Routing.scanFrom(s)
			m.Entry = copyBytes(zeroTerminatedRest(s))
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *EntryMsg, _ Version) {
			m.Routing.appendTo(b)
			AppendInt(b, m.MsgID)
			b.AppendRaw(m.Entry).AppendByte(0)
		},
		decode: func(s *ByteArrayScanner, m *EntryMsg, _ Version) {
			m.Routing.scanFrom(s)
			m.MsgID = ScanInt[int32](s)
			m.Entry = copyBytes(zeroTerminatedRest(s))
		},
	},
}

func (m *EntryMsg) Type() MsgType { return MsgTypeEntry }

func (m *EntryMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeEntry, m, v, entryLayouts)
}

func decodeEntry(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeEntry, v, entryLayouts)
}

func (*EntryMsg) isMsg() {}

// DoneMsg ends a total update.
type DoneMsg struct {
	Routing
}

var doneLayouts = []layout[DoneMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *DoneMsg, _ Version) {
		m.Routing.appendTo(b)
	},
	decode: func(s *ByteArrayScanner, m *DoneMsg, _ Version) {
		m.Routing.scanFrom(s)
	},
}}

func (m *DoneMsg) Type() MsgType { return MsgTypeDone }

func (m *DoneMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeDone, m, v, doneLayouts)
}

func decodeDone(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeDone, v, doneLayouts)
}

func (*DoneMsg) isMsg() {}

// ErrorMsg reports a failure to the sender of a routed message, typically
// during a total update.
type ErrorMsg struct {
	Routing
	// MsgID identifies the error.
	MsgID   int64
	Details string
	// CreationTime is in milliseconds since the Unix epoch. From V4.
	CreationTime int64
}

var errorLayouts = []layout[ErrorMsg]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, m *ErrorMsg, _ Version) {
			m.Routing.appendTo(b)
			AppendInt(b, m.MsgID)
			b.AppendString(m.Details)
		},
		decode: func(s *ByteArrayScanner, m *ErrorMsg, _ Version) {
			m.Routing.scanFrom(s)
			m.MsgID = ScanInt[int64](s)
			m.Details = s.String()
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, m *ErrorMsg, _ Version) {
			m.Routing.appendTo(b)
			AppendInt(b, m.MsgID)
			b.AppendString(m.Details)
			AppendInt(b, m.CreationTime)
		},
		decode: func(s *ByteArrayScanner, m *ErrorMsg, _ Version) {
			m.Routing.scanFrom(s)
			m.MsgID = ScanInt[int64](s)
			m.Details = s.String()
			m.CreationTime = ScanInt[int64](s)
		},
	},
}

func (m *ErrorMsg) Type() MsgType { return MsgTypeError }

func (m *ErrorMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeError, m, v, errorLayouts)
}

func decodeError(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeError, v, errorLayouts)
}

func (*ErrorMsg) isMsg() {}

func copyBytes(p []byte) []byte {
	if len(p) == 0 {
		return nil
	}
	return append([]byte(nil), p...)
}
