package protocol

// WindowMsg grants the peer NumAck more update credits.
type WindowMsg struct {
	NumAck int32
}

var windowLayouts = []layout[WindowMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *WindowMsg, _ Version) {
		AppendInt(b, m.NumAck)
	},
	decode: func(s *ByteArrayScanner, m *WindowMsg, _ Version) {
		m.NumAck = ScanInt[int32](s)
	},
}}

func (m *WindowMsg) Type() MsgType { return MsgTypeWindow }

func (m *WindowMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeWindow, m, v, windowLayouts)
}

func decodeWindow(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeWindow, v, windowLayouts)
}

func (*WindowMsg) isMsg() {}

// WindowProbeMsg is sent by a sender out of credit to check that the peer
// is still alive. The peer answers with a WindowMsg.
type WindowProbeMsg struct{}

func (m *WindowProbeMsg) Type() MsgType { return MsgTypeWindowProbe }

func (m *WindowProbeMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeWindowProbe, m, v, emptyLayouts[WindowProbeMsg]())
}

func decodeWindowProbe(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeWindowProbe, v, emptyLayouts[WindowProbeMsg]())
}

func (*WindowProbeMsg) isMsg() {}

// emptyLayouts is the table of messages that consist of the type byte only.
func emptyLayouts[T any]() []layout[T] {
	return []layout[T]{{
		minVersion: anyVersion,
		encode:     func(*ByteArrayBuilder, *T, Version) {},
		decode:     func(*ByteArrayScanner, *T, Version) {},
	}}
}
