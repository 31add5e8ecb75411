// Package session carries replication messages over a byte stream.
//
// Each PDU is framed by its length written as eight ASCII hex digits:
//
//	00000003 08 31 00    WindowMsg{NumAck: 1}
//
// A session starts with a handshake in which both sides exchange start
// messages and settle on the lower protocol version (Connect and Accept).
// After that the send side spends one SendWindow credit per update and the
// receive side returns credit through ReceiveWindow. HeartbeatPublisher
// keeps idle sessions alive and HeartbeatMonitor closes silent ones.
package session
