package protocol

import (
	"fmt"
)

// MsgType is the leading byte of every replication PDU.
type MsgType byte

// Message types.
const (
	MsgTypeModifyV1                 MsgType = 1
	MsgTypeAddV1                    MsgType = 2
	MsgTypeDeleteV1                 MsgType = 3
	MsgTypeModifyDNV1               MsgType = 4
	MsgTypeAck                      MsgType = 5
	MsgTypeServerStartV1            MsgType = 6
	MsgTypeReplServerStartV1        MsgType = 7
	MsgTypeWindow                   MsgType = 8
	MsgTypeHeartbeat                MsgType = 9
	MsgTypeInitializeRequest        MsgType = 10
	MsgTypeInitializeTarget         MsgType = 11
	MsgTypeEntry                    MsgType = 12
	MsgTypeDone                     MsgType = 13
	MsgTypeError                    MsgType = 14
	MsgTypeWindowProbe              MsgType = 15
	MsgTypeReplServerInfoV1         MsgType = 16
	MsgTypeResetGenerationID        MsgType = 17
	MsgTypeReplServerMonitorRequest MsgType = 18
	MsgTypeReplServerMonitor        MsgType = 19
	MsgTypeServerStart              MsgType = 20
	MsgTypeReplServerStart          MsgType = 21
	MsgTypeModify                   MsgType = 22
	MsgTypeAdd                      MsgType = 23
	MsgTypeDelete                   MsgType = 24
	MsgTypeModifyDN                 MsgType = 25
	MsgTypeTopology                 MsgType = 26
	MsgTypeStartSession             MsgType = 27
	MsgTypeChangeStatus             MsgType = 28
	MsgTypeGenericUpdate            MsgType = 29
	MsgTypeStartECL                 MsgType = 30
	MsgTypeStartECLSession          MsgType = 31
	MsgTypeECLUpdate                MsgType = 32
	MsgTypeCTHeartbeat              MsgType = 33
	MsgTypeReplServerStartDS        MsgType = 34
	MsgTypeStop                     MsgType = 35
	MsgTypeInitializeRcvAck         MsgType = 36
	MsgTypeReplicaOffline           MsgType = 37
)

var msgTypeNames = map[MsgType]string{
	MsgTypeModifyV1:                 "MODIFY_V1",
	MsgTypeAddV1:                    "ADD_V1",
	MsgTypeDeleteV1:                 "DELETE_V1",
	MsgTypeModifyDNV1:               "MODIFYDN_V1",
	MsgTypeAck:                      "ACK",
	MsgTypeServerStartV1:            "SERVER_START_V1",
	MsgTypeReplServerStartV1:        "REPL_SERVER_START_V1",
	MsgTypeWindow:                   "WINDOW",
	MsgTypeHeartbeat:                "HEARTBEAT",
	MsgTypeInitializeRequest:        "INITIALIZE_REQUEST",
	MsgTypeInitializeTarget:         "INITIALIZE_TARGET",
	MsgTypeEntry:                    "ENTRY",
	MsgTypeDone:                     "DONE",
	MsgTypeError:                    "ERROR",
	MsgTypeWindowProbe:              "WINDOW_PROBE",
	MsgTypeReplServerInfoV1:         "REPL_SERVER_INFO_V1",
	MsgTypeResetGenerationID:        "RESET_GENERATION_ID",
	MsgTypeReplServerMonitorRequest: "REPL_SERVER_MONITOR_REQUEST",
	MsgTypeReplServerMonitor:        "REPL_SERVER_MONITOR",
	MsgTypeServerStart:              "SERVER_START",
	MsgTypeReplServerStart:          "REPL_SERVER_START",
	MsgTypeModify:                   "MODIFY",
	MsgTypeAdd:                      "ADD",
	MsgTypeDelete:                   "DELETE",
	MsgTypeModifyDN:                 "MODIFYDN",
	MsgTypeTopology:                 "TOPOLOGY",
	MsgTypeStartSession:             "START_SESSION",
	MsgTypeChangeStatus:             "CHANGE_STATUS",
	MsgTypeGenericUpdate:            "GENERIC_UPDATE",
	MsgTypeStartECL:                 "START_ECL",
	MsgTypeStartECLSession:          "START_ECL_SESSION",
	MsgTypeECLUpdate:                "ECL_UPDATE",
	MsgTypeCTHeartbeat:              "CT_HEARTBEAT",
	MsgTypeReplServerStartDS:        "REPL_SERVER_START_DS",
	MsgTypeStop:                     "STOP",
	MsgTypeInitializeRcvAck:         "INITIALIZE_RCV_ACK",
	MsgTypeReplicaOffline:           "REPLICA_OFFLINE",
}

// String returns the protocol name of the type.
func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MsgType(%d)", byte(t))
}

// Msg is a replication protocol message. The set of implementations is
// closed: every message type of this package and nothing else.
type Msg interface {
	// Type returns the message type written at the current protocol
	// version. Update messages written at V1 use their V1 tag instead.
	Type() MsgType
	// Bytes encodes the message for protocol version v.
	Bytes(v Version) ([]byte, error)

	isMsg()
}

// refusedLegacyTypes are V1 PDU types that have no translation to the
// current message model.
var refusedLegacyTypes = map[MsgType]bool{
	MsgTypeServerStartV1:    true,
	MsgTypeReplServerInfoV1: true,
}

type decodeFunc func(b []byte, v Version) (Msg, error)

var decoders map[MsgType]decodeFunc

func init() {
	decoders = map[MsgType]decodeFunc{
		MsgTypeModifyV1:                 decodeModify,
		MsgTypeAddV1:                    decodeAdd,
		MsgTypeDeleteV1:                 decodeDelete,
		MsgTypeModifyDNV1:               decodeModifyDN,
		MsgTypeModify:                   decodeModify,
		MsgTypeAdd:                      decodeAdd,
		MsgTypeDelete:                   decodeDelete,
		MsgTypeModifyDN:                 decodeModifyDN,
		MsgTypeAck:                      decodeAck,
		MsgTypeReplServerStartV1:        decodeReplServerStart,
		MsgTypeReplServerStart:          decodeReplServerStart,
		MsgTypeServerStart:              decodeServerStart,
		MsgTypeReplServerStartDS:        decodeReplServerStartDS,
		MsgTypeStartECL:                 decodeServerStartECL,
		MsgTypeStartSession:             decodeStartSession,
		MsgTypeStartECLSession:          decodeStartECLSession,
		MsgTypeWindow:                   decodeWindow,
		MsgTypeWindowProbe:              decodeWindowProbe,
		MsgTypeHeartbeat:                decodeHeartbeat,
		MsgTypeCTHeartbeat:              decodeChangeTimeHeartbeat,
		MsgTypeStop:                     decodeStop,
		MsgTypeReplicaOffline:           decodeReplicaOffline,
		MsgTypeInitializeRequest:        decodeInitializeRequest,
		MsgTypeInitializeTarget:         decodeInitializeTarget,
		MsgTypeInitializeRcvAck:         decodeInitializeRcvAck,
		MsgTypeEntry:                    decodeEntry,
		MsgTypeDone:                     decodeDone,
		MsgTypeError:                    decodeError,
		MsgTypeResetGenerationID:        decodeResetGenerationID,
		MsgTypeReplServerMonitorRequest: decodeMonitorRequest,
		MsgTypeReplServerMonitor:        decodeMonitor,
		MsgTypeTopology:                 decodeTopology,
		MsgTypeChangeStatus:             decodeChangeStatus,
		MsgTypeGenericUpdate:            decodeUpdate,
		MsgTypeECLUpdate:                decodeECLUpdate,
	}
}

// GenerateMsg decodes the PDU b received on a session speaking version v.
// The first byte selects the message type. Refused legacy types return a
// *NotSupportedOldVersionPDUError and unknown types ErrDataFormat.
func GenerateMsg(b []byte, v Version) (Msg, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty PDU", ErrDataFormat)
	}
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, byte(v))
	}
	t := MsgType(b[0])
	if refusedLegacyTypes[t] {
		return nil, &NotSupportedOldVersionPDUError{Type: t}
	}
	decode, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %d", ErrDataFormat, b[0])
	}
	return decode(b, v)
}

// encodeMsg writes the type byte followed by the body layout of table that
// applies to v.
func encodeMsg[T any](t MsgType, m *T, v Version, table []layout[T]) ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, byte(v))
	}
	l, ok := layoutFor(table, v)
	if !ok {
		return nil, versionError(t, v)
	}
	b := NewByteArrayBuilder(64)
	b.AppendByte(byte(t))
	l.encode(b, m, v)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return b.Bytes(), nil
}

// decodeMsg checks the type byte of data and reads the body layout of table
// that applies to v.
func decodeMsg[T any, P interface {
	*T
	Msg
}](data []byte, t MsgType, v Version, table []layout[T]) (Msg, error) {
	l, ok := layoutFor(table, v)
	if !ok {
		return nil, versionError(t, v)
	}
	s := NewByteArrayScanner(data)
	if got := MsgType(s.Byte()); got != t {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrDataFormat, t, got)
	}
	m := new(T)
	l.decode(s, m, v)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return P(m), nil
}

// anyVersion is the table entry start of bodies that never changed.
const anyVersion = V1
