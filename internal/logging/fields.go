package logging

// Field keys shared by the codec, client and replication loggers.
const (
	FieldRequestID = "request_id"
	FieldSession   = "session"
	FieldComponent = "component"
	FieldServerID  = "serverID"
	FieldPeerID    = "peerID"
	FieldRemote    = "remote"
	FieldMsgType   = "msgType"
	FieldCSN       = "csn"
	FieldError     = "error"
)

// leadingFields are written right after the message in text output, in
// this order. Remaining fields follow sorted by key.
var leadingFields = []string{
	FieldRequestID,
	FieldSession,
	FieldComponent,
	FieldServerID,
	FieldPeerID,
}

// shortenedFields hold UUIDs that text output cuts with ShortID.
var shortenedFields = map[string]bool{
	FieldRequestID: true,
	FieldSession:   true,
}
