package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// MonitorRequestMsg asks a replication server for its monitoring data.
type MonitorRequestMsg struct {
	Routing
}

var monitorRequestLayouts = []layout[MonitorRequestMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *MonitorRequestMsg, _ Version) {
		m.Routing.appendTo(b)
	},
	decode: func(s *ByteArrayScanner, m *MonitorRequestMsg, _ Version) {
		m.Routing.scanFrom(s)
	},
}}

func (m *MonitorRequestMsg) Type() MsgType { return MsgTypeReplServerMonitorRequest }

func (m *MonitorRequestMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeReplServerMonitorRequest, m, v, monitorRequestLayouts)
}

func decodeMonitorRequest(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeReplServerMonitorRequest, v, monitorRequestLayouts)
}

func (*MonitorRequestMsg) isMsg() {}

// ServerMonitorData is the monitoring data of one server.
type ServerMonitorData struct {
	ServerID int32
	// ApproxFirstMissingDate is the time, in milliseconds since the Unix
	// epoch, of the oldest change the server has not received yet. Zero
	// means it is up to date.
	ApproxFirstMissingDate int64
	State                  *common.ServerState
}

// MonitorMsg answers a MonitorRequestMsg. After the routing fields the body
// is BER encoded:
//
//	SEQUENCE {
//	    replServerDBState  SEQUENCE OF OCTET STRING,
//	    ldapServers        SEQUENCE OF ServerData,
//	    replServers        SEQUENCE OF ServerData }
//
//	ServerData ::= SEQUENCE {
//	    serverID                INTEGER,
//	    approxFirstMissingDate  INTEGER,
//	    state                   SEQUENCE OF OCTET STRING }
//
// Each OCTET STRING holds a CSN in string form.
type MonitorMsg struct {
	Routing
	ReplServerDBState *common.ServerState
	LDAPServers       []ServerMonitorData
	ReplServers       []ServerMonitorData
}

var monitorLayouts = []layout[MonitorMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *MonitorMsg, _ Version) {
		m.Routing.appendTo(b)
		b.AppendRaw(encodeBER(b, m.writeBody))
	},
	decode: func(s *ByteArrayScanner, m *MonitorMsg, _ Version) {
		m.Routing.scanFrom(s)
		body := s.Rest()
		if s.Err() == nil && len(body) == 0 {
			s.fail("missing monitor body")
			return
		}
		decodeBER(s, body, m.readBody)
	},
}}

func (m *MonitorMsg) writeBody(w *ber.BEREncoder) error {
	pos := w.BeginSequence()
	if err := writeMonitorState(w, m.ReplServerDBState); err != nil {
		return err
	}
	for _, servers := range [][]ServerMonitorData{m.LDAPServers, m.ReplServers} {
		spos := w.BeginSequence()
		for _, data := range servers {
			dpos := w.BeginSequence()
			if err := w.WriteInteger(int64(data.ServerID)); err != nil {
				return err
			}
			if err := w.WriteInteger(data.ApproxFirstMissingDate); err != nil {
				return err
			}
			if err := writeMonitorState(w, data.State); err != nil {
				return err
			}
			if err := w.EndSequence(dpos); err != nil {
				return err
			}
		}
		if err := w.EndSequence(spos); err != nil {
			return err
		}
	}
	return w.EndSequence(pos)
}

func writeMonitorState(w *ber.BEREncoder, state *common.ServerState) error {
	pos := w.BeginSequence()
	if state != nil {
		for _, csn := range state.CSNs() {
			if err := w.WriteString(csn.String()); err != nil {
				return err
			}
		}
	}
	return w.EndSequence(pos)
}

func (m *MonitorMsg) readBody(r *ber.StreamReader) error {
	g, err := r.ReadStartSequence()
	if err != nil {
		return err
	}
	defer g.Close()

	if m.ReplServerDBState, err = readMonitorState(r); err != nil {
		return err
	}
	if m.LDAPServers, err = readServerMonitorData(r); err != nil {
		return err
	}
	if m.ReplServers, err = readServerMonitorData(r); err != nil {
		return err
	}
	return g.End()
}

func readServerMonitorData(r *ber.StreamReader) ([]ServerMonitorData, error) {
	g, err := r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer g.Close()

	var out []ServerMonitorData
	for r.HasNextElement() {
		dg, err := r.ReadStartSequence()
		if err != nil {
			return nil, err
		}
		var data ServerMonitorData
		id, err := r.ReadInteger()
		if err != nil {
			return nil, err
		}
		data.ServerID = int32(id)
		if data.ApproxFirstMissingDate, err = r.ReadInteger(); err != nil {
			return nil, err
		}
		if data.State, err = readMonitorState(r); err != nil {
			return nil, err
		}
		if err := dg.End(); err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, g.End()
}

func readMonitorState(r *ber.StreamReader) (*common.ServerState, error) {
	g, err := r.ReadStartSequence()
	if err != nil {
		return nil, err
	}
	defer g.Close()

	state := common.NewServerState()
	for r.HasNextElement() {
		str, err := r.ReadOctetStringAsString()
		if err != nil {
			return nil, err
		}
		csn, err := common.ParseCSN(str)
		if err != nil {
			return nil, err
		}
		state.Update(csn)
	}
	return state, g.End()
}

func (m *MonitorMsg) Type() MsgType { return MsgTypeReplServerMonitor }

func (m *MonitorMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeReplServerMonitor, m, v, monitorLayouts)
}

func decodeMonitor(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeReplServerMonitor, v, monitorLayouts)
}

func (*MonitorMsg) isMsg() {}
