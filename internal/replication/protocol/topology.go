package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// TopologyMsg describes every directory server and replication server of a
// replication domain. Replication servers send it to directory servers and
// to each other whenever the topology changes.
type TopologyMsg struct {
	DSInfos []common.DSInfo
	RSInfos []common.RSInfo
}

var dsInfoLayouts = []layout[common.DSInfo]{
	{
		minVersion: V1,
		encode:     appendDSInfoBase,
		decode:     scanDSInfoBase,
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, i *common.DSInfo, v Version) {
			appendDSInfoBase(b, i, v)
			b.AppendStrings(i.ECLIncludes)
			b.AppendString(i.URL)
		},
		decode: func(s *ByteArrayScanner, i *common.DSInfo, v Version) {
			scanDSInfoBase(s, i, v)
			i.ECLIncludes = s.Strings()
			i.URL = s.String()
		},
	},
	{
		minVersion: V5,
		encode: func(b *ByteArrayBuilder, i *common.DSInfo, v Version) {
			appendDSInfoBase(b, i, v)
			b.AppendStrings(i.ECLIncludes)
			b.AppendString(i.URL)
			b.AppendStrings(i.ECLIncludesForDeletes)
			AppendInt(b, i.ProtocolVersion)
		},
		decode: func(s *ByteArrayScanner, i *common.DSInfo, v Version) {
			scanDSInfoBase(s, i, v)
			i.ECLIncludes = s.Strings()
			i.URL = s.String()
			i.ECLIncludesForDeletes = s.Strings()
			i.ProtocolVersion = ScanInt[int16](s)
		},
	},
}

func appendDSInfoBase(b *ByteArrayBuilder, i *common.DSInfo, _ Version) {
	AppendInt(b, i.DSID)
	AppendInt(b, i.RSID)
	AppendInt(b, i.GenerationID)
	b.AppendByte(byte(i.Status)).
		AppendBool(i.Assured).
		AppendByte(byte(i.AssuredMode)).
		AppendByte(byte(i.SafeDataLevel)).
		AppendByte(byte(i.GroupID)).
		AppendStrings(i.RefURLs)
}

func scanDSInfoBase(s *ByteArrayScanner, i *common.DSInfo, _ Version) {
	i.DSID = ScanInt[int32](s)
	i.RSID = ScanInt[int32](s)
	i.GenerationID = ScanInt[int64](s)
	i.Status = common.ServerStatus(s.Byte())
	i.Assured = s.Bool()
	i.AssuredMode = common.AssuredMode(s.Byte())
	i.SafeDataLevel = s.Int8()
	i.GroupID = s.Int8()
	i.RefURLs = s.Strings()
}

var rsInfoLayouts = []layout[common.RSInfo]{
	{
		minVersion: V1,
		encode: func(b *ByteArrayBuilder, i *common.RSInfo, _ Version) {
			AppendInt(b, i.ID)
			AppendInt(b, i.GenerationID)
			b.AppendByte(byte(i.GroupID))
		},
		decode: func(s *ByteArrayScanner, i *common.RSInfo, _ Version) {
			i.ID = ScanInt[int32](s)
			i.GenerationID = ScanInt[int64](s)
			i.GroupID = s.Int8()
		},
	},
	{
		minVersion: V4,
		encode: func(b *ByteArrayBuilder, i *common.RSInfo, _ Version) {
			AppendInt(b, i.ID)
			AppendInt(b, i.GenerationID)
			b.AppendByte(byte(i.GroupID))
			AppendInt(b, i.Weight)
			b.AppendString(i.URL)
		},
		decode: func(s *ByteArrayScanner, i *common.RSInfo, _ Version) {
			i.ID = ScanInt[int32](s)
			i.GenerationID = ScanInt[int64](s)
			i.GroupID = s.Int8()
			i.Weight = ScanInt[int32](s)
			i.URL = s.String()
		},
	},
}

var topologyLayouts = []layout[TopologyMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *TopologyMsg, v Version) {
		ds, _ := layoutFor(dsInfoLayouts, v)
		if !b.AppendCount(len(m.DSInfos)) {
			return
		}
		for i := range m.DSInfos {
			ds.encode(b, &m.DSInfos[i], v)
		}
		rs, _ := layoutFor(rsInfoLayouts, v)
		if !b.AppendCount(len(m.RSInfos)) {
			return
		}
		for i := range m.RSInfos {
			rs.encode(b, &m.RSInfos[i], v)
		}
	},
	decode: func(s *ByteArrayScanner, m *TopologyMsg, v Version) {
		ds, _ := layoutFor(dsInfoLayouts, v)
		for n := int(s.Byte()); n > 0 && s.Err() == nil; n-- {
			var info common.DSInfo
			ds.decode(s, &info, v)
			m.DSInfos = append(m.DSInfos, info)
		}
		rs, _ := layoutFor(rsInfoLayouts, v)
		for n := int(s.Byte()); n > 0 && s.Err() == nil; n-- {
			var info common.RSInfo
			rs.decode(s, &info, v)
			m.RSInfos = append(m.RSInfos, info)
		}
	},
}}

func (m *TopologyMsg) Type() MsgType { return MsgTypeTopology }

func (m *TopologyMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeTopology, m, v, topologyLayouts)
}

func decodeTopology(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeTopology, v, topologyLayouts)
}

func (*TopologyMsg) isMsg() {}

// ChangeStatusMsg is exchanged between a directory server and its
// replication server when the directory server status changes. A
// replication server sets RequestedStatus; a directory server reports
// NewStatus.
type ChangeStatusMsg struct {
	RequestedStatus common.ServerStatus
	NewStatus       common.ServerStatus
}

var changeStatusLayouts = []layout[ChangeStatusMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *ChangeStatusMsg, _ Version) {
		b.AppendByte(byte(m.RequestedStatus)).AppendByte(byte(m.NewStatus))
	},
	decode: func(s *ByteArrayScanner, m *ChangeStatusMsg, _ Version) {
		m.RequestedStatus = common.ServerStatus(s.Byte())
		m.NewStatus = common.ServerStatus(s.Byte())
	},
}}

func (m *ChangeStatusMsg) Type() MsgType { return MsgTypeChangeStatus }

func (m *ChangeStatusMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeChangeStatus, m, v, changeStatusLayouts)
}

func decodeChangeStatus(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeChangeStatus, v, changeStatusLayouts)
}

func (*ChangeStatusMsg) isMsg() {}

// ResetGenerationIDMsg tells replication servers to adopt a new generation
// ID, typically after a total update.
type ResetGenerationIDMsg struct {
	GenerationID int64
}

var resetGenerationIDLayouts = []layout[ResetGenerationIDMsg]{{
	minVersion: anyVersion,
	encode: func(b *ByteArrayBuilder, m *ResetGenerationIDMsg, _ Version) {
		AppendInt(b, m.GenerationID)
	},
	decode: func(s *ByteArrayScanner, m *ResetGenerationIDMsg, _ Version) {
		m.GenerationID = ScanInt[int64](s)
	},
}}

func (m *ResetGenerationIDMsg) Type() MsgType { return MsgTypeResetGenerationID }

func (m *ResetGenerationIDMsg) Bytes(v Version) ([]byte, error) {
	return encodeMsg(MsgTypeResetGenerationID, m, v, resetGenerationIDLayouts)
}

func decodeResetGenerationID(b []byte, v Version) (Msg, error) {
	return decodeMsg(b, MsgTypeResetGenerationID, v, resetGenerationIDLayouts)
}

func (*ResetGenerationIDMsg) isMsg() {}
