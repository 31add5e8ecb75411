package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

var allVersions = []Version{V1, V2, V3, V4, V5, V6, V7, V8}

var (
	testCSN   = common.NewCSN(0x18c4f2a1b30, 7, 12)
	otherCSN  = common.NewCSN(0x18c4f2a1b31, 0, 3)
	eclAttrs  = []ldap.Attribute{{Type: "cn", Values: [][]byte{[]byte("John Doe")}}}
	entryAttr = []ldap.Attribute{
		{Type: "objectClass", Values: [][]byte{[]byte("top"), []byte("person")}},
		{Type: "sn", Values: [][]byte{[]byte("Doe")}},
	}
)

// assuredHeader holds values that survive a V1 round trip: V1 decoding
// always yields safe data with a level of one.
func assuredHeader() UpdateHeader {
	return UpdateHeader{CSN: testCSN, Assured: true, AssuredMode: common.SafeDataMode, SafeDataLevel: 1}
}

func ldapUpdate(dn string) LDAPUpdate {
	return LDAPUpdate{UpdateHeader: assuredHeader(), DN: dn, EntryUUID: "7b2a1c5e-1111-4c2b-9a0d-3f5e8d2c1b00"}
}

func modifyFor(v Version) *ModifyMsg {
	m := &ModifyMsg{LDAPUpdate: ldapUpdate("uid=jdoe,ou=people,dc=example,dc=com"), Mods: replaceDescription}
	if v >= V4 {
		m.ECLIncludes = eclAttrs
	}
	return m
}

func dsInfoFor(v Version) common.DSInfo {
	info := common.DSInfo{
		DSID:          1,
		RSID:          101,
		GenerationID:  4242,
		Status:        common.NormalStatus,
		Assured:       true,
		AssuredMode:   common.SafeReadMode,
		SafeDataLevel: 2,
		GroupID:       1,
		RefURLs:       []string{"ldap://ds1.example.com:389/dc=example,dc=com"},
	}
	if v >= V4 {
		info.ECLIncludes = []string{"cn", "sn"}
		info.URL = "ds1.example.com:1389"
	}
	if v >= V5 {
		info.ECLIncludesForDeletes = []string{"uid"}
		info.ProtocolVersion = int16(v)
	}
	return info
}

func rsInfoFor(v Version) common.RSInfo {
	info := common.RSInfo{ID: 101, GenerationID: 4242, GroupID: 1}
	if v >= V4 {
		info.Weight = 3
		info.URL = "rs1.example.com:8989"
	}
	return info
}

// Each case returns the message as it is expected back after a round trip
// at v. Cases are only run from minVersion; below it encoding must fail.
var roundTripCases = []struct {
	name       string
	minVersion Version
	msg        func(v Version) Msg
}{
	{"modify", V1, func(v Version) Msg { return modifyFor(v) }},
	{"add", V1, func(v Version) Msg {
		m := &AddMsg{LDAPUpdate: ldapUpdate("uid=jdoe,ou=people,dc=example,dc=com"), ParentEntryUUID: "parent-uuid", Attributes: entryAttr}
		if v >= V4 {
			m.ECLIncludes = eclAttrs
		}
		return m
	}},
	{"delete", V1, func(v Version) Msg {
		m := &DeleteMsg{LDAPUpdate: ldapUpdate("uid=jdoe,ou=people,dc=example,dc=com")}
		if v >= V4 {
			m.InitiatorsName = "cn=Directory Manager"
			m.ECLIncludes = eclAttrs
			m.IsSubtreeDelete = true
		}
		return m
	}},
	{"modify DN", V1, func(v Version) Msg {
		m := &ModifyDNMsg{
			LDAPUpdate:   ldapUpdate("uid=jdoe,ou=people,dc=example,dc=com"),
			NewRDN:       "uid=john",
			NewSuperior:  "ou=staff,dc=example,dc=com",
			DeleteOldRDN: true,
		}
		if v >= V2 {
			m.NewSuperiorEntryUUID = "staff-uuid"
			m.Mods = replaceDescription
		}
		if v >= V4 {
			m.ECLIncludes = eclAttrs
		}
		return m
	}},
	{"generic update", V1, func(Version) Msg {
		return &UpdateMsg{
			UpdateHeader: UpdateHeader{CSN: testCSN, Assured: true, AssuredMode: common.SafeReadMode},
			Payload:      []byte{0x00, 0x01, 0xfe},
		}
	}},
	{"ack", V1, func(Version) Msg {
		return &AckMsg{CSN: testCSN, HasWrongStatus: true, FailedServers: []int{3, 7}}
	}},
	{"ack timeout and replay error", V1, func(Version) Msg {
		return &AckMsg{CSN: testCSN, HasTimeout: true, HasReplayError: true, FailedServers: []int{3, 7}}
	}},
	{"ack without failures", V1, func(Version) Msg { return &AckMsg{CSN: testCSN} }},
	{"window", V1, func(Version) Msg { return &WindowMsg{NumAck: 100} }},
	{"window probe", V1, func(Version) Msg { return &WindowProbeMsg{} }},
	{"heartbeat", V1, func(Version) Msg { return &HeartbeatMsg{} }},
	{"stop", V1, func(Version) Msg { return &StopMsg{} }},
	{"change time heartbeat", V1, func(Version) Msg { return &ChangeTimeHeartbeatMsg{CSN: testCSN} }},
	{"replica offline", V8, func(Version) Msg { return &ReplicaOfflineMsg{CSN: testCSN} }},
	{"server start", V2, func(v Version) Msg {
		return &ServerStartMsg{
			StartHeader:       StartHeader{ProtocolVersion: v, GenerationID: -1, GroupID: 1},
			ServerID:          12,
			ServerURL:         "ds1.example.com:1389",
			BaseDN:            "dc=example,dc=com",
			MaxReceiveQueue:   10000,
			MaxReceiveDelay:   5,
			MaxSendQueue:      20000,
			MaxSendDelay:      6,
			WindowSize:        100,
			HeartbeatInterval: 10000,
			ServerState:       newState(testCSN, otherCSN),
		}
	}},
	{"replication server start", V1, func(v Version) Msg {
		m := &ReplServerStartMsg{
			StartHeader:             StartHeader{ProtocolVersion: v, GenerationID: 4242, GroupID: 2},
			ServerID:                101,
			ServerURL:               "rs1.example.com:8989",
			BaseDN:                  "dc=example,dc=com",
			WindowSize:              100,
			SSLEncryption:           true,
			DegradedStatusThreshold: 5000,
			ServerState:             newState(testCSN),
		}
		if v == V1 {
			m.GroupID = -1
			m.DegradedStatusThreshold = -1
		}
		return m
	}},
	{"replication server start for DS", V4, func(v Version) Msg {
		return &ReplServerStartDSMsg{
			StartHeader:             StartHeader{ProtocolVersion: v, GenerationID: 4242, GroupID: 2},
			ServerID:                101,
			ServerURL:               "rs1.example.com:8989",
			BaseDN:                  "dc=example,dc=com",
			WindowSize:              100,
			DegradedStatusThreshold: 5000,
			Weight:                  3,
			ConnectedDSNumber:       2,
		}
	}},
	{"server start ECL", V4, func(v Version) Msg {
		return &ServerStartECLMsg{
			StartHeader:       StartHeader{ProtocolVersion: v, GenerationID: 0, GroupID: 1},
			ServerURL:         "ds1.example.com:1389",
			MaxReceiveQueue:   1,
			MaxReceiveDelay:   2,
			MaxSendQueue:      3,
			MaxSendDelay:      4,
			WindowSize:        100,
			HeartbeatInterval: 2000,
			SSLEncryption:     true,
			ServerState:       newState(),
		}
	}},
	{"start session", V1, func(v Version) Msg {
		m := &StartSessionMsg{
			Status:        common.NormalStatus,
			Assured:       true,
			AssuredMode:   common.SafeReadMode,
			SafeDataLevel: 1,
			RefURLs:       []string{"ldap://ds1.example.com:389/dc=example,dc=com"},
		}
		if v >= V4 {
			m.ECLIncludes = []string{"cn"}
		}
		if v >= V5 {
			m.ECLIncludesForDeletes = []string{"uid", "mail"}
		}
		return m
	}},
	{"start ECL session", V4, func(Version) Msg {
		return &StartECLSessionMsg{
			RequestType:            ECLRequestFromChangeNumber,
			FirstChangeNumber:      10,
			LastChangeNumber:       -1,
			CSN:                    testCSN,
			Persistent:             ECLPersistentChangesOnly,
			CrossDomainServerState: "dc=example,dc=com:0000018c4f2a1b30000c00000007;",
			OperationID:            "conn=3 op=5",
			ExcludedBaseDNs:        []string{"cn=admin data", "cn=schema"},
		}
	}},
	{"ECL update", V4, func(v Version) Msg {
		return &ECLUpdateMsg{
			Cookie:       "dc=example,dc=com:0000018c4f2a1b30000c00000007;",
			BaseDN:       "dc=example,dc=com",
			ChangeNumber: 42,
			Update:       modifyFor(v),
		}
	}},
	{"topology", V1, func(v Version) Msg {
		return &TopologyMsg{
			DSInfos: []common.DSInfo{dsInfoFor(v)},
			RSInfos: []common.RSInfo{rsInfoFor(v)},
		}
	}},
	{"change status", V1, func(Version) Msg {
		return &ChangeStatusMsg{RequestedStatus: common.DegradedStatus, NewStatus: common.FullUpdateStatus}
	}},
	{"reset generation ID", V1, func(Version) Msg { return &ResetGenerationIDMsg{GenerationID: -1} }},
	{"initialize request", V1, func(v Version) Msg {
		m := &InitializeRequestMsg{Routing: Routing{SenderID: 12, DestinationID: 13}, BaseDN: "dc=example,dc=com"}
		if v >= V4 {
			m.InitWindow = 100
		}
		return m
	}},
	{"initialize target", V1, func(v Version) Msg {
		m := &InitializeTargetMsg{
			Routing:     Routing{SenderID: 13, DestinationID: 12},
			BaseDN:      "dc=example,dc=com",
			InitiatorID: 12,
			EntryCount:  100000,
		}
		if v >= V4 {
			m.InitWindow = 100
		}
		return m
	}},
	{"initialize receive ack", V4, func(Version) Msg {
		return &InitializeRcvAckMsg{Routing: Routing{SenderID: 12, DestinationID: 13}, NumAck: 50}
	}},
	{"entry", V1, func(v Version) Msg {
		m := &EntryMsg{Routing: Routing{SenderID: 13, DestinationID: 12}, Entry: []byte("dn: dc=example,dc=com\ndc: example\n\n")}
		if v >= V4 {
			m.MsgID = 1
		}
		return m
	}},
	{"done", V1, func(Version) Msg { return &DoneMsg{Routing: Routing{SenderID: 13, DestinationID: 12}} }},
	{"error", V1, func(v Version) Msg {
		m := &ErrorMsg{Routing: Routing{SenderID: 13, DestinationID: 12}, MsgID: 3, Details: "no such suffix"}
		if v >= V4 {
			m.CreationTime = 1700000000000
		}
		return m
	}},
	{"monitor request", V1, func(Version) Msg {
		return &MonitorRequestMsg{Routing: Routing{SenderID: 12, DestinationID: 101}}
	}},
	{"monitor", V1, func(Version) Msg {
		return &MonitorMsg{
			Routing:           Routing{SenderID: 101, DestinationID: 12},
			ReplServerDBState: newState(testCSN, otherCSN),
			LDAPServers: []ServerMonitorData{
				{ServerID: 12, ApproxFirstMissingDate: 1700000000000, State: newState(testCSN)},
				{ServerID: 3, State: newState()},
			},
			ReplServers: []ServerMonitorData{{ServerID: 102, State: newState(otherCSN)}},
		}
	}},
}

func TestMsg_RoundTrip(t *testing.T) {
	for _, tt := range roundTripCases {
		for _, v := range allVersions {
			t.Run(tt.name+"/"+v.String(), func(t *testing.T) {
				m := tt.msg(v)
				pdu, err := m.Bytes(v)
				if v < tt.minVersion {
					assert.ErrorIs(t, err, ErrVersionUnsupported)
					return
				}
				require.NoError(t, err)

				got, err := GenerateMsg(pdu, v)
				require.NoError(t, err)
				assert.Equal(t, m, got)
			})
		}
	}
}

func TestMsg_TypeByte(t *testing.T) {
	updates := []struct {
		msg    Msg
		v1Type MsgType
	}{
		{modifyFor(V1), MsgTypeModifyV1},
		{&AddMsg{LDAPUpdate: ldapUpdate("dc=example,dc=com")}, MsgTypeAddV1},
		{&DeleteMsg{LDAPUpdate: ldapUpdate("dc=example,dc=com")}, MsgTypeDeleteV1},
		{&ModifyDNMsg{LDAPUpdate: ldapUpdate("dc=example,dc=com"), NewRDN: "dc=other"}, MsgTypeModifyDNV1},
	}
	for _, tt := range updates {
		t.Run(tt.msg.Type().String(), func(t *testing.T) {
			pdu, err := tt.msg.Bytes(V1)
			require.NoError(t, err)
			assert.Equal(t, byte(tt.v1Type), pdu[0])

			pdu, err = tt.msg.Bytes(V2)
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(tt.msg.Type()), byte(V2)}, pdu[:2])
		})
	}

	pdu, err := (&ReplServerStartMsg{ServerState: newState()}).Bytes(V1)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(MsgTypeReplServerStartV1), byte(V1), 0x00}, pdu[:3])
}

func TestGenerateMsg_Errors(t *testing.T) {
	tests := []struct {
		name    string
		pdu     []byte
		version Version
		wantErr error
	}{
		{"empty", nil, V8, ErrDataFormat},
		{"unknown type", []byte{99}, V8, ErrDataFormat},
		{"zero type", []byte{0}, V8, ErrDataFormat},
		{"invalid version", []byte{byte(MsgTypeWindow), '1', 0}, Version(9), ErrInvalidVersion},
		{"truncated window", []byte{byte(MsgTypeWindow), '1', '0'}, V8, ErrDataFormat},
		{"window not a number", []byte{byte(MsgTypeWindow), 'x', 0}, V8, ErrDataFormat},
		{"window overflow", append([]byte{byte(MsgTypeWindow)}, "9999999999\x00"...), V8, ErrDataFormat},
		{"truncated ack", append([]byte{byte(MsgTypeAck)}, testCSN.String()...), V8, ErrDataFormat},
		{"bad CSN", append([]byte{byte(MsgTypeAck)}, "zz\x00\x00\x00\x00"...), V8, ErrDataFormat},
		{"start without version", []byte{byte(MsgTypeServerStart)}, V8, ErrDataFormat},
		{"start with invalid version", []byte{byte(MsgTypeServerStart), 0, '1', 0}, V8, ErrDataFormat},
		{"server start at V1", []byte{byte(MsgTypeServerStart), byte(V1), 0, '1', 0}, V8, ErrVersionUnsupported},
		{"update with V1 embedded version", []byte{byte(MsgTypeModify), byte(V1)}, V8, ErrDataFormat},
		{"replica offline at V7", append([]byte{byte(MsgTypeReplicaOffline)}, testCSN.Bytes()...), V7, ErrVersionUnsupported},
		{"short binary CSN", []byte{byte(MsgTypeCTHeartbeat), 1, 2, 3}, V8, ErrDataFormat},
		{"change status truncated", []byte{byte(MsgTypeChangeStatus), 1}, V8, ErrDataFormat},
		{"monitor without body", []byte{byte(MsgTypeReplServerMonitor), '1', 0, '2', 0}, V8, ErrDataFormat},
		{"monitor with bad body", []byte{byte(MsgTypeReplServerMonitor), '1', 0, '2', 0, 0x04, 0x01}, V8, ErrDataFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := GenerateMsg(tt.pdu, tt.version)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateMsg_RefusedLegacyTypes(t *testing.T) {
	for _, typ := range []MsgType{MsgTypeServerStartV1, MsgTypeReplServerInfoV1} {
		t.Run(typ.String(), func(t *testing.T) {
			_, err := GenerateMsg([]byte{byte(typ), byte(V1), 0}, V1)
			var refused *NotSupportedOldVersionPDUError
			require.True(t, errors.As(err, &refused))
			assert.Equal(t, typ, refused.Type)
			assert.False(t, errors.Is(err, ErrDataFormat))
		})
	}
}

func TestModify_V3RequiresTerminator(t *testing.T) {
	pdu, err := modifyFor(V3).Bytes(V3)
	require.NoError(t, err)

	_, err = GenerateMsg(pdu[:len(pdu)-1], V3)
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestServerState_RejectsMismatchedServerID(t *testing.T) {
	b := NewByteArrayBuilder(64)
	b.AppendByte(byte(MsgTypeServerStart)).AppendByte(byte(V8))
	AppendInt(b, int64(1))
	b.AppendByte(1).AppendString("dc=example,dc=com")
	AppendInt(b, 12)
	b.AppendString("ds1:1389")
	for i := 0; i < 6; i++ {
		AppendInt(b, 0)
	}
	b.AppendBoolString(false)
	AppendInt(b, 99)
	b.AppendCSN(testCSN).AppendByte(0)

	_, err := GenerateMsg(b.Bytes(), V8)
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestChangeTimeHeartbeat_Encoding(t *testing.T) {
	m := &ChangeTimeHeartbeatMsg{CSN: testCSN}

	for _, v := range []Version{V1, V6} {
		pdu, err := m.Bytes(v)
		require.NoError(t, err)
		assert.Len(t, pdu, 1+common.CSNLength+1, v)
		assert.Equal(t, testCSN.String(), string(pdu[1:1+common.CSNLength]))
	}
	for _, v := range []Version{V7, V8} {
		pdu, err := m.Bytes(v)
		require.NoError(t, err)
		assert.Equal(t, append([]byte{byte(MsgTypeCTHeartbeat)}, testCSN.Bytes()...), pdu, v)
	}
}

func TestReplicaOffline_BelowV8(t *testing.T) {
	for _, v := range allVersions[:7] {
		_, err := (&ReplicaOfflineMsg{CSN: testCSN}).Bytes(v)
		assert.ErrorIs(t, err, ErrVersionUnsupported, v)
	}
}

func TestMsg_InvalidEncodeVersion(t *testing.T) {
	msgs := []Msg{&WindowMsg{}, modifyFor(V4), &ServerStartMsg{}}
	for _, m := range msgs {
		for _, v := range []Version{0, 9} {
			_, err := m.Bytes(v)
			assert.ErrorIs(t, err, ErrInvalidVersion)
		}
	}
}

func TestAckMsg_Merge(t *testing.T) {
	ack := NewAckMsg(testCSN)
	assert.False(t, ack.HasErrors())

	ack.Merge(&AckMsg{CSN: testCSN, HasTimeout: true, FailedServers: []int{3}})
	ack.Merge(&AckMsg{CSN: testCSN})
	ack.Merge(&AckMsg{CSN: testCSN, HasReplayError: true, FailedServers: []int{7, 3}})

	assert.True(t, ack.HasErrors())
	assert.True(t, ack.HasTimeout)
	assert.False(t, ack.HasWrongStatus)
	assert.True(t, ack.HasReplayError)
	assert.Equal(t, []int{3, 7}, ack.FailedServers)

	pdu, err := ack.Bytes(CurrentVersion)
	require.NoError(t, err)
	got, err := GenerateMsg(pdu, CurrentVersion)
	require.NoError(t, err)
	assert.Equal(t, ack, got)
}

func TestCompareUpdates(t *testing.T) {
	early := &ModifyMsg{LDAPUpdate: LDAPUpdate{UpdateHeader: UpdateHeader{CSN: common.NewCSN(100, 0, 1)}}}
	sameTime := &DeleteMsg{LDAPUpdate: LDAPUpdate{UpdateHeader: UpdateHeader{CSN: common.NewCSN(100, 1, 1)}}}
	late := &UpdateMsg{UpdateHeader: UpdateHeader{CSN: common.NewCSN(200, 0, 1)}}
	twin := &AddMsg{LDAPUpdate: LDAPUpdate{UpdateHeader: UpdateHeader{CSN: common.NewCSN(200, 0, 1)}, DN: "dc=other"}}

	assert.Equal(t, -1, CompareUpdates(early, sameTime))
	assert.Equal(t, 1, CompareUpdates(sameTime, early))
	assert.Equal(t, -1, CompareUpdates(sameTime, late))
	assert.Equal(t, 0, CompareUpdates(late, twin))
	assert.Equal(t, 0, CompareUpdates(early, early))
}

func TestECLUpdate_RejectsNonUpdate(t *testing.T) {
	b := NewByteArrayBuilder(64)
	b.AppendByte(byte(MsgTypeECLUpdate)).AppendString("cookie").AppendString("dc=example,dc=com")
	AppendInt(b, 1)
	b.AppendByte(byte(MsgTypeWindow))
	AppendInt(b, 10)

	_, err := GenerateMsg(b.Bytes(), V4)
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestNegotiate(t *testing.T) {
	assert.Equal(t, V3, Negotiate(V3, V8))
	assert.Equal(t, V3, Negotiate(V8, V3))
	assert.Equal(t, V8, Negotiate(V8, CurrentVersion))
}

func TestVersion_Valid(t *testing.T) {
	for _, v := range allVersions {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, Version(0).Valid())
	assert.False(t, Version(9).Valid())
	assert.Equal(t, "V4", V4.String())
}

func TestMsgType_String(t *testing.T) {
	assert.Equal(t, "ACK", MsgTypeAck.String())
	assert.Equal(t, "REPLICA_OFFLINE", MsgTypeReplicaOffline.String())
	assert.Equal(t, "MsgType(99)", MsgType(99).String())
}

func TestCodec(t *testing.T) {
	_, err := NewCodec(Version(0))
	assert.ErrorIs(t, err, ErrInvalidVersion)

	c, err := NewCodec(V3)
	require.NoError(t, err)
	assert.Equal(t, V3, c.Version())

	pdu, err := c.Encode(&WindowMsg{NumAck: 7})
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(MsgTypeWindow), '7', 0}, pdu)

	got, err := c.Decode(pdu)
	require.NoError(t, err)
	assert.Equal(t, &WindowMsg{NumAck: 7}, got)

	_, err = c.Encode(&InitializeRcvAckMsg{})
	assert.ErrorIs(t, err, ErrVersionUnsupported)
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("ldap://h%d", i)
	}
	return out
}

func TestMsg_ListTooLong(t *testing.T) {
	tests := []struct {
		name string
		msg  Msg
	}{
		{"start session referrals", &StartSessionMsg{Status: common.NormalStatus, RefURLs: urls(MaxListLen + 1)}},
		{"start session ECL includes", &StartSessionMsg{Status: common.NormalStatus, ECLIncludes: urls(MaxListLen + 1)}},
		{"topology replication servers", &TopologyMsg{RSInfos: make([]common.RSInfo, MaxListLen+1)}},
	}

	c, err := NewCodec(V8)
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdu, err := c.Encode(tt.msg)
			assert.ErrorIs(t, err, ErrListTooLong)
			assert.Nil(t, pdu)
		})
	}

	m := &StartSessionMsg{Status: common.NormalStatus, RefURLs: urls(MaxListLen), ECLIncludes: []string{"cn"}}
	pdu, err := c.Encode(m)
	require.NoError(t, err)
	got, err := c.Decode(pdu)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
