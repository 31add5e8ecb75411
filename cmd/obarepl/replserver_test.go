package main

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/config"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/assured"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/session"
)

const testGen = 4242

type testEnv struct {
	t       *testing.T
	rs      *replServer
	addr    string
	metrics *session.Metrics
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Replication.ServerID = 101
	cfg.Replication.Address = "127.0.0.1:0"
	cfg.Replication.URL = "rs1.example.com:8989"
	cfg.Replication.BaseDN = "dc=example,dc=com"
	cfg.Replication.GenerationID = testGen
	cfg.Replication.HeartbeatInterval = 0
	cfg.Replication.WindowSize = 10
	cfg.Replication.ProbeInterval = 20 * time.Millisecond
	cfg.Assured.Timeout = 100 * time.Millisecond
	return cfg
}

// startReplServer serves a replServer on a loopback port. Session metrics
// are registered with reg when it is not nil.
func startReplServer(t *testing.T, cfg *config.Config, reg prometheus.Registerer) *testEnv {
	t.Helper()
	m := session.NewMetrics(reg)
	acks := assured.NewWaitingAcks(cfg.Assured.Timeout, nil, assured.NewMetrics(nil))
	rs := newReplServer(cfg, nil, m, acks)

	nl, err := net.Listen("tcp", cfg.Replication.Address)
	require.NoError(t, err)
	ln := session.NewListener(nl, protocol.CurrentVersion, rs.respond, nil, session.WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- ln.Serve(ctx, rs.handle) }()
	t.Cleanup(func() {
		cancel()
		<-served
		acks.Close()
	})
	return &testEnv{t: t, rs: rs, addr: nl.Addr().String(), metrics: m}
}

// testDS is a directory server end of a session. Everything it receives
// is queued on msgs.
type testDS struct {
	t    *testing.T
	id   int32
	s    *session.Session
	msgs chan protocol.Msg
}

func dsStart(id, window int32) *protocol.ServerStartMsg {
	return &protocol.ServerStartMsg{
		StartHeader: protocol.StartHeader{GenerationID: testGen, GroupID: 1},
		ServerID:    id,
		ServerURL:   fmt.Sprintf("ds%d.example.com:1389", id),
		BaseDN:      "dc=example,dc=com",
		WindowSize:  window,
		ServerState: common.NewServerState(),
	}
}

func (e *testEnv) dial(start protocol.StartEnvelope) (*session.Session, protocol.StartEnvelope, error) {
	conn, err := net.Dial("tcp", e.addr)
	require.NoError(e.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return session.Connect(ctx, conn, protocol.CurrentVersion, start, session.WithMetrics(e.metrics))
}

// connectDS opens a session, starts it and waits for the first topology.
func (e *testEnv) connectDS(id, window int32) *testDS {
	t := e.t
	t.Helper()

	s, peer, err := e.dial(dsStart(id, window))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.IsType(t, &protocol.ReplServerStartMsg{}, peer)

	d := &testDS{t: t, id: id, s: s, msgs: make(chan protocol.Msg, 256)}
	go func() {
		defer close(d.msgs)
		for {
			msg, err := s.Receive()
			if err != nil {
				return
			}
			d.msgs <- msg
		}
	}()

	require.NoError(t, s.Publish(&protocol.StartSessionMsg{Status: common.NormalStatus}))
	waitFor[*protocol.TopologyMsg](t, d)
	return d
}

// waitFor returns the next message of type T, skipping others.
func waitFor[T protocol.Msg](t *testing.T, d *testDS) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-d.msgs:
			require.True(t, ok, "session of server %d closed", d.id)
			if m, ok := msg.(T); ok {
				return m
			}
		case <-timeout:
			var zero T
			t.Fatalf("server %d received no %T", d.id, zero)
			return zero
		}
	}
}

// noMessage fails if a message of type T arrives within d.
func noMessage[T protocol.Msg](t *testing.T, ds *testDS, d time.Duration) {
	t.Helper()
	timeout := time.After(d)
	for {
		select {
		case msg, ok := <-ds.msgs:
			if !ok {
				return
			}
			if _, match := msg.(T); match {
				t.Fatalf("server %d received unexpected %s", ds.id, msg.Type())
			}
		case <-timeout:
			return
		}
	}
}

func update(csn common.CSN, payload string) *protocol.UpdateMsg {
	return &protocol.UpdateMsg{
		UpdateHeader: protocol.UpdateHeader{CSN: csn},
		Payload:      []byte(payload),
	}
}

func TestReplServer_RelaysUpdates(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 10)

	csn := common.NewCSN(0x18c4f2a1b30, 1, 1)
	require.NoError(t, ds1.s.Publish(update(csn, "change")))

	got := waitFor[*protocol.UpdateMsg](t, ds2)
	assert.Equal(t, csn, got.CSN)
	assert.Equal(t, []byte("change"), got.Payload)
	noMessage[*protocol.UpdateMsg](t, ds1, 50*time.Millisecond)

	env.rs.mu.Lock()
	latest, ok := env.rs.state.Get(1)
	env.rs.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, csn, latest)
}

func TestReplServer_Topology(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 10)

	// ds1 hears about ds2.
	topo := waitFor[*protocol.TopologyMsg](t, ds1)
	require.Len(t, topo.DSInfos, 1)
	assert.Equal(t, int32(2), topo.DSInfos[0].DSID)
	assert.Equal(t, "ds2.example.com:1389", topo.DSInfos[0].URL)
	assert.Equal(t, int32(101), topo.DSInfos[0].RSID)
	assert.Equal(t, common.NormalStatus, topo.DSInfos[0].Status)
	require.Len(t, topo.RSInfos, 1)
	assert.Equal(t, int32(101), topo.RSInfos[0].ID)
	assert.Equal(t, "rs1.example.com:8989", topo.RSInfos[0].URL)

	require.NoError(t, ds2.s.Publish(&protocol.ChangeStatusMsg{NewStatus: common.DegradedStatus}))
	topo = waitFor[*protocol.TopologyMsg](t, ds1)
	require.Len(t, topo.DSInfos, 1)
	assert.Equal(t, common.DegradedStatus, topo.DSInfos[0].Status)

	ds2.s.Close()
	topo = waitFor[*protocol.TopologyMsg](t, ds1)
	assert.Empty(t, topo.DSInfos)
	require.Eventually(t, func() bool {
		return len(env.rs.peerStatuses()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestReplServer_SafeReadAck(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 10)

	csn := common.NewCSN(0x18c4f2a1b30, 2, 1)
	u := update(csn, "assured")
	u.Assured = true
	u.AssuredMode = common.SafeReadMode
	require.NoError(t, ds1.s.Publish(u))

	got := waitFor[*protocol.UpdateMsg](t, ds2)
	require.True(t, got.Assured)
	require.NoError(t, ds2.s.Publish(protocol.NewAckMsg(got.CSN)))

	ack := waitFor[*protocol.AckMsg](t, ds1)
	assert.Equal(t, csn, ack.CSN)
	assert.False(t, ack.HasErrors())
}

func TestReplServer_SafeReadTimeout(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 10)

	csn := common.NewCSN(0x18c4f2a1b30, 3, 1)
	u := update(csn, "never acked")
	u.Assured = true
	u.AssuredMode = common.SafeReadMode
	require.NoError(t, ds1.s.Publish(u))
	waitFor[*protocol.UpdateMsg](t, ds2)

	ack := waitFor[*protocol.AckMsg](t, ds1)
	assert.Equal(t, csn, ack.CSN)
	assert.True(t, ack.HasTimeout)
	assert.Equal(t, []int{2}, ack.FailedServers)
}

func TestReplServer_SafeDataWithoutReplServers(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)

	csn := common.NewCSN(0x18c4f2a1b30, 4, 1)
	u := update(csn, "safe data")
	u.Assured = true
	u.AssuredMode = common.SafeDataMode
	u.SafeDataLevel = 2
	require.NoError(t, ds1.s.Publish(u))

	ack := waitFor[*protocol.AckMsg](t, ds1)
	assert.Equal(t, csn, ack.CSN)
	assert.False(t, ack.HasErrors())
}

func TestReplServer_SafeDataFromReplServer(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)

	s, _, err := env.dial(&protocol.ReplServerStartMsg{
		StartHeader: protocol.StartHeader{GenerationID: testGen, GroupID: 1},
		ServerID:    102,
		ServerURL:   "rs2.example.com:8989",
		BaseDN:      "dc=example,dc=com",
		WindowSize:  10,
		ServerState: common.NewServerState(),
	})
	require.NoError(t, err)
	defer s.Close()
	rs2 := &testDS{t: t, id: 102, s: s, msgs: make(chan protocol.Msg, 64)}
	go func() {
		defer close(rs2.msgs)
		for {
			msg, err := s.Receive()
			if err != nil {
				return
			}
			rs2.msgs <- msg
		}
	}()

	topo := waitFor[*protocol.TopologyMsg](t, rs2)
	require.Len(t, topo.DSInfos, 1)
	assert.Equal(t, int32(1), topo.DSInfos[0].DSID)

	csn := common.NewCSN(0x18c4f2a1b30, 5, 7)
	u := update(csn, "from rs2")
	u.Assured = true
	u.AssuredMode = common.SafeDataMode
	u.SafeDataLevel = 2
	require.NoError(t, s.Publish(u))

	// We hold the update, which is the second level.
	ack := waitFor[*protocol.AckMsg](t, rs2)
	assert.Equal(t, csn, ack.CSN)
	got := waitFor[*protocol.UpdateMsg](t, ds1)
	assert.Equal(t, csn, got.CSN)
}

func TestReplServer_SendWindow(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 2)

	const updates = 6
	for i := 0; i < updates; i++ {
		require.NoError(t, ds1.s.Publish(update(common.NewCSN(0x18c4f2a1b30, uint32(10+i), 1), "u")))
	}

	for i := 0; i < updates; i++ {
		got := waitFor[*protocol.UpdateMsg](t, ds2)
		assert.Equal(t, uint32(10+i), got.CSN.SeqNum)
		if i%2 == 1 {
			require.NoError(t, ds2.s.Publish(&protocol.WindowMsg{NumAck: 2}))
		}
	}

	// Half of ds1's window was used; the credit comes back.
	assert.Equal(t, int32(5), waitFor[*protocol.WindowMsg](t, ds1).NumAck)
}

func TestReplServer_WindowProbe(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 1)

	require.NoError(t, ds1.s.Publish(update(common.NewCSN(0x18c4f2a1b30, 1, 1), "a")))
	require.NoError(t, ds1.s.Publish(update(common.NewCSN(0x18c4f2a1b30, 2, 1), "b")))
	waitFor[*protocol.UpdateMsg](t, ds2)

	// Out of credit, the server probes until ds2 grants more.
	waitFor[*protocol.WindowProbeMsg](t, ds2)
	require.NoError(t, ds2.s.Publish(&protocol.WindowMsg{NumAck: 1}))
	got := waitFor[*protocol.UpdateMsg](t, ds2)
	assert.Equal(t, []byte("b"), got.Payload)
}

func TestReplServer_Monitor(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)
	ds2 := env.connectDS(2, 10)

	csn := common.NewCSN(0x18c4f2a1b30, 1, 1)
	require.NoError(t, ds1.s.Publish(update(csn, "x")))
	waitFor[*protocol.UpdateMsg](t, ds2)

	require.NoError(t, ds2.s.Publish(&protocol.MonitorRequestMsg{
		Routing: protocol.Routing{SenderID: 2, DestinationID: 101},
	}))
	m := waitFor[*protocol.MonitorMsg](t, ds2)

	assert.Equal(t, int32(101), m.SenderID)
	assert.Equal(t, int32(2), m.DestinationID)
	assert.True(t, m.ReplServerDBState.Cover(csn))
	require.Len(t, m.LDAPServers, 2)
	assert.Empty(t, m.ReplServers)

	assert.Equal(t, int32(1), m.LDAPServers[0].ServerID)
	assert.Zero(t, m.LDAPServers[0].ApproxFirstMissingDate)
	assert.True(t, m.LDAPServers[0].State.Cover(csn))

	assert.Equal(t, int32(2), m.LDAPServers[1].ServerID)
	assert.Equal(t, csn.Time, m.LDAPServers[1].ApproxFirstMissingDate)
}

func TestReplServer_RejectsSessions(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	env.connectDS(1, 10)

	tests := []struct {
		name  string
		start protocol.StartEnvelope
	}{
		{"other base DN", func() protocol.StartEnvelope {
			m := dsStart(3, 10)
			m.BaseDN = "dc=other,dc=com"
			return m
		}()},
		{"duplicate server ID", dsStart(1, 10)},
		{"our server ID", dsStart(101, 10)},
		{"external change log", &protocol.ServerStartECLMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, err := env.dial(tt.start)
			if s != nil {
				s.Close()
			}
			assert.Error(t, err)
		})
	}
	assert.Len(t, env.rs.peerStatuses(), 1)
}

func TestReplServer_StopMsgEndsSession(t *testing.T) {
	env := startReplServer(t, testConfig(), nil)
	ds1 := env.connectDS(1, 10)

	require.NoError(t, ds1.s.Publish(&protocol.StopMsg{}))
	require.Eventually(t, func() bool {
		return len(env.rs.peerStatuses()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestReplServer_Reload(t *testing.T) {
	cfg := testConfig()
	env := startReplServer(t, cfg, nil)

	next := testConfig()
	next.Replication.WindowSize = 3
	env.rs.reload(cfg, next)
	assert.Same(t, next, env.rs.config())

	// New sessions advertise the new window.
	s, peer, err := env.dial(dsStart(2, 10))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, int32(3), peer.(*protocol.ReplServerStartMsg).WindowSize)
}

func TestSameDN(t *testing.T) {
	assert.True(t, sameDN("dc=example,dc=com", "DC=Example, DC=com"))
	assert.False(t, sameDN("dc=example,dc=com", "dc=example,dc=org"))
	assert.False(t, sameDN("not a dn", "not a dn"))
}

func TestOutbox(t *testing.T) {
	o := newOutbox()
	assert.Equal(t, 1, o.push(&protocol.HeartbeatMsg{}))
	assert.Equal(t, 2, o.push(&protocol.HeartbeatMsg{}))

	select {
	case <-o.ready():
	default:
		t.Fatal("push did not signal")
	}

	msgs := o.take()
	assert.Len(t, msgs, 2)
	assert.Empty(t, o.take())
	assert.Equal(t, 2, o.backlog())

	o.published()
	o.published()
	assert.Zero(t, o.backlog())
}
