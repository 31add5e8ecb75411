package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/config"
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/assured"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/session"
)

// replServer is the replication server of one domain. It relays the
// updates each connected server publishes to the others and collects the
// acks of assured updates.
type replServer struct {
	cfg     atomic.Pointer[config.Config]
	logger  logging.Logger
	metrics *session.Metrics
	acks    *assured.WaitingAcks

	mu    sync.Mutex
	state *common.ServerState
	peers map[int32]*peer
}

// peer is a directory or replication server connected to us.
type peer struct {
	id           int32
	url          string
	ds           bool
	groupID      int8
	generationID int64
	heartbeat    time.Duration

	s    *session.Session
	send *session.SendWindow
	recv *session.ReceiveWindow
	out  *outbox

	// Guarded by replServer.mu.
	started       bool
	status        common.ServerStatus
	assured       bool
	assuredMode   common.AssuredMode
	safeDataLevel byte
	refURLs       []string
	state         *common.ServerState
}

func newReplServer(cfg *config.Config, logger logging.Logger, metrics *session.Metrics, acks *assured.WaitingAcks) *replServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &replServer{
		logger:  logger,
		metrics: metrics,
		acks:    acks,
		state:   common.NewServerState(),
		peers:   make(map[int32]*peer),
	}
	r.cfg.Store(cfg)
	return r
}

func (r *replServer) config() *config.Config {
	return r.cfg.Load()
}

// reload swaps the configuration. Established sessions keep the window and
// heartbeat settings they started with.
func (r *replServer) reload(oldCfg, newCfg *config.Config) {
	r.cfg.Store(newCfg)

	o, n := oldCfg.Replication, newCfg.Replication
	if o.ServerID != n.ServerID || o.BaseDN != n.BaseDN {
		r.logger.Warn("server ID and base DN changes need a restart",
			logging.FieldServerID, n.ServerID,
			"baseDN", n.BaseDN)
	}
	if o.GenerationID != n.GenerationID {
		r.logger.Info("generation ID changed", "old", o.GenerationID, "new", n.GenerationID)
	}
	if o.WindowSize != n.WindowSize || o.HeartbeatInterval != n.HeartbeatInterval {
		r.logger.Info("session settings changed, new sessions use them",
			"windowSize", n.WindowSize,
			"heartbeatInterval", n.HeartbeatInterval)
	}
}

// respond answers the start message of a connecting server.
func (r *replServer) respond(start protocol.StartEnvelope) (protocol.StartEnvelope, error) {
	cfg := r.config()

	var id int32
	var baseDN string
	switch m := start.(type) {
	case *protocol.ServerStartMsg:
		id, baseDN = m.ServerID, m.BaseDN
	case *protocol.ReplServerStartMsg:
		id, baseDN = m.ServerID, m.BaseDN
	default:
		return nil, fmt.Errorf("%s sessions are not served", start.Type())
	}

	if !sameDN(baseDN, cfg.Replication.BaseDN) {
		return nil, fmt.Errorf("base DN %q is not replicated here", baseDN)
	}
	if id == int32(cfg.Replication.ServerID) {
		return nil, fmt.Errorf("server ID %d is our own", id)
	}
	r.mu.Lock()
	_, dup := r.peers[id]
	r.mu.Unlock()
	if dup {
		return nil, fmt.Errorf("server ID %d is already connected", id)
	}

	return r.startMsg(cfg), nil
}

func (r *replServer) startMsg(cfg *config.Config) *protocol.ReplServerStartMsg {
	r.mu.Lock()
	state := r.state.Duplicate()
	r.mu.Unlock()

	return &protocol.ReplServerStartMsg{
		StartHeader: protocol.StartHeader{
			GenerationID: cfg.Replication.GenerationID,
			GroupID:      int8(cfg.Replication.GroupID),
		},
		ServerID:                int32(cfg.Replication.ServerID),
		ServerURL:               cfg.Replication.AdvertisedURL(),
		BaseDN:                  cfg.Replication.BaseDN,
		WindowSize:              int32(cfg.Replication.WindowSize),
		SSLEncryption:           cfg.Replication.SSLEncryption,
		DegradedStatusThreshold: int32(cfg.Replication.DegradedStatusThreshold),
		ServerState:             state,
	}
}

func sameDN(a, b string) bool {
	da, err := ldap.ParseDN(a)
	if err != nil {
		return false
	}
	db, err := ldap.ParseDN(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(da.String(), db.String())
}

func newPeer(s *session.Session, start protocol.StartEnvelope, cfg *config.Config, metrics *session.Metrics) *peer {
	p := &peer{
		s:            s,
		groupID:      start.Start().GroupID,
		generationID: start.Start().GenerationID,
		status:       common.NormalStatus,
		out:          newOutbox(),
	}

	var window int32
	var state *common.ServerState
	switch m := start.(type) {
	case *protocol.ServerStartMsg:
		p.id, p.url, p.ds = m.ServerID, m.ServerURL, true
		p.heartbeat = time.Duration(m.HeartbeatInterval) * time.Millisecond
		window, state = m.WindowSize, m.ServerState
	case *protocol.ReplServerStartMsg:
		p.id, p.url = m.ServerID, m.ServerURL
		// Replication servers exchange topology right away.
		p.started = true
		window, state = m.WindowSize, m.ServerState
	}

	if state == nil {
		state = common.NewServerState()
	}
	p.state = state.Duplicate()
	if p.heartbeat <= 0 {
		p.heartbeat = cfg.Replication.HeartbeatInterval
	}
	if window <= 0 {
		window = int32(cfg.Replication.WindowSize)
	}
	p.send = session.NewSendWindow(int(window), cfg.Replication.ProbeInterval, s, metrics)
	p.recv = session.NewReceiveWindow(cfg.Replication.WindowSize, s)
	return p
}

func (r *replServer) register(p *peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[p.id]; ok {
		return false
	}
	r.peers[p.id] = p
	return true
}

func (r *replServer) unregister(p *peer) {
	r.mu.Lock()
	if r.peers[p.id] == p {
		delete(r.peers, p.id)
	}
	r.mu.Unlock()
	r.broadcastTopology()
}

// handle serves one session until it closes.
func (r *replServer) handle(ctx context.Context, s *session.Session, start protocol.StartEnvelope) {
	cfg := r.config()
	p := newPeer(s, start, cfg, r.metrics)
	log := s.Logger().WithFields(logging.FieldPeerID, p.id)

	// Two sessions of the same server can pass respond concurrently.
	if !r.register(p) {
		log.Warn("server ID is already connected")
		return
	}
	defer r.unregister(p)

	log.Info("replication peer connected",
		"directoryServer", p.ds,
		"url", p.url,
		"version", s.Version())

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.writeLoop(ctx, p)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if p.heartbeat > 0 {
		hb := session.NewHeartbeatPublisher(s, p.heartbeat)
		hb.Start(ctx)
		defer hb.Stop()
	}
	if iv := cfg.Replication.HeartbeatInterval; iv > 0 {
		mon := session.NewHeartbeatMonitor(s, iv)
		mon.Start(ctx)
		defer mon.Stop()
	}

	if !p.ds {
		r.broadcastTopology()
	}

	for {
		msg, err := s.Receive()
		if err != nil {
			var refused *protocol.NotSupportedOldVersionPDUError
			if errors.As(err, &refused) {
				continue
			}
			if !s.IsClosed() && !errors.Is(err, io.EOF) {
				log.Warn("replication session failed", "error", err)
			}
			break
		}
		if stop := r.dispatch(p, msg, log); stop {
			break
		}
	}
	log.Info("replication peer disconnected")
}

// dispatch handles one message received from p. It returns true when the
// session should end.
func (r *replServer) dispatch(p *peer, msg protocol.Msg, log logging.Logger) bool {
	switch m := msg.(type) {
	case *protocol.WindowMsg:
		p.send.Grant(int(m.NumAck))
	case *protocol.WindowProbeMsg:
		if err := p.recv.HandleProbe(); err != nil {
			return true
		}
	case *protocol.HeartbeatMsg:
	case *protocol.StartSessionMsg:
		r.startSession(p, m, log)
	case *protocol.ChangeStatusMsg:
		r.setStatus(p, m.NewStatus, log)
	case *protocol.AckMsg:
		r.acks.ProcessAck(int(p.id), m)
	case *protocol.MonitorRequestMsg:
		p.out.push(r.monitor(m))
	case *protocol.ChangeTimeHeartbeatMsg:
		r.relay(p, m)
	case *protocol.StopMsg:
		log.Debug("peer stopped the session")
		return true
	case protocol.UpdateEnvelope:
		if err := p.recv.Received(); err != nil {
			return true
		}
		r.handleUpdate(p, m, log)
	default:
		log.Debug("ignored replication message", logging.FieldMsgType, msg.Type())
	}
	return false
}

func (r *replServer) startSession(p *peer, m *protocol.StartSessionMsg, log logging.Logger) {
	r.mu.Lock()
	p.started = true
	p.status = m.Status
	p.assured = m.Assured
	p.assuredMode = m.AssuredMode
	p.safeDataLevel = m.SafeDataLevel
	p.refURLs = append([]string(nil), m.RefURLs...)
	r.mu.Unlock()

	log.Info("replication session started",
		"status", m.Status,
		"assured", m.Assured,
		"assuredMode", m.AssuredMode)
	r.broadcastTopology()
}

func (r *replServer) setStatus(p *peer, status common.ServerStatus, log logging.Logger) {
	r.mu.Lock()
	old := p.status
	p.status = status
	r.mu.Unlock()

	if old != status {
		log.Info("peer status changed", "old", old, "new", status)
		r.broadcastTopology()
	}
}

// handleUpdate records an update, relays it and starts waiting for its
// acks when it is assured.
func (r *replServer) handleUpdate(p *peer, m protocol.UpdateEnvelope, log logging.Logger) {
	h := m.Header()
	cfg := r.config()

	r.mu.Lock()
	r.state.Update(h.CSN)
	p.state.Update(h.CSN)
	var source assured.Server
	var rs, ds []assured.Server
	if h.Assured {
		source, rs, ds = r.assuredViewLocked(p, cfg.Replication.DegradedStatusThreshold)
	}
	targets := r.relayTargetsLocked(p)
	r.mu.Unlock()

	if h.Assured {
		domain := assured.Domain{
			GroupID:      int8(cfg.Replication.GroupID),
			GenerationID: cfg.Replication.GenerationID,
		}
		plan, err := domain.Prepare(h, source, rs, ds)
		switch {
		case err != nil:
			log.Warn("assured update relayed without acks", logging.FieldCSN, h.CSN, "error", err)
		case plan.Expected != nil:
			if err := r.acks.Add(plan.Expected, p.s); err != nil {
				log.Warn("assured update already waiting", logging.FieldCSN, h.CSN, "error", err)
			}
		case plan.AckNow:
			p.out.push(protocol.NewAckMsg(h.CSN))
		}
	}

	for _, t := range targets {
		t.out.push(m)
	}
}

// relay sends a message that carries no update to the same servers an
// update from p would go to.
func (r *replServer) relay(p *peer, m protocol.Msg) {
	r.mu.Lock()
	targets := r.relayTargetsLocked(p)
	r.mu.Unlock()
	for _, t := range targets {
		t.out.push(m)
	}
}

// relayTargetsLocked returns the peers an update from p goes to. Updates
// from a replication server only go to directory servers; the other
// replication servers got it from its source.
func (r *replServer) relayTargetsLocked(p *peer) []*peer {
	var targets []*peer
	for _, t := range r.sortedPeersLocked() {
		if t == p || (!p.ds && !t.ds) {
			continue
		}
		targets = append(targets, t)
	}
	return targets
}

func (r *replServer) assuredViewLocked(source *peer, threshold int) (assured.Server, []assured.Server, []assured.Server) {
	var rs, ds []assured.Server
	for _, p := range r.sortedPeersLocked() {
		s := r.assuredServerLocked(p, threshold)
		if p.ds {
			ds = append(ds, s)
		} else {
			rs = append(rs, s)
		}
	}
	return r.assuredServerLocked(source, threshold), rs, ds
}

// assuredServerLocked describes p for ack planning. A directory server
// with a backlog at the degraded threshold is degraded whatever it reports.
func (r *replServer) assuredServerLocked(p *peer, threshold int) assured.Server {
	status := p.status
	if status == common.NormalStatus && threshold > 0 && p.out.backlog() >= threshold {
		status = common.DegradedStatus
	}
	return assured.Server{
		ID:           int(p.id),
		GroupID:      p.groupID,
		GenerationID: p.generationID,
		Status:       status,
		DataServer:   p.ds,
	}
}

// writeLoop publishes the messages queued for p. Updates spend send
// window credit.
func (r *replServer) writeLoop(ctx context.Context, p *peer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.s.Done():
			return
		case <-p.out.ready():
		}

		for _, m := range p.out.take() {
			if _, ok := m.(protocol.UpdateEnvelope); ok {
				if err := p.send.Acquire(ctx); err != nil {
					return
				}
			}
			err := p.s.Publish(m)
			p.out.published()
			if err != nil {
				p.s.Logger().Debug("publish failed", logging.FieldMsgType, m.Type(), "error", err)
				p.s.Close()
				return
			}
		}
	}
}

// monitor builds the answer to a monitoring request.
func (r *replServer) monitor(req *protocol.MonitorRequestMsg) *protocol.MonitorMsg {
	cfg := r.config()

	r.mu.Lock()
	defer r.mu.Unlock()

	m := &protocol.MonitorMsg{
		Routing: protocol.Routing{
			SenderID:      int32(cfg.Replication.ServerID),
			DestinationID: req.SenderID,
		},
		ReplServerDBState: r.state.Duplicate(),
	}
	for _, p := range r.sortedPeersLocked() {
		d := protocol.ServerMonitorData{
			ServerID:               p.id,
			ApproxFirstMissingDate: r.firstMissingLocked(p),
			State:                  p.state.Duplicate(),
		}
		if p.ds {
			m.LDAPServers = append(m.LDAPServers, d)
		} else {
			m.ReplServers = append(m.ReplServers, d)
		}
	}
	return m
}

// firstMissingLocked returns the time of the oldest change we hold that p
// has not seen, or zero.
func (r *replServer) firstMissingLocked(p *peer) int64 {
	var oldest int64
	for _, csn := range r.state.CSNs() {
		if p.state.Cover(csn) {
			continue
		}
		if oldest == 0 || csn.Time < oldest {
			oldest = csn.Time
		}
	}
	return oldest
}

// broadcastTopology sends every started peer the topology as seen from
// its side.
func (r *replServer) broadcastTopology() {
	cfg := r.config()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.sortedPeersLocked() {
		if p.started {
			p.out.push(r.topologyLocked(cfg, p))
		}
	}
}

func (r *replServer) topologyLocked(cfg *config.Config, dest *peer) *protocol.TopologyMsg {
	self := int32(cfg.Replication.ServerID)
	t := &protocol.TopologyMsg{
		RSInfos: []common.RSInfo{{
			ID:           self,
			URL:          cfg.Replication.AdvertisedURL(),
			GenerationID: cfg.Replication.GenerationID,
			GroupID:      int8(cfg.Replication.GroupID),
			Weight:       1,
		}},
	}
	for _, p := range r.sortedPeersLocked() {
		if p == dest {
			continue
		}
		if !p.ds {
			t.RSInfos = append(t.RSInfos, common.RSInfo{
				ID:           p.id,
				URL:          p.url,
				GenerationID: p.generationID,
				GroupID:      p.groupID,
				Weight:       1,
			})
			continue
		}
		t.DSInfos = append(t.DSInfos, common.DSInfo{
			DSID:            p.id,
			URL:             p.url,
			RSID:            self,
			GenerationID:    p.generationID,
			Status:          p.status,
			Assured:         p.assured,
			AssuredMode:     p.assuredMode,
			SafeDataLevel:   int8(p.safeDataLevel),
			GroupID:         p.groupID,
			RefURLs:         p.refURLs,
			ProtocolVersion: int16(p.s.Version()),
		})
	}
	return t
}

func (r *replServer) sortedPeersLocked() []*peer {
	peers := make([]*peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].id < peers[j].id })
	return peers
}

// peerStatus is the view of a peer reported by the health endpoint.
type peerStatus struct {
	ID      int32  `json:"id"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Version int    `json:"version"`
	Backlog int    `json:"backlog"`
}

func (r *replServer) peerStatuses() []peerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]peerStatus, 0, len(r.peers))
	for _, p := range r.sortedPeersLocked() {
		kind := "replication-server"
		if p.ds {
			kind = "directory-server"
		}
		statuses = append(statuses, peerStatus{
			ID:      p.id,
			URL:     p.url,
			Kind:    kind,
			Status:  p.status.String(),
			Version: int(p.s.Version()),
			Backlog: p.out.backlog(),
		})
	}
	return statuses
}
