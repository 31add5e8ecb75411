package common

import (
	"sort"
	"strings"
	"sync"
)

// ServerState records, per server ID, the latest CSN seen from that
// server. It is safe for concurrent use.
type ServerState struct {
	mu   sync.RWMutex
	csns map[uint16]CSN
}

// NewServerState creates an empty state.
func NewServerState() *ServerState {
	return &ServerState{csns: make(map[uint16]CSN)}
}

// Update records csn if it is newer than the CSN held for its server. It
// reports whether the state changed.
func (s *ServerState) Update(csn CSN) bool {
	if csn.IsZero() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.csns[csn.ServerID]; ok && !csn.After(cur) {
		return false
	}
	s.csns[csn.ServerID] = csn
	return true
}

// Cover reports whether the state already includes csn.
func (s *ServerState) Cover(csn CSN) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.csns[csn.ServerID]
	return ok && !cur.Before(csn)
}

// Get returns the CSN held for serverID.
func (s *ServerState) Get(serverID uint16) (CSN, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	csn, ok := s.csns[serverID]
	return csn, ok
}

// ServerIDs returns the server IDs in ascending order.
func (s *ServerState) ServerIDs() []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint16, 0, len(s.csns))
	for id := range s.csns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CSNs returns the held CSNs ordered by server ID.
func (s *ServerState) CSNs() []CSN {
	ids := s.ServerIDs()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CSN, 0, len(ids))
	for _, id := range ids {
		if csn, ok := s.csns[id]; ok {
			out = append(out, csn)
		}
	}
	return out
}

// Len returns the number of servers in the state.
func (s *ServerState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.csns)
}

// IsEmpty reports whether the state holds no CSN.
func (s *ServerState) IsEmpty() bool {
	return s.Len() == 0
}

// Duplicate returns an independent copy.
func (s *ServerState) Duplicate() *ServerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := &ServerState{csns: make(map[uint16]CSN, len(s.csns))}
	for id, csn := range s.csns {
		d.csns[id] = csn
	}
	return d
}

// Equal reports whether both states hold the same CSNs.
func (s *ServerState) Equal(o *ServerState) bool {
	a, b := s.CSNs(), o.CSNs()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String returns the CSNs ordered by server ID, space separated.
func (s *ServerState) String() string {
	csns := s.CSNs()
	parts := make([]string, len(csns))
	for i, csn := range csns {
		parts[i] = csn.String()
	}
	return strings.Join(parts, " ")
}
