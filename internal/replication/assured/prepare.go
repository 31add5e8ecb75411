package assured

import (
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// Server is what Prepare needs to know about a connected server.
type Server struct {
	ID           int
	GroupID      int8
	GenerationID int64
	Status       common.ServerStatus
	// DataServer is true for directory servers and false for replication
	// servers.
	DataServer bool
}

// Domain is the local replication server's view of a replication domain.
type Domain struct {
	GroupID      int8
	GenerationID int64
}

// Plan is the outcome of Prepare.
type Plan struct {
	// AckNow asks for an AckMsg to be sent to the source at once.
	AckNow bool
	// Expected is set when acks must be collected first. The update is
	// forwarded as assured to Expected.Servers().
	Expected *ExpectedAcks
}

// Prepare decides how the assured update h received from source is
// acknowledged. rs and ds are the other connected replication and directory
// servers; source may appear in ds. Non-assured updates yield an empty Plan.
func (d Domain) Prepare(h protocol.UpdateHeader, source Server, rs, ds []Server) (Plan, error) {
	if !h.Assured {
		return Plan{}, nil
	}
	switch h.AssuredMode {
	case common.SafeReadMode:
		return d.prepareSafeRead(h.CSN, source, rs, ds), nil
	case common.SafeDataMode:
		return d.prepareSafeData(h.CSN, h.SafeDataLevel, source, rs)
	default:
		return Plan{}, fmt.Errorf("%w: %d", ErrUnknownMode, h.AssuredMode)
	}
}

func (d Domain) prepareSafeRead(csn common.CSN, source Server, rs, ds []Server) Plan {
	var expected, wrongStatus []int

	// Assured replication does not cross groups.
	if source.GroupID == d.GroupID {
		if source.DataServer {
			expected = append(expected, d.eligibleReplServers(rs)...)
		}
		for _, s := range ds {
			if s.ID == source.ID || s.GroupID != d.GroupID {
				continue
			}
			switch s.Status {
			case common.NormalStatus:
				expected = append(expected, s.ID)
			case common.DegradedStatus:
				wrongStatus = append(wrongStatus, s.ID)
			}
			// Servers in full update or bad generation are being
			// administered and are not reported.
		}
	}

	if len(expected) == 0 {
		return Plan{AckNow: true}
	}
	return Plan{Expected: NewSafeRead(csn, source.ID, expected, wrongStatus)}
}

func (d Domain) prepareSafeData(csn common.CSN, level byte, source Server, rs []Server) (Plan, error) {
	if level < 1 {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidSafeDataLevel, level)
	}
	if source.GroupID != d.GroupID || !d.sameGeneration(source.GenerationID) {
		return Plan{}, nil
	}

	if !source.DataServer {
		// The sending replication server already holds the update, which
		// satisfies level one.
		return Plan{AckNow: level > 1}, nil
	}
	if level == 1 {
		return Plan{AckNow: true}, nil
	}

	expected := d.eligibleReplServers(rs)
	if len(expected) == 0 {
		return Plan{AckNow: true}, nil
	}
	// The level is best effort: with too few eligible servers it is lowered
	// to what the topology can provide.
	if needed := int(level) - 1; len(expected) < needed {
		level = byte(len(expected) + 1)
	}
	return Plan{Expected: NewSafeData(csn, source.ID, level, expected)}, nil
}

func (d Domain) eligibleReplServers(rs []Server) []int {
	var ids []int
	for _, s := range rs {
		if s.GroupID == d.GroupID && d.sameGeneration(s.GenerationID) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (d Domain) sameGeneration(id int64) bool {
	return d.GenerationID > 0 && d.GenerationID == id
}
